package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-service/internal/auth"
	"storefront-service/internal/domain"
	"storefront-service/internal/events"
	"storefront-service/internal/infra/cache"
	"storefront-service/internal/metrics"
	"storefront-service/internal/mocks"
	"storefront-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type testServer struct {
	router    *gin.Engine
	tokens    *auth.TokenManager
	carts     *mocks.MockCartRepository
	orders    *mocks.MockOrderRepository
	ledger    *mocks.MockInventoryLedger
	gateway   *mocks.MockPaymentGateway
	products  *mocks.MockProductRepository
	reviews   *mocks.MockReviewRepository
	publisher *mocks.MockPublisher
	notifier  *services.Notifier
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &testServer{
		tokens:    auth.NewTokenManager("test-secret", time.Hour),
		carts:     new(mocks.MockCartRepository),
		orders:    new(mocks.MockOrderRepository),
		ledger:    new(mocks.MockInventoryLedger),
		gateway:   new(mocks.MockPaymentGateway),
		products:  new(mocks.MockProductRepository),
		reviews:   new(mocks.MockReviewRepository),
		publisher: new(mocks.MockPublisher),
	}
	log := zap.NewNop()
	s.notifier = services.NewNotifier(s.publisher, time.Second, log)
	checkout, err := services.NewCheckoutService(services.CheckoutDeps{
		Tx:       mocks.TxManager{},
		Carts:    s.carts,
		Orders:   s.orders,
		Ledger:   s.ledger,
		Gateway:  s.gateway,
		Locker:   cache.NewMemoryLocker(),
		Notifier: s.notifier,
		Log:      log,
	})
	require.NoError(t, err)
	categories := new(mocks.MockCategoryRepository)

	h := NewHandler(Deps{
		Checkout:      checkout,
		Carts:         services.NewCartService(s.carts, s.products),
		Products:      services.NewProductService(s.products, categories, nil, nil, s.notifier, log),
		Categories:    services.NewCategoryService(categories, s.notifier),
		Reviews:       services.NewReviewService(s.reviews, s.orders, s.products),
		Orders:        services.NewOrderService(mocks.TxManager{}, s.orders, s.ledger, log),
		Auth:          services.NewAuthService(new(mocks.MockUserRepository), s.tokens, log),
		Tokens:        s.tokens,
		Hub:           events.NewHub(4),
		Metrics:       metrics.NewServerMetrics(nil),
		Log:           log,
		CallbackToken: "callback-secret",
	})
	s.router = gin.New()
	h.RegisterRoutes(s.router)
	return s
}

func (s *testServer) token(t *testing.T, id uint64, role domain.Role) string {
	t.Helper()
	tok, err := s.tokens.Generate(&domain.User{ID: id, Role: role, Email: "jane@example.com"})
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func oneLineCart() []domain.CartItem {
	return []domain.CartItem{
		{ID: 1, UserID: 1, ProductID: 1, Quantity: 2, Product: &domain.Product{ID: 1, Name: "Kettle", Price: decimal.RequireFromString("19.99")}},
	}
}

func (s *testServer) expectPlaced() {
	s.carts.On("ListByUser", mock.Anything, uint64(1)).Return(oneLineCart(), nil)
	s.orders.On("FindPendingByUser", mock.Anything, uint64(1)).Return([]domain.Order{}, nil)
	s.orders.On("Save", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Order).ID = 42
	})
	s.ledger.On("Reserve", mock.Anything, uint64(42), mock.Anything).Return(&domain.Reservation{OrderID: 42}, nil)
}

func TestHandler_Checkout(t *testing.T) {
	body := gin.H{"shippingAddress": "1 Moi Avenue", "paymentMethod": "CARD"}

	tests := []struct {
		name       string
		body       any
		anonymous  bool
		setupMocks func(*testServer)
		wantStatus int
		wantPay    string
	}{
		{
			name: "completed",
			body: body,
			setupMocks: func(s *testServer) {
				s.expectPlaced()
				s.gateway.On("Authorize", mock.Anything, mock.Anything).Return(domain.PaymentCompleted, nil)
				s.orders.On("UpdateStatus", mock.Anything, uint64(42), domain.StatusPending, domain.StatusProcessing, domain.PaymentCompleted).Return(nil)
				s.ledger.On("Commit", mock.Anything, uint64(42)).Return(nil)
				s.carts.On("ClearByUser", mock.Anything, uint64(1)).Return(int64(1), nil)
				s.publisher.On("Publish", mock.Anything, domain.TopicOrderConfirmed, mock.Anything).Return(nil)
			},
			wantStatus: http.StatusOK,
			wantPay:    "COMPLETED",
		},
		{
			name: "gateway unreachable",
			body: body,
			setupMocks: func(s *testServer) {
				s.expectPlaced()
				s.gateway.On("Authorize", mock.Anything, mock.Anything).Return(domain.PaymentStatus(""), context.DeadlineExceeded)
			},
			wantStatus: http.StatusAccepted,
			wantPay:    "PENDING",
		},
		{
			name: "empty cart",
			body: body,
			setupMocks: func(s *testServer) {
				s.carts.On("ListByUser", mock.Anything, uint64(1)).Return([]domain.CartItem{}, nil)
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "out of stock",
			body: body,
			setupMocks: func(s *testServer) {
				s.carts.On("ListByUser", mock.Anything, uint64(1)).Return(oneLineCart(), nil)
				s.orders.On("FindPendingByUser", mock.Anything, uint64(1)).Return([]domain.Order{}, nil)
				s.orders.On("Save", mock.Anything, mock.Anything).Return(nil)
				s.ledger.On("Reserve", mock.Anything, mock.Anything, mock.Anything).Return(nil, &domain.OutOfStockError{ProductID: 1, Name: "Kettle"})
			},
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "pending order for the same items",
			body: body,
			setupMocks: func(s *testServer) {
				s.carts.On("ListByUser", mock.Anything, uint64(1)).Return(oneLineCart(), nil)
				s.orders.On("FindPendingByUser", mock.Anything, uint64(1)).Return([]domain.Order{
					{ID: 3, Status: domain.StatusPending, Items: []domain.OrderItem{{ProductID: 1}}},
				}, nil)
			},
			wantStatus: http.StatusConflict,
		},
		{
			name:       "unsupported payment method",
			body:       gin.H{"shippingAddress": "1 Moi Avenue", "paymentMethod": "CASH"},
			setupMocks: func(*testServer) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "no token",
			body:       body,
			anonymous:  true,
			setupMocks: func(*testServer) {},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			tt.setupMocks(s)
			token := ""
			if !tt.anonymous {
				token = s.token(t, 1, domain.RoleUser)
			}

			w := s.do(http.MethodPost, "/checkout", token, tt.body)
			s.notifier.Wait()

			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
			if tt.wantPay != "" {
				var resp struct {
					Order         domain.Order       `json:"order"`
					OrderItems    []domain.OrderItem `json:"orderItems"`
					PaymentStatus string             `json:"paymentStatus"`
				}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantPay, resp.PaymentStatus)
				assert.Equal(t, uint64(42), resp.Order.ID)
				assert.Equal(t, "39.98", resp.Order.Total.StringFixed(2))
				assert.Len(t, resp.OrderItems, 1)
			}
			s.carts.AssertExpectations(t)
			s.orders.AssertExpectations(t)
			s.ledger.AssertExpectations(t)
			s.gateway.AssertExpectations(t)
		})
	}
}

func TestHandler_AdminRoutesNeedAdmin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPatch, "/admin/orders/1/status", s.token(t, 1, domain.RoleUser), gin.H{"status": "DELIVERED"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	s.orders.On("FindByID", mock.Anything, uint64(1)).Return(&domain.Order{ID: 1, Status: domain.StatusDelivered}, nil)
	w = s.do(http.MethodPatch, "/admin/orders/1/status", s.token(t, 2, domain.RoleAdmin), gin.H{"status": "CANCELLED"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHandler_PaymentCallback(t *testing.T) {
	s := newTestServer(t)
	s.orders.On("FindByID", mock.Anything, uint64(8)).Return(nil, nil)
	s.orders.On("FindByID", mock.Anything, uint64(9)).
		Return(&domain.Order{ID: 9, UserID: 1, Status: domain.StatusPending, PaymentStatus: domain.PaymentPending}, nil)
	s.orders.On("UpdateStatus", mock.Anything, uint64(9), domain.StatusPending, domain.StatusCancelled, domain.PaymentFailed).Return(nil)
	s.ledger.On("Release", mock.Anything, uint64(9)).Return(1, nil)

	w := s.do(http.MethodPost, "/payments/callback", "", gin.H{"orderId": 9, "status": "FAILED"}, "X-Callback-Token", "wrong")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/payments/callback", "", gin.H{"orderId": 8, "status": "FAILED"}, "X-Callback-Token", "callback-secret")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodPost, "/payments/callback", "", gin.H{"orderId": 9, "status": "REFUNDED"}, "X-Callback-Token", "callback-secret")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/payments/callback", "", gin.H{"orderId": 9, "status": "FAILED"}, "X-Callback-Token", "callback-secret")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s.ledger.AssertExpectations(t)
}

func TestHandler_ReviewGating(t *testing.T) {
	s := newTestServer(t)
	s.products.On("FindByID", mock.Anything, uint64(3)).Return(&domain.Product{ID: 3}, nil)
	s.orders.On("HasDeliveredItem", mock.Anything, uint64(1), uint64(3)).Return(false, nil)

	w := s.do(http.MethodPost, "/products/3/reviews", s.token(t, 1, domain.RoleUser), gin.H{"rating": 5, "comment": "nice"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	s.reviews.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestHandler_CartAndErrors(t *testing.T) {
	s := newTestServer(t)
	token := s.token(t, 1, domain.RoleUser)
	s.carts.On("ListByUser", mock.Anything, uint64(1)).Return(oneLineCart(), nil)
	s.carts.On("FindByID", mock.Anything, uint64(1), uint64(77)).Return(nil, nil)
	s.carts.On("ClearByUser", mock.Anything, uint64(1)).Return(int64(0), nil)

	w := s.do(http.MethodGet, "/cart", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cart domain.Cart
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cart))
	assert.Equal(t, "39.98", cart.Total.StringFixed(2))

	w = s.do(http.MethodDelete, "/cart/77", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodDelete, "/cart/abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodDelete, "/cart", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	s.products.On("List", mock.Anything, uint64(0)).Return(nil, assert.AnError)
	w = s.do(http.MethodGet, "/products", "", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
}

func TestHandler_Health(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ValidationError("bad"), http.StatusBadRequest},
		{domain.ErrEmptyCart, http.StatusBadRequest},
		{&domain.OutOfStockError{ProductID: 1}, http.StatusBadRequest},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrReviewNotAllowed, http.StatusForbidden},
		{domain.ErrOrderNotFound, http.StatusNotFound},
		{domain.ErrCheckoutInProgress, http.StatusConflict},
		{domain.ErrUserExists, http.StatusConflict},
		{assert.AnError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
