package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront-service/internal/domain"
	"storefront-service/internal/infra"
	"storefront-service/internal/infra/cache"
	"storefront-service/internal/mocks"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type checkoutMocks struct {
	carts     *mocks.MockCartRepository
	orders    *mocks.MockOrderRepository
	ledger    *mocks.MockInventoryLedger
	gateway   *mocks.MockPaymentGateway
	publisher *mocks.MockPublisher
}

func newCheckoutMocks() *checkoutMocks {
	return &checkoutMocks{
		carts:     new(mocks.MockCartRepository),
		orders:    new(mocks.MockOrderRepository),
		ledger:    new(mocks.MockInventoryLedger),
		gateway:   new(mocks.MockPaymentGateway),
		publisher: new(mocks.MockPublisher),
	}
}

func (m *checkoutMocks) assertExpectations(t *testing.T) {
	m.carts.AssertExpectations(t)
	m.orders.AssertExpectations(t)
	m.ledger.AssertExpectations(t)
	m.gateway.AssertExpectations(t)
	m.publisher.AssertExpectations(t)
}

func newTestCheckout(t *testing.T, m *checkoutMocks, locker cache.Locker) (*CheckoutService, *Notifier) {
	t.Helper()
	notifier := NewNotifier(m.publisher, time.Second, zap.NewNop())
	svc, err := NewCheckoutService(CheckoutDeps{
		Tx:             mocks.TxManager{},
		Carts:          m.carts,
		Orders:         m.orders,
		Ledger:         m.ledger,
		Gateway:        m.gateway,
		Locker:         locker,
		Notifier:       notifier,
		Log:            zap.NewNop(),
		PaymentTimeout: time.Second,
		Currency:       "KES",
	})
	require.NoError(t, err)
	return svc, notifier
}

func cartLines() []domain.CartItem {
	return []domain.CartItem{
		{ID: 10, UserID: 1, ProductID: 1, Quantity: 2, Product: &domain.Product{ID: 1, Name: "Kettle", Price: decimal.RequireFromString("19.99")}},
		{ID: 11, UserID: 1, ProductID: 2, Quantity: 1, Product: &domain.Product{ID: 2, Name: "Mug", Price: decimal.RequireFromString("0.30")}},
	}
}

func expectPlaced(m *checkoutMocks) {
	m.carts.On("ListByUser", mock.Anything, uint64(1)).Return(cartLines(), nil)
	m.orders.On("FindPendingByUser", mock.Anything, uint64(1)).Return([]domain.Order{}, nil)
	m.orders.On("Save", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.Order).ID = 42
	})
	m.ledger.On("Reserve", mock.Anything, uint64(42), []domain.ReservationLine{
		{ProductID: 1, Quantity: 2},
		{ProductID: 2, Quantity: 1},
	}).Return(&domain.Reservation{OrderID: 42}, nil)
}

var errDB = errors.New("database error")

func TestCheckoutService_Checkout(t *testing.T) {
	input := CheckoutInput{UserID: 1, Email: "jane@example.com", ShippingAddress: "1 Moi Avenue", PaymentMethod: domain.MethodCard}

	tests := []struct {
		name          string
		input         CheckoutInput
		setupMocks    func(*checkoutMocks)
		expectedError error
		status        domain.OrderStatus
		payment       domain.PaymentStatus
		unavailable   bool
	}{
		{
			name:  "payment completed",
			input: input,
			setupMocks: func(m *checkoutMocks) {
				expectPlaced(m)
				m.gateway.On("Authorize", mock.Anything, mock.Anything).Return(domain.PaymentCompleted, nil)
				m.orders.On("UpdateStatus", mock.Anything, uint64(42), domain.StatusPending, domain.StatusProcessing, domain.PaymentCompleted).Return(nil)
				m.ledger.On("Commit", mock.Anything, uint64(42)).Return(nil)
				m.carts.On("ClearByUser", mock.Anything, uint64(1)).Return(int64(2), nil)
				m.publisher.On("Publish", mock.Anything, domain.TopicOrderConfirmed, mock.AnythingOfType("domain.OrderConfirmedEvent")).Return(nil)
			},
			status:  domain.StatusProcessing,
			payment: domain.PaymentCompleted,
		},
		{
			name:  "payment failed releases stock and keeps cart",
			input: input,
			setupMocks: func(m *checkoutMocks) {
				expectPlaced(m)
				m.gateway.On("Authorize", mock.Anything, mock.Anything).Return(domain.PaymentFailed, nil)
				m.orders.On("UpdateStatus", mock.Anything, uint64(42), domain.StatusPending, domain.StatusCancelled, domain.PaymentFailed).Return(nil)
				m.ledger.On("Release", mock.Anything, uint64(42)).Return(2, nil)
			},
			status:  domain.StatusCancelled,
			payment: domain.PaymentFailed,
		},
		{
			name:  "payment pending leaves order as is",
			input: CheckoutInput{UserID: 1, ShippingAddress: "1 Moi Avenue", PaymentMethod: domain.MethodMpesa},
			setupMocks: func(m *checkoutMocks) {
				expectPlaced(m)
				m.gateway.On("Authorize", mock.Anything, mock.Anything).Return(domain.PaymentPending, nil)
			},
			status:  domain.StatusPending,
			payment: domain.PaymentPending,
		},
		{
			name:  "gateway unreachable keeps reservation",
			input: input,
			setupMocks: func(m *checkoutMocks) {
				expectPlaced(m)
				m.gateway.On("Authorize", mock.Anything, mock.Anything).Return(domain.PaymentStatus(""), context.DeadlineExceeded)
			},
			status:      domain.StatusPending,
			payment:     domain.PaymentPending,
			unavailable: true,
		},
		{
			name:  "empty cart",
			input: input,
			setupMocks: func(m *checkoutMocks) {
				m.carts.On("ListByUser", mock.Anything, uint64(1)).Return([]domain.CartItem{}, nil)
			},
			expectedError: domain.ErrEmptyCart,
		},
		{
			name:  "out of stock",
			input: input,
			setupMocks: func(m *checkoutMocks) {
				m.carts.On("ListByUser", mock.Anything, uint64(1)).Return(cartLines(), nil)
				m.orders.On("FindPendingByUser", mock.Anything, uint64(1)).Return([]domain.Order{}, nil)
				m.orders.On("Save", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil)
				m.ledger.On("Reserve", mock.Anything, mock.Anything, mock.Anything).
					Return(nil, &domain.OutOfStockError{ProductID: 1, Name: "Kettle", Requested: 2})
			},
			expectedError: domain.ErrOutOfStock,
		},
		{
			name:  "overlapping pending order",
			input: input,
			setupMocks: func(m *checkoutMocks) {
				m.carts.On("ListByUser", mock.Anything, uint64(1)).Return(cartLines(), nil)
				m.orders.On("FindPendingByUser", mock.Anything, uint64(1)).Return([]domain.Order{
					{ID: 7, UserID: 1, Status: domain.StatusPending, Items: []domain.OrderItem{{ProductID: 2, Quantity: 1}}},
				}, nil)
			},
			expectedError: domain.ErrCheckoutInProgress,
		},
		{
			name:  "pending order for other products does not block",
			input: input,
			setupMocks: func(m *checkoutMocks) {
				m.carts.On("ListByUser", mock.Anything, uint64(1)).Return(cartLines(), nil)
				m.orders.On("FindPendingByUser", mock.Anything, uint64(1)).Return([]domain.Order{
					{ID: 7, UserID: 1, Status: domain.StatusPending, Items: []domain.OrderItem{{ProductID: 9, Quantity: 1}}},
				}, nil)
				m.orders.On("Save", mock.Anything, mock.AnythingOfType("*domain.Order")).Return(nil).Run(func(args mock.Arguments) {
					args.Get(1).(*domain.Order).ID = 42
				})
				m.ledger.On("Reserve", mock.Anything, uint64(42), mock.Anything).Return(&domain.Reservation{OrderID: 42}, nil)
				m.gateway.On("Authorize", mock.Anything, mock.Anything).Return(domain.PaymentPending, nil)
			},
			status:  domain.StatusPending,
			payment: domain.PaymentPending,
		},
		{
			name:          "unknown payment method",
			input:         CheckoutInput{UserID: 1, ShippingAddress: "1 Moi Avenue", PaymentMethod: "CASH"},
			setupMocks:    func(m *checkoutMocks) {},
			expectedError: domain.ErrValidation,
		},
		{
			name:          "anonymous caller",
			input:         CheckoutInput{PaymentMethod: domain.MethodCard},
			setupMocks:    func(m *checkoutMocks) {},
			expectedError: domain.ErrUnauthorized,
		},
		{
			name:  "database error",
			input: input,
			setupMocks: func(m *checkoutMocks) {
				m.carts.On("ListByUser", mock.Anything, uint64(1)).Return(nil, errDB)
			},
			expectedError: errDB,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newCheckoutMocks()
			tt.setupMocks(m)
			svc, notifier := newTestCheckout(t, m, cache.NewMemoryLocker())

			result, err := svc.Checkout(context.Background(), tt.input)
			notifier.Wait()

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, result)
			} else {
				require.NoError(t, err)
				require.NotNil(t, result)
				assert.Equal(t, uint64(42), result.Order.ID)
				assert.Equal(t, tt.status, result.Order.Status)
				assert.Equal(t, tt.payment, result.PaymentStatus)
				assert.Equal(t, tt.unavailable, result.GatewayUnavailable)
				assert.True(t, decimal.RequireFromString("40.28").Equal(result.Order.Total))
				assert.Len(t, result.Order.Items, 2)
			}
			m.assertExpectations(t)
			if tt.payment != domain.PaymentCompleted {
				m.carts.AssertNotCalled(t, "ClearByUser", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestCheckoutService_GatewayRequest(t *testing.T) {
	m := newCheckoutMocks()
	expectPlaced(m)
	m.gateway.On("Authorize", mock.Anything, mock.Anything).Return(domain.PaymentPending, nil)
	svc, _ := newTestCheckout(t, m, cache.NewMemoryLocker())

	_, err := svc.Checkout(context.Background(), CheckoutInput{UserID: 1, ShippingAddress: "x", PaymentMethod: domain.MethodMpesa})
	require.NoError(t, err)

	require.Len(t, m.gateway.Calls, 1)
	req := m.gateway.Calls[0].Arguments.Get(1).(infra.PaymentRequest)
	assert.Equal(t, uint64(42), req.OrderID)
	assert.Equal(t, int64(4028), req.AmountMinorUnits)
	assert.Equal(t, "KES", req.Currency)
	assert.Equal(t, domain.MethodMpesa, req.Method)
}

func TestCheckoutService_RejectsWhileLockHeld(t *testing.T) {
	m := newCheckoutMocks()
	locker := cache.NewMemoryLocker()
	release, err := locker.Acquire(context.Background(), "1")
	require.NoError(t, err)
	defer release()

	svc, _ := newTestCheckout(t, m, locker)
	_, err = svc.Checkout(context.Background(), CheckoutInput{UserID: 1, ShippingAddress: "x", PaymentMethod: domain.MethodCard})

	assert.ErrorIs(t, err, domain.ErrCheckoutInProgress)
	m.carts.AssertNotCalled(t, "ListByUser", mock.Anything, mock.Anything)
}

func TestCheckoutService_IgnoresClientCancellation(t *testing.T) {
	m := newCheckoutMocks()
	expectPlaced(m)
	m.gateway.On("Authorize", mock.Anything, mock.Anything).Return(domain.PaymentFailed, nil)
	m.orders.On("UpdateStatus", mock.Anything, uint64(42), domain.StatusPending, domain.StatusCancelled, domain.PaymentFailed).Return(nil)
	m.ledger.On("Release", mock.Anything, uint64(42)).Return(2, nil)
	svc, _ := newTestCheckout(t, m, cache.NewMemoryLocker())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := svc.Checkout(ctx, CheckoutInput{UserID: 1, ShippingAddress: "x", PaymentMethod: domain.MethodCard})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, result.Order.Status)
	m.assertExpectations(t)
}

func TestCheckoutService_ResolvePayment(t *testing.T) {
	pending := func() *domain.Order {
		return &domain.Order{ID: 5, UserID: 3, Status: domain.StatusPending, PaymentStatus: domain.PaymentPending}
	}

	tests := []struct {
		name          string
		status        domain.PaymentStatus
		setupMocks    func(*checkoutMocks)
		expectedError error
		expected      domain.OrderStatus
	}{
		{
			name:   "completed",
			status: domain.PaymentCompleted,
			setupMocks: func(m *checkoutMocks) {
				m.orders.On("FindByID", mock.Anything, uint64(5)).Return(pending(), nil)
				m.orders.On("UpdateStatus", mock.Anything, uint64(5), domain.StatusPending, domain.StatusProcessing, domain.PaymentCompleted).Return(nil)
				m.ledger.On("Commit", mock.Anything, uint64(5)).Return(nil)
				m.carts.On("ClearByUser", mock.Anything, uint64(3)).Return(int64(1), nil)
				m.publisher.On("Publish", mock.Anything, domain.TopicOrderConfirmed, mock.Anything).Return(nil)
			},
			expected: domain.StatusProcessing,
		},
		{
			name:   "failed",
			status: domain.PaymentFailed,
			setupMocks: func(m *checkoutMocks) {
				m.orders.On("FindByID", mock.Anything, uint64(5)).Return(pending(), nil)
				m.orders.On("UpdateStatus", mock.Anything, uint64(5), domain.StatusPending, domain.StatusCancelled, domain.PaymentFailed).Return(nil)
				m.ledger.On("Release", mock.Anything, uint64(5)).Return(1, nil)
			},
			expected: domain.StatusCancelled,
		},
		{
			name:   "unknown order",
			status: domain.PaymentFailed,
			setupMocks: func(m *checkoutMocks) {
				m.orders.On("FindByID", mock.Anything, uint64(5)).Return(nil, nil)
			},
			expectedError: domain.ErrOrderNotFound,
		},
		{
			name:   "already resolved",
			status: domain.PaymentCompleted,
			setupMocks: func(m *checkoutMocks) {
				o := pending()
				o.Status = domain.StatusCancelled
				o.PaymentStatus = domain.PaymentFailed
				m.orders.On("FindByID", mock.Anything, uint64(5)).Return(o, nil)
			},
			expectedError: domain.ErrInvalidTransition,
		},
		{
			name:   "lost race to another resolver",
			status: domain.PaymentFailed,
			setupMocks: func(m *checkoutMocks) {
				m.orders.On("FindByID", mock.Anything, uint64(5)).Return(pending(), nil)
				m.orders.On("UpdateStatus", mock.Anything, uint64(5), domain.StatusPending, domain.StatusCancelled, domain.PaymentFailed).
					Return(domain.ErrInvalidTransition)
			},
			expectedError: domain.ErrInvalidTransition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newCheckoutMocks()
			tt.setupMocks(m)
			svc, notifier := newTestCheckout(t, m, cache.NewMemoryLocker())

			order, err := svc.ResolvePayment(context.Background(), 5, tt.status)
			notifier.Wait()

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, order)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, order.Status)
			}
			m.assertExpectations(t)
			if tt.name == "lost race to another resolver" {
				m.ledger.AssertNotCalled(t, "Release", mock.Anything, mock.Anything)
			}
		})
	}
}

func TestCheckoutService_LateResolutionIsLogged(t *testing.T) {
	tests := []struct {
		name     string
		payment  domain.PaymentStatus
		reported domain.PaymentStatus
		level    zapcore.Level
		message  string
	}{
		{
			name:     "money taken for a cancelled order",
			payment:  domain.PaymentFailed,
			reported: domain.PaymentCompleted,
			level:    zapcore.ErrorLevel,
			message:  "payment completed for a closed order, refund required",
		},
		{
			name:     "failure after cancel",
			payment:  domain.PaymentFailed,
			reported: domain.PaymentFailed,
			level:    zapcore.WarnLevel,
			message:  "late payment resolution ignored",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newCheckoutMocks()
			m.orders.On("FindByID", mock.Anything, uint64(5)).
				Return(&domain.Order{ID: 5, UserID: 3, Status: domain.StatusCancelled, PaymentStatus: tt.payment}, nil)
			svc, _ := newTestCheckout(t, m, cache.NewMemoryLocker())
			core, logs := observer.New(zapcore.InfoLevel)
			svc.Log = zap.New(core)

			_, err := svc.ResolvePayment(context.Background(), 5, tt.reported)

			assert.ErrorIs(t, err, domain.ErrInvalidTransition)
			entries := logs.FilterMessage(tt.message).All()
			require.Len(t, entries, 1)
			assert.Equal(t, tt.level, entries[0].Level)
			assert.Equal(t, string(tt.reported), entries[0].ContextMap()["reported"])
			m.assertExpectations(t)
		})
	}
}

func TestCheckoutService_GetOrder(t *testing.T) {
	m := newCheckoutMocks()
	m.orders.On("FindByID", mock.Anything, uint64(9)).Return(&domain.Order{ID: 9, UserID: 1}, nil)
	svc, _ := newTestCheckout(t, m, cache.NewMemoryLocker())
	ctx := context.Background()

	o, err := svc.GetOrder(ctx, domain.Identity{UserID: 1, Role: domain.RoleUser}, 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(9), o.ID)

	_, err = svc.GetOrder(ctx, domain.Identity{UserID: 2, Role: domain.RoleUser}, 9)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	o, err = svc.GetOrder(ctx, domain.Identity{UserID: 2, Role: domain.RoleAdmin}, 9)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), o.UserID)
}
