package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strconv"

	"storefront-service/internal/auth"
	"storefront-service/internal/events"
	"storefront-service/internal/metrics"
	"storefront-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Deps struct {
	Checkout      *services.CheckoutService
	Carts         *services.CartService
	Products      *services.ProductService
	Categories    *services.CategoryService
	Reviews       *services.ReviewService
	Orders        *services.OrderService
	Auth          *services.AuthService
	Tokens        *auth.TokenManager
	Hub           *events.Hub
	Metrics       *metrics.ServerMetrics
	Log           *zap.Logger
	CallbackToken string
	// Ping reports database health; nil skips the check.
	Ping func(ctx context.Context) error
}

type Handler struct {
	checkout      *services.CheckoutService
	carts         *services.CartService
	products      *services.ProductService
	categories    *services.CategoryService
	reviews       *services.ReviewService
	orders        *services.OrderService
	auth          *services.AuthService
	tokens        *auth.TokenManager
	hub           *events.Hub
	metrics       *metrics.ServerMetrics
	log           *zap.Logger
	callbackToken string
	ping          func(ctx context.Context) error
}

func NewHandler(d Deps) *Handler {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	if err := RegisterValidators(); err != nil {
		d.Log.Error("failed to register request validators", zap.Error(err))
	}
	return &Handler{
		checkout:      d.Checkout,
		carts:         d.Carts,
		products:      d.Products,
		categories:    d.Categories,
		reviews:       d.Reviews,
		orders:        d.Orders,
		auth:          d.Auth,
		tokens:        d.Tokens,
		hub:           d.Hub,
		metrics:       d.Metrics,
		log:           d.Log,
		callbackToken: d.CallbackToken,
		ping:          d.Ping,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.Use(RequestLogger(h.log))
	if h.metrics != nil {
		r.Use(Metrics(h.metrics))
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}
	r.GET("/health", h.Health)
	r.GET("/events", h.Events)
	r.POST("/payments/callback", h.PaymentCallback)

	a := r.Group("/auth")
	a.POST("/register", h.Register)
	a.POST("/login", h.Login)

	r.GET("/products", h.ListProducts)
	r.GET("/products/:id", h.GetProduct)
	r.GET("/products/:id/reviews", h.ListReviews)
	r.GET("/categories", h.ListCategories)

	authed := r.Group("/", h.RequireAuth())
	authed.GET("/cart", h.GetCart)
	authed.POST("/cart", h.AddCartItem)
	authed.PUT("/cart/:id", h.UpdateCartItem)
	authed.DELETE("/cart/:id", h.RemoveCartItem)
	authed.DELETE("/cart", h.ClearCart)

	authed.POST("/checkout", h.Checkout)
	authed.GET("/checkout/:orderId", h.GetCheckoutOrder)
	authed.GET("/orders", h.ListOrders)
	authed.GET("/orders/:id", h.GetOrder)

	authed.POST("/products/:id/reviews", h.CreateReview)
	authed.PUT("/reviews/:id", h.UpdateReview)
	authed.DELETE("/reviews/:id", h.DeleteReview)

	admin := authed.Group("/", h.RequireAdmin())
	admin.POST("/products", h.CreateProduct)
	admin.PUT("/products/:id", h.UpdateProduct)
	admin.DELETE("/products/:id", h.DeleteProduct)
	admin.POST("/categories", h.CreateCategory)
	admin.PUT("/categories/:id", h.UpdateCategory)
	admin.DELETE("/categories/:id", h.DeleteCategory)
	admin.GET("/admin/orders", h.ListAllOrders)
	admin.PATCH("/admin/orders/:id/status", h.UpdateOrderStatus)
}

func (h *Handler) Health(c *gin.Context) {
	if h.ping != nil {
		if err := h.ping(c.Request.Context()); err != nil {
			h.log.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Events streams catalog mutations as server-sent events until the client
// goes away.
func (h *Handler) Events(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event stream disabled"})
		return
	}
	ch, cancel := h.hub.Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case evt, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(evt.Topic, evt.Payload)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

func (h *Handler) PaymentCallback(c *gin.Context) {
	token := c.GetHeader("X-Callback-Token")
	if h.callbackToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.callbackToken)) != 1 {
		h.writeError(c, errForbidden)
		return
	}
	var req PaymentCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	order, err := h.checkout.ResolvePayment(c.Request.Context(), req.OrderID, req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.log.Info("payment callback applied",
		zap.Uint64("order_id", order.ID),
		zap.String("status", string(req.Status)),
		zap.String("reference", req.Reference))
	c.JSON(http.StatusOK, gin.H{"order": order})
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	u, err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		Role:     req.Role,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	token, u, err := h.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, LoginResponse{Token: token, User: u})
}

var errInvalidID = errors.New("invalid id")

func idParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, errInvalidID)
		return 0, false
	}
	return id, true
}
