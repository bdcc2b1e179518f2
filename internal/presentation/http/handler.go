package httppresentation

import (
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hoangvu/gearcart/internal/application/checkout"
	"github.com/hoangvu/gearcart/internal/application/payment"
	"github.com/hoangvu/gearcart/internal/domain/order"
	"github.com/hoangvu/gearcart/internal/infrastructure/gateway"
	"github.com/hoangvu/gearcart/internal/observability"
)

const (
	headerCustomerID = "X-Customer-ID"
	headerAdmin      = "X-Admin"

	requestTimeout = 15 * time.Second
)

// Handler exposes the fulfilment engine over HTTP. Authentication is an
// external collaborator; identity arrives via trusted headers.
type Handler struct {
	checkoutSvc *checkout.Service
	paymentSvc  *payment.Service
	gateway     *gateway.Client
	resultURL   string
	shippingFee int64
	metrics     *observability.Metrics
	log         *zap.Logger
}

func NewHandler(
	checkoutSvc *checkout.Service,
	paymentSvc *payment.Service,
	gw *gateway.Client,
	resultURL string,
	defaultShippingFee int64,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		checkoutSvc: checkoutSvc,
		paymentSvc:  paymentSvc,
		gateway:     gw,
		resultURL:   resultURL,
		shippingFee: defaultShippingFee,
		metrics:     metrics,
		log:         logger.With(zap.String("component", "http_server")),
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP)
	r.Use(RequestLogger(h.log))
	r.Use(Instrument(h.metrics))
	r.Use(chimw.Timeout(requestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.handleCreateOrder)
		r.Get("/", h.handleListOrders)
		r.Route("/{orderID}", func(r chi.Router) {
			r.Get("/", h.handleGetOrder)
			r.Post("/cancel", h.handleCancelOrder)
			r.Patch("/status", h.handleUpdateStatus)
		})
	})

	r.Get("/payment/gateway/return", h.handleGatewayReturn)
	r.Get("/payment/gateway/ipn", h.handleGatewayNotify)

	return r
}

type cartItemRequest struct {
	VariantID string `json:"variant_id"`
	Quantity  int    `json:"quantity"`
}

type addressRequest struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Street   string `json:"street"`
	Ward     string `json:"ward"`
	District string `json:"district"`
	City     string `json:"city"`
}

type createOrderRequest struct {
	Items           []cartItemRequest `json:"items"`
	ShippingAddress addressRequest    `json:"shipping_address"`
	VoucherCode     string            `json:"voucher_code,omitempty"`
	// ShippingFee overrides the configured default when present.
	ShippingFee   *int64 `json:"shipping_fee,omitempty"`
	PaymentMethod string `json:"payment_method"`
	Notes         string `json:"notes,omitempty"`
}

type orderItemResponse struct {
	VariantID string `json:"variant_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
}

type orderResponse struct {
	OrderID       string              `json:"order_id"`
	Number        string              `json:"number"`
	Items         []orderItemResponse `json:"items"`
	Subtotal      int64               `json:"subtotal"`
	Discount      int64               `json:"discount"`
	VoucherCode   string              `json:"voucher_code,omitempty"`
	ShippingFee   int64               `json:"shipping_fee"`
	Total         int64               `json:"total"`
	PaymentMethod string              `json:"payment_method"`
	PaymentStatus string              `json:"payment_status"`
	Status        string              `json:"status"`
	PaymentURL    string              `json:"payment_url,omitempty"`
	CreatedAt     time.Time           `json:"created_at"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemResponse{
			VariantID: it.VariantID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
		})
	}
	return orderResponse{
		OrderID:       o.ID,
		Number:        o.Number,
		Items:         items,
		Subtotal:      o.Subtotal,
		Discount:      o.Discount,
		VoucherCode:   o.VoucherCode,
		ShippingFee:   o.ShippingFee,
		Total:         o.Total,
		PaymentMethod: string(o.PaymentMethod),
		PaymentStatus: string(o.PaymentStatus),
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt,
	}
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	items := make([]checkout.CartItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, checkout.CartItem{VariantID: it.VariantID, Quantity: it.Quantity})
	}

	fee := h.shippingFee
	if req.ShippingFee != nil {
		fee = *req.ShippingFee
	}

	result, err := h.checkoutSvc.CreateOrder(r.Context(), checkout.CreateOrderInput{
		CustomerID: r.Header.Get(headerCustomerID),
		Items:      items,
		ShippingAddress: order.Address{
			FullName: req.ShippingAddress.FullName,
			Phone:    req.ShippingAddress.Phone,
			Street:   req.ShippingAddress.Street,
			Ward:     req.ShippingAddress.Ward,
			District: req.ShippingAddress.District,
			City:     req.ShippingAddress.City,
		},
		VoucherCode:   req.VoucherCode,
		ShippingFee:   fee,
		PaymentMethod: order.PaymentMethod(req.PaymentMethod),
		Notes:         req.Notes,
	})
	if err != nil {
		h.countOrderCreate("rejected")
		writeDomainError(w, err)
		return
	}
	h.countOrderCreate("success")

	resp := toOrderResponse(result)
	if result.PaymentMethod == order.PaymentMethodGateway && h.gateway != nil {
		resp.PaymentURL = h.gateway.PayURL(result.Number, result.Total, time.Now())
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.checkoutSvc.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	f := order.Filter{
		CustomerID: r.URL.Query().Get("customer_id"),
		Status:     order.Status(r.URL.Query().Get("status")),
	}
	if v := r.URL.Query().Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		f.From = t
	}
	if v := r.URL.Query().Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		f.To = t
	}

	list, err := h.checkoutSvc.List(r.Context(), f)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]orderResponse, 0, len(list))
	for _, o := range list {
		out = append(out, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.checkoutSvc.CancelOrder(r.Context(), checkout.CancelOrderInput{
		OrderID:    chi.URLParam(r, "orderID"),
		CustomerID: r.Header.Get(headerCustomerID),
		Elevated:   r.Header.Get(headerAdmin) == "true",
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if h.metrics != nil {
		h.metrics.OrderCancellations.Inc()
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type updateStatusRequest struct {
	OrderStatus   string `json:"order_status,omitempty"`
	PaymentStatus string `json:"payment_status,omitempty"`
}

func (h *Handler) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(headerAdmin) != "true" {
		writeError(w, http.StatusForbidden, errors.New("status updates require elevated privilege"))
		return
	}

	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var status *order.Status
	var pay *order.PaymentStatus
	if req.OrderStatus != "" {
		s := order.Status(req.OrderStatus)
		status = &s
	}
	if req.PaymentStatus != "" {
		p := order.PaymentStatus(req.PaymentStatus)
		pay = &p
	}

	o, err := h.checkoutSvc.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"), status, pay)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// handleGatewayReturn is the synchronous browser-return path; it redirects
// the customer to the storefront result page.
func (h *Handler) handleGatewayReturn(w http.ResponseWriter, r *http.Request) {
	res, err := h.paymentSvc.HandleReturn(r.Context(), r.URL.Query())
	if err != nil {
		code := payment.CodeOrderNotFound
		if errors.Is(err, payment.ErrInvalidSignature) {
			code = payment.CodeInvalidSignature
		}
		h.countCallback("return", code)
		writeDomainError(w, err)
		return
	}

	status := "failed"
	if res.Paid {
		status = "paid"
	}
	h.countCallback("return", status)

	target := h.resultURL + "?" + url.Values{
		"order":  {res.OrderNumber},
		"status": {status},
	}.Encode()
	http.Redirect(w, r, target, http.StatusFound)
}

// handleGatewayNotify is the asynchronous server-to-server path; it always
// answers with the acknowledgement structure the provider expects.
func (h *Handler) handleGatewayNotify(w http.ResponseWriter, r *http.Request) {
	ack := h.paymentSvc.HandleNotify(r.Context(), r.URL.Query())
	h.countCallback("ipn", ack.RspCode)
	writeJSON(w, http.StatusOK, ack)
}

func (h *Handler) countOrderCreate(outcome string) {
	if h.metrics != nil {
		h.metrics.OrdersCreated.WithLabelValues(outcome).Inc()
	}
}

func (h *Handler) countCallback(path, code string) {
	if h.metrics != nil {
		h.metrics.PaymentCallbacks.WithLabelValues(path, code).Inc()
	}
}
