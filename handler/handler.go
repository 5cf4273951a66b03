package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"storefront/auth"
	"storefront/service"
)

// Handler is the HTTP layer that talks to service.Service
type Handler struct {
	svc   service.ServiceInterface
	authn *auth.Authenticator
	log   *slog.Logger
}

// NewHandler returns a Handler instance
func NewHandler(s service.ServiceInterface, authn *auth.Authenticator, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: s, authn: authn, log: log}
}

// RegisterRoutes registers all routes on the provided router. Serve the
// router through Wrap.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)
	// authenticated by signature, not by bearer token
	r.HandleFunc("/api/webhook/stripe", h.StripeWebhook).Methods(http.MethodPost)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.authn.Middleware)
	admin := func(f http.HandlerFunc) http.Handler { return auth.RequireAdmin(f) }

	// Categories
	api.HandleFunc("/categories", h.ListCategories).Methods(http.MethodGet)
	api.Handle("/categories", admin(h.CreateCategory)).Methods(http.MethodPost)
	api.HandleFunc("/categories/{id:[0-9]+}", h.GetCategory).Methods(http.MethodGet)
	api.Handle("/categories/{id:[0-9]+}", admin(h.UpdateCategory)).Methods(http.MethodPut)
	api.Handle("/categories/{id:[0-9]+}", admin(h.DeleteCategory)).Methods(http.MethodDelete)
	api.HandleFunc("/categories/{id:[0-9]+}/products", h.ListCategoryProducts).Methods(http.MethodGet)

	// Products
	api.HandleFunc("/products", h.ListProducts).Methods(http.MethodGet)
	api.Handle("/products", admin(h.CreateProduct)).Methods(http.MethodPost)
	api.HandleFunc("/products/{id:[0-9]+}", h.GetProduct).Methods(http.MethodGet)
	api.Handle("/products/{id:[0-9]+}", admin(h.UpdateProduct)).Methods(http.MethodPut)
	api.Handle("/products/{id:[0-9]+}", admin(h.DeleteProduct)).Methods(http.MethodDelete)
	api.Handle("/products/{id:[0-9]+}/stock", admin(h.UpdateStock)).Methods(http.MethodPost)

	// Cart
	api.HandleFunc("/cart", h.GetCart).Methods(http.MethodGet)
	api.HandleFunc("/cart/add_item", h.AddToCart).Methods(http.MethodPost)
	api.HandleFunc("/cart/remove_item", h.RemoveFromCart).Methods(http.MethodPost)
	api.HandleFunc("/cart/update_quantity", h.UpdateCartQuantity).Methods(http.MethodPost)

	// Orders
	api.HandleFunc("/orders", h.ListOrders).Methods(http.MethodGet)
	api.HandleFunc("/orders", h.Checkout).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id:[0-9]+}", h.GetOrder).Methods(http.MethodGet)
	api.HandleFunc("/orders/{id:[0-9]+}/cancel", h.CancelOrder).Methods(http.MethodPost)
	api.Handle("/orders/{id:[0-9]+}/status", admin(h.AdvanceOrderStatus)).Methods(http.MethodPost)

	// Payments
	api.HandleFunc("/orders/{id:[0-9]+}/payment", h.CreatePayment).Methods(http.MethodPost)
	api.HandleFunc("/orders/{id:[0-9]+}/payment", h.GetPayment).Methods(http.MethodGet)
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Ping(r.Context()); err != nil {
		h.log.ErrorContext(r.Context(), "health check failed", "error", err)
		writeErr(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- helpers ---
func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func decode(r *http.Request, v any) bool {
	return json.NewDecoder(r.Body).Decode(v) == nil
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id, err == nil && id > 0
}

func userID(r *http.Request) string {
	id, _ := auth.FromContext(r.Context())
	return id.UserID
}
