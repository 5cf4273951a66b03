package handler

import (
	"net/http"

	"storefront/model"
)

type orderResp struct {
	model.Order
	StatusDisplay string `json:"status_display"`
}

func newOrderResp(o model.Order) orderResp {
	if o.Items == nil {
		o.Items = []model.OrderItem{}
	}
	return orderResp{Order: o, StatusDisplay: o.Status.Label()}
}

// Checkout handles POST /api/orders
// body: { "shipping_address": "..." }
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ShippingAddress string `json:"shipping_address"`
	}
	if !decode(r, &req) {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	o, err := h.svc.Checkout(r.Context(), userID(r), req.ShippingAddress)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newOrderResp(o))
}

// ListOrders handles GET /api/orders
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListOrders(r.Context(), userID(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := make([]orderResp, 0, len(list))
	for _, o := range list {
		out = append(out, newOrderResp(o))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	o, err := h.svc.GetOrder(r.Context(), userID(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResp(o))
}

// CancelOrder handles POST /api/orders/{id}/cancel
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	o, err := h.svc.CancelOrder(r.Context(), userID(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResp(o))
}

// AdvanceOrderStatus handles POST /api/orders/{id}/status
// body: { "status": "shipped" }
func (h *Handler) AdvanceOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeErr(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req struct {
		Status model.OrderStatus `json:"status"`
	}
	if !decode(r, &req) {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	o, err := h.svc.AdvanceOrderStatus(r.Context(), id, req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResp(o))
}
