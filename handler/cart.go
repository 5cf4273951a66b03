package handler

import (
	"net/http"

	"storefront/model"
)

type cartItemReq struct {
	ProductID int64 `json:"product_id"`
	Quantity  *int  `json:"quantity,omitempty"` // add_item defaults to 1
}

type cartItemResp struct {
	ID       int64         `json:"id"`
	Product  model.Product `json:"product"`
	Quantity int           `json:"quantity"`
	Subtotal int64         `json:"subtotal"`
}

type cartResp struct {
	ID         int64          `json:"id"`
	UserID     string         `json:"user_id"`
	Items      []cartItemResp `json:"items"`
	TotalPrice int64          `json:"total_price"`
}

func newCartResp(c model.Cart) cartResp {
	out := cartResp{ID: c.ID, UserID: c.UserID, Items: make([]cartItemResp, 0, len(c.Items)), TotalPrice: c.Total()}
	for _, it := range c.Items {
		out.Items = append(out.Items, cartItemResp{ID: it.ID, Product: it.Product, Quantity: it.Quantity, Subtotal: it.Subtotal()})
	}
	return out
}

func (h *Handler) writeCart(w http.ResponseWriter, r *http.Request, c model.Cart, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResp(c))
}

// GetCart handles GET /api/cart
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.GetCart(r.Context(), userID(r))
	h.writeCart(w, r, c, err)
}

// AddToCart handles POST /api/cart/add_item
// body: { "product_id": 1, "quantity": 2 }
func (h *Handler) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req cartItemReq
	if !decode(r, &req) {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ProductID <= 0 {
		writeErr(w, http.StatusBadRequest, "product_id is required")
		return
	}
	qty := 1
	if req.Quantity != nil {
		qty = *req.Quantity
	}
	c, err := h.svc.AddToCart(r.Context(), userID(r), req.ProductID, qty)
	h.writeCart(w, r, c, err)
}

// RemoveFromCart handles POST /api/cart/remove_item
// body: { "product_id": 1 }
func (h *Handler) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	var req cartItemReq
	if !decode(r, &req) {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ProductID <= 0 {
		writeErr(w, http.StatusBadRequest, "product_id is required")
		return
	}
	c, err := h.svc.RemoveFromCart(r.Context(), userID(r), req.ProductID)
	h.writeCart(w, r, c, err)
}

// UpdateCartQuantity handles POST /api/cart/update_quantity
// body: { "product_id": 1, "quantity": 3 }
func (h *Handler) UpdateCartQuantity(w http.ResponseWriter, r *http.Request) {
	var req cartItemReq
	if !decode(r, &req) {
		writeErr(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.ProductID <= 0 || req.Quantity == nil {
		writeErr(w, http.StatusBadRequest, "product_id and quantity are required")
		return
	}
	c, err := h.svc.UpdateCartQuantity(r.Context(), userID(r), req.ProductID, *req.Quantity)
	h.writeCart(w, r, c, err)
}
