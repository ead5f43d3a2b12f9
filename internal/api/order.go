package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"promo-engine/internal/domain/order"
)

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := req.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	items := make([]order.OrderItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = order.OrderItem{
			ProductID: item.ProductID,
			Category:  item.Category,
			Price:     item.Price.Round(2),
			Quantity:  item.Quantity,
		}
	}

	o, err := h.orders.CreateOrder(r.Context(), order.CreateOrderRequest{Items: items})
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) applyVoucher(w http.ResponseWriter, r *http.Request) {
	h.applyCode(w, r, h.orders.ApplyVoucher)
}

func (h *Handler) applyPromotion(w http.ResponseWriter, r *http.Request) {
	h.applyCode(w, r, h.orders.ApplyPromotion)
}

func (h *Handler) applyCode(w http.ResponseWriter, r *http.Request,
	apply func(ctx context.Context, orderID, code string) (*order.Order, error),
) {
	var req applyCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := req.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	o, err := apply(r.Context(), chi.URLParam(r, "id"), req.Code)
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toOrderResponse(o))
}
