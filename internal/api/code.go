package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"promo-engine/internal/domain/discount"
)

func (h *Handler) createVoucher(w http.ResponseWriter, r *http.Request) {
	var req createVoucherRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := req.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.registry.Create(r.Context(), req.toParams())
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, toCodeResponse(c))
}

func (h *Handler) createPromotion(w http.ResponseWriter, r *http.Request) {
	var req createPromotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := req.Validate(); err != nil {
		h.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	c, err := h.registry.Create(r.Context(), req.toParams())
	if err != nil {
		h.respondDomainError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, toCodeResponse(c))
}

func (h *Handler) listCodes(kind discount.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))

		result, err := h.registry.List(r.Context(), kind, page, size)
		if err != nil {
			h.respondDomainError(w, r, err)
			return
		}
		h.respondJSON(w, http.StatusOK, toPageResponse(result))
	}
}

// getCode serves a single record. Ids from the other kind's collection are
// reported as missing so /vouchers/{id} never leaks promotions and vice versa.
func (h *Handler) getCode(kind discount.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := h.registry.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			h.respondDomainError(w, r, err)
			return
		}
		if c.Kind != kind {
			h.respondDomainError(w, r, discount.ErrNotFound)
			return
		}
		h.respondJSON(w, http.StatusOK, toCodeResponse(c))
	}
}

func (h *Handler) updateCode(kind discount.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateCodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		if err := req.Validate(); err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		id := chi.URLParam(r, "id")
		if err := h.requireKind(r, id, kind); err != nil {
			h.respondDomainError(w, r, err)
			return
		}

		c, err := h.registry.Update(r.Context(), id, req.toPatch())
		if err != nil {
			h.respondDomainError(w, r, err)
			return
		}
		h.respondJSON(w, http.StatusOK, toCodeResponse(c))
	}
}

func (h *Handler) deleteCode(kind discount.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := h.requireKind(r, id, kind); err != nil {
			h.respondDomainError(w, r, err)
			return
		}
		if err := h.registry.Delete(r.Context(), id); err != nil {
			h.respondDomainError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// adjustUsage is the administrative counter adjustment. It is separate from
// the usage-slot claim that happens inside an order application transaction.
func (h *Handler) adjustUsage(kind discount.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adjustUsageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "malformed request body")
			return
		}
		if err := req.Validate(); err != nil {
			h.respondError(w, http.StatusBadRequest, err.Error())
			return
		}

		id := chi.URLParam(r, "id")
		if err := h.requireKind(r, id, kind); err != nil {
			h.respondDomainError(w, r, err)
			return
		}

		c, err := h.registry.IncrementUsage(r.Context(), id, req.Delta)
		if err != nil {
			h.respondDomainError(w, r, err)
			return
		}
		h.respondJSON(w, http.StatusOK, toCodeResponse(c))
	}
}

func (h *Handler) requireKind(r *http.Request, id string, kind discount.Kind) error {
	c, err := h.registry.Get(r.Context(), id)
	if err != nil {
		return err
	}
	if c.Kind != kind {
		return discount.ErrNotFound
	}
	return nil
}
