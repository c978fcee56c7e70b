package presentation

import (
	"context"
	"net/http"
	"strings"

	"github.com/RaikyD/order-lifecycle-service/internal/application"
	"github.com/RaikyD/order-lifecycle-service/internal/domain"
	"github.com/RaikyD/order-lifecycle-service/internal/presentation/helpers"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	svc *application.OrdersService
}

func NewOrdersHandler(svc *application.OrdersService) *OrdersHandler {
	return &OrdersHandler{svc: svc}
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/orders", h.CreateOrders)
		r.Get("/orders", h.ListUserOrders)
		r.Get("/orders/{id}", h.GetOrder)
		r.Post("/orders/{id}/confirm", h.sellerAction(h.svc.ConfirmOrder))
		r.Post("/orders/{id}/reject", h.sellerAction(h.svc.RejectOrder))
		r.Post("/orders/{id}/complete", h.sellerAction(h.svc.CompleteOrder))
		r.Post("/orders/{id}/cancel-request", h.RequestCancel)
		r.Post("/orders/{id}/cancel-request/accept", h.sellerAction(h.svc.AcceptCancel))
		r.Post("/orders/{id}/cancel-request/reject", h.sellerAction(h.svc.RejectCancel))
		r.Get("/sellers/{sellerId}/orders", h.ListSellerOrders)
	})
}

func (h *OrdersHandler) Health(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *OrdersHandler) CreateOrders(w http.ResponseWriter, r *http.Request) {
	var cmd domain.CreateOrdersCommand
	if err := helpers.DecodeJSON(r.Body, &cmd); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	res, err := h.svc.CreateOrders(r.Context(), cmd)
	if err != nil {
		helpers.ServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	helpers.WriteJSON(w, status, res)
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		helpers.HttpError(w, http.StatusBadRequest, "id is empty")
		return
	}

	ord, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		helpers.ServiceError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, ord)
}

func (h *OrdersHandler) ListUserOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.list(w, r, domain.Filter{
		UserID:    q.Get("userId"),
		OrderCode: q.Get("orderCode"),
		Statuses:  statusesParam(q.Get("status")),
	})
}

func (h *OrdersHandler) ListSellerOrders(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, domain.Filter{
		OwnerID:  chi.URLParam(r, "sellerId"),
		Statuses: statusesParam(r.URL.Query().Get("status")),
	})
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request, f domain.Filter) {
	orders, err := h.svc.ListOrders(r.Context(), f)
	if err != nil {
		helpers.ServiceError(w, err)
		return
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	helpers.WriteJSON(w, http.StatusOK, orders)
}

type sellerBody struct {
	SellerID string `json:"sellerId"`
	Reason   string `json:"reason,omitempty"`
}

func (h *OrdersHandler) sellerAction(op func(context.Context, domain.SellerCommand) (*domain.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body sellerBody
		if err := helpers.DecodeJSON(r.Body, &body); err != nil {
			helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
			return
		}

		ord, err := op(r.Context(), domain.SellerCommand{
			OrderID:  chi.URLParam(r, "id"),
			SellerID: body.SellerID,
			Reason:   body.Reason,
		})
		if err != nil {
			helpers.ServiceError(w, err)
			return
		}
		helpers.WriteJSON(w, http.StatusOK, ord)
	}
}

func (h *OrdersHandler) RequestCancel(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserID string `json:"userId"`
		Reason string `json:"reason,omitempty"`
	}
	if err := helpers.DecodeJSON(r.Body, &body); err != nil {
		helpers.HttpError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	ord, err := h.svc.RequestCancel(r.Context(), domain.CancelRequestCommand{
		OrderID: chi.URLParam(r, "id"),
		UserID:  body.UserID,
		Reason:  body.Reason,
	})
	if err != nil {
		helpers.ServiceError(w, err)
		return
	}
	helpers.WriteJSON(w, http.StatusOK, ord)
}

// statusesParam accepts a comma separated list, e.g. ?status=CONFIRMED,DELIVERED.
func statusesParam(raw string) []domain.Status {
	if raw == "" {
		return nil
	}
	var out []domain.Status
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, domain.Status(strings.ToUpper(s)))
		}
	}
	return out
}
