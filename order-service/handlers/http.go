package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/brewhub/order-system/order-service/application"
	"github.com/brewhub/order-system/order-service/domain"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

// actorHeader is set by the API gateway after authentication
const actorHeader = "X-User-Id"

// OrderHandlers contains order HTTP handlers
type OrderHandlers struct {
	placeOrder         *application.PlaceOrder
	getOrder           *application.GetOrder
	listOrders         *application.ListOrders
	listPendingWork    *application.ListPendingWork
	getWorkItem        *application.GetWorkItem
	secureOrder        *application.SecureOrder
	advanceOrderStatus *application.AdvanceOrderStatus
}

// NewOrderHandlers creates new order handlers
func NewOrderHandlers(
	placeOrder *application.PlaceOrder,
	getOrder *application.GetOrder,
	listOrders *application.ListOrders,
	listPendingWork *application.ListPendingWork,
	getWorkItem *application.GetWorkItem,
	secureOrder *application.SecureOrder,
	advanceOrderStatus *application.AdvanceOrderStatus,
) *OrderHandlers {
	return &OrderHandlers{
		placeOrder:         placeOrder,
		getOrder:           getOrder,
		listOrders:         listOrders,
		listPendingWork:    listPendingWork,
		getWorkItem:        getWorkItem,
		secureOrder:        secureOrder,
		advanceOrderStatus: advanceOrderStatus,
	}
}

// PlaceOrder handles order submissions
func (h *OrderHandlers) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	actorID := r.Header.Get(actorHeader)
	if actorID == "" {
		http.Error(w, "Missing user identity", http.StatusUnauthorized)
		return
	}

	var cmd application.PlaceOrderCommand
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmd.CustomerID = actorID

	response, err := h.placeOrder.Execute(r.Context(), &cmd)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(response)
}

// GetOrder handles a customer's single order lookup
func (h *OrderHandlers) GetOrder(w http.ResponseWriter, r *http.Request) {
	actorID := r.Header.Get(actorHeader)
	if actorID == "" {
		http.Error(w, "Missing user identity", http.StatusUnauthorized)
		return
	}

	query := &application.GetOrderQuery{
		CustomerID: actorID,
		OrderID:    chi.URLParam(r, "id"),
	}

	response, err := h.getOrder.Execute(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// ListOrders handles a customer's order history lookup
func (h *OrderHandlers) ListOrders(w http.ResponseWriter, r *http.Request) {
	actorID := r.Header.Get(actorHeader)
	if actorID == "" {
		http.Error(w, "Missing user identity", http.StatusUnauthorized)
		return
	}

	response, err := h.listOrders.Execute(r.Context(), &application.ListOrdersQuery{CustomerID: actorID})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// ListWork handles the shop and deliverer work queue lookups
func (h *OrderHandlers) ListWork(role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID := r.Header.Get(actorHeader)
		if actorID == "" {
			http.Error(w, "Missing user identity", http.StatusUnauthorized)
			return
		}

		scope := r.URL.Query().Get("scope")
		if scope == "" {
			scope = application.ScopeAvailable
		}

		query := &application.ListPendingWorkQuery{
			ActorID: actorID,
			Role:    role,
			Scope:   scope,
		}

		response, err := h.listPendingWork.Execute(r.Context(), query)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

// GetWork handles the shop and deliverer single-order lookups
func (h *OrderHandlers) GetWork(role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID := r.Header.Get(actorHeader)
		if actorID == "" {
			http.Error(w, "Missing user identity", http.StatusUnauthorized)
			return
		}

		query := &application.GetWorkItemQuery{
			OrderID: chi.URLParam(r, "id"),
			ActorID: actorID,
			Role:    role,
		}

		response, err := h.getWorkItem.Execute(r.Context(), query)
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}
}

type secureRequest struct {
	PreparedLocation *domain.Location `json:"prepared_location,omitempty"`
}

// SecureOrder handles order claims by shops and deliverers
func (h *OrderHandlers) SecureOrder(role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID := r.Header.Get(actorHeader)
		if actorID == "" {
			http.Error(w, "Missing user identity", http.StatusUnauthorized)
			return
		}

		var body secureRequest
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "Invalid request body", http.StatusBadRequest)
				return
			}
		}

		cmd := &application.SecureOrderCommand{
			OrderID:          chi.URLParam(r, "id"),
			ActorID:          actorID,
			Role:             role,
			PreparedLocation: body.PreparedLocation,
		}

		if err := h.secureOrder.Execute(r.Context(), cmd); err != nil {
			writeError(w, err)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

type statusRequest struct {
	NewStatus string `json:"new_status"`
}

// AdvanceStatus handles status advances by the actor that owns the order
func (h *OrderHandlers) AdvanceStatus(role domain.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actorID := r.Header.Get(actorHeader)
		if actorID == "" {
			http.Error(w, "Missing user identity", http.StatusUnauthorized)
			return
		}

		var body statusRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		cmd := &application.AdvanceOrderStatusCommand{
			OrderID:   chi.URLParam(r, "id"),
			ActorID:   actorID,
			Role:      role,
			NewStatus: body.NewStatus,
		}

		if err := h.advanceOrderStatus.Execute(r.Context(), cmd); err != nil {
			writeError(w, err)
			return
		}

		w.WriteHeader(http.StatusAccepted)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrNotAuthorized):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, application.ErrOrderNotAvailable):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, application.ErrOrderAlreadyTaken),
		errors.Is(err, application.ErrTransitionRejected):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// RegisterRoutes registers order routes
func (h *OrderHandlers) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.PlaceOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
	})

	r.Route("/pending-orders", func(r chi.Router) {
		r.Get("/", h.ListWork(domain.RoleShop))
		r.Get("/{id}", h.GetWork(domain.RoleShop))
		r.Post("/{id}/secure", h.SecureOrder(domain.RoleShop))
		r.Post("/{id}/status", h.AdvanceStatus(domain.RoleShop))
	})

	r.Route("/deliveries", func(r chi.Router) {
		r.Get("/", h.ListWork(domain.RoleDeliverer))
		r.Get("/{id}", h.GetWork(domain.RoleDeliverer))
		r.Post("/{id}/secure", h.SecureOrder(domain.RoleDeliverer))
		r.Post("/{id}/status", h.AdvanceStatus(domain.RoleDeliverer))
	})
}
