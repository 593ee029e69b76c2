package handlers

import (
	"context"

	"github.com/brewhub/order-system/order-service/application"
	"github.com/brewhub/order-system/order-service/domain"
	"github.com/brewhub/order-system/shared/events"
	"github.com/pkg/errors"
)

// TransitionRequestHandlers consumes the transition request queue and runs
// the entity-update worker
type TransitionRequestHandlers struct {
	applyTransition *application.ApplyTransition
}

// NewTransitionRequestHandlers creates new transition request handlers
func NewTransitionRequestHandlers(applyTransition *application.ApplyTransition) *TransitionRequestHandlers {
	return &TransitionRequestHandlers{
		applyTransition: applyTransition,
	}
}

// Handle implements the events.EventHandler interface
func (h *TransitionRequestHandlers) Handle(ctx context.Context, event *events.Event) error {
	switch event.EventType {
	case events.OrderTransitionRequestedEvent:
		return h.HandleTransitionRequest(ctx, event)
	default:
		// Unknown event type, ignore
		return nil
	}
}

// HandlerID returns the unique identifier for this event handler
func (h *TransitionRequestHandlers) HandlerID() string {
	return "order-transition-request-handler"
}

// HandleTransitionRequest applies the requested transition to the order
// entity. Returning an error leaves the message on the queue for redelivery.
func (h *TransitionRequestHandlers) HandleTransitionRequest(ctx context.Context, event *events.Event) error {
	var request domain.TransitionRequest
	if err := event.UnmarshalPayload(&request); err != nil {
		return errors.Wrap(err, "failed to decode transition request")
	}

	if request.OrderID == "" || request.CustomerID == "" {
		return errors.New("transition request missing order identity")
	}

	return h.applyTransition.Execute(ctx, &request)
}

// TransitionConfirmationHandlers consumes the confirmation queue and runs
// the status-commit worker
type TransitionConfirmationHandlers struct {
	commitTransition *application.CommitTransition
}

// NewTransitionConfirmationHandlers creates new transition confirmation handlers
func NewTransitionConfirmationHandlers(commitTransition *application.CommitTransition) *TransitionConfirmationHandlers {
	return &TransitionConfirmationHandlers{
		commitTransition: commitTransition,
	}
}

// Handle implements the events.EventHandler interface
func (h *TransitionConfirmationHandlers) Handle(ctx context.Context, event *events.Event) error {
	switch event.EventType {
	case events.OrderTransitionConfirmedEvent:
		return h.HandleTransitionConfirmation(ctx, event)
	default:
		// Unknown event type, ignore
		return nil
	}
}

// HandlerID returns the unique identifier for this event handler
func (h *TransitionConfirmationHandlers) HandlerID() string {
	return "order-transition-confirmation-handler"
}

// HandleTransitionConfirmation commits the confirmed transition on the
// status record and releases the lock.
func (h *TransitionConfirmationHandlers) HandleTransitionConfirmation(ctx context.Context, event *events.Event) error {
	var confirmation domain.TransitionConfirmation
	if err := event.UnmarshalPayload(&confirmation); err != nil {
		return errors.Wrap(err, "failed to decode transition confirmation")
	}

	if confirmation.OrderID == "" || confirmation.CustomerID == "" {
		return errors.New("transition confirmation missing order identity")
	}

	return h.commitTransition.Execute(ctx, &confirmation)
}
