package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"kitchenrent/internal/payments/gateway"
	"kitchenrent/internal/payments/service"
	apperrors "kitchenrent/pkg/errors"
	httputil "kitchenrent/pkg/http"
	"kitchenrent/pkg/logger"
	"kitchenrent/pkg/middleware"
	"kitchenrent/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const SignatureHeader = "Stripe-Signature"

// maxWebhookPayload mirrors the provider's documented event size ceiling.
const maxWebhookPayload = 64 * 1024

type PaymentHandler struct {
	service service.PaymentService
	log     *logger.Logger
}

func NewPaymentHandler(service service.PaymentService, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log,
	}
}

func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := h.actor(w, r, "CreateIntent")
	if !ok {
		return
	}

	var req model.PaymentIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "CreateIntent", decodeError(err))
		return
	}

	payment, err := h.service.CreateIntent(r.Context(), actor, &req)
	if err != nil {
		h.writeError(w, "CreateIntent", err)
		return
	}

	if err := httputil.WriteCreated(w, payment); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateIntent", "operation", "WriteCreated", "error", err)
	}
}

func (h *PaymentHandler) GetByReservation(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.actor(w, r, "GetByReservation")
	if !ok {
		return
	}

	payment, err := h.service.GetByReservation(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByReservation", err)
		return
	}

	if err := httputil.WriteSuccess(w, payment); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByReservation", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PaymentHandler) Refund(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.actor(w, r, "Refund")
	if !ok {
		return
	}

	// An empty body refunds the full amount.
	var req model.RefundRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			h.writeError(w, "Refund", decodeError(err))
			return
		}
	}

	payment, err := h.service.Refund(r.Context(), actor, ps.ByName("id"), &req)
	if err != nil {
		h.writeError(w, "Refund", err)
		return
	}

	if err := httputil.WriteSuccess(w, payment); err != nil {
		h.log.Error("failed to write success response", "handler", "Refund", "operation", "WriteSuccess", "error", err)
	}
}

func (h *PaymentHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/payments/intents", h.CreateIntent)
	router.GET("/api/v1/payments/reservation/:id", h.GetByReservation)
	router.POST("/api/v1/payments/reservation/:id/refund", h.Refund)
}

func (h *PaymentHandler) actor(w http.ResponseWriter, r *http.Request, handler string) (model.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		h.writeError(w, handler, apperrors.Unauthorized("Authentication required"))
	}
	return actor, ok
}

func (h *PaymentHandler) writeError(w http.ResponseWriter, handler string, err error) {
	writeError(h.log, w, handler, err)
}

// OutcomeHandler applies a verified payment outcome.
type OutcomeHandler interface {
	HandleOutcome(ctx context.Context, outcome *model.PaymentOutcome) error
}

// WebhookHandler receives provider callbacks. It is mounted outside the
// authenticated chain; the signature is the credential.
type WebhookHandler struct {
	gateway    gateway.Gateway
	reconciler OutcomeHandler
	log        *logger.Logger
}

func NewWebhookHandler(gw gateway.Gateway, reconciler OutcomeHandler, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		gateway:    gw,
		reconciler: reconciler,
		log:        log,
	}
}

func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookPayload+1))
	if err != nil {
		writeError(h.log, w, "Webhook", apperrors.InvalidInput("Failed to read webhook payload"))
		return
	}
	if len(payload) > maxWebhookPayload {
		writeError(h.log, w, "Webhook", apperrors.New(apperrors.CodeInvalidInput, "Webhook payload too large", http.StatusRequestEntityTooLarge))
		return
	}

	outcome, err := h.gateway.ParseWebhook(payload, r.Header.Get(SignatureHeader))
	switch {
	case errors.Is(err, gateway.ErrIgnoredEvent):
		h.log.Debug("Ignoring webhook event without payment outcome")
		if err := httputil.WriteSuccess(w, map[string]string{"status": "ignored"}); err != nil {
			h.log.Error("failed to write success response", "handler", "Webhook", "operation", "WriteSuccess", "error", err)
		}
		return
	case errors.Is(err, gateway.ErrInvalidSignature):
		h.log.Warn("Rejected webhook with invalid signature", "remote_addr", r.RemoteAddr)
		writeError(h.log, w, "Webhook", apperrors.InvalidInput("Invalid webhook signature"))
		return
	case err != nil:
		writeError(h.log, w, "Webhook", apperrors.InvalidInput("Malformed webhook event"))
		return
	}

	// A non-2xx answer makes the provider redeliver, which is what a
	// transient failure needs.
	if err := h.reconciler.HandleOutcome(r.Context(), outcome); err != nil {
		h.log.Error("Failed to reconcile payment outcome",
			"event_id", outcome.EventID,
			"type", outcome.Type,
			"reservation_id", outcome.ReservationID,
			"error", err,
		)
		writeError(h.log, w, "Webhook", err)
		return
	}

	if err := httputil.WriteSuccess(w, map[string]string{"status": "processed"}); err != nil {
		h.log.Error("failed to write success response", "handler", "Webhook", "operation", "WriteSuccess", "error", err)
	}
}

func (h *WebhookHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/payments/webhook", h.Receive)
}

func writeError(log *logger.Logger, w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func decodeError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.New(apperrors.CodeInvalidInput, "Request body too large", http.StatusRequestEntityTooLarge)
	}
	return apperrors.InvalidInput("Invalid request body")
}
