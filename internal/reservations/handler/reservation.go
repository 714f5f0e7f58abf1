package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"kitchenrent/internal/reservations/service"
	apperrors "kitchenrent/pkg/errors"
	httputil "kitchenrent/pkg/http"
	"kitchenrent/pkg/logger"
	"kitchenrent/pkg/middleware"
	"kitchenrent/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type ReservationHandler struct {
	service service.ReservationService
	log     *logger.Logger
}

func NewReservationHandler(service service.ReservationService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		service: service,
		log:     log,
	}
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := h.actor(w, r, "Create")
	if !ok {
		return
	}

	var req model.ReservationCreate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Create", decodeError(err))
		return
	}

	reservation, err := h.service.Create(r.Context(), actor, &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, reservation); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *ReservationHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.actor(w, r, "GetByID")
	if !ok {
		return
	}

	reservation, err := h.service.GetByID(r.Context(), actor, ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, reservation); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, ok := h.actor(w, r, "List")
	if !ok {
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	reservations, total, err := h.service.List(r.Context(), actor, filter, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, reservations, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "operation", "WritePaginated", "error", err)
	}
}

func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.actor(w, r, "Update")
	if !ok {
		return
	}

	var patch model.ReservationUpdate
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.writeError(w, "Update", decodeError(err))
		return
	}
	if patch.IsEmpty() {
		h.writeError(w, "Update", apperrors.InvalidInput("Update must change at least one field"))
		return
	}

	reservation, err := h.service.Update(r.Context(), actor, ps.ByName("id"), &patch)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, reservation); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, ok := h.actor(w, r, "Delete")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), actor, ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

type transitionFunc func(ctx context.Context, actor model.Actor, id string) (*model.Reservation, error)

// transition adapts one lifecycle operation to a bodyless POST route.
func (h *ReservationHandler) transition(name string, op transitionFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		actor, ok := h.actor(w, r, name)
		if !ok {
			return
		}

		reservation, err := op(r.Context(), actor, ps.ByName("id"))
		if err != nil {
			h.writeError(w, name, err)
			return
		}

		if err := httputil.WriteSuccess(w, reservation); err != nil {
			h.log.Error("failed to write success response", "handler", name, "operation", "WriteSuccess", "error", err)
		}
	}
}

func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, ok := h.actor(w, r, "Availability"); !ok {
		return
	}

	query := r.URL.Query()
	startDate := query.Get("start_date")
	endDate := query.Get("end_date")
	if startDate == "" || endDate == "" {
		h.writeError(w, "Availability", apperrors.InvalidInput("Both 'start_date' and 'end_date' query parameters are required"))
		return
	}

	availability, err := h.service.CheckAvailability(r.Context(), ps.ByName("id"), startDate, endDate)
	if err != nil {
		h.writeError(w, "Availability", err)
		return
	}

	if err := httputil.WriteSuccess(w, availability); err != nil {
		h.log.Error("failed to write success response", "handler", "Availability", "operation", "WriteSuccess", "error", err)
	}
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/reservations", h.Create)
	router.GET("/api/v1/reservations", h.List)
	router.GET("/api/v1/reservations/id/:id", h.GetByID)
	router.PATCH("/api/v1/reservations/id/:id", h.Update)
	router.DELETE("/api/v1/reservations/id/:id", h.Delete)

	router.POST("/api/v1/reservations/id/:id/confirm", h.transition("Confirm", h.service.Confirm))
	router.POST("/api/v1/reservations/id/:id/start", h.transition("Start", h.service.Start))
	router.POST("/api/v1/reservations/id/:id/complete", h.transition("Complete", h.service.Complete))
	router.POST("/api/v1/reservations/id/:id/cancel", h.transition("Cancel", h.service.Cancel))

	router.GET("/api/v1/equipment/:id/availability", h.Availability)
}

func (h *ReservationHandler) actor(w http.ResponseWriter, r *http.Request, handler string) (model.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		h.writeError(w, handler, apperrors.Unauthorized("Authentication required"))
	}
	return actor, ok
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func decodeError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.New(apperrors.CodeInvalidInput, "Request body too large", http.StatusRequestEntityTooLarge)
	}
	return apperrors.InvalidInput("Invalid request body")
}

func parseFilter(r *http.Request) (*model.ReservationFilter, error) {
	query := r.URL.Query()
	filter := &model.ReservationFilter{
		CustomerID:  query.Get("customer_id"),
		EquipmentID: query.Get("equipment_id"),
		Status:      model.ReservationStatus(query.Get("status")),
	}

	for param, dst := range map[string]**time.Time{
		"start_from": &filter.StartFrom,
		"start_to":   &filter.StartTo,
		"end_from":   &filter.EndFrom,
		"end_to":     &filter.EndTo,
	} {
		raw := query.Get(param)
		if raw == "" {
			continue
		}
		parsed, err := model.ParseDate(raw)
		if err != nil {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid %s parameter, must be YYYY-MM-DD: %s", param, raw))
		}
		*dst = &parsed
	}

	return filter, nil
}
