package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"lifo-parking/internal/garage"
	"lifo-parking/internal/parking"
)

type Handler struct {
	service     *garage.Service
	serviceName string
	plateStrict bool
}

func NewHandler(service *garage.Service, serviceName string, plateStrict bool) *Handler {
	if serviceName == "" {
		serviceName = parking.DefaultServiceName
	}
	return &Handler{
		service:     service,
		serviceName: serviceName,
		plateStrict: plateStrict,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: h.serviceName,
		Meta:    extractMeta(r.Context()),
	})
}

func (h *Handler) decodePlate(w http.ResponseWriter, r *http.Request) (string, bool) {
	ctx := r.Context()

	var req PlateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return "", false
	}

	if err := garage.ValidatePlate(req.Plate, h.plateStrict); err != nil {
		annotateRejection(ctx, req.Plate, err)
		WriteError(ctx, w, http.StatusBadRequest, err.Error())
		return "", false
	}

	return req.Plate, true
}

func (h *Handler) Enter(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	plate, ok := h.decodePlate(w, r)
	if !ok {
		return
	}

	entry, err := h.service.Enter(ctx, plate)
	switch {
	case errors.Is(err, parking.ErrExists):
		annotateRejection(ctx, plate, err)
		WriteError(ctx, w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, parking.ErrInvalidPlate):
		annotateRejection(ctx, plate, err)
		WriteError(ctx, w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		WriteError(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}

	annotateEntry(ctx, plate, entry)
	if entry.Placement == parking.Waiting {
		WriteSuccess(ctx, w, http.StatusAccepted, "Facility full, car is waiting", newEntryResponse(entry))
		return
	}
	WriteSuccess(ctx, w, http.StatusCreated, "Car parked successfully", newEntryResponse(entry))
}

func (h *Handler) Exit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	plate, ok := h.decodePlate(w, r)
	if !ok {
		return
	}

	receipt, err := h.service.Exit(ctx, plate)
	switch {
	case errors.Is(err, parking.ErrEmpty):
		annotateRejection(ctx, plate, err)
		WriteError(ctx, w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, parking.ErrNotFound):
		annotateRejection(ctx, plate, err)
		WriteError(ctx, w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		WriteError(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}

	annotateExit(ctx, receipt)
	WriteSuccess(ctx, w, http.StatusOK, "Car departed", newExitResponse(receipt))
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	WriteSuccess(ctx, w, http.StatusOK, "Status retrieved successfully", h.service.Status(ctx))
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	WriteSuccess(ctx, w, http.StatusOK, "Stats retrieved successfully", newStatsResponse(h.service.Stats(ctx)))
}

func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.service.Save(ctx); err != nil {
		WriteError(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteSuccess(ctx, w, http.StatusOK, "State saved", nil)
}

func (h *Handler) Load(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	loaded, err := h.service.Load(ctx)
	if err != nil {
		WriteError(ctx, w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	WriteSuccess(ctx, w, http.StatusOK, "Load finished", LoadResponse{Loaded: loaded})
}

func (h *Handler) Receipts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			WriteError(ctx, w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.service.Receipts(ctx, limit)
	if err != nil {
		WriteError(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}
	WriteSuccess(ctx, w, http.StatusOK, "Receipts retrieved successfully", entries)
}
