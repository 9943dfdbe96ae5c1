package servicejob

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/bengkelmitra/bengkelmitra/internal/platform/httpx"
	"github.com/bengkelmitra/bengkelmitra/internal/shared"
)

// Handler wires HTTP endpoints for service jobs and their charges.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/service", h.handleCreate)
	r.Get("/service", h.handleList)
	r.Get("/service/{id}", h.handleGet)
	r.Put("/service/{id}/parts", h.handleUpdateParts)
	r.Put("/service/{id}/labor", h.handleUpdateLabor)
	r.Post("/service/{id}/complete", h.handleComplete)
	r.Post("/service/{id}/cancel", h.handleCancel)
	r.Get("/service/{id}/charges", h.handleListCharges)
	r.Post("/service/{id}/charges", h.handleAddCharge)
	r.Post("/charges/{id}/cancel", h.handleCancelCharge)
}

func jobID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Invalidf("invalid id %q", chi.URLParam(r, "id"))
	}
	return id, nil
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "malformed JSON body")
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	req.Actor = actor.Username

	job, err := h.service.Create(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, job)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Status: Status(q.Get("status"))}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	jobs, err := h.service.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if jobs == nil {
		jobs = []Job{}
	}
	httpx.JSON(w, http.StatusOK, jobs)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := jobID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	job, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

type partsBody struct {
	Parts []Part `json:"parts" validate:"dive"`
}

func (h *Handler) handleUpdateParts(w http.ResponseWriter, r *http.Request) {
	id, err := jobID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var body partsBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "malformed JSON body")
		return
	}
	if err := h.service.UpdateParts(r.Context(), id, body.Parts); err != nil {
		httpx.RespondError(w, err)
		return
	}
	job, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

type laborBody struct {
	LaborCost int64 `json:"labor_cost"`
}

func (h *Handler) handleUpdateLabor(w http.ResponseWriter, r *http.Request) {
	id, err := jobID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var body laborBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "malformed JSON body")
		return
	}
	if err := h.service.UpdateLaborCost(r.Context(), id, body.LaborCost); err != nil {
		httpx.RespondError(w, err)
		return
	}
	job, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	id, err := jobID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	job, err := h.service.Complete(r.Context(), id, actor.Username)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

type cancelBody struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := jobID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var body cancelBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "malformed JSON body")
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	job, err := h.service.Cancel(r.Context(), id, body.Reason, actor.Username)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, job)
}

func (h *Handler) handleListCharges(w http.ResponseWriter, r *http.Request) {
	id, err := jobID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	charges, err := h.service.Charges(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if charges == nil {
		charges = []Charge{}
	}
	httpx.JSON(w, http.StatusOK, charges)
}

type chargeBody struct {
	Label  string `json:"label"`
	Amount int64  `json:"amount"`
}

func (h *Handler) handleAddCharge(w http.ResponseWriter, r *http.Request) {
	id, err := jobID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var body chargeBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "malformed JSON body")
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	charge, err := h.service.AddCharge(r.Context(), id, body.Label, body.Amount, actor.Username)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, charge)
}

func (h *Handler) handleCancelCharge(w http.ResponseWriter, r *http.Request) {
	id, err := jobID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	if err := h.service.CancelCharge(r.Context(), id, actor.Username); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "canceled"})
}
