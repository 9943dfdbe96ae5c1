package stock

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bengkelmitra/bengkelmitra/internal/platform/httpx"
	"github.com/bengkelmitra/bengkelmitra/internal/shared"
	"github.com/bengkelmitra/bengkelmitra/internal/users"
)

// Handler wires HTTP endpoints for stock movements.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers movement routes. Audits correct counted stock and are
// restricted to owner and admin.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/stock/in", h.handleStockIn)
	r.Post("/stock/out", h.handleStockOut)
	r.Group(func(r chi.Router) {
		r.Use(users.RequireRole(shared.RoleOwner, shared.RoleAdmin))
		r.Post("/stock/audit", h.handleAudit)
	})
}

type stockInBody struct {
	Lines []InLine `json:"lines"`
}

type stockOutBody struct {
	Lines []OutLine `json:"lines"`
}

type auditBody struct {
	Lines []AuditLine `json:"lines"`
}

func (h *Handler) handleStockIn(w http.ResponseWriter, r *http.Request) {
	var body stockInBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "malformed JSON body")
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	res, err := h.service.StockIn(r.Context(), StockInRequest{Lines: body.Lines, Actor: actor.Username})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *Handler) handleStockOut(w http.ResponseWriter, r *http.Request) {
	var body stockOutBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "malformed JSON body")
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	res, err := h.service.StockOut(r.Context(), StockOutRequest{Lines: body.Lines, Actor: actor.Username})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}

func (h *Handler) handleAudit(w http.ResponseWriter, r *http.Request) {
	var body auditBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "malformed JSON body")
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	res, err := h.service.Audit(r.Context(), AuditRequest{Lines: body.Lines, Actor: actor.Username})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, res)
}
