package commission

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/bengkelmitra/bengkelmitra/internal/platform/httpx"
	"github.com/bengkelmitra/bengkelmitra/internal/shared"
	"github.com/bengkelmitra/bengkelmitra/internal/users"
)

// Handler wires HTTP endpoints for commission progress and payouts.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers commission routes. Users see their own numbers; the
// owner sees everyone's and settles payouts.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/commission/status", h.handleOwnStatus)
	r.Get("/commission/achievements", h.handleOwnAchievements)
	r.Group(func(r chi.Router) {
		r.Use(users.RequireRole(shared.RoleOwner))
		r.Get("/commission/status/{username}", h.handleStatus)
		r.Get("/commission/achievements/{username}", h.handleAchievements)
		r.Post("/commission/pay", h.handlePay)
	})
}

func (h *Handler) handleOwnStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	h.respondStatus(w, r, actor.Username)
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	h.respondStatus(w, r, chi.URLParam(r, "username"))
}

func (h *Handler) respondStatus(w http.ResponseWriter, r *http.Request, username string) {
	status, err := h.service.Status(r.Context(), username)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, status)
}

func (h *Handler) handleOwnAchievements(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	h.respondAchievements(w, r, actor.Username)
}

func (h *Handler) handleAchievements(w http.ResponseWriter, r *http.Request) {
	h.respondAchievements(w, r, chi.URLParam(r, "username"))
}

func (h *Handler) respondAchievements(w http.ResponseWriter, r *http.Request, username string) {
	list, err := h.service.Achievements(r.Context(), username)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if list == nil {
		list = []Achievement{}
	}
	httpx.JSON(w, http.StatusOK, list)
}

type payRequest struct {
	Username string `json:"username"`
	Date     string `json:"date"`
}

func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "malformed JSON body")
		return
	}
	if err := h.service.MarkPaid(r.Context(), req.Username, req.Date); err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	h.logger.Info("achievement paid", "user", req.Username, "date", req.Date, "by", actor.Username)
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "paid"})
}
