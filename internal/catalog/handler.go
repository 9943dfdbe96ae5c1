package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/bengkelmitra/bengkelmitra/internal/platform/httpx"
	"github.com/bengkelmitra/bengkelmitra/internal/shared"
	"github.com/bengkelmitra/bengkelmitra/internal/users"
)

// Handler wires HTTP endpoints for the item catalog.
type Handler struct {
	logger   *slog.Logger
	repo     *Repository
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo, validate: validator.New()}
}

// MountRoutes registers catalog routes. Reads are open to any authenticated
// user; mutations need owner or admin.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/items", h.handleList)
	r.Get("/items/{id}", h.handleGet)
	r.Group(func(r chi.Router) {
		r.Use(users.RequireRole(shared.RoleOwner, shared.RoleAdmin))
		r.Post("/items", h.handleCreate)
		r.Put("/items/{id}", h.handleUpdate)
		r.Delete("/items/{id}", h.handleDelete)
	})
}

type createRequest struct {
	Code        string `json:"code"`
	Name        string `json:"name" validate:"required,max=200"`
	Category    string `json:"category" validate:"max=100"`
	Price       int64  `json:"price" validate:"gte=0"`
	CostPrice   int64  `json:"cost_price" validate:"gte=0"`
	Photo       string `json:"photo" validate:"omitempty,url"`
	Description string `json:"description"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Query:    q.Get("q"),
		Category: q.Get("category"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	items, err := h.repo.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "invalid item id")
		return
	}
	item, err := h.repo.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.RespondError(w, err)
		return
	}

	id, err := h.repo.Create(r.Context(), Item{
		Code:        req.Code,
		Name:        req.Name,
		Category:    req.Category,
		Price:       req.Price,
		CostPrice:   req.CostPrice,
		Photo:       req.Photo,
		Description: req.Description,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.repo.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("item created", "id", id, "name", req.Name)
	httpx.JSON(w, http.StatusCreated, item)
}

// handleUpdate accepts a sparse field map. Unknown fields, and in particular
// any attempt to set stock directly, are rejected before touching the row.
func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "invalid item id")
		return
	}

	var fields map[string]any
	if err := httpx.DecodeJSON(r, &fields); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "malformed JSON body")
		return
	}
	if len(fields) == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "no fields to update")
		return
	}

	if err := h.repo.UpdateFields(r.Context(), id, fields); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.repo.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "invalid item id")
		return
	}
	if err := h.repo.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
