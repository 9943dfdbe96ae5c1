// Package settings stores the single free-form shop settings document.
package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bengkelmitra/bengkelmitra/internal/platform/httpx"
	"github.com/bengkelmitra/bengkelmitra/internal/shared"
	"github.com/bengkelmitra/bengkelmitra/internal/users"
)

// Document is the one settings row. Content is opaque free text owned by the
// client.
type Document struct {
	Content   string    `json:"content"`
	UpdatedBy string    `json:"updated_by"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get returns the document, or an empty one when nothing has been saved yet.
func (r *Repository) Get(ctx context.Context) (Document, error) {
	var d Document
	err := r.pool.QueryRow(ctx,
		`SELECT content, updated_by, updated_at FROM settings WHERE id = 1`).
		Scan(&d.Content, &d.UpdatedBy, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, nil
	}
	if err != nil {
		return Document{}, fmt.Errorf("get settings: %w", err)
	}
	return d, nil
}

func (r *Repository) Put(ctx context.Context, content, updatedBy string) (Document, error) {
	var d Document
	err := r.pool.QueryRow(ctx, `
		INSERT INTO settings (id, content, updated_by, updated_at)
		VALUES (1, $1, $2, now())
		ON CONFLICT (id) DO UPDATE SET content = $1, updated_by = $2, updated_at = now()
		RETURNING content, updated_by, updated_at`,
		content, updatedBy).
		Scan(&d.Content, &d.UpdatedBy, &d.UpdatedAt)
	if err != nil {
		return Document{}, fmt.Errorf("put settings: %w", err)
	}
	return d, nil
}

type Handler struct {
	logger *slog.Logger
	repo   *Repository
}

func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/settings", h.handleGet)
	r.Group(func(r chi.Router) {
		r.Use(users.RequireRole(shared.RoleOwner))
		r.Put("/settings", h.handlePut)
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	d, err := h.repo.Get(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, d)
}

type putRequest struct {
	Content string `json:"content"`
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	var req putRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Input", "malformed JSON body")
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	d, err := h.repo.Put(r.Context(), req.Content, actor.Username)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("settings updated", "by", actor.Username)
	httpx.JSON(w, http.StatusOK, d)
}
