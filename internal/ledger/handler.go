package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/bengkelmitra/bengkelmitra/internal/platform/httpx"
	"github.com/bengkelmitra/bengkelmitra/internal/shared"
)

// Handler wires read-only HTTP endpoints over the ledger.
type Handler struct {
	logger *slog.Logger
	repo   *Repository
}

func NewHandler(logger *slog.Logger, repo *Repository) *Handler {
	return &Handler{logger: logger, repo: repo}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/ledger", h.handleList)
	r.Get("/ledger/{code}", h.handleByTransaction)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := Filter{
		Type:  EntryType(q.Get("type")),
		Actor: q.Get("actor"),
	}
	filter.ItemID, _ = strconv.ParseInt(q.Get("item_id"), 10, 64)
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))

	for name, dst := range map[string]*time.Time{"from": &filter.From, "to": &filter.To} {
		if raw := q.Get(name); raw != "" {
			t, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
			if err != nil {
				httpx.RespondError(w, shared.Invalidf("invalid %s %q, want YYYY-MM-DD", name, raw))
				return
			}
			*dst = t
		}
	}

	entries, err := h.repo.List(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}
	httpx.JSON(w, http.StatusOK, entries)
}

type transactionResponse struct {
	Entries []Entry `json:"entries"`
	// Related holds entries tied to this transaction through their service
	// reference, such as charges hanging off a service job.
	Related []Entry `json:"related,omitempty"`
}

func (h *Handler) handleByTransaction(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	entries, err := h.repo.ByTransaction(r.Context(), code)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	related, err := h.repo.ByServiceTransaction(r.Context(), code)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if len(entries) == 0 && len(related) == 0 {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no entries for transaction "+code)
		return
	}
	httpx.JSON(w, http.StatusOK, transactionResponse{Entries: entries, Related: related})
}
