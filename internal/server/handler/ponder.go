package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/flowponder/ponderd/internal/analytics"
	"github.com/flowponder/ponderd/internal/domain"
	"github.com/flowponder/ponderd/internal/market"
)

// PonderService defines what the ponder handler needs from the orchestrator.
type PonderService interface {
	ActivePonders(ctx context.Context) ([]domain.Ponder, error)
	Ponder(ctx context.Context, id domain.PonderID) (domain.Ponder, error)
	CreatePonder(ctx context.Context, req market.CreatePonderRequest) (market.Result, error)
	PlaceVote(ctx context.Context, id domain.PonderID, option int, amount domain.Amount) (market.Result, error)
	PlaceFreeVote(ctx context.Context, id domain.PonderID, option int) (market.Result, error)
	WithdrawWinnings(ctx context.Context, id domain.PonderID) (market.Result, error)
}

// PonderHandler serves ponder HTTP endpoints.
type PonderHandler struct {
	market PonderService
	logger *slog.Logger
}

// NewPonderHandler creates a PonderHandler.
func NewPonderHandler(market PonderService, logger *slog.Logger) *PonderHandler {
	return &PonderHandler{market: market, logger: logger}
}

// optionView pairs one option with its derived display attributes.
type optionView struct {
	Label        string                `json:"label"`
	Votes        uint64                `json:"votes"`
	SharePercent float64               `json:"sharePercent"`
	Color        analytics.OptionColor `json:"color"`
}

// ponderView is a ponder enriched with the derived fields every renderer
// needs, so clients never recompute them inconsistently.
type ponderView struct {
	domain.Ponder
	TimeToExpiry string       `json:"timeToExpiry"`
	EndingSoon   bool         `json:"endingSoon"`
	OptionViews  []optionView `json:"optionViews"`
}

func viewOf(p domain.Ponder, now time.Time) ponderView {
	views := make([]optionView, len(p.Options))
	for i, label := range p.Options {
		var votes uint64
		if i < len(p.VoteCounts) {
			votes = p.VoteCounts[i]
		}
		views[i] = optionView{
			Label:        label,
			Votes:        votes,
			SharePercent: analytics.OptionSharePercent(p, i),
			Color:        analytics.ColorForOption(i, len(p.Options)),
		}
	}
	return ponderView{
		Ponder:       p,
		TimeToExpiry: analytics.TimeToExpiry(p.EndTime, now),
		EndingSoon:   analytics.IsEndingSoon(p.EndTime, now),
		OptionViews:  views,
	}
}

// ListPonders returns active ponders, optionally filtered.
// GET /api/ponders?filter=featured&q=bitcoin
func (h *PonderHandler) ListPonders(w http.ResponseWriter, r *http.Request) {
	filter, err := analytics.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ponders, err := h.market.ActivePonders(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list ponders failed",
			slog.String("error", err.Error()))
		writeDomainError(w, err)
		return
	}

	now := time.Now()
	ponders = analytics.FilterPonders(ponders, filter, r.URL.Query().Get("q"), now)

	views := make([]ponderView, len(ponders))
	for i, p := range ponders {
		views[i] = viewOf(p, now)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ponders": views,
		"total":   len(views),
	})
}

// GetPonder returns a single ponder by ID.
// GET /api/ponders/{id}
func (h *PonderHandler) GetPonder(w http.ResponseWriter, r *http.Request) {
	id, err := ponderIDParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	p, err := h.market.Ponder(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(p, time.Now()))
}

// createPonderRequest is the JSON body of a creation request. Amounts are
// fixed-point decimal strings.
type createPonderRequest struct {
	Question      string          `json:"question"`
	Description   string          `json:"description"`
	Options       []string        `json:"options"`
	DurationHours domain.Amount   `json:"durationHours"`
	MinBet        domain.Amount   `json:"minBet"`
	MaxBet        domain.Amount   `json:"maxBet"`
	Category      domain.Category `json:"category"`
}

// CreatePonder runs the creation workflow end to end: the response is only
// written once the transaction sealed and the new ponder ID is known.
// POST /api/ponders
func (h *PonderHandler) CreatePonder(w http.ResponseWriter, r *http.Request) {
	var req createPonderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	result, err := h.market.CreatePonder(r.Context(), market.CreatePonderRequest{
		Question:      req.Question,
		Description:   req.Description,
		Options:       req.Options,
		DurationHours: req.DurationHours,
		MinBet:        req.MinBet,
		MaxBet:        req.MaxBet,
		Category:      req.Category,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// voteRequest is the JSON body of a vote. A missing or zero amount together
// with free=true places a zero-stake vote.
type voteRequest struct {
	Option int           `json:"option"`
	Amount domain.Amount `json:"amount"`
	Free   bool          `json:"free"`
}

// PlaceVote runs the vote workflow for one ponder.
// POST /api/ponders/{id}/votes
func (h *PonderHandler) PlaceVote(w http.ResponseWriter, r *http.Request) {
	id, err := ponderIDParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}

	var result market.Result
	if req.Free {
		result, err = h.market.PlaceFreeVote(r.Context(), id, req.Option)
	} else {
		result, err = h.market.PlaceVote(r.Context(), id, req.Option, req.Amount)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// Withdraw runs the winnings withdrawal workflow for one resolved ponder.
// POST /api/ponders/{id}/withdraw
func (h *PonderHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	id, err := ponderIDParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := h.market.WithdrawWinnings(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ListCategories returns the fixed category set in display order.
// GET /api/categories
func (h *PonderHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": domain.Categories})
}
