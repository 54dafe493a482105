package handlers

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/plainly/plainly/internal/core"
	"github.com/plainly/plainly/internal/core/store"
	apperrors "github.com/plainly/plainly/internal/errors"
	"github.com/plainly/plainly/internal/server/middleware"
)

// DefaultMaxBodyBytes caps the simplify request body.
const DefaultMaxBodyBytes int64 = 1 << 20

// Simplifier runs one simplify request.
type Simplifier interface {
	Simplify(ctx context.Context, clientID string, req core.SimplifyRequest) (*core.SimplifyResult, error)
}

// SimplifyResponse is the success body of POST /api/simplify.
type SimplifyResponse struct {
	Output string `json:"output"`
	Model  string `json:"model"`
}

// SimplifyHandler serves POST /api/simplify.
type SimplifyHandler struct {
	Simplifier   Simplifier
	MaxBodyBytes int64
}

func (h *SimplifyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		respondWithError(w, r, apperrors.NewMethodNotAllowedError("Method not allowed"))
		return
	}

	limit := h.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}

	// A body that does not decode is treated as empty so the usual check order
	// (credential, then fields) still decides the response.
	var req core.SimplifyRequest
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var maxErr *http.MaxBytesError
		if stderrors.As(err, &maxErr) {
			respondWithError(w, r, apperrors.NewInvalidInputError("Request body too large"))
			return
		}
	} else if len(body) > 0 {
		if json.Unmarshal(body, &req) != nil {
			req = core.SimplifyRequest{}
		}
	}

	result, err := h.Simplifier.Simplify(r.Context(), middleware.GetClientID(r), req)
	if err != nil {
		respondWithError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SimplifyResponse{Output: result.Output, Model: result.ModelUsed})
}

// LevelOption describes one detail level for pickers.
type LevelOption struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Aliases []string `json:"aliases,omitempty"`
}

// ModelOption describes one model tier.
type ModelOption struct {
	ID    string    `json:"id"`
	Label string    `json:"label"`
	Tier  core.Tier `json:"tier"`
}

// OptionsResponse is the body of GET /api/options.
type OptionsResponse struct {
	Levels          []LevelOption `json:"levels"`
	Languages       []string      `json:"languages"`
	DefaultLanguage string        `json:"default_language"`
	Models          []ModelOption `json:"models"`
	PremiumLimit    int           `json:"premium_limit"`
	WindowSeconds   int64         `json:"window_seconds"`
}

// NewOptionsResponse builds the picker options for the configured models and limit.
func NewOptionsResponse(standardModel, premiumModel string, premiumLimit int, window time.Duration) OptionsResponse {
	levels := make([]LevelOption, 0, len(core.Levels))
	for _, level := range core.Levels {
		levels = append(levels, LevelOption{ID: level.ID(), Name: level.String(), Aliases: level.Aliases()})
	}
	return OptionsResponse{
		Levels:          levels,
		Languages:       core.TargetLanguages,
		DefaultLanguage: core.DefaultTargetLanguage,
		Models: []ModelOption{
			{ID: standardModel, Label: "Standard", Tier: core.TierStandard},
			{ID: premiumModel, Label: "Premium", Tier: core.TierPremium},
		},
		PremiumLimit:  premiumLimit,
		WindowSeconds: int64(window / time.Second),
	}
}

// OptionsHandler serves a fixed options document.
func OptionsHandler(options OptionsResponse) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, options)
	}
}

// UsageSnapshotter exposes read-only limiter state.
type UsageSnapshotter interface {
	Snapshot() []store.UsageEntry
}

// UsageEntryResponse is one client's current window.
type UsageEntryResponse struct {
	ClientID    string    `json:"client_id"`
	Count       int       `json:"count"`
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	Expired     bool      `json:"expired"`
}

// UsageResponse is the body of GET /api/usage.
type UsageResponse struct {
	Clients []UsageEntryResponse `json:"clients"`
	Limit   int                  `json:"limit"`
}

// UsageHandler serves a diagnostic snapshot of the usage store.
func UsageHandler(usage UsageSnapshotter, limit int, window time.Duration, now func() time.Time) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, r *http.Request) {
		at := now()
		entries := usage.Snapshot()
		resp := UsageResponse{Clients: make([]UsageEntryResponse, 0, len(entries)), Limit: limit}
		for _, entry := range entries {
			resp.Clients = append(resp.Clients, UsageEntryResponse{
				ClientID:    entry.ClientID,
				Count:       entry.Record.Count,
				WindowStart: entry.Record.WindowStart.UTC(),
				WindowEnd:   entry.Record.WindowStart.Add(window).UTC(),
				Expired:     entry.Record.Expired(at, window),
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
