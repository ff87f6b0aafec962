package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/oggyb/podmatch/internal/db"
	svcErr "github.com/oggyb/podmatch/internal/errors"
	"github.com/oggyb/podmatch/internal/repository"
	"github.com/oggyb/podmatch/internal/service/engine"
)

type ctxKey int

const userIDKey ctxKey = iota

// Handler exposes the engine service over HTTP/JSON.
type Handler struct {
	svc *engine.Service
	log *slog.Logger
}

func NewHandler(svc *engine.Service, log *slog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// RequireUser pulls the caller identity from the X-User-ID header set by the
// upstream auth layer.
func (h *Handler) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing X-User-ID header"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func callerID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

type errorBody struct {
	Error string `json:"error"`
}

type swipeRequest struct {
	TargetID  string `json:"target_id"`
	Direction string `json:"direction"`
}

type swipeResponse struct {
	Matched   bool   `json:"matched"`
	MatchID   string `json:"match_id,omitempty"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

// Swipe records a swipe and reports whether it completed a match. A repeated
// swipe on the same target is answered 200 as a no-op rather than an error.
func (h *Handler) Swipe(w http.ResponseWriter, r *http.Request) {
	var req swipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return
	}

	result, err := h.svc.Swipe(r.Context(), callerID(r), req.TargetID, req.Direction)
	if errors.Is(err, repository.ErrDuplicateSwipe) {
		writeJSON(w, http.StatusOK, swipeResponse{Duplicate: true})
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, swipeResponse{Matched: result.Matched, MatchID: result.MatchID})
}

type profileView struct {
	Niche              []string `json:"niche,omitempty"`
	Language           string   `json:"language,omitempty"`
	Country            string   `json:"country,omitempty"`
	Availability       string   `json:"availability,omitempty"`
	PodcastName        string   `json:"podcast_name,omitempty"`
	PodcastDescription string   `json:"podcast_description,omitempty"`
	Topics             []string `json:"topics,omitempty"`
	AudienceSize       string   `json:"audience_size,omitempty"`
	Bio                string   `json:"bio,omitempty"`
	Expertise          []string `json:"expertise,omitempty"`
	RemoteRecording    bool     `json:"remote_recording,omitempty"`
}

func newProfileView(p *db.Profile) *profileView {
	if p == nil {
		return nil
	}
	return &profileView{
		Niche:              p.Niche,
		Language:           p.Language,
		Country:            p.Country,
		Availability:       p.Availability,
		PodcastName:        p.PodcastName,
		PodcastDescription: p.PodcastDescription,
		Topics:             p.Topics,
		AudienceSize:       p.AudienceSize,
		Bio:                p.Bio,
		Expertise:          p.Expertise,
		RemoteRecording:    p.RemoteRecording,
	}
}

type feedCandidate struct {
	CandidateID string       `json:"candidate_id"`
	Name        string       `json:"name"`
	Role        string       `json:"role"`
	Score       float64      `json:"score"`
	Profile     *profileView `json:"profile,omitempty"`
}

type discoverResponse struct {
	Candidates []feedCandidate `json:"candidates"`
}

// Discover returns the ranked candidate page for the caller.
func (h *Handler) Discover(w http.ResponseWriter, r *http.Request) {
	pageSize := 0
	if v := r.URL.Query().Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "page_size must be an integer"})
			return
		}
		pageSize = n
	}

	entries, err := h.svc.Discover(r.Context(), callerID(r), pageSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := discoverResponse{Candidates: make([]feedCandidate, 0, len(entries))}
	for _, e := range entries {
		resp.Candidates = append(resp.Candidates, feedCandidate{
			CandidateID: e.User.UserID,
			Name:        e.User.Name,
			Role:        e.User.Role,
			Score:       e.Score,
			Profile:     newProfileView(e.Profile),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type matchView struct {
	MatchID       string       `json:"match_id"`
	CreatedAt     time.Time    `json:"created_at"`
	LastMessageAt *time.Time   `json:"last_message_at"`
	OtherUserID   string       `json:"other_user_id"`
	OtherName     string       `json:"other_name"`
	OtherRole     string       `json:"other_role"`
	OtherProfile  *profileView `json:"other_profile,omitempty"`
}

type matchesResponse struct {
	Matches       []matchView `json:"matches"`
	NextPageToken *string     `json:"next_page_token,omitempty"`
}

// Matches lists the caller's matches, newest first, with cursor pagination.
func (h *Handler) Matches(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	var token *string
	if v := r.URL.Query().Get("page_token"); v != "" {
		token = &v
	}

	entries, nextToken, err := h.svc.Matches(r.Context(), callerID(r), token, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	resp := matchesResponse{Matches: make([]matchView, 0, len(entries)), NextPageToken: nextToken}
	for _, e := range entries {
		resp.Matches = append(resp.Matches, matchView{
			MatchID:       e.Match.MatchID,
			CreatedAt:     e.Match.CreatedAt,
			LastMessageAt: e.Match.LastMessageAt,
			OtherUserID:   e.OtherUser.UserID,
			OtherName:     e.OtherUser.Name,
			OtherRole:     e.OtherUser.Role,
			OtherProfile:  newProfileView(e.OtherProfile),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type touchRequest struct {
	Timestamp *time.Time `json:"timestamp"`
}

// TouchMatch is the chat collaborator's write-back hook for last_message_at.
func (h *Handler) TouchMatch(w http.ResponseWriter, r *http.Request) {
	matchID := chi.URLParam(r, "matchID")

	// Body is optional; an absent timestamp means "now".
	var req touchRequest
	_ = json.NewDecoder(r.Body).Decode(&req)

	ts := time.Now().UTC()
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}

	if err := h.svc.TouchMatch(r.Context(), matchID, ts); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type trainResponse struct {
	SwipesUsed int    `json:"swipes_used"`
	Version    string `json:"version"`
}

// TrainModel retrains the recommender from full swipe history and publishes
// the new snapshot. Operator-triggered.
func (h *Handler) TrainModel(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.TrainModel(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trainResponse{SwipesUsed: report.SwipesUsed, Version: report.Version})
}

type subscriptionResponse struct {
	Tier         string     `json:"tier"`
	SwipesToday  int        `json:"swipes_today"`
	SwipeResetAt *time.Time `json:"swipes_reset_at"`
}

// SubscriptionStatus reports tier and quota counters for the caller.
func (h *Handler) SubscriptionStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.svc.SubscriptionStatus(r.Context(), callerID(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, subscriptionResponse{
		Tier:         status.Tier,
		SwipesToday:  status.SwipesToday,
		SwipeResetAt: status.SwipeResetAt,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := svcErr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "path", r.URL.Path, "err", err)
		writeJSON(w, status, errorBody{Error: "internal error"})
		return
	}
	h.log.Debug("request rejected", "path", r.URL.Path, "status", status, "err", err)
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
