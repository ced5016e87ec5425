package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/voyagent/voyagent/internal/session"
	"github.com/voyagent/voyagent/internal/trip"
)

// Handler exposes dialogue sessions over HTTP. Every session it opens is
// seeded from the same base configuration (generator, store, vocabulary,
// budgets); per-request input supplies the trip context and goal.
type Handler struct {
	registry *Registry
	base     session.Config
	logger   *slog.Logger
}

func NewHandler(base session.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		registry: NewRegistry(),
		base:     base,
		logger:   logger,
	}
}

// Registry returns the live session registry, for shutdown handling.
func (h *Handler) Registry() *Registry {
	return h.registry
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/v1/trips/{tripID}/sessions", h.handleOpenSession)
	r.Get("/v1/sessions/{sessionID}", h.handleGetSession)
	r.Post("/v1/sessions/{sessionID}/turns", h.handleSubmitTurn)
	r.Post("/v1/sessions/{sessionID}/mutation", h.handleSynthesize)
	r.Delete("/v1/sessions/{sessionID}", h.handleCloseSession)
}

type openSessionRequest struct {
	Context  *trip.Context `json:"context"`
	Target   string        `json:"target"`
	Item     trip.Entity   `json:"item,omitempty"`
	ItemKind string        `json:"item_kind,omitempty"`
}

type sessionResponse struct {
	SessionID  string             `json:"session_id"`
	Target     session.TargetKind `json:"target"`
	Transcript []session.TurnView `json:"transcript"`
	Budget     session.Budget     `json:"budget"`
}

type submitTurnRequest struct {
	Text string `json:"text"`
}

type turnResponse struct {
	Outcome    session.Outcome    `json:"outcome"`
	Forced     bool               `json:"forced,omitempty"`
	Transcript []session.TurnView `json:"transcript"`
	Budget     session.Budget     `json:"budget"`
	Mutation   trip.Entity        `json:"mutation,omitempty"`
	TripID     string             `json:"trip_id,omitempty"`
}

type mutationResponse struct {
	SessionID string      `json:"session_id"`
	Mutation  trip.Entity `json:"mutation"`
}

func (h *Handler) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	tripID := chi.URLParam(r, "tripID")

	var req openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Context == nil {
		req.Context = &trip.Context{}
	}
	if req.Context.TripID == "" {
		req.Context.TripID = tripID
	}
	if req.Context.TripID != tripID {
		h.writeError(w, r, http.StatusBadRequest, "trip_id in body does not match URL")
		return
	}

	target := session.TargetTrip
	if req.Target != "" {
		target = session.TargetKind(req.Target)
	}
	if target != session.TargetTrip && target != session.TargetItem {
		h.writeError(w, r, http.StatusBadRequest, "target must be \"trip\" or \"item\"")
		return
	}

	s, err := session.Open(r.Context(), h.base, session.OpenParams{
		Context:  req.Context,
		Target:   target,
		Item:     req.Item,
		ItemKind: trip.Kind(req.ItemKind),
	})
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	h.registry.Add(s)

	AddLogField(r.Context(), "session_id", s.ID())
	AddLogField(r.Context(), "trip_id", tripID)

	writeJSON(w, http.StatusCreated, sessionResponse{
		SessionID:  s.ID(),
		Target:     s.Target(),
		Transcript: s.TranscriptView(),
		Budget:     s.BudgetState(),
	})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.registry.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		h.writeError(w, r, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID:  s.ID(),
		Target:     s.Target(),
		Transcript: s.TranscriptView(),
		Budget:     s.BudgetState(),
	})
}

func (h *Handler) handleSubmitTurn(w http.ResponseWriter, r *http.Request) {
	s, ok := h.registry.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		h.writeError(w, r, http.StatusNotFound, "session not found")
		return
	}

	var req submitTurnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	AddLogField(r.Context(), "session_id", s.ID())

	result, err := s.SubmitUserTurn(r.Context(), req.Text)
	if err != nil && result == nil {
		h.writeSessionError(w, r, err)
		return
	}
	if err != nil {
		// Confirmed outcome with failed synthesis: report the outcome so
		// the client can retry via the mutation endpoint.
		AddError(r.Context(), err)
	}

	AddLogField(r.Context(), "outcome", string(result.Outcome))

	writeJSON(w, http.StatusOK, turnResponse{
		Outcome:    result.Outcome,
		Forced:     result.Forced,
		Transcript: result.Transcript,
		Budget:     s.BudgetState(),
		Mutation:   result.Mutation,
		TripID:     result.TripID,
	})
}

func (h *Handler) handleSynthesize(w http.ResponseWriter, r *http.Request) {
	s, ok := h.registry.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		h.writeError(w, r, http.StatusNotFound, "session not found")
		return
	}

	AddLogField(r.Context(), "session_id", s.ID())

	mutation, err := s.Synthesize(r.Context())
	if err != nil {
		h.writeSessionError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutationResponse{SessionID: s.ID(), Mutation: mutation})
}

func (h *Handler) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.registry.Remove(chi.URLParam(r, "sessionID"))
	if !ok {
		h.writeError(w, r, http.StatusNotFound, "session not found")
		return
	}
	s.Close()
	w.WriteHeader(http.StatusNoContent)
}

// writeSessionError maps engine errors onto HTTP statuses.
func (h *Handler) writeSessionError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	var mismatch *session.SchemaMismatchError
	switch {
	case errors.Is(err, session.ErrInvalidContext),
		errors.Is(err, session.ErrEmptyInput):
		status = http.StatusBadRequest
	case errors.Is(err, session.ErrConcurrentTurn):
		status = http.StatusConflict
	case errors.Is(err, session.ErrSessionEnded):
		status = http.StatusGone
	case errors.Is(err, session.ErrGenerationUnavailable),
		errors.As(err, &mismatch):
		status = http.StatusBadGateway
	}
	h.writeError(w, r, status, err.Error())
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Message string `json:"message"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	AddLogField(r.Context(), "error", message)
	writeJSON(w, status, errorResponse{Error: errorBody{Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
