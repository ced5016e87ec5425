// Package session implements the conversational itinerary-refinement engine:
// a bounded, terminating dialogue that either elicits missing trip parameters
// or negotiates a validated change to one itinerary item.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voyagent/voyagent/internal/genai"
	"github.com/voyagent/voyagent/internal/store"
	"github.com/voyagent/voyagent/internal/trip"
)

const defaultMaxUserTurns = 8

// defaultFallbackMessage is appended as an assistant turn when a generation
// call fails, so the user never gets silence.
const defaultFallbackMessage = "Sorry, something went wrong on my side. Please try again."

type state int

const (
	stateActive state = iota
	stateProceeding
	stateConfirmed
	stateClosed
)

// Config wires a session's collaborators and tunables. Generator is
// required; everything else has a usable default.
type Config struct {
	Generator genai.Generator

	// Store receives a best-effort mirror of every turn as it is created.
	// Nil disables mirroring.
	Store store.RecordStore

	Logger *slog.Logger

	// Vocabulary configures intent detection. Zero value means defaults.
	Vocabulary *Vocabulary

	// MaxUserTurns caps question-answer turns before forced termination.
	MaxUserTurns int

	// PromptTokenBudget bounds transcript history in generation prompts.
	// Zero disables token truncation.
	PromptTokenBudget int

	// Counter estimates prompt sizes for truncation. Nil disables it.
	Counter *genai.TokenCounter

	// SystemPrompt and FallbackMessage are opaque configuration; empty
	// means the built-in defaults.
	SystemPrompt    string
	FallbackMessage string
}

// OpenParams describe one dialogue goal.
type OpenParams struct {
	// Context is the read-only trip snapshot. Required.
	Context *trip.Context

	// Target selects the dialogue goal.
	Target TargetKind

	// Item is the entity under negotiation. Required for TargetItem.
	Item trip.Entity

	// ItemKind names Item's declared schema. Required for TargetItem.
	ItemKind trip.Kind
}

// TurnResult is what one SubmitUserTurn call hands back to the caller.
type TurnResult struct {
	Outcome Outcome

	// Forced is set when the outcome came from budget exhaustion.
	Forced bool

	// Transcript is the read-only projection for rendering.
	Transcript []TurnView

	// Mutation is the validated replacement entity, set only in item mode
	// on a confirmed outcome with successful synthesis.
	Mutation trip.Entity

	// TripID accompanies a proceed outcome so the caller can navigate.
	TripID string
}

// Session owns the turn-by-turn message log, turn budget, and termination
// detection for one conversational goal. A session is strictly sequential:
// SubmitUserTurn must not be invoked again until the previous invocation has
// resolved. Independent sessions are fully concurrent.
type Session struct {
	id       string
	cfg      Config
	params   OpenParams
	resolver *Resolver
	synth    *Synthesizer

	turnGate chan struct{}

	mu         sync.Mutex
	state      state
	transcript []Turn
	budget     Budget
	lastTime   time.Time
	mutation   trip.Entity
}

// Open creates a session and seeds the transcript with one deterministic
// assistant greeting built from the context and target. No generation call
// is made. Missing required context fields fail with ErrInvalidContext.
func Open(ctx context.Context, cfg Config, params OpenParams) (*Session, error) {
	if cfg.Generator == nil {
		return nil, fmt.Errorf("session: generator is required")
	}
	if params.Context == nil {
		return nil, fmt.Errorf("%w: context is nil", ErrInvalidContext)
	}
	if err := params.Context.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContext, err)
	}
	if params.Target == TargetItem {
		if len(params.Item) == 0 {
			return nil, fmt.Errorf("%w: item target requires an item", ErrInvalidContext)
		}
		if _, err := trip.SchemaFor(params.ItemKind); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidContext, err)
		}
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.MaxUserTurns <= 0 {
		cfg.MaxUserTurns = defaultMaxUserTurns
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = defaultSystemPrompt
	}
	if cfg.FallbackMessage == "" {
		cfg.FallbackMessage = defaultFallbackMessage
	}
	vocab := DefaultVocabulary()
	if cfg.Vocabulary != nil {
		vocab = *cfg.Vocabulary
	}

	s := &Session{
		id:       uuid.New().String(),
		cfg:      cfg,
		params:   params,
		resolver: NewResolver(vocab),
		synth:    NewSynthesizer(cfg.Generator),
		turnGate: make(chan struct{}, 1),
		state:    stateActive,
		budget:   Budget{Max: cfg.MaxUserTurns},
	}

	greeting := s.greeting()
	s.append(ctx, SpeakerAssistant, greeting)
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Target returns the dialogue goal this session was opened with.
func (s *Session) Target() TargetKind {
	return s.params.Target
}

// SubmitUserTurn appends a user turn, resolves termination, and when the
// dialogue continues requests one assistant turn from the generator.
//
// On a generation failure the user's turn stays in the transcript, a
// deterministic fallback assistant message is appended, and the error wraps
// ErrGenerationUnavailable; the session remains open for another attempt.
//
// On a confirmed outcome with failed synthesis, both a non-nil result and a
// non-nil error are returned; Synthesize retries with the same inputs.
func (s *Session) SubmitUserTurn(ctx context.Context, text string) (*TurnResult, error) {
	select {
	case s.turnGate <- struct{}{}:
		defer func() { <-s.turnGate }()
	default:
		return nil, ErrConcurrentTurn
	}

	s.mu.Lock()
	if s.state != stateActive {
		s.mu.Unlock()
		return nil, ErrSessionEnded
	}

	text = strings.TrimSpace(text)
	if text == "" {
		s.mu.Unlock()
		return nil, ErrEmptyInput
	}

	prevAssistant := s.latestAssistantTextLocked()
	s.mu.Unlock()

	s.append(ctx, SpeakerUser, text)

	// The budget counts answers to questions, not every utterance.
	s.mu.Lock()
	if strings.Contains(prevAssistant, "?") && s.budget.Used < s.budget.Max {
		s.budget.Used++
	}
	budget := s.budget
	s.mu.Unlock()

	decision := s.resolver.Resolve(s.params.Target, budget, text, prevAssistant)
	if decision.Outcome != OutcomeContinue {
		return s.finalize(ctx, decision)
	}

	prompt := buildPrompt(s.cfg.SystemPrompt, s.params.Context, s.snapshot(), s.cfg.Counter, s.cfg.PromptTokenBudget)
	result, err := s.cfg.Generator.Generate(ctx, &genai.Request{Messages: prompt})
	if err != nil {
		s.append(ctx, SpeakerAssistant, s.cfg.FallbackMessage)
		s.cfg.Logger.Error("assistant turn generation failed",
			slog.String("session_id", s.id),
			slog.String("trip_id", s.params.Context.TripID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", ErrGenerationUnavailable, err)
	}

	s.append(ctx, SpeakerAssistant, result.Text)

	// The new assistant turn may itself terminate the dialogue.
	decision = s.resolver.Resolve(s.params.Target, budget, text, result.Text)
	if decision.Outcome != OutcomeContinue {
		return s.finalize(ctx, decision)
	}

	return &TurnResult{
		Outcome:    OutcomeContinue,
		Transcript: s.TranscriptView(),
	}, nil
}

// Synthesize produces (or returns the already-produced) replacement entity
// for a confirmed item negotiation. It exists so a caller can retry after a
// SchemaMismatch or generation failure without replaying the dialogue.
func (s *Session) Synthesize(ctx context.Context) (trip.Entity, error) {
	s.mu.Lock()
	if s.state != stateConfirmed {
		s.mu.Unlock()
		return nil, fmt.Errorf("session: no confirmed negotiation to synthesize")
	}
	if s.mutation != nil {
		m := s.mutation
		s.mu.Unlock()
		return m, nil
	}
	transcript := make([]Turn, len(s.transcript))
	copy(transcript, s.transcript)
	s.mu.Unlock()

	replacement, err := s.synth.Synthesize(ctx, s.params.ItemKind, s.params.Item, transcript)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.mutation = replacement
	s.mu.Unlock()
	return replacement, nil
}

// Close releases the session. It is idempotent, safe from any state, and
// has no side effects beyond marking the session ended. Any in-flight
// generation result arriving after Close is discarded by the caller.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = stateClosed
}

// TranscriptView returns the ordered read-only projection of the transcript.
func (s *Session) TranscriptView() []TurnView {
	s.mu.Lock()
	defer s.mu.Unlock()
	views := make([]TurnView, len(s.transcript))
	for i, t := range s.transcript {
		views[i] = TurnView{Speaker: t.Speaker, Text: t.Text}
	}
	return views
}

// BudgetState returns the current turn budget.
func (s *Session) BudgetState() Budget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budget
}

func (s *Session) finalize(ctx context.Context, decision Decision) (*TurnResult, error) {
	result := &TurnResult{
		Outcome:    decision.Outcome,
		Forced:     decision.Forced,
		Transcript: s.TranscriptView(),
	}

	switch decision.Outcome {
	case OutcomeProceed:
		s.mu.Lock()
		s.state = stateProceeding
		s.mu.Unlock()
		result.TripID = s.params.Context.TripID
		return result, nil

	case OutcomeConfirmed:
		s.mu.Lock()
		s.state = stateConfirmed
		s.mu.Unlock()
		mutation, err := s.Synthesize(ctx)
		if err != nil {
			return result, err
		}
		result.Mutation = mutation
		return result, nil
	}
	return result, nil
}

// greeting builds the deterministic seed turn.
func (s *Session) greeting() string {
	if s.params.Target == TargetItem {
		title := "this item"
		if t, ok := s.params.Item["title"].(string); ok && t != "" {
			title = fmt.Sprintf("%q", t)
		} else if t, ok := s.params.Item["summary"].(string); ok && t != "" {
			title = fmt.Sprintf("%q", t)
		}
		return fmt.Sprintf("Let's refine %s. What would you like to change?", title)
	}

	known := s.params.Context.KnownFields()
	summary := fmt.Sprintf("I'm helping you plan your trip to %s.", s.params.Context.Destination)
	if len(known) > 1 {
		summary = fmt.Sprintf("I'm helping you plan your trip to %s. So far I have: %s.",
			s.params.Context.Destination, strings.Join(known[1:], "; "))
	}

	switch s.params.Context.NextUnsetField() {
	case "dates":
		return summary + " When are you planning to travel?"
	case "party":
		return summary + " Who is coming along?"
	case "budget":
		return summary + " What budget do you have in mind?"
	case "style":
		return summary + " Do you prefer a relaxed pace or a packed schedule?"
	case "preferences":
		return summary + " Anything you definitely want to see or do?"
	default:
		return summary + " Everything looks set. Say \"start planning\" when you're ready."
	}
}

// append adds a turn to the transcript and mirrors it best-effort to the
// record store. A mirror failure is logged and never fails the turn.
func (s *Session) append(ctx context.Context, speaker Speaker, text string) {
	s.mu.Lock()
	now := time.Now()
	if now.Before(s.lastTime) {
		now = s.lastTime
	}
	s.lastTime = now

	turn := Turn{
		Speaker:   speaker,
		Text:      text,
		Seq:       len(s.transcript),
		CreatedAt: now,
	}
	s.transcript = append(s.transcript, turn)
	s.mu.Unlock()

	if s.cfg.Store == nil {
		return
	}
	rec := &store.Record{
		ID:     uuid.New().String(),
		Kind:   trip.KindMessage,
		TripID: s.params.Context.TripID,
		Fields: trip.Entity{
			"session_id": s.id,
			"speaker":    string(turn.Speaker),
			"text":       turn.Text,
			"seq":        turn.Seq,
			"created_at": turn.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
	if err := s.cfg.Store.CreateRecord(ctx, rec); err != nil && !errors.Is(err, context.Canceled) {
		s.cfg.Logger.Warn("failed to mirror turn",
			slog.String("session_id", s.id),
			slog.Int("seq", turn.Seq),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Session) latestAssistantTextLocked() string {
	for i := len(s.transcript) - 1; i >= 0; i-- {
		if s.transcript[i].Speaker == SpeakerAssistant {
			return s.transcript[i].Text
		}
	}
	return ""
}

func (s *Session) snapshot() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.transcript))
	copy(out, s.transcript)
	return out
}
