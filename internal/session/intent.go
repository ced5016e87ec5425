package session

import "strings"

// Outcome is the resolver's termination decision for one turn.
type Outcome string

const (
	// OutcomeContinue keeps the dialogue going.
	OutcomeContinue Outcome = "continue"

	// OutcomeProceed ends a trip-parameter dialogue and signals the caller
	// to move the user into detailed planning.
	OutcomeProceed Outcome = "proceed"

	// OutcomeConfirmed ends an item negotiation with an agreed change.
	OutcomeConfirmed Outcome = "confirmed"
)

// TargetKind distinguishes the two dialogue goals.
type TargetKind string

const (
	// TargetTrip elicits missing trip parameters for a whole trip.
	TargetTrip TargetKind = "trip"

	// TargetItem negotiates a change to one structured itinerary item.
	TargetItem TargetKind = "item"
)

// Vocabulary holds the phrase lists the resolver matches against. It is
// injected configuration, not hard-coded, so an alternative detector can be
// substituted without touching the session machinery.
type Vocabulary struct {
	// NavigationPhrases in a user turn move a trip dialogue to planning.
	NavigationPhrases []string `koanf:"navigation_phrases" json:"navigation_phrases"`

	// PlanningReadyPhrases in an assistant turn declare a trip dialogue complete.
	PlanningReadyPhrases []string `koanf:"planning_ready_phrases" json:"planning_ready_phrases"`

	// ConfirmPhrases in an assistant turn offer to save a negotiated change.
	ConfirmPhrases []string `koanf:"confirm_phrases" json:"confirm_phrases"`

	// AffirmativeTokens in a user turn accept that offer.
	AffirmativeTokens []string `koanf:"affirmative_tokens" json:"affirmative_tokens"`
}

// DefaultVocabulary returns the stock phrase lists.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		NavigationPhrases: []string{
			"start planning",
			"let's plan",
			"build the itinerary",
			"go to the planner",
			"plan the trip",
		},
		PlanningReadyPhrases: []string{
			"planning can begin",
			"ready to start planning",
			"we have everything we need",
			"let's get started on your itinerary",
		},
		ConfirmPhrases: []string{
			"save the change",
			"save this change",
			"shall i save",
			"apply the change",
			"update the plan",
		},
		AffirmativeTokens: []string{
			"yes", "yeah", "yep", "sure", "ok", "okay",
			"confirm", "confirmed", "agreed", "go ahead", "please do",
		},
	}
}

// Decision is the resolver's output for one check.
type Decision struct {
	Outcome Outcome

	// Forced is set when termination came from budget exhaustion rather
	// than dialogue content.
	Forced bool
}

// Resolver is a pure decision function over the current transcript state.
// All checks are case-insensitive substring or token matches against the
// injected vocabulary: no external calls, no randomness. False negatives
// (agreement in unrecognized phrasing) are an accepted limitation.
type Resolver struct {
	vocab Vocabulary
}

// NewResolver creates a resolver over the given vocabulary.
func NewResolver(vocab Vocabulary) *Resolver {
	return &Resolver{vocab: vocab}
}

// Resolve decides whether the dialogue terminates, given the latest user
// text and the latest assistant text. Check order: explicit navigation,
// budget exhaustion, model-declared completion, two-sided confirmation.
func (r *Resolver) Resolve(kind TargetKind, budget Budget, userText, assistantText string) Decision {
	if kind == TargetTrip && containsAnyPhrase(userText, r.vocab.NavigationPhrases) {
		return Decision{Outcome: OutcomeProceed}
	}

	// Budget exhaustion terminates regardless of content, in both modes.
	if budget.Exhausted() {
		return Decision{Outcome: OutcomeProceed, Forced: true}
	}

	if kind == TargetTrip && containsAnyPhrase(assistantText, r.vocab.PlanningReadyPhrases) {
		return Decision{Outcome: OutcomeProceed}
	}

	if kind == TargetItem &&
		containsAnyPhrase(assistantText, r.vocab.ConfirmPhrases) &&
		containsAnyToken(userText, r.vocab.AffirmativeTokens) {
		return Decision{Outcome: OutcomeConfirmed}
	}

	return Decision{Outcome: OutcomeContinue}
}

func containsAnyPhrase(text string, phrases []string) bool {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return true
		}
	}
	return false
}

// containsAnyToken matches single-word entries against whole words and
// multi-word entries as substrings, so "ok" does not fire on "broken".
func containsAnyToken(text string, tokens []string) bool {
	lower := strings.ToLower(text)
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9') && r != '\''
	})
	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[w] = true
	}

	for _, tok := range tokens {
		t := strings.ToLower(tok)
		if t == "" {
			continue
		}
		if strings.ContainsAny(t, " ") {
			if strings.Contains(lower, t) {
				return true
			}
			continue
		}
		if wordSet[t] {
			return true
		}
	}
	return false
}
