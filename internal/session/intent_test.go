package session

import "testing"

func TestResolverNavigationPhrase(t *testing.T) {
	r := NewResolver(DefaultVocabulary())
	budget := Budget{Used: 1, Max: 8}

	d := r.Resolve(TargetTrip, budget, "ok let's start planning now", "Where do you want to go?")
	if d.Outcome != OutcomeProceed {
		t.Errorf("Resolve() = %v, want proceed", d.Outcome)
	}
	if d.Forced {
		t.Error("navigation proceed should not be forced")
	}

	// Navigation phrases only apply to the trip goal.
	d = r.Resolve(TargetItem, budget, "ok let's start planning now", "Where do you want to go?")
	if d.Outcome != OutcomeContinue {
		t.Errorf("Resolve(item) = %v, want continue", d.Outcome)
	}
}

func TestResolverBudgetExhaustion(t *testing.T) {
	r := NewResolver(DefaultVocabulary())

	for _, kind := range []TargetKind{TargetTrip, TargetItem} {
		d := r.Resolve(kind, Budget{Used: 8, Max: 8}, "anything at all", "More questions?")
		if d.Outcome != OutcomeProceed {
			t.Errorf("Resolve(%s, exhausted) = %v, want proceed", kind, d.Outcome)
		}
		if !d.Forced {
			t.Errorf("Resolve(%s, exhausted) should be forced", kind)
		}
	}
}

func TestResolverModelDeclaredComplete(t *testing.T) {
	r := NewResolver(DefaultVocabulary())
	budget := Budget{Used: 2, Max: 8}

	d := r.Resolve(TargetTrip, budget, "sounds nice", "Great, planning can begin whenever you like.")
	if d.Outcome != OutcomeProceed {
		t.Errorf("Resolve() = %v, want proceed", d.Outcome)
	}

	d = r.Resolve(TargetItem, budget, "sounds nice", "Great, planning can begin whenever you like.")
	if d.Outcome != OutcomeContinue {
		t.Errorf("Resolve(item) = %v, want continue", d.Outcome)
	}
}

// Confirmation requires both the assistant's save offer and the user's
// agreement; one-sided matches must continue.
func TestResolverConfirmationRequiresBothSides(t *testing.T) {
	r := NewResolver(DefaultVocabulary())
	budget := Budget{Used: 2, Max: 8}

	tests := []struct {
		name      string
		user      string
		assistant string
		want      Outcome
	}{
		{"both sides", "yes, sounds good", "Shall I save the change?", OutcomeConfirmed},
		{"assistant only", "hmm let me think", "Shall I save the change?", OutcomeContinue},
		{"user only", "yes please", "What time works better?", OutcomeContinue},
		{"neither", "maybe later", "What time works better?", OutcomeContinue},
		{"case insensitive", "YES", "SAVE THE CHANGE?", OutcomeConfirmed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := r.Resolve(TargetItem, budget, tt.user, tt.assistant)
			if d.Outcome != tt.want {
				t.Errorf("Resolve(%q, %q) = %v, want %v", tt.user, tt.assistant, d.Outcome, tt.want)
			}
		})
	}
}

func TestResolverTokenMatchingWholeWords(t *testing.T) {
	r := NewResolver(DefaultVocabulary())
	budget := Budget{Used: 0, Max: 8}

	// "ok" must not fire inside "broken".
	d := r.Resolve(TargetItem, budget, "the link is broken", "Shall I save the change?")
	if d.Outcome != OutcomeContinue {
		t.Errorf("Resolve(broken) = %v, want continue", d.Outcome)
	}

	// Multi-word affirmatives match as substrings.
	d = r.Resolve(TargetItem, budget, "go ahead with it", "Shall I save the change?")
	if d.Outcome != OutcomeConfirmed {
		t.Errorf("Resolve(go ahead) = %v, want confirmed", d.Outcome)
	}
}

func TestResolverDeterministic(t *testing.T) {
	r := NewResolver(DefaultVocabulary())
	budget := Budget{Used: 3, Max: 8}

	first := r.Resolve(TargetTrip, budget, "a beach day would be nice", "Anything else?")
	for i := 0; i < 10; i++ {
		again := r.Resolve(TargetTrip, budget, "a beach day would be nice", "Anything else?")
		if again != first {
			t.Fatalf("Resolve() not deterministic: %v then %v", first, again)
		}
	}
}
