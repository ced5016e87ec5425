package session

import "time"

// Speaker identifies who produced a turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
	SpeakerSystem    Speaker = "system"
)

// Turn is one utterance within a dialogue session. Seq is strictly
// increasing within a transcript and CreatedAt is non-decreasing.
type Turn struct {
	Speaker   Speaker   `json:"speaker"`
	Text      string    `json:"text"`
	Seq       int       `json:"seq"`
	CreatedAt time.Time `json:"created_at"`
}

// TurnView is the read-only projection of a turn exposed to the
// presentation layer.
type TurnView struct {
	Speaker Speaker `json:"speaker"`
	Text    string  `json:"text"`
}

// Budget caps the number of question-answer user turns before the session
// is forced to terminate. Used never decreases and never exceeds Max.
type Budget struct {
	Used int `json:"used"`
	Max  int `json:"max"`
}

// Exhausted reports whether the budget forces termination.
func (b Budget) Exhausted() bool {
	return b.Used >= b.Max
}
