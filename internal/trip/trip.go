// Package trip defines the travel domain model shared by the dialogue engine,
// the record store, and the HTTP surface.
package trip

import (
	"fmt"
	"strings"
	"time"
)

// Context is a read-only snapshot of trip parameters supplied when a dialogue
// session is opened. The engine never mutates it; it is used to build
// generation prompts and to bound validation.
type Context struct {
	TripID      string   `json:"trip_id"`
	Destination string   `json:"destination"`
	StartDate   string   `json:"start_date,omitempty"` // RFC 3339 date
	EndDate     string   `json:"end_date,omitempty"`
	Adults      int      `json:"adults,omitempty"`
	Children    int      `json:"children,omitempty"`
	BudgetMin   float64  `json:"budget_min,omitempty"`
	BudgetMax   float64  `json:"budget_max,omitempty"`
	Currency    string   `json:"currency,omitempty"`
	Style       string   `json:"style,omitempty"` // e.g. "relaxed", "packed"
	Preferences []string `json:"preferences,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// Validate checks the fields a session cannot open without.
func (c *Context) Validate() error {
	if strings.TrimSpace(c.TripID) == "" {
		return fmt.Errorf("trip context: trip_id is required")
	}
	if strings.TrimSpace(c.Destination) == "" {
		return fmt.Errorf("trip context: destination is required")
	}
	return nil
}

// DayCount returns the number of itinerary days covered by the date range,
// or 0 when either date is unset or unparseable.
func (c *Context) DayCount() int {
	start, err := time.Parse("2006-01-02", c.StartDate)
	if err != nil {
		return 0
	}
	end, err := time.Parse("2006-01-02", c.EndDate)
	if err != nil {
		return 0
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days < 1 {
		return 0
	}
	return days
}

// DayInRange reports whether a 1-based day number falls inside the trip's
// date range. Trips without a parseable range accept any positive day.
func (c *Context) DayInRange(day int) bool {
	if day < 1 {
		return false
	}
	count := c.DayCount()
	if count == 0 {
		return true
	}
	return day <= count
}

// elicitationOrder lists context fields from most to least important for the
// trip-parameter elicitation mode.
var elicitationOrder = []struct {
	name  string
	unset func(*Context) bool
}{
	{"dates", func(c *Context) bool { return c.StartDate == "" || c.EndDate == "" }},
	{"party", func(c *Context) bool { return c.Adults == 0 }},
	{"budget", func(c *Context) bool { return c.BudgetMax == 0 }},
	{"style", func(c *Context) bool { return c.Style == "" }},
	{"preferences", func(c *Context) bool { return len(c.Preferences) == 0 }},
}

// NextUnsetField returns the name of the most important parameter that is
// still missing, or "" when everything is known.
func (c *Context) NextUnsetField() string {
	for _, f := range elicitationOrder {
		if f.unset(c) {
			return f.name
		}
	}
	return ""
}

// KnownFields returns a short human-readable summary of the parameters that
// are already set, in elicitation order.
func (c *Context) KnownFields() []string {
	var known []string
	known = append(known, fmt.Sprintf("destination %s", c.Destination))
	if c.StartDate != "" && c.EndDate != "" {
		known = append(known, fmt.Sprintf("dates %s to %s", c.StartDate, c.EndDate))
	}
	if c.Adults > 0 {
		party := fmt.Sprintf("%d adults", c.Adults)
		if c.Children > 0 {
			party += fmt.Sprintf(", %d children", c.Children)
		}
		known = append(known, party)
	}
	if c.BudgetMax > 0 {
		known = append(known, fmt.Sprintf("budget up to %.0f %s", c.BudgetMax, c.Currency))
	}
	if c.Style != "" {
		known = append(known, fmt.Sprintf("%s pace", c.Style))
	}
	return known
}
