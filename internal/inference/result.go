package inference

import "github.com/trousev/mealcontrol/internal/domain"

// Result is the normalized outcome of one inference response. Exactly one of
// the concrete variants Components, Clarification, or FreeText is returned
// by Normalize; callers switch on the concrete type.
type Result interface {
	result()
}

// Components is a confirmable detection: the meal name (possibly empty) and
// its food components.
type Components struct {
	MealName   string
	Components []domain.MealComponent
}

// Clarification is a question the model asks instead of a final answer; the
// user must reply before components can be produced.
type Clarification struct {
	Question string
}

// FreeText is a conversational reply carrying neither components nor a
// recognizable question. It keeps the dialogue visible to the user but does
// not change the detected components.
type FreeText struct {
	Text string
}

func (Components) result()    {}
func (Clarification) result() {}
func (FreeText) result()      {}

// ParseError reports a response from which nothing usable could be
// recovered. Diagnostic summarizes what was found and attempted.
type ParseError struct {
	Diagnostic string
}

func (e *ParseError) Error() string {
	return "unrecognized inference response: " + e.Diagnostic
}
