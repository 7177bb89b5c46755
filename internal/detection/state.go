package detection

import (
	"slices"

	"github.com/trousev/mealcontrol/internal/domain"
)

// Turn is one message in the detection conversation, authored by either the
// user or the inference service. Turns are append-only.
type Turn struct {
	Content         string
	FromUser        bool
	TimestampMillis int64
}

// State is the engine's externally observable snapshot. It is replaced
// wholesale on every transition; a published snapshot is never mutated.
//
// Components and Question are never both set: a turn yields either a
// confirmable result or a clarification request. Turns only grow, with
// non-decreasing timestamps.
type State struct {
	PhotoPath      string
	Turns          []Turn
	Components     []domain.MealComponent // non-nil only when a confirmable result is pending
	Question       string                 // non-empty only when a clarification is pending
	MealName       string
	LastResponseID string
	ConversationID int64
	Loading        bool
	Err            string
}

// clone returns a copy whose slices do not alias the receiver's, so a
// snapshot handed to a reader stays stable while the engine keeps appending.
func (s State) clone() State {
	s.Turns = slices.Clone(s.Turns)
	s.Components = slices.Clone(s.Components)
	return s
}
