package inference

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoAPIKey is returned before any network call when no inference
// credential is configured.
var ErrNoAPIKey = errors.New("OpenAI API key not configured. Please set it in Settings.")

// HistoryItem is one prior exchange, replayed as conversational context on
// requests that have no response reference to continue from.
type HistoryItem struct {
	Content  string
	FromUser bool
}

// RawResponse is an unparsed inference response. ID is the service-assigned
// response identifier when one is present; follow-up requests send it back
// so the service can continue its reasoning chain without the full history.
type RawResponse struct {
	ID   string
	Body []byte
}

// Client sends meal-detection requests to the external inference service.
// The initial request carries the photograph; follow-ups carry only text and
// a reference to the previous response.
type Client interface {
	SendInitial(ctx context.Context, image []byte, history []HistoryItem) (*RawResponse, error)
	SendFollowUp(ctx context.Context, previousResponseID, userText string, history []HistoryItem) (*RawResponse, error)
}

// Credentials supplies the API key at request time, so a key changed in
// settings takes effect without rebuilding the client.
type Credentials interface {
	APIKey(ctx context.Context) (string, error)
}

// TransportError is any network failure, timeout, or HTTP status >= 400 from
// the inference service. Callers do not distinguish further; the message is
// surfaced verbatim.
type TransportError struct {
	Status  int // zero when the request never completed
	Message string
}

func (e *TransportError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("inference service returned status %d: %s", e.Status, e.Message)
	}
	return "inference request failed: " + e.Message
}
