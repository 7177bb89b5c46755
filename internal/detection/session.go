package detection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/trousev/mealcontrol/internal/domain"
	"github.com/trousev/mealcontrol/internal/inference"
)

// ConversationLog is the subset of the conversation store the engine writes
// through. Every turn in the snapshot is also persisted here, so the durable
// log and the in-memory state diverge only while a request is in flight.
type ConversationLog interface {
	Create(ctx context.Context, title string, createdAt int64, isMealDetection bool) (int64, error)
	Delete(ctx context.Context, id int64) error
	AppendMessage(ctx context.Context, conversationID int64, content string, fromUser bool, timestamp int64) (int64, error)
}

var (
	// ErrBusy rejects a call while a request is already in flight; exactly
	// one request per conversation is permitted at a time.
	ErrBusy = errors.New("a detection request is already in flight")

	ErrBlankMessage = errors.New("follow-up text must not be blank")
	ErrNoPhoto      = errors.New("photo path must not be empty")
	ErrNotStarted   = errors.New("no active detection session")
)

const (
	conversationTitle = "Meal Detection"

	// noDetectionMessage is shown as the bot turn when a response yields
	// neither components nor a question, so the conversation stays alive
	// and the user can retry by replying.
	noDetectionMessage = "Could not detect meal components. Please try again or provide more details."
)

// Session drives one meal-detection dialogue: photograph in, user-confirmed
// component list out, over an unbounded number of clarification turns.
//
// Transitions are single-writer (mu), but the network call itself runs
// outside the lock; readers observe snapshots through an atomic pointer and
// are never blocked. There is no mid-request cancellation: Retake during an
// in-flight request resets immediately and the late response is discarded
// when its conversation id no longer matches.
type Session struct {
	client inference.Client
	log    ConversationLog
	creds  inference.Credentials
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	state atomic.Pointer[State]
}

func NewSession(client inference.Client, log ConversationLog, creds inference.Credentials, logger *slog.Logger) *Session {
	s := &Session{
		client: client,
		log:    log,
		creds:  creds,
		logger: logger,
		now:    time.Now,
	}
	s.state.Store(&State{})
	return s
}

// State returns the current snapshot. The copy is safe to retain.
func (s *Session) State() State {
	return s.state.Load().clone()
}

// publish must be called with mu held.
func (s *Session) publish(st State) {
	s.state.Store(&st)
}

// Start begins a new detection session for the photo at photoPath: it
// creates a meal-detection conversation record, sends the initial request
// with the image, and applies the normalized response. It blocks until the
// first turn completes or fails; progress is observable via State.
func (s *Session) Start(ctx context.Context, photoPath string) error {
	if strings.TrimSpace(photoPath) == "" {
		return ErrNoPhoto
	}

	s.mu.Lock()
	if s.state.Load().Loading {
		s.mu.Unlock()
		return ErrBusy
	}

	key, err := s.creds.APIKey(ctx)
	if err != nil || key == "" {
		s.publish(State{PhotoPath: photoPath, Err: inference.ErrNoAPIKey.Error()})
		s.mu.Unlock()
		if err != nil {
			return fmt.Errorf("failed to load api key: %w", err)
		}
		return inference.ErrNoAPIKey
	}

	convID, err := s.log.Create(ctx, conversationTitle, s.now().UnixMilli(), true)
	if err != nil {
		s.publish(State{PhotoPath: photoPath, Err: "failed to create conversation: " + err.Error()})
		s.mu.Unlock()
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	s.publish(State{PhotoPath: photoPath, ConversationID: convID, Loading: true})
	s.mu.Unlock()

	s.logger.Info("detection started", "conversation_id", convID, "photo", photoPath)

	image, err := os.ReadFile(photoPath)
	if err != nil {
		s.fail(convID, "failed to read photo: "+err.Error())
		return nil
	}

	raw, err := s.client.SendInitial(ctx, image, nil)
	s.apply(ctx, convID, raw, err)
	return nil
}

// SendFollowUp appends the user's reply and continues the dialogue. The user
// turn is persisted before the network call, so it survives a failed
// request. Rejected without any state change while a request is in flight or
// when text is blank.
func (s *Session) SendFollowUp(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrBlankMessage
	}

	s.mu.Lock()
	cur := s.state.Load()
	if cur.Loading {
		s.mu.Unlock()
		return ErrBusy
	}
	if cur.ConversationID == 0 {
		s.mu.Unlock()
		return ErrNotStarted
	}

	key, err := s.creds.APIKey(ctx)
	if err != nil || key == "" {
		st := cur.clone()
		st.Err = inference.ErrNoAPIKey.Error()
		s.publish(st)
		s.mu.Unlock()
		if err != nil {
			return fmt.Errorf("failed to load api key: %w", err)
		}
		return inference.ErrNoAPIKey
	}

	now := s.now().UnixMilli()
	st := cur.clone()
	st.Turns = append(st.Turns, Turn{Content: text, FromUser: true, TimestampMillis: now})
	st.Components = nil
	st.Question = ""
	st.Loading = true
	st.Err = ""
	s.publish(st)

	convID := st.ConversationID
	ref := st.LastResponseID
	history := historyOf(st.Turns[:len(st.Turns)-1])

	if _, err := s.log.AppendMessage(ctx, convID, text, true, now); err != nil {
		s.logger.Error("failed to persist user turn", "conversation_id", convID, "error", err)
	}
	s.mu.Unlock()

	raw, err := s.client.SendFollowUp(ctx, ref, text, history)
	s.apply(ctx, convID, raw, err)
	return nil
}

// Retake abandons the session: the backing conversation record is deleted
// best-effort (failure is logged, not surfaced) and the snapshot resets to
// idle. Calling it again, or with no session, is a no-op. A response still
// in flight for the old conversation is discarded on arrival.
func (s *Session) Retake(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state.Load()
	if cur.ConversationID > 0 {
		if err := s.log.Delete(ctx, cur.ConversationID); err != nil {
			s.logger.Error("failed to delete conversation", "conversation_id", cur.ConversationID, "error", err)
		}
	}
	s.publish(State{})
}

// fail records a transport-level failure for convID, leaving existing turns
// and components untouched.
func (s *Session) fail(convID int64, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state.Load()
	if cur.ConversationID != convID {
		return
	}
	st := cur.clone()
	st.Loading = false
	st.Err = msg
	s.publish(st)
}

// apply normalizes the response and folds it into the snapshot as one bot
// turn, persisting the turn as part of the transition. A stale response
// (conversation retaken while it was in flight) is discarded.
func (s *Session) apply(ctx context.Context, convID int64, raw *inference.RawResponse, callErr error) {
	if callErr != nil {
		s.fail(convID, callErr.Error())
		return
	}

	result, err := inference.Normalize(raw.Body)

	var (
		botContent string
		comps      []domain.MealComponent
		question   string
		mealName   string
		errMsg     string
	)

	switch r := result.(type) {
	case inference.Components:
		comps = r.Components
		mealName = r.MealName
		botContent = summarize(r)
	case inference.Clarification:
		question = r.Question
		botContent = r.Question
	case inference.FreeText:
		botContent = r.Text
	default:
		// Parse failure: the conversation is not corrupted; a diagnostic
		// turn is appended and the user may reply to retry.
		botContent = noDetectionMessage
		if err != nil {
			errMsg = err.Error()
		} else {
			errMsg = noDetectionMessage
		}
		s.logger.Error("failed to normalize inference response", "conversation_id", convID, "error", err)
	}

	now := s.now().UnixMilli()

	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.state.Load()
	if cur.ConversationID != convID {
		s.logger.Info("discarding response for abandoned conversation", "conversation_id", convID)
		return
	}

	st := cur.clone()
	st.Loading = false
	st.Err = errMsg
	st.Turns = append(st.Turns, Turn{Content: botContent, FromUser: false, TimestampMillis: now})
	st.Components = comps
	st.Question = question
	st.MealName = mealName
	if raw.ID != "" {
		st.LastResponseID = raw.ID
	}
	s.publish(st)

	if _, err := s.log.AppendMessage(ctx, convID, botContent, false, now); err != nil {
		s.logger.Error("failed to persist bot turn", "conversation_id", convID, "error", err)
	}
}

func historyOf(turns []Turn) []inference.HistoryItem {
	items := make([]inference.HistoryItem, 0, len(turns))
	for _, t := range turns {
		items = append(items, inference.HistoryItem{Content: t.Content, FromUser: t.FromUser})
	}
	return items
}

// summarize renders a components result as the bot turn shown in the
// conversation.
func summarize(r inference.Components) string {
	var b strings.Builder
	if r.MealName != "" {
		fmt.Fprintf(&b, "Detected: %s\n\n", r.MealName)
	}
	fmt.Fprintf(&b, "Components (%d):\n", len(r.Components))
	for i, c := range r.Components {
		fmt.Fprintf(&b, "%d. %s - %.0fg (%.0f kcal)\n", i+1, c.Name, c.WeightGrams, c.EnergyKcal)
	}
	return b.String()
}
