package openai

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/trousev/mealcontrol/internal/inference"
)

type stubCreds struct {
	key string
	err error
}

func (s *stubCreds) APIKey(ctx context.Context) (string, error) {
	return s.key, s.err
}

type capturedRequest struct {
	auth string
	body []byte
}

func newTestServer(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/responses", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		captured.auth = r.Header.Get("Authorization")
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		captured.body = body

		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func newTestClient(baseURL string) *Client {
	return NewClient(&stubCreds{key: "sk-test"}, Config{
		BaseURL:       baseURL,
		Model:         "gpt-5-mini-2025-08-07",
		PromptID:      "pmpt_abc",
		PromptVersion: "3",
		Timeout:       5 * time.Second,
	})
}

func TestSendInitialRequestShape(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, `{"id":"resp_1","output":[]}`)
	client := newTestClient(srv.URL)

	raw, err := client.SendInitial(context.Background(), []byte{0xFF, 0xD8, 0xFF}, nil)
	require.NoError(t, err)
	assert.Equal(t, "resp_1", raw.ID)

	assert.Equal(t, "Bearer sk-test", captured.auth)

	body := gjson.ParseBytes(captured.body)
	assert.Equal(t, "gpt-5-mini-2025-08-07", body.Get("model").String())
	assert.Equal(t, "pmpt_abc", body.Get("prompt.id").String())
	assert.Equal(t, "3", body.Get("prompt.version").String())
	assert.Equal(t, "user", body.Get("input.0.role").String())

	assert.Equal(t, "input_image", body.Get("input.0.content.0.type").String())
	imageURL := body.Get("input.0.content.0.image_url").String()
	assert.True(t, strings.HasPrefix(imageURL, "data:image/jpeg;base64,"), "image_url should be a base64 data url, got %q", imageURL)

	assert.Equal(t, "input_text", body.Get("input.0.content.1.type").String())
	assert.Equal(t, initialPrompt, body.Get("input.0.content.1.text").String())

	assert.False(t, body.Get("previous_response_id").Exists())
}

func TestSendFollowUpWithResponseReference(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, `{"id":"resp_2"}`)
	client := newTestClient(srv.URL)

	history := []inference.HistoryItem{
		{Content: "Question about Rice: White or brown rice?", FromUser: false},
	}
	raw, err := client.SendFollowUp(context.Background(), "resp_1", "White rice", history)
	require.NoError(t, err)
	assert.Equal(t, "resp_2", raw.ID)

	body := gjson.ParseBytes(captured.body)
	assert.Equal(t, "resp_1", body.Get("previous_response_id").String())
	// With a reference the service holds the context; only the new text goes.
	assert.Equal(t, "White rice", body.Get("input.0.content.0.text").String())
	assert.Equal(t, "input_text", body.Get("input.0.content.0.type").String())
}

func TestSendFollowUpWithoutReferenceReplaysTranscript(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, `{"id":"resp_3"}`)
	client := newTestClient(srv.URL)

	history := []inference.HistoryItem{
		{Content: "Question about Rice: White or brown rice?", FromUser: false},
		{Content: "Not sure", FromUser: true},
	}
	_, err := client.SendFollowUp(context.Background(), "", "White rice", history)
	require.NoError(t, err)

	body := gjson.ParseBytes(captured.body)
	assert.False(t, body.Get("previous_response_id").Exists())

	text := body.Get("input.0.content.0.text").String()
	assert.Equal(t, "AI: Question about Rice: White or brown rice?\nUser: Not sure\nUser: White rice", text)
}

func TestSendMissingAPIKey(t *testing.T) {
	srv, captured := newTestServer(t, http.StatusOK, `{"id":"resp_1"}`)
	client := NewClient(&stubCreds{key: ""}, Config{BaseURL: srv.URL})

	raw, err := client.SendInitial(context.Background(), []byte("img"), nil)
	assert.Nil(t, raw)
	assert.ErrorIs(t, err, inference.ErrNoAPIKey)
	assert.Nil(t, captured.body, "no request should reach the server without a key")
}

func TestSendCredentialLookupError(t *testing.T) {
	client := NewClient(&stubCreds{err: errors.New("db locked")}, Config{BaseURL: "http://127.0.0.1:0"})

	raw, err := client.SendInitial(context.Background(), []byte("img"), nil)
	assert.Nil(t, raw)
	assert.ErrorContains(t, err, "db locked")
}

func TestSendServerError(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusInternalServerError, `{"error":"boom"}`)
	client := newTestClient(srv.URL)

	raw, err := client.SendInitial(context.Background(), []byte("img"), nil)
	assert.Nil(t, raw)

	var terr *inference.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, http.StatusInternalServerError, terr.Status)
	assert.Contains(t, terr.Message, "boom")
}

func TestSendConnectionRefused(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{}`)
	url := srv.URL
	srv.Close()

	client := newTestClient(url)
	raw, err := client.SendInitial(context.Background(), []byte("img"), nil)
	assert.Nil(t, raw)

	var terr *inference.TransportError
	require.ErrorAs(t, err, &terr)
	assert.Zero(t, terr.Status)
}

func TestSendResponseWithoutID(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusOK, `{"output":[]}`)
	client := newTestClient(srv.URL)

	raw, err := client.SendInitial(context.Background(), []byte("img"), nil)
	require.NoError(t, err)
	assert.Empty(t, raw.ID)
	assert.JSONEq(t, `{"output":[]}`, string(raw.Body))
}
