package slack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/workmarket/internal/domain/model"
	"github.com/target/workmarket/internal/observability/notify"
)

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
}

func TestFormatMessageIncludesFields(t *testing.T) {
	client, err := NewClient(Config{
		WebhookURL: "https://hooks.slack.com/services/test",
		Channel:    "#market-ops",
		Username:   "bot",
		Timeout:    time.Second,
	})
	require.NoError(t, err)

	msg := client.formatMessage(model.OperatorNotice{
		Kind:      notify.NoticeKindRedoCap,
		RootJobID: "root-1",
		JobID:     "job-3",
		Message:   "redo cap reached after 3 rejections",
		At:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})

	assert.Equal(t, "bot", msg["username"])
	assert.Equal(t, "#market-ops", msg["channel"])

	text, ok := msg["text"].(string)
	require.True(t, ok)
	for _, want := range []string{
		"Operator notice", "redo_cap_reached", "critical", "root-1", "job-3",
		"redo cap reached after 3 rejections", "2026-01-02T03:04:05Z",
	} {
		assert.Contains(t, text, want)
	}
}

func TestFormatMessageJobLinkAndEscaping(t *testing.T) {
	client, err := NewClient(Config{
		WebhookURL:   "https://hooks.slack.com/services/test",
		JobURLPrefix: "https://market.example/api/jobs",
	})
	require.NoError(t, err)

	msg := client.formatMessage(model.OperatorNotice{
		RootJobID: "root-1",
		JobID:     "root-1",
		Message:   "a & <b>",
	})
	text := msg["text"].(string)

	assert.Contains(t, text, "<https://market.example/api/jobs/root-1|root-1>")
	assert.NotContains(t, text, "• Job:")
	assert.Contains(t, text, "a &amp; &lt;b&gt;")
	assert.NotContains(t, msg, "channel")
}

func TestBuildJobLinkRejectsRelativePrefix(t *testing.T) {
	client, err := NewClient(Config{WebhookURL: "https://hooks", JobURLPrefix: "/jobs"})
	require.NoError(t, err)
	assert.Empty(t, client.buildJobLink("j1"))
}

func TestSendNoticeRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if calls.Add(1) == 1 {
			http.Error(w, "try again", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client, err := NewClient(Config{WebhookURL: srv.URL, RetryLimit: 1})
	require.NoError(t, err)

	require.NoError(t, client.SendNotice(context.Background(), model.OperatorNotice{Kind: "test"}))
	assert.Equal(t, int32(2), calls.Load())
}

func TestSendNoticeReturnsLastError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	client, err := NewClient(Config{WebhookURL: srv.URL})
	require.NoError(t, err)

	err = client.SendNotice(context.Background(), model.OperatorNotice{Kind: "test"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "nope")
}
