package pagerduty

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

func TestBuildEventDefaults(t *testing.T) {
	client, err := NewClient(Config{RoutingKey: "key", Timeout: time.Second})
	require.NoError(t, err)

	event := client.buildEvent(model.OperatorNotice{
		Kind:      notify.NoticeKindRedoCap,
		RootJobID: "root-1",
		JobID:     "job-3",
		Message:   "redo cap reached",
	})

	assert.Equal(t, "key", event["routing_key"])
	assert.Equal(t, "redo_cap_reached:root-1", event["dedup_key"])

	payload, ok := event["payload"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, notify.SeverityCritical, payload["severity"])
	assert.Equal(t, "workmarket", payload["source"])
	assert.Equal(t, "workmarket", payload["component"])
	assert.Equal(t, "redo cap reached", payload["summary"])

	custom, ok := payload["custom_details"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "job-3", custom["job_id"])
	assert.Equal(t, "root-1", custom["root_job_id"])
}

func TestSendNoticeFiltersKinds(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "trigger", body["event_action"])
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewClient(Config{RoutingKey: "key", Endpoint: srv.URL})
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, client.SendNotice(ctx, model.OperatorNotice{Kind: "claim_released"}))
	assert.Equal(t, int32(0), calls.Load())

	require.NoError(t, client.SendNotice(ctx, model.OperatorNotice{Kind: notify.NoticeKindRedoCap, RootJobID: "r"}))
	assert.Equal(t, int32(1), calls.Load())
}

func TestSendNoticeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "invalid routing key", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewClient(Config{RoutingKey: "key", Endpoint: srv.URL, Kinds: []string{"x"}})
	require.NoError(t, err)

	err = client.SendNotice(context.Background(), model.OperatorNotice{Kind: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid routing key")
}
