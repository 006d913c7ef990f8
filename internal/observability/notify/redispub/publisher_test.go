package redispub

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/workmarket/internal/domain/model"
	"github.com/target/workmarket/internal/observability/notify"
	"github.com/target/workmarket/internal/testutil"
)

func TestNew_RequiresClient(t *testing.T) {
	_, err := New(Options{})
	require.Error(t, err)
}

func TestChannelNames(t *testing.T) {
	assert.Equal(t, "wm:jobs:state", StateChannel("wm"))
	assert.Equal(t, "wm:notices", NoticeChannel("wm"))
}

func TestPublisher_Integration(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	t.Cleanup(func() { _ = client.Close() })

	prefix := "test-" + uuid.NewString()
	pub, err := New(Options{Client: client, Prefix: prefix})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, StateChannel(prefix), NoticeChannel(prefix))
	t.Cleanup(func() { _ = sub.Close() })
	_, err = sub.Receive(ctx)
	require.NoError(t, err)
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	change := model.StateChange{
		JobID:     "job-1",
		EventType: model.EventClaimed,
		Status:    model.JobStatusClaimed,
		Actor:     "agent-7",
		Version:   2,
		At:        at,
	}
	require.NoError(t, pub.PublishStateChange(ctx, change))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, StateChannel(prefix), msg.Channel)
	var got model.StateChange
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, change, got)

	notice := model.OperatorNotice{
		Kind:      notify.NoticeKindRedoCap,
		RootJobID: "root-1",
		JobID:     "job-3",
		Message:   "redo cap reached",
		At:        at,
	}
	require.NoError(t, pub.SendNotice(ctx, notice))

	msg, err = sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Equal(t, NoticeChannel(prefix), msg.Channel)
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &payload))
	assert.Equal(t, notify.SeverityCritical, payload["severity"])
	assert.Equal(t, "root-1", payload["root_job_id"])
}
