package pubsub

import (
	"context"
	"testing"

	"github.com/mauv0809/pickup-roster/internal/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestDispatcher_PublishesNotice(t *testing.T) {
	client := NewMock()
	d := NewDispatcher(client)

	notice := notifier.Notice{Kind: notifier.NoticeSlotOffered, MatchID: "m1", PlayerID: "p1", Deadline: 42}
	require.NoError(t, d.Dispatch(notifier.WithDryRun(context.Background(), true), notice))

	require.Len(t, client.SendMessageCalls, 1)
	call := client.SendMessageCalls[0]
	assert.Equal(t, EventWaitlistNotice, call.Topic)
	sent := call.Data.(notifier.Notice)
	assert.True(t, sent.DryRun)
	assert.Equal(t, int64(42), sent.Deadline)
}

func TestMock_ProcessMessageDecodes(t *testing.T) {
	raw, err := msgpack.Marshal(notifier.Notice{Kind: notifier.NoticeExpired, MatchID: "m1", PlayerID: "p1"})
	require.NoError(t, err)

	var got notifier.Notice
	require.NoError(t, NewMock().ProcessMessage(raw, &got))
	assert.Equal(t, notifier.NoticeExpired, got.Kind)
	assert.Equal(t, "p1", got.PlayerID)
}
