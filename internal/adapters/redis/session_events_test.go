package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/target/helpdesk-portal/internal/ports"
	"github.com/target/helpdesk-portal/internal/testutil"
)

func TestNewSessionEvents_Defaults(t *testing.T) {
	_, err := NewSessionEvents(SessionEventsOptions{})
	require.Error(t, err)

	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	bus, err := NewSessionEvents(SessionEventsOptions{Client: client})
	require.NoError(t, err)
	assert.Equal(t, DefaultChannel, bus.channel)
	assert.NotEmpty(t, bus.Origin())

	other, err := NewSessionEvents(SessionEventsOptions{Client: client})
	require.NoError(t, err)
	assert.NotEqual(t, bus.Origin(), other.Origin())
}

func TestDecodeEvent(t *testing.T) {
	evt, err := decodeEvent(`{"type":"logout","userId":"7","origin":"a","at":"2024-01-01T12:00:00Z"}`)
	require.NoError(t, err)
	assert.Equal(t, ports.SessionEventLogout, evt.Type)
	assert.Equal(t, "7", evt.UserID)
	assert.Equal(t, "a", evt.Origin)

	_, err = decodeEvent(`not json`)
	assert.Error(t, err)

	_, err = decodeEvent(`{"type":"logout"}`)
	assert.Error(t, err)
}

func TestSessionEvents_PublishLogoutRejectsEmptyUser(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:0"})
	defer client.Close()

	bus, err := NewSessionEvents(SessionEventsOptions{Client: client})
	require.NoError(t, err)
	assert.Error(t, bus.PublishLogout(context.Background(), ""))
}

func TestSessionEvents_DeliversRemoteEvents(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	channel := fmt.Sprintf("test:session-events:%d", time.Now().UnixNano())
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	a, err := NewSessionEvents(SessionEventsOptions{Client: client, Channel: channel, Origin: "instance-a", Now: func() time.Time { return fixed }})
	require.NoError(t, err)
	b, err := NewSessionEvents(SessionEventsOptions{Client: client, Channel: channel, Origin: "instance-b"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan ports.SessionEvent, 4)
	done := make(chan error, 1)
	go func() {
		done <- b.Listen(ctx, func(evt ports.SessionEvent) { received <- evt })
	}()
	testutil.WaitForSubscribers(t, client, channel, 1)

	require.NoError(t, b.PublishLogout(ctx, "ignored-own-origin"))
	require.NoError(t, a.PublishLogout(ctx, "7"))

	select {
	case evt := <-received:
		assert.Equal(t, ports.SessionEventLogout, evt.Type)
		assert.Equal(t, "7", evt.UserID)
		assert.Equal(t, "instance-a", evt.Origin)
		assert.True(t, fixed.Equal(evt.At))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session event")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not stop after cancel")
	}
	assert.Empty(t, received)
}

func TestSessionEvents_SkipsMalformedPayloads(t *testing.T) {
	client := testutil.SetupTestRedis(t)
	defer client.Close()

	channel := fmt.Sprintf("test:session-events:%d", time.Now().UnixNano())
	bus, err := NewSessionEvents(SessionEventsOptions{Client: client, Channel: channel, Origin: "instance-b"})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan ports.SessionEvent, 1)
	go func() {
		_ = bus.Listen(ctx, func(evt ports.SessionEvent) { received <- evt })
	}()
	testutil.WaitForSubscribers(t, client, channel, 1)

	require.NoError(t, client.Publish(ctx, channel, "garbage").Err())
	require.NoError(t, client.Publish(ctx, channel, `{"type":"logout","userId":"9","origin":"instance-c"}`).Err())

	select {
	case evt := <-received:
		assert.Equal(t, "9", evt.UserID)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for session event")
	}
}
