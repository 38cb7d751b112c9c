// Package redis provides Redis-based adapters for the help-desk portal.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/target/helpdesk-portal/internal/ports"
)

// DefaultChannel is the pub/sub channel session events travel on.
const DefaultChannel = "helpdesk-portal:session-events"

var _ ports.SessionEvents = (*SessionEvents)(nil)

// SessionEventsOptions configures SessionEvents.
type SessionEventsOptions struct {
	Client  redis.UniversalClient
	Channel string
	// Origin identifies this instance; events it published are not delivered back to it.
	// A random id is used when empty.
	Origin string
	Logger *slog.Logger
	Now    func() time.Time
}

// SessionEvents broadcasts session changes between portal instances over Redis pub/sub.
// Only user ids are published.
type SessionEvents struct {
	client  redis.UniversalClient
	channel string
	origin  string
	logger  *slog.Logger
	now     func() time.Time
}

// NewSessionEvents creates a Redis-backed session event bus.
func NewSessionEvents(opts SessionEventsOptions) (*SessionEvents, error) {
	if opts.Client == nil {
		return nil, errors.New("redis client is required")
	}
	channel := strings.TrimSpace(opts.Channel)
	if channel == "" {
		channel = DefaultChannel
	}
	origin := strings.TrimSpace(opts.Origin)
	if origin == "" {
		origin = uuid.NewString()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &SessionEvents{
		client:  opts.Client,
		channel: channel,
		origin:  origin,
		logger:  logger.With("component", "session_events", "channel", channel),
		now:     now,
	}, nil
}

// Origin returns this instance's origin id.
func (s *SessionEvents) Origin() string { return s.origin }

// PublishLogout announces that userID signed out on this instance.
func (s *SessionEvents) PublishLogout(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.New("user id cannot be empty")
	}
	data, err := json.Marshal(ports.SessionEvent{
		Type:   ports.SessionEventLogout,
		UserID: userID,
		Origin: s.origin,
		At:     s.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal session event: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Listen subscribes to the channel and calls handler for every event published
// by another instance. It returns nil once ctx is done.
func (s *SessionEvents) Listen(ctx context.Context, handler func(ports.SessionEvent)) error {
	if handler == nil {
		return errors.New("handler is required")
	}
	sub := s.client.Subscribe(ctx, s.channel)
	defer func() {
		if err := sub.Close(); err != nil {
			s.logger.Debug("close subscription", "error", err)
		}
	}()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("redis subscribe: %w", err)
	}
	s.logger.InfoContext(ctx, "listening for session events")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("session event subscription closed")
			}
			evt, err := decodeEvent(msg.Payload)
			if err != nil {
				s.logger.WarnContext(ctx, "dropping malformed session event", "error", err)
				continue
			}
			if evt.Origin == s.origin {
				continue
			}
			handler(evt)
		}
	}
}

func decodeEvent(payload string) (ports.SessionEvent, error) {
	var evt ports.SessionEvent
	if err := json.Unmarshal([]byte(payload), &evt); err != nil {
		return ports.SessionEvent{}, fmt.Errorf("unmarshal session event: %w", err)
	}
	if evt.Type == "" || evt.UserID == "" {
		return ports.SessionEvent{}, errors.New("session event missing type or user id")
	}
	return evt, nil
}
