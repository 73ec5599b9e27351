package blackboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Client provides instance-scoped Redis operations for the blackboard.
// All keys and channels are automatically namespaced with the instance name.
// The client is thread-safe and can be used concurrently from multiple
// goroutines; per-session write ordering is the caller's responsibility
// (the engine drives one session from one goroutine).
type Client struct {
	rdb          *redis.Client
	instanceName string
}

// NewClient creates a new blackboard client for the specified instance.
// Returns an error if instanceName is empty.
func NewClient(redisOpts *redis.Options, instanceName string) (*Client, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}

	return &Client{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
	}, nil
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity. Useful for health checks.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// InstanceName returns the instance this client is scoped to.
func (c *Client) InstanceName() string {
	return c.instanceName
}

// SaveSession writes a session checkpoint to Redis and registers it in the
// session index. Validates the session before writing.
//
// The session is stored as a full-replacement hash at
// cerina:{instance}:session:{id}, so a load after a save always reflects that
// save or a later one. SaveSession does NOT publish an event: checkpointing
// and event publication are separate concerns, and the engine always persists
// before it publishes.
func (c *Client) SaveSession(ctx context.Context, s *Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	hash, err := SessionToHash(s)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	key := SessionKey(c.instanceName, s.ID)
	if err := c.rdb.HSet(ctx, key, hash).Err(); err != nil {
		return fmt.Errorf("failed to write session to Redis: %w", err)
	}

	// Index by creation time for newest-first listing. ZADD is idempotent for
	// an unchanged score, so repeated checkpoints are safe.
	indexKey := SessionIndexKey(c.instanceName)
	z := redis.Z{Score: float64(s.CreatedAtMs), Member: s.ID}
	if err := c.rdb.ZAdd(ctx, indexKey, z).Err(); err != nil {
		return fmt.Errorf("failed to index session: %w", err)
	}

	return nil
}

// LoadSession retrieves a session checkpoint by ID.
// Returns (nil, redis.Nil) if the session doesn't exist.
// Use IsNotFound() to check for not-found errors.
func (c *Client) LoadSession(ctx context.Context, sessionID string) (*Session, error) {
	key := SessionKey(c.instanceName, sessionID)

	hashData, err := c.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session from Redis: %w", err)
	}

	// HGetAll returns an empty map for non-existent keys
	if len(hashData) == 0 {
		return nil, redis.Nil
	}

	session, err := HashToSession(hashData)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize session: %w", err)
	}

	return session, nil
}

// SessionExists checks if a session exists without fetching it.
func (c *Client) SessionExists(ctx context.Context, sessionID string) (bool, error) {
	key := SessionKey(c.instanceName, sessionID)
	exists, err := c.rdb.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session existence: %w", err)
	}
	return exists > 0, nil
}

// ListSessions returns up to limit sessions, newest first.
// A limit <= 0 returns all sessions.
func (c *Client) ListSessions(ctx context.Context, limit int) ([]*Session, error) {
	indexKey := SessionIndexKey(c.instanceName)

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	ids, err := c.rdb.ZRevRange(ctx, indexKey, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read session index: %w", err)
	}

	sessions := make([]*Session, 0, len(ids))
	for _, id := range ids {
		session, err := c.LoadSession(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				// Index entry without a hash - skip rather than fail the listing
				continue
			}
			return nil, err
		}
		sessions = append(sessions, session)
	}

	return sessions, nil
}

// PublishEvent publishes a workflow event to the session's event channel.
// Every active subscriber receives the event (fan-out). Events published
// before a subscriber attached are not replayed; callers needing history
// must load the session checkpoint.
func (c *Client) PublishEvent(ctx context.Context, event *Event) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid event: %w", err)
	}

	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	channel := SessionEventsChannel(c.instanceName, event.SessionID)
	if err := c.rdb.Publish(ctx, channel, eventJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// EventSubscription represents an active Pub/Sub subscription to one
// session's workflow events. Caller must call Close() when done to clean up
// resources.
type EventSubscription struct {
	events <-chan *Event
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of workflow events. The channel is closed when
// the subscription is closed, the context is cancelled, or a terminal
// (complete) event has been delivered.
func (s *EventSubscription) Events() <-chan *Event {
	return s.events
}

// Errors returns the channel of subscription errors.
// Errors include JSON unmarshaling failures and other non-fatal issues.
// The subscription continues after errors - messages are skipped.
func (s *EventSubscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *EventSubscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// SubscribeSessionEvents subscribes to one session's workflow events.
// Returns an EventSubscription that delivers full event objects. Each
// subscription receives every event independently of other subscribers.
// The publisher side closes the subscription after delivering a complete
// event; callers must also Close() on early exit.
//
// Events are delivered on a buffered channel (size 16) to prevent blocking.
// If the subscriber is too slow, events may be dropped by Redis Pub/Sub
// (at-most-once delivery).
func (c *Client) SubscribeSessionEvents(ctx context.Context, sessionID string) (*EventSubscription, error) {
	channel := SessionEventsChannel(c.instanceName, sessionID)
	pubsub := c.rdb.Subscribe(ctx, channel)

	// Force the subscription to be established before returning, so events
	// published immediately after this call are not lost.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to session events: %w", err)
	}

	eventsChan := make(chan *Event, 16)
	errorsChan := make(chan error, 16)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var event Event
				if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to unmarshal session event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case eventsChan <- &event:
				case <-subCtx.Done():
					return
				}

				// The complete event is the last one a session ever publishes.
				if event.Kind == EventComplete {
					return
				}
			}
		}
	}()

	return &EventSubscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error
// (redis.Nil). Use this to check if LoadSession returned "not found".
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
