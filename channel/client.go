package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"fieldops/fieldtrack/config"
	"fieldops/fieldtrack/models"
)

const (
	// BroadcastTopic carries location.updated events for every tracked user.
	BroadcastTopic = "tracking"
	// userTopicFormat is the per-user topic used for focused live tracking.
	userTopicFormat = "user.%d"
)

// fnSubscribe opens a subscription on one topic and returns the message
// stream plus a closer. Swapped out in tests.
var fnSubscribe = func(ctx context.Context, rdb *redis.Client, topic string) (<-chan *redis.Message, func() error, error) {
	ps := rdb.Subscribe(ctx, topic)
	// Receive confirms the subscription before we hand out the channel.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, err
	}
	return ps.Channel(), ps.Close, nil
}

// EventReceiver is the store-side sink for push events.
type EventReceiver interface {
	ApplyLocationEvent(ev models.LocationEvent)
	AppendSelectedPoint(userID int64, ev models.LocationEvent)
}

type subscription struct {
	topic  string
	cancel context.CancelFunc
	close  func() error
}

func (s *subscription) stop() {
	s.cancel()
	_ = s.close()
}

// Client maintains the push subscriptions: the broadcast tracking topic and
// at most one per-user topic for focused live tracking.
type Client struct {
	logger *zap.SugaredLogger
	rdb    *redis.Client
	store  EventReceiver

	mu        sync.Mutex
	connected bool
	broadcast *subscription
	perUser   *subscription
}

// NewRedisClient builds the redis client from channel config and verifies the
// connection.
func NewRedisClient(ctx context.Context, cfg *config.ChannelConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	opt.DB = cfg.RedisDB

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func NewClient(logger *zap.SugaredLogger, rdb *redis.Client, store EventReceiver) (*Client, error) {
	if logger == nil || store == nil {
		return nil, fmt.Errorf("logger and event receiver must be provided")
	}
	return &Client{logger: logger, rdb: rdb, store: store}, nil
}

// Connected reports whether the broadcast subscription is up.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Connect opens the broadcast subscription. Each event upserts the online
// user and appends to the matching active session route. Calling Connect
// while connected is a no-op.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.connected {
		return nil
	}

	sub, err := c.subscribeLocked(ctx, BroadcastTopic, func(ev models.LocationEvent) {
		c.store.ApplyLocationEvent(ev)
	})
	if err != nil {
		c.connected = false
		c.logger.Errorf("Failed to subscribe to %s: %v", BroadcastTopic, err)
		return err
	}

	c.broadcast = sub
	c.connected = true
	c.logger.Infof("Subscribed to broadcast topic %s", BroadcastTopic)
	return nil
}

// Disconnect tears down every subscription. Safe to call repeatedly and
// before Connect was ever called.
func (c *Client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.broadcast != nil {
		c.broadcast.stop()
		c.broadcast = nil
	}
	if c.perUser != nil {
		c.perUser.stop()
		c.perUser = nil
	}
	c.connected = false
	c.logger.Info("Channel subscriptions closed")
}

// StartLiveTracking subscribes to the focused user's topic, leaving any prior
// per-user subscription first so the same topic never has duplicate
// listeners. Events append to the selected route and move the user's entry.
func (c *Client) StartLiveTracking(ctx context.Context, userID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.perUser != nil {
		c.perUser.stop()
		c.perUser = nil
	}

	topic := fmt.Sprintf(userTopicFormat, userID)
	sub, err := c.subscribeLocked(ctx, topic, func(ev models.LocationEvent) {
		c.store.AppendSelectedPoint(userID, ev)
	})
	if err != nil {
		c.logger.Errorf("Failed to subscribe to %s: %v", topic, err)
		return err
	}

	c.perUser = sub
	c.logger.Infof("Live tracking user %d on topic %s", userID, topic)
	return nil
}

// StopLiveTracking leaves the per-user topic. No-op when none is open.
func (c *Client) StopLiveTracking() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.perUser == nil {
		return
	}
	topic := c.perUser.topic
	c.perUser.stop()
	c.perUser = nil
	c.logger.Infof("Live tracking stopped on topic %s", topic)
}

// subscribeLocked opens the topic and pumps its messages into handle until
// the subscription is stopped.
func (c *Client) subscribeLocked(ctx context.Context, topic string, handle func(models.LocationEvent)) (*subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)

	msgs, closeFn, err := fnSubscribe(subCtx, c.rdb, topic)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &subscription{topic: topic, cancel: cancel, close: closeFn}

	go func() {
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var ev models.LocationEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					c.logger.Errorf("Dropping malformed event on %s: %v", topic, err)
					continue
				}
				if err := ev.Validate(); err != nil {
					c.logger.Errorf("Dropping invalid event on %s: %v", topic, err)
					continue
				}
				handle(ev)
			}
		}
	}()

	return sub, nil
}
