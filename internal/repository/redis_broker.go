package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	redis "gopkg.in/redis.v5"

	"github.com/AsfandAhmad/Study-ChatBot/internal/domain"
)

const redisChannelPrefix = "_TUTOR_changes:"

// RedisBroker publishes change events over Redis pub/sub so every replica
// of the service sees writes made by the others. One channel per owner.
type RedisBroker struct {
	client *redis.Client
	log    logrus.FieldLogger
	onDrop func()
}

// NewRedisBroker connects to the Redis server at url (redis://host:port/db).
func NewRedisBroker(url string, log logrus.FieldLogger, onDrop func()) (*RedisBroker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisBroker{client: client, log: log, onDrop: onDrop}, nil
}

func ownerChannel(ownerID string) string {
	return redisChannelPrefix + ownerID
}

// Publish sends ev on the owner's channel.
func (b *RedisBroker) Publish(_ context.Context, ev domain.ChangeEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.client.Publish(ownerChannel(ev.OwnerID), string(data)).Err()
}

// Subscribe listens on the owner's channel and filters by thread locally.
func (b *RedisBroker) Subscribe(ctx context.Context, f Filter) (<-chan domain.ChangeEvent, func(), error) {
	ps, err := b.client.Subscribe(ownerChannel(f.OwnerID))
	if err != nil {
		return nil, nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan domain.ChangeEvent, subscriberBuffer)
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = ps.Close()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	go func() {
		defer close(out)
		for {
			msg, err := ps.ReceiveMessage()
			if err != nil {
				select {
				case <-done:
				default:
					b.log.WithError(err).WithField("owner", f.OwnerID).Warn("redis subscription ended")
				}
				return
			}
			var ev domain.ChangeEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				b.log.WithError(err).Warn("dropping malformed change event")
				continue
			}
			if !f.Match(ev) {
				continue
			}
			select {
			case out <- ev:
			default:
				if b.onDrop != nil {
					b.onDrop()
				}
			}
		}
	}()
	return out, cancel, nil
}

// Close closes the Redis client.
func (b *RedisBroker) Close() error {
	return b.client.Close()
}
