package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/collabflow/backend/pkg/logger"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type relayEnvelope struct {
	Origin string          `json:"origin"`
	Room   string          `json:"room"`
	Except string          `json:"except,omitempty"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}

// RedisRelay mirrors room broadcasts between instances over a pub/sub channel.
// Each instance delivers relayed events to its own connections only.
type RedisRelay struct {
	client     *redis.Client
	channel    string
	instanceID string
	hub        *Hub

	pubsub *redis.PubSub
	wg     sync.WaitGroup
}

func NewRedisRelay(client *redis.Client, channel string, hub *Hub) *RedisRelay {
	return &RedisRelay{
		client:     client,
		channel:    channel,
		instanceID: uuid.NewString(),
		hub:        hub,
	}
}

// Publish implements RoomPublisher.
func (r *RedisRelay) Publish(room, exceptConnID string, ev Event) {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		logger.Error().Err(err).Str("event", ev.Event).Msg("failed to encode relay payload")
		return
	}
	payload, err := json.Marshal(relayEnvelope{
		Origin: r.instanceID,
		Room:   room,
		Except: exceptConnID,
		Event:  ev.Event,
		Data:   data,
	})
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		logger.Warn().Err(err).Str("room", room).Str("event", ev.Event).Msg("failed to relay event")
	}
}

// Start subscribes to the relay channel and delivers messages until Close.
func (r *RedisRelay) Start(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return err
	}
	r.pubsub = pubsub

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		for msg := range pubsub.Channel() {
			r.handleMessage(msg.Payload)
		}
	}()

	logger.Info().Str("channel", r.channel).Str("instance", r.instanceID).Msg("realtime relay subscribed")
	return nil
}

func (r *RedisRelay) handleMessage(payload string) {
	var env relayEnvelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		logger.Warn().Err(err).Msg("discarding malformed relay message")
		return
	}
	if env.Origin == r.instanceID {
		return
	}
	r.hub.DeliverLocal(env.Room, env.Except, Event{Event: env.Event, Data: env.Data})
}

func (r *RedisRelay) Close() error {
	if r.pubsub == nil {
		return nil
	}
	err := r.pubsub.Close()
	r.wg.Wait()
	return err
}
