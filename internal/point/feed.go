package point

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const feedChannel = "points:changes"

// envelope is the wire form of a change batch. Origin lets an instance skip
// batches it already dispatched locally when they echo back from Redis.
type envelope struct {
	Origin  string   `json:"origin"`
	Changes []Change `json:"changes"`
}

// Subscription receives change batches until its disposer runs.
type Subscription struct {
	handler func([]Change)
	onError func(error)
}

// Feed fans recycling point changes out to in-process subscribers and, when
// Redis is configured, to every other service instance.
type Feed struct {
	redis  *redis.Client
	origin string

	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	pubsub *redis.PubSub
	closed bool
}

func NewFeed(redisClient *redis.Client) *Feed {
	f := &Feed{
		redis:  redisClient,
		origin: uuid.NewString(),
		subs:   map[*Subscription]struct{}{},
	}

	if redisClient != nil {
		f.pubsub = redisClient.Subscribe(context.Background(), feedChannel)
		go f.subscribeRedis()
	}
	return f
}

// Subscribe registers a handler for change batches and returns a disposer.
// onError may be nil; it is invoked when the Redis subscription drops.
func (f *Feed) Subscribe(handler func([]Change), onError func(error)) func() {
	sub := &Subscription{handler: handler, onError: onError}

	f.mu.Lock()
	f.subs[sub] = struct{}{}
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, sub)
			f.mu.Unlock()
		})
	}
}

// Publish dispatches the change to local subscribers and relays it to other
// instances through Redis.
func (f *Feed) Publish(ctx context.Context, changes ...Change) {
	if len(changes) == 0 {
		return
	}
	f.dispatch(changes)

	if f.redis == nil {
		return
	}
	payload, err := json.Marshal(envelope{Origin: f.origin, Changes: changes})
	if err != nil {
		log.Printf("feed marshal error: %v", err)
		return
	}
	if err := f.redis.Publish(ctx, feedChannel, payload).Err(); err != nil {
		log.Printf("feed publish error: %v", err)
	}
}

func (f *Feed) subscribeRedis() {
	for msg := range f.pubsub.Channel() {
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			log.Printf("feed decode error: %v", err)
			continue
		}
		if env.Origin == f.origin {
			continue
		}
		f.dispatch(env.Changes)
	}

	f.mu.RLock()
	closed := f.closed
	subs := make([]*Subscription, 0, len(f.subs))
	for sub := range f.subs {
		subs = append(subs, sub)
	}
	f.mu.RUnlock()

	if closed {
		return
	}
	for _, sub := range subs {
		if sub.onError != nil {
			sub.onError(TransportError{Op: "subscribe", Err: context.Canceled})
		}
	}
}

func (f *Feed) dispatch(changes []Change) {
	f.mu.RLock()
	subs := make([]*Subscription, 0, len(f.subs))
	for sub := range f.subs {
		subs = append(subs, sub)
	}
	f.mu.RUnlock()

	for _, sub := range subs {
		sub.handler(changes)
	}
}

// Close tears the Redis subscription down. Registered subscribers are not
// notified; closing is an orderly shutdown, not a transport failure.
func (f *Feed) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()

	if f.pubsub != nil {
		_ = f.pubsub.Close()
	}
}
