package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Event struct {
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// BatchEvent announces a freshly created payout batch that needs scheduling.
type BatchEvent struct {
	BatchID string `json:"batch_id"`
}

// PayoutStatusEvent mirrors a status transition for in-process listeners.
type PayoutStatusEvent struct {
	PayoutID string `json:"payout_id"`
	BatchID  string `json:"batch_id"`
	Status   string `json:"status"`
	Message  string `json:"message,omitempty"`
}

const (
	ChannelBatch  = "pd:events:batch"
	ChannelPayout = "pd:events:payout"
)

type Bus struct {
	client redis.UniversalClient
}

func NewBus(client redis.UniversalClient) *Bus {
	return &Bus{client: client}
}

func NewEvent(eventType string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		Type:      eventType,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}, nil
}

func (b *Bus) Publish(ctx context.Context, channel string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, channel, payload).Err()
}

// ScheduleBatch publishes the fire-and-forget scheduling signal consumed by
// the payout worker. It satisfies payout.BatchDispatcher.
func (b *Bus) ScheduleBatch(ctx context.Context, batchID uuid.UUID) error {
	event, err := NewEvent("batch_created", BatchEvent{BatchID: batchID.String()})
	if err != nil {
		return err
	}
	return b.Publish(ctx, ChannelBatch, event)
}

func (b *Bus) Subscribe(ctx context.Context, channels ...string) <-chan *Event {
	sub := b.client.Subscribe(ctx, channels...)
	ch := make(chan *Event, 100)

	go func() {
		defer close(ch)
		for msg := range sub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				continue
			}
			ch <- &event
		}
	}()

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()

	return ch
}
