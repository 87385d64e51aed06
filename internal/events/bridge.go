package events

import (
	"context"
	"time"
)

// publishTimeout bounds a single Kafka publish so a broker outage cannot
// back up the bridge for long.
const publishTimeout = 5 * time.Second

// Bridge consumes bus events and mirrors transcript lines and finished
// coaching tips to Kafka. It runs until the bus closes.
type Bridge struct {
	publisher *Publisher
	done      chan struct{}
}

// NewBridge starts a bridge from bus to publisher.
func NewBridge(bus *Bus, publisher *Publisher) *Bridge {
	b := &Bridge{
		publisher: publisher,
		done:      make(chan struct{}),
	}
	go b.run(bus.Subscribe())
	return b
}

func (b *Bridge) run(events <-chan Event) {
	defer close(b.done)
	for ev := range events {
		switch e := ev.(type) {
		case TranscriptAppended:
			b.withTimeout(func(ctx context.Context) {
				_ = b.publisher.PublishTranscript(ctx, e.SessionID, e)
			})
		case TipFinished:
			b.withTimeout(func(ctx context.Context) {
				_ = b.publisher.PublishTip(ctx, e.SessionID, e)
			})
		}
	}
}

func (b *Bridge) withTimeout(fn func(ctx context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	fn(ctx)
}

// Wait blocks until the bridge has drained, i.e. the bus was closed.
func (b *Bridge) Wait() {
	<-b.done
}
