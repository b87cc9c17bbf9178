package poller

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/fjod/storefront/pkg/logger"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	OrderEventsTopic = "order-events"
	orderCreated     = "order.created"
	cashOnDelivery   = "cod"

	minBackoff = 100 * time.Millisecond
	maxBackoff = 10 * time.Second
)

// orderEvent mirrors the outbox payload published by the orders store.
type orderEvent struct {
	EventType     string `json:"event_type"`
	Reference     string `json:"reference"`
	CartID        string `json:"cart_id"`
	PaymentMethod string `json:"payment_method"`
}

type CartClearer interface {
	ClearCart(ctx context.Context, cartID string) error
}

// MessageReader is the consumer-group subset of *kafka.Reader the poller
// needs. Offsets are committed explicitly after a message is handled.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Poller empties the cart behind every cash-on-delivery order once the
// order is recorded. A message is committed only after it was handled; a
// failed clear is retried with backoff before the next message is fetched.
type Poller struct {
	carts   CartClearer
	reader  MessageReader
	backoff *backoff.ExponentialBackOff
	sleep   func(ctx context.Context, d time.Duration)
}

func NewPoller(carts CartClearer, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    OrderEventsTopic,
		GroupID:  "cart-clearing",
		MaxBytes: 10e6, // 10MB
	})
	return newPollerWithReader(carts, reader)
}

func newPollerWithReader(carts CartClearer, reader MessageReader) *Poller {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = minBackoff
	b.MaxInterval = maxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	return &Poller{carts: carts, reader: reader, backoff: b, sleep: sleepCtx}
}

func (p *Poller) Run(ctx context.Context) {
	for ctx.Err() == nil {
		m, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				logger.L().Error("error reading order event", zap.Error(err))
				p.wait(ctx)
			}
			continue
		}
		p.backoff.Reset()
		if !p.process(ctx, m) {
			return
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		logger.L().Warn("error closing order events reader", zap.Error(err))
	}
}

// process handles m until it succeeds and then commits it. It returns false
// when ctx ends first; m stays uncommitted and is redelivered to the group.
func (p *Poller) process(ctx context.Context, m kafka.Message) bool {
	for p.handle(ctx, m) != nil {
		p.wait(ctx)
		if ctx.Err() != nil {
			return false
		}
	}
	p.backoff.Reset()

	for {
		err := p.reader.CommitMessages(ctx, m)
		if err == nil {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		logger.L().Error("error committing order event",
			zap.Int("partition", m.Partition),
			zap.Int64("offset", m.Offset),
			zap.Error(err))
		p.wait(ctx)
	}
}

// handle returns an error only when the event should be retried.
func (p *Poller) handle(ctx context.Context, m kafka.Message) error {
	var event orderEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		logger.L().Error("skipping unparseable order event",
			zap.Int64("offset", m.Offset),
			zap.Error(err))
		return nil
	}

	if event.EventType != orderCreated || event.PaymentMethod != cashOnDelivery || event.CartID == "" {
		return nil
	}

	if err := p.carts.ClearCart(ctx, event.CartID); err != nil {
		logger.L().Error("failed to clear cart after order",
			zap.String("cart_id", event.CartID),
			zap.String("order_reference", event.Reference),
			zap.Error(err))
		return err
	}
	logger.L().Info("cart cleared after order",
		zap.String("cart_id", event.CartID),
		zap.String("order_reference", event.Reference))
	return nil
}

// wait sleeps for the next backoff interval, doubling up to maxBackoff.
func (p *Poller) wait(ctx context.Context) {
	p.sleep(ctx, p.backoff.NextBackOff())
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
