package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestPublishRunsSubscribersInRegistrationOrder(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var order []string
	bus.Subscribe("thing.changed", func(ctx context.Context, ev Event) error {
		order = append(order, "first")
		return nil
	})
	bus.Subscribe("thing.changed", func(ctx context.Context, ev Event) error {
		order = append(order, "second")
		return nil
	})

	bus.Publish(context.Background(), Event{Kind: "thing.changed"})

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestPublishOnlyReachesMatchingKind(t *testing.T) {
	bus := NewBus(zap.NewNop())

	calls := 0
	bus.Subscribe("a", func(ctx context.Context, ev Event) error {
		calls++
		return nil
	})

	bus.Publish(context.Background(), Event{Kind: "b"})
	assert.Zero(t, calls)

	bus.Publish(context.Background(), Event{Kind: "a"})
	assert.Equal(t, 1, calls)
}

func TestFailingSubscriberDoesNotBlockOthers(t *testing.T) {
	bus := NewBus(zap.NewNop())

	var reached bool
	bus.Subscribe("x", func(ctx context.Context, ev Event) error {
		return errors.New("boom")
	})
	bus.Subscribe("x", func(ctx context.Context, ev Event) error {
		panic("worse")
	})
	bus.Subscribe("x", func(ctx context.Context, ev Event) error {
		reached = true
		return nil
	})

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), Event{Kind: "x"})
	})
	assert.True(t, reached)
}

func TestPublishWithNoSubscribersIsANoop(t *testing.T) {
	bus := NewBus(zap.NewNop())
	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), Event{Kind: "nobody.listens"})
	})
}
