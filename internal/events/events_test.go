package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, Event) error {
	f.calls++
	return errors.New("broker unavailable")
}

func (f *failingPublisher) Close() error { return nil }

func TestLoggedSwallowsErrors(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	next := &failingPublisher{}
	pub := NewLogged(next, zap.New(core))

	err := pub.Publish(context.Background(), Event{Type: ArticlePublished, ResourceID: 7})
	require.NoError(t, err)
	assert.Equal(t, 1, next.calls)
	assert.Equal(t, 1, logs.FilterMessage("event publish failed").Len())
}

type capturingPublisher struct{ events []Event }

func (c *capturingPublisher) Publish(_ context.Context, event Event) error {
	c.events = append(c.events, event)
	return nil
}

func (c *capturingPublisher) Close() error { return nil }

func TestLoggedStampsOccurredAt(t *testing.T) {
	rec := &capturingPublisher{}
	pub := NewLogged(rec, zap.NewNop())

	require.NoError(t, pub.Publish(context.Background(), Event{Type: KnowledgeArchived, ResourceID: 3}))

	got := rec.events
	require.Len(t, got, 1)
	assert.False(t, got[0].OccurredAt.IsZero())
	assert.Equal(t, KnowledgeArchived, got[0].Type)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	assert.NoError(t, p.Close())
}
