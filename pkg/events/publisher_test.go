package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/oursky/agent-manager/pkg/agent"
	"go.uber.org/zap"
)

func TestSubject(t *testing.T) {
	e := agent.Event{Agent: "sync.users *", Type: agent.EventStuck}
	assert.Equal(t, Subject("agents", e), "agents.sync_users__.stuck")
}

func TestPublisher(t *testing.T) {
	size := 2
	p := NewPublisher(zap.NewNop(), &Config{URL: "nats://localhost:4222", BufferSize: &size})

	p.Listen(agent.Event{ID: "1", Agent: "a", Type: agent.EventStarted})
	p.Listen(agent.Event{ID: "2", Agent: "a", Type: agent.EventRunFailed, Error: "boom"})
	p.Listen(agent.Event{ID: "3", Agent: "a", Type: agent.EventStopped})
	assert.Equal(t, p.Dropped(), int64(1))

	type message struct {
		subject string
		data    []byte
	}
	published := make(chan message, 2)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.run(ctx, func(subject string, data []byte) error {
		published <- message{subject, data}
		return nil
	})

	first := <-published
	assert.Equal(t, first.subject, "agents.a.started")

	second := <-published
	assert.Equal(t, second.subject, "agents.a.run_failed")
	var e agent.Event
	assert.Equal(t, json.Unmarshal(second.data, &e), nil)
	assert.Equal(t, e.ID, "2")
	assert.Equal(t, e.Error, "boom")

	select {
	case m := <-published:
		t.Fatalf("unexpected message on %s", m.subject)
	case <-time.After(20 * time.Millisecond):
	}
}

func TestDisabledPublisher(t *testing.T) {
	p := NewPublisher(zap.NewNop(), &Config{Disabled: true})
	p.Listen(agent.Event{Agent: "a", Type: agent.EventStarted})
	assert.Equal(t, len(p.events), 0)
	assert.Equal(t, p.Start(context.Background(), nil), nil)
}
