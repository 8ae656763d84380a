package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startTestNATSServer starts an embedded NATS server for testing.
func startTestNATSServer(t *testing.T) *natsserver.Server {
	t.Helper()
	opts := &natsserver.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	}

	server, err := natsserver.NewServer(opts)
	require.NoError(t, err)

	go server.Start()

	if !server.ReadyForConnections(5 * time.Second) {
		t.Fatal("NATS server not ready")
	}

	t.Cleanup(func() {
		server.Shutdown()
		server.WaitForShutdown()
	})

	return server
}

func TestNATSPublisher_PublishPlanGenerated(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	pub := NewNATSPublisher(nc, "")
	assert.Equal(t, DefaultSubject, pub.Subject())

	ch := make(chan *nats.Msg, 1)
	sub, err := nc.ChanSubscribe(DefaultSubject, ch)
	require.NoError(t, err)
	defer sub.Unsubscribe()
	require.NoError(t, nc.Flush())

	ev := PlanGenerated{
		RequestID:   "req-1",
		Title:       "Learn Go",
		TimeHorizon: "Today",
		TaskCount:   3,
		Source:      "ai",
		GeneratedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, pub.PublishPlanGenerated(context.Background(), ev))

	select {
	case msg := <-ch:
		var got PlanGenerated
		require.NoError(t, json.Unmarshal(msg.Data, &got))
		assert.Equal(t, ev, got)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for plan event")
	}
}

func TestNATSPublisher_CancelledContext(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = NewNATSPublisher(nc, "custom.subject").PublishPlanGenerated(ctx, PlanGenerated{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSubscribe(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := nats.Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	got := make(chan PlanGenerated, 1)
	done := make(chan error, 1)
	go func() {
		done <- Subscribe(ctx, nc, "plans.test", func(ev PlanGenerated) { got <- ev })
	}()

	pub := NewNATSPublisher(nc, "plans.test")
	require.Eventually(t, func() bool {
		_ = nc.Publish("plans.test", []byte("not json"))
		_ = pub.PublishPlanGenerated(context.Background(), PlanGenerated{Title: "hello"})
		select {
		case ev := <-got:
			return ev.Title == "hello"
		default:
			return false
		}
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Subscribe did not return after cancel")
	}
}

func TestConnect_RequiresURL(t *testing.T) {
	_, err := Connect("")
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	server := startTestNATSServer(t)
	nc, err := Connect(server.ClientURL())
	require.NoError(t, err)
	defer nc.Close()
	assert.True(t, nc.IsConnected())
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.PublishPlanGenerated(context.Background(), PlanGenerated{}))
}
