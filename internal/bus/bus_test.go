package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/fraudforge/internal/domain"
	"github.com/opensource-finance/fraudforge/internal/logging"
)

func noop(context.Context, *domain.Message) error { return nil }

func TestChannelBus(t *testing.T) {
	bus := NewChannelBus(100)
	defer bus.Close()

	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("PublishAndSubscribe", func(t *testing.T) {
		got := make(chan *domain.Message, 1)

		_, err := bus.Subscribe(ctx, tenantID, domain.TopicDecision, func(ctx context.Context, msg *domain.Message) error {
			got <- msg
			return nil
		})
		require.NoError(t, err)

		reqCtx := logging.WithRequestID(ctx, "req-42")
		require.NoError(t, bus.Publish(reqCtx, tenantID, domain.TopicDecision, []byte("hello")))

		select {
		case msg := <-got:
			assert.Equal(t, "hello", string(msg.Payload))
			assert.Equal(t, tenantID, msg.TenantID)
			assert.Equal(t, domain.TopicDecision, msg.Topic)
			assert.Equal(t, "req-42", msg.Metadata[MetaRequestID])
			assert.NotEmpty(t, msg.ID)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for message")
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		var received1, received2 atomic.Int32

		_, _ = bus.Subscribe(ctx, "tenant-001", "isolation.topic", func(ctx context.Context, msg *domain.Message) error {
			received1.Add(1)
			return nil
		})
		_, _ = bus.Subscribe(ctx, "tenant-002", "isolation.topic", func(ctx context.Context, msg *domain.Message) error {
			received2.Add(1)
			return nil
		})

		require.NoError(t, bus.Publish(ctx, "tenant-001", "isolation.topic", []byte("msg1")))

		require.Eventually(t, func() bool { return received1.Load() == 1 }, time.Second, 5*time.Millisecond)
		time.Sleep(20 * time.Millisecond)
		assert.Zero(t, received2.Load())
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		assert.ErrorIs(t, bus.Publish(ctx, "", "topic", []byte("data")), ErrTenantRequired)

		_, err := bus.Subscribe(ctx, "", "topic", noop)
		assert.ErrorIs(t, err, ErrTenantRequired)

		_, err = bus.Request(ctx, "", "topic", nil)
		assert.ErrorIs(t, err, ErrTenantRequired)
	})

	t.Run("Unsubscribe", func(t *testing.T) {
		var count atomic.Int32

		sub, err := bus.Subscribe(ctx, tenantID, "unsub.topic", func(ctx context.Context, msg *domain.Message) error {
			count.Add(1)
			return nil
		})
		require.NoError(t, err)

		require.NoError(t, bus.Publish(ctx, tenantID, "unsub.topic", []byte("msg1")))
		require.Eventually(t, func() bool { return count.Load() == 1 }, time.Second, 5*time.Millisecond)

		require.NoError(t, sub.Unsubscribe())

		bus.mu.RLock()
		_, stillRegistered := bus.subscriptions[bus.makeKey(tenantID, "unsub.topic")]
		bus.mu.RUnlock()
		assert.False(t, stillRegistered)

		require.NoError(t, bus.Publish(ctx, tenantID, "unsub.topic", []byte("msg2")))
		time.Sleep(30 * time.Millisecond)
		assert.Equal(t, int32(1), count.Load())
	})

	t.Run("MultipleSubscribers", func(t *testing.T) {
		var count1, count2 atomic.Int32

		_, _ = bus.Subscribe(ctx, tenantID, "multi.topic", func(ctx context.Context, msg *domain.Message) error {
			count1.Add(1)
			return nil
		})
		_, _ = bus.Subscribe(ctx, tenantID, "multi.topic", func(ctx context.Context, msg *domain.Message) error {
			count2.Add(1)
			return nil
		})

		require.NoError(t, bus.Publish(ctx, tenantID, "multi.topic", []byte("broadcast")))

		require.Eventually(t, func() bool {
			return count1.Load() == 1 && count2.Load() == 1
		}, time.Second, 5*time.Millisecond)
	})

	t.Run("RequestReply", func(t *testing.T) {
		_, err := bus.Subscribe(ctx, tenantID, "echo", func(ctx context.Context, msg *domain.Message) error {
			return bus.Reply(ctx, msg, append([]byte("re:"), msg.Payload...))
		})
		require.NoError(t, err)

		reqCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()

		reply, err := bus.Request(reqCtx, tenantID, "echo", []byte("ping"))
		require.NoError(t, err)
		assert.Equal(t, "re:ping", string(reply))
	})

	t.Run("RequestTimeout", func(t *testing.T) {
		reqCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
		defer cancel()

		_, err := bus.Request(reqCtx, tenantID, "nobody.listens", []byte("ping"))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("ReplyWithoutAddress", func(t *testing.T) {
		err := bus.Reply(ctx, &domain.Message{TenantID: tenantID, Topic: "x"}, nil)
		assert.ErrorIs(t, err, ErrNoReplyTo)
	})

	t.Run("JSONHelpers", func(t *testing.T) {
		got := make(chan domain.Decision, 1)
		_, err := bus.Subscribe(ctx, tenantID, domain.TopicAlertBlocked, func(ctx context.Context, msg *domain.Message) error {
			var d domain.Decision
			if err := DecodeJSON(msg, &d); err != nil {
				return err
			}
			got <- d
			return nil
		})
		require.NoError(t, err)

		require.NoError(t, PublishJSON(ctx, bus, tenantID, domain.TopicAlertBlocked, domain.Decision{
			EvaluationID: "eval-1",
			Status:       domain.StatusBlocked,
			TotalScore:   95,
		}))

		select {
		case d := <-got:
			assert.Equal(t, "eval-1", d.EvaluationID)
			assert.Equal(t, domain.StatusBlocked, d.Status)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for decision")
		}

		assert.Error(t, DecodeJSON(&domain.Message{Topic: "x", Payload: []byte("{")}, &struct{}{}))
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, bus.Ping(ctx))
	})

	t.Run("SubscriptionTopic", func(t *testing.T) {
		sub, err := bus.Subscribe(ctx, tenantID, "my.topic", noop)
		require.NoError(t, err)
		assert.Equal(t, "my.topic", sub.Topic())
	})
}

func TestChannelBusDropsWhenFull(t *testing.T) {
	bus := NewChannelBus(1)
	defer bus.Close()

	ctx := context.Background()
	release := make(chan struct{})
	started := make(chan struct{}, 1)

	_, err := bus.Subscribe(ctx, "tenant-001", "slow", func(ctx context.Context, msg *domain.Message) error {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(ctx, "tenant-001", "slow", []byte("1")))
	<-started

	// one message fills the buffer, the next is dropped
	require.NoError(t, bus.Publish(ctx, "tenant-001", "slow", []byte("2")))
	require.NoError(t, bus.Publish(ctx, "tenant-001", "slow", []byte("3")))
	close(release)

	assert.Equal(t, int64(1), bus.Dropped())
}

func TestChannelBusClose(t *testing.T) {
	bus := NewChannelBus(100)

	ctx := context.Background()
	tenantID := "tenant-001"

	_, err := bus.Subscribe(ctx, tenantID, "close.topic", noop)
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(ctx, tenantID, "close.topic", []byte("data")), ErrClosed)
	assert.ErrorIs(t, bus.Ping(ctx), ErrClosed)

	_, err = bus.Subscribe(ctx, tenantID, "close.topic", noop)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewBus(t *testing.T) {
	t.Run("ChannelType", func(t *testing.T) {
		bus, err := New(domain.EventBusConfig{Type: "channel", ChannelBufferSize: 50})
		require.NoError(t, err)
		defer bus.Close()

		_, ok := bus.(*ChannelBus)
		assert.True(t, ok, "expected ChannelBus for channel type")
	})

	t.Run("UnsupportedType", func(t *testing.T) {
		_, err := New(domain.EventBusConfig{Type: "kafka"})
		assert.Error(t, err)
	})
}

func TestMakeSubject(t *testing.T) {
	assert.Equal(t, "fraudforge.tenant-001.fraudforge.decision", makeSubject("tenant-001", domain.TopicDecision))
}

func TestChannelBusHighLoad(t *testing.T) {
	bus := NewChannelBus(1000)
	defer bus.Close()

	ctx := context.Background()
	tenantID := "tenant-load"

	var received atomic.Int32
	const messageCount = 100

	var wg sync.WaitGroup
	wg.Add(messageCount)

	_, err := bus.Subscribe(ctx, tenantID, domain.TopicEventSubmitted, func(ctx context.Context, msg *domain.Message) error {
		received.Add(1)
		wg.Done()
		return nil
	})
	require.NoError(t, err)

	for i := 0; i < messageCount; i++ {
		require.NoError(t, bus.Publish(ctx, tenantID, domain.TopicEventSubmitted, []byte("msg")))
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		assert.Equal(t, int32(messageCount), received.Load())
	case <-time.After(5 * time.Second):
		t.Fatalf("timeout: received %d/%d messages", received.Load(), messageCount)
	}
}
