package channel_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sanix-darker/loadgun/internal/channel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrySend_FullReturnsValueBack(t *testing.T) {
	tx, _ := channel.NewChannel[int](channel.IntegerLimit(2))

	state, _ := tx.TrySend(1)
	require.Equal(t, channel.SendSuccess, state)
	state, _ = tx.TrySend(2)
	require.Equal(t, channel.SendSuccess, state)

	state, back := tx.TrySend(3)
	assert.Equal(t, channel.SendFull, state)
	assert.Equal(t, 3, back)
}

func TestTrySend_ClosedWhenNoReceivers(t *testing.T) {
	tx, rx := channel.NewChannel[int](channel.IntegerLimit(1))
	rx.Close()

	state, _ := tx.TrySend(1)
	assert.Equal(t, channel.SendClosed, state)
	assert.True(t, tx.NoReceivers())
}

func TestReceive_EndOfStreamWhenSendersDrop(t *testing.T) {
	tx, rx := channel.NewChannel[int](channel.IntegerLimit(1))
	tx.Close()

	_, ok, err := rx.Receive(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFIFO_StrictOrdering(t *testing.T) {
	tx, rx := channel.NewChannel[int](channel.IntegerLimit(10))
	for i := 0; i < 5; i++ {
		state, _ := tx.TrySend(i)
		require.Equal(t, channel.SendSuccess, state)
	}
	for i := 0; i < 5; i++ {
		v, ok, err := rx.Receive(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
}

func TestAutoLimit_GrowsUnderBackpressure(t *testing.T) {
	tx, _ := channel.NewChannel[int](channel.AutoLimit())

	for i := 0; i < 10; i++ {
		state, _ := tx.TrySend(i)
		require.Equal(t, channel.SendSuccess, state, "auto channel should never report Full")
	}
	assert.GreaterOrEqual(t, tx.Limit().Cap(), 10)
}

func TestSend_BlocksThenUnblocksOnDrain(t *testing.T) {
	tx, rx := channel.NewChannel[int](channel.IntegerLimit(1))
	state, _ := tx.TrySend(1) // fill it
	require.Equal(t, channel.SendSuccess, state)

	done := make(chan error, 1)
	go func() {
		done <- tx.Send(context.Background(), 2)
	}()

	select {
	case <-done:
		t.Fatal("Send should have blocked while channel is full")
	case <-time.After(20 * time.Millisecond):
	}

	v, ok, err := rx.Receive(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, v)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Send did not unblock after drain")
	}
}

func TestSend_RespectsContextCancellation(t *testing.T) {
	tx, _ := channel.NewChannel[int](channel.IntegerLimit(1))
	_, _ = tx.TrySend(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := tx.Send(ctx, 2)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestMPMC_FanOutConsumesEveryValueExactlyOnce(t *testing.T) {
	tx, rx0 := channel.NewChannel[int](channel.IntegerLimit(20))
	rx1 := rx0.Clone()

	for i := 0; i < 20; i++ {
		_, _ = tx.TrySend(i)
	}
	tx.Close()

	var mu sync.Mutex
	seen := map[int]bool{}
	var wg sync.WaitGroup
	drain := func(rx *channel.Receiver[int]) {
		defer wg.Done()
		for {
			v, ok, err := rx.Receive(context.Background())
			require.NoError(t, err)
			if !ok {
				return
			}
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}
	}
	wg.Add(2)
	go drain(rx0)
	go drain(rx1)
	wg.Wait()

	assert.Len(t, seen, 20)
}

func TestForceSend_EvictsOldestWhenFull(t *testing.T) {
	tx, rx := channel.NewChannel[int](channel.IntegerLimit(2))
	require.Equal(t, channel.SendSuccess, tx.ForceSend(1))
	require.Equal(t, channel.SendSuccess, tx.ForceSend(2))
	require.Equal(t, channel.SendSuccess, tx.ForceSend(3))

	v, ok, err := rx.Receive(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, v, "oldest value (1) should have been evicted")

	v, ok, err = rx.Receive(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, v)
}

func TestForceSend_ClosedWhenNoReceivers(t *testing.T) {
	tx, rx := channel.NewChannel[int](channel.IntegerLimit(1))
	rx.Close()
	assert.Equal(t, channel.SendClosed, tx.ForceSend(1))
}

func TestOnDemandReceiver_TriggersOnlyWhenDataAvailable(t *testing.T) {
	tx, rx := channel.NewChannel[int](channel.IntegerLimit(5))
	od := rx.OnDemand()
	triggers, ack := od.IntoStream()

	select {
	case <-triggers:
		t.Fatal("should not trigger before a value is sent")
	case <-time.After(20 * time.Millisecond):
	}

	_, _ = tx.TrySend(42)

	select {
	case <-triggers:
	case <-time.After(time.Second):
		t.Fatal("expected a trigger once a value was available")
	}
	ack(false) // simulate "engine did not advance"

	select {
	case <-triggers:
	case <-time.After(time.Second):
		t.Fatal("expected trigger to be re-armed immediately on ack(false)")
	}
	ack(true)

	v, ok, err := rx.Receive(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 42, v)
}
