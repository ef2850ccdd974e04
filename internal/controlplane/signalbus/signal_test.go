package signalbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReceiverGetBlocksUntilReady(t *testing.T) {
	sender, receiver := NewComparable[int]()

	done := make(chan int, 1)
	go func() {
		v, err := receiver.Get(context.Background())
		assert.NoError(t, err)
		done <- v
	}()

	select {
	case <-done:
		t.Fatal("Get returned before any Set")
	case <-time.After(20 * time.Millisecond):
	}

	sender.Set(7)
	select {
	case v := <-done:
		assert.Equal(t, 7, v)
	case <-time.After(time.Second):
		t.Fatal("Get never returned after Set")
	}
}

func TestSenderSetCoalescesEqualValues(t *testing.T) {
	sender, receiver := NewComparable[int]()
	sender.Set(1)

	_, err := receiver.Changed(context.Background())
	require.NoError(t, err)

	sender.Set(1) // no-op, must not wake Changed

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err = receiver.Changed(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReceiverChangedObservesEachDistinctValue(t *testing.T) {
	sender, receiver := NewComparable[int]()

	var observed []int
	var mu sync.Mutex
	stop := make(chan struct{})
	go func() {
		for {
			v, err := receiver.Changed(context.Background())
			if err != nil {
				return
			}
			mu.Lock()
			observed = append(observed, v)
			mu.Unlock()
			if v == 3 {
				close(stop)
				return
			}
		}
	}()

	sender.Set(1)
	sender.Set(2)
	sender.Set(3)

	select {
	case <-stop:
	case <-time.After(time.Second):
		t.Fatal("receiver never observed the final value")
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 3, observed[len(observed)-1])
}

func TestReceiverCloneHasIndependentCursor(t *testing.T) {
	sender, receiver := NewComparable[string]()
	sender.Set("a")

	_, err := receiver.Changed(context.Background())
	require.NoError(t, err)

	clone := receiver.Clone()
	v, err := clone.Changed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a", v, "a fresh clone has not observed anything yet")
}

func TestCloseAllSendersUnblocksChanged(t *testing.T) {
	sender, receiver := NewComparable[int]()
	sender.Set(1)
	_, err := receiver.Changed(context.Background())
	require.NoError(t, err)

	sender.Close()

	_, err = receiver.Changed(context.Background())
	assert.ErrorIs(t, err, ErrClosed{})
}

func TestClonedSenderKeepsSignalOpen(t *testing.T) {
	sender, receiver := NewComparable[int]()
	second := sender.Clone()
	sender.Close()

	second.Set(5)
	v, err := receiver.Changed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, v)
}

func TestTryGetReportsPending(t *testing.T) {
	_, receiver := NewComparable[int]()
	_, ok := receiver.TryGet()
	assert.False(t, ok)
}

func TestReplaceNilClearsBackToPending(t *testing.T) {
	sender, receiver := NewComparable[int]()
	sender.Set(4)
	_, ok := receiver.TryGet()
	require.True(t, ok)

	sender.Replace(nil)
	_, ok = receiver.TryGet()
	assert.False(t, ok)

	// A later Set makes the signal Ready again and wakes Changed.
	sender.Set(9)
	v, err := receiver.Changed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, v)
}

func TestReplaceNonNilBehavesLikeSet(t *testing.T) {
	sender, receiver := NewComparable[int]()
	v := 11
	sender.Replace(&v)

	got, err := receiver.Changed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 11, got)
}
