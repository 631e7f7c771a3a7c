package lifecycle

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedMutex_SerializesSameKey(t *testing.T) {
	k := NewKeyedMutex()

	var active, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := k.Lock("documents")
			defer unlock()

			n := atomic.AddInt32(&active, 1)
			if n > atomic.LoadInt32(&peak) {
				atomic.StoreInt32(&peak, n)
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&active, -1)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&peak))
	assert.Equal(t, 0, k.Len())
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	k := NewKeyedMutex()
	unlockA := k.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := k.Lock("b")
		unlock()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on b waited for a")
	}
}

func TestKeyedMutex_UnlockTwiceIsSafe(t *testing.T) {
	k := NewKeyedMutex()
	unlock := k.Lock("a")
	unlock()
	unlock()

	assert.Equal(t, 0, k.Len())
	k.Lock("a")()
}
