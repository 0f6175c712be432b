package ws

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestConnCloseRunsHooksExactlyOnce(t *testing.T) {
	c := newTestConn(4)

	var calls int
	c.addCloseHook(func() { calls++ })

	c.Close()
	c.Close()
	c.Close()

	assert.Equal(t, 1, calls)
	assert.Equal(t, stateClosed, c.lifecycle.Current())
}

func TestConnCloseHooksRunInOrder(t *testing.T) {
	c := newTestConn(4)

	var order []string
	c.addCloseHook(func() { order = append(order, "first") })
	c.addCloseHook(func() { order = append(order, "second") })

	c.Close()

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestConnTrySend(t *testing.T) {
	c := newTestConn(2)

	assert.True(t, c.trySend([]byte("a")))
	assert.True(t, c.trySend([]byte("b")))

	// Buffer full.
	assert.False(t, c.trySend([]byte("c")))

	<-c.send
	assert.True(t, c.trySend([]byte("d")))
}

func TestConnTrySendAfterClose(t *testing.T) {
	c := newTestConn(4)
	c.Close()

	assert.False(t, c.trySend([]byte("a")))
}

func TestConnConcurrentClose(t *testing.T) {
	c := newTestConn(4)

	var mu sync.Mutex
	calls := 0
	c.addCloseHook(func() {
		mu.Lock()
		calls++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Close()
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)

	select {
	case <-c.done:
	case <-time.After(time.Second):
		t.Fatal("done channel not closed")
	}
}
