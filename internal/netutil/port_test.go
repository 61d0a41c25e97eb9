package netutil

import (
	"net"
	"strconv"
	"sync"
	"testing"
)

func TestPortRegistry_Reserve(t *testing.T) {
	t.Parallel()

	r := NewPortRegistry(nil)

	if !r.reserve(30080) {
		t.Fatal("first reserve should succeed")
	}
	if r.reserve(30080) {
		t.Fatal("second reserve of the same port should fail")
	}

	r.Release(30080)
	if !r.reserve(30080) {
		t.Fatal("reserve after Release should succeed")
	}
}

func TestAllocatePort_ReturnsBindablePort(t *testing.T) {
	t.Parallel()

	r := NewPortRegistry(nil)
	port, err := r.AllocatePort()
	if err != nil {
		t.Fatalf("AllocatePort: %v", err)
	}
	defer r.Release(port)

	if port <= 0 || port > 65535 {
		t.Fatalf("port %d out of range", port)
	}

	// The listener was closed, so the port should be bindable again.
	l, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", strconv.Itoa(port)))
	if err != nil {
		t.Fatalf("allocated port not bindable: %v", err)
	}
	_ = l.Close()
}

func TestAllocatePort_ConcurrentCallersGetDistinctPorts(t *testing.T) {
	t.Parallel()

	const n = 8
	r := NewPortRegistry(nil)

	var mu sync.Mutex
	seen := make(map[int]int)

	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			port, err := r.AllocatePort()
			if err != nil {
				t.Errorf("AllocatePort: %v", err)
				return
			}
			mu.Lock()
			seen[port]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	for port, count := range seen {
		if count > 1 {
			t.Errorf("port %d allocated %d times", port, count)
		}
	}
	if len(seen) != n {
		t.Errorf("got %d distinct ports, want %d", len(seen), n)
	}
}
