package bot

import (
	"sync"
	"testing"
)

func TestLaneSingleFlight(t *testing.T) {
	lane := NewLane("test")

	if !lane.Available() {
		t.Error("Expected fresh lane to be available")
	}
	if !lane.TryAcquire() {
		t.Fatal("Expected first acquire to succeed")
	}
	if lane.Available() {
		t.Error("Expected held lane to report unavailable")
	}
	if lane.TryAcquire() {
		t.Error("Expected second acquire to fail while held")
	}

	lane.Release()
	if !lane.Available() {
		t.Error("Expected released lane to be available")
	}
	if !lane.TryAcquire() {
		t.Error("Expected acquire after release to succeed")
	}
}

func TestLaneConcurrentAcquire(t *testing.T) {
	lane := NewLane("test")

	const attempts = 32
	var wg sync.WaitGroup
	acquired := make(chan struct{}, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if lane.TryAcquire() {
				acquired <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(acquired)

	count := 0
	for range acquired {
		count++
	}
	if count != 1 {
		t.Errorf("Expected exactly 1 successful acquire, got %d", count)
	}
}
