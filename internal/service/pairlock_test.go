package service

import (
	"sync"
	"testing"
)

func TestPairKeyCanonical(t *testing.T) {
	if makePairKey(3, 7) != makePairKey(7, 3) {
		t.Fatal("pair key must be order-independent")
	}
	if makePairKey(3, 7) == makePairKey(3, 8) {
		t.Fatal("distinct pairs must map to distinct keys")
	}
}

func TestPairLocksSerializeSamePair(t *testing.T) {
	locks := newPairLocks()

	const workers = 32
	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := locks.Lock(1, 2)
			counter++
			release()
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Fatalf("expected %d increments, got %d", workers, counter)
	}
}

func TestPairLocksReleaseCleansUp(t *testing.T) {
	locks := newPairLocks()

	release := locks.Lock(1, 2)
	release()

	locks.mu.Lock()
	remaining := len(locks.locks)
	locks.mu.Unlock()
	if remaining != 0 {
		t.Fatalf("expected lock map to be empty, found %d entries", remaining)
	}
}

func TestPairLocksIndependentPairs(t *testing.T) {
	locks := newPairLocks()

	releaseA := locks.Lock(1, 2)
	done := make(chan struct{})
	go func() {
		// A different pair must not be blocked by the held lock.
		releaseB := locks.Lock(3, 4)
		releaseB()
		close(done)
	}()
	<-done
	releaseA()
}
