package room

import (
	"sync"
	"testing"
)

func TestKeyedLock_SerializesSameKey(t *testing.T) {
	var kl keyedLock
	var counter int
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := kl.lock("room1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	if counter != 50 {
		t.Fatalf("expected 50, got %d (race under same key lock)", counter)
	}
}

func TestKeyedLock_DifferentKeysDoNotBlockEachOther(t *testing.T) {
	var kl keyedLock
	unlockA := kl.lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := kl.lock("b")
		defer unlockB()
		close(done)
	}()

	<-done
}
