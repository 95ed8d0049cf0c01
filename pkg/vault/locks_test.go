package vault

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPathLockerSerializesSamePath(t *testing.T) {
	locker := NewPathLocker()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			locker.Lock("a.txt")
			counter++
			locker.Unlock("a.txt")
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestPathLockerIndependentPaths(t *testing.T) {
	locker := NewPathLocker()

	locker.Lock("a.txt")

	// A different path must not block behind a.txt.
	done := make(chan struct{})
	go func() {
		locker.Lock("b.txt")
		locker.Unlock("b.txt")
		close(done)
	}()
	<-done

	locker.Unlock("a.txt")
}

func TestPathLockerPairOrdering(t *testing.T) {
	locker := NewPathLocker()

	// Opposite-order pairs must not deadlock.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			locker.LockPair("a.txt", "b.txt")
			locker.UnlockPair("a.txt", "b.txt")
		}()
		go func() {
			defer wg.Done()
			locker.LockPair("b.txt", "a.txt")
			locker.UnlockPair("b.txt", "a.txt")
		}()
	}
	wg.Wait()
}

func TestPathLockerUnlockUnlockedPanics(t *testing.T) {
	locker := NewPathLocker()
	assert.Panics(t, func() { locker.Unlock("never-locked.txt") })
}
