package storage_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evomem-labs/evomem-go/pkg/storage"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	locks := storage.NewKeyedMutex()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock("u1")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, counter)
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	locks := storage.NewKeyedMutex()

	// Holding one key must not block another.
	unlockA := locks.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlockB := locks.Lock("b")
		unlockB()
		close(done)
	}()

	<-done
}

func TestKeyedMutexReentryAfterUnlock(t *testing.T) {
	locks := storage.NewKeyedMutex()

	unlock := locks.Lock("u1")
	unlock()

	unlock = locks.Lock("u1")
	unlock()
}
