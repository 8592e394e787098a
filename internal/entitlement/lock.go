package entitlement

import (
	"sync"
)

// KeyedLocker hands out one mutex per key. Entries are reference counted and
// dropped once nobody holds or waits for them.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	mu       sync.Mutex
	refCount int
}

func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*keyedLock)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (kl *KeyedLocker) Lock(key string) (unlock func()) {
	kl.mu.Lock()
	l, ok := kl.locks[key]
	if !ok {
		l = &keyedLock{}
		kl.locks[key] = l
	}
	l.refCount++
	kl.mu.Unlock()

	l.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Unlock()

			kl.mu.Lock()
			l.refCount--
			if l.refCount == 0 {
				delete(kl.locks, key)
			}
			kl.mu.Unlock()
		})
	}
}

// Len returns the number of keys currently held or awaited.
func (kl *KeyedLocker) Len() int {
	kl.mu.Lock()
	defer kl.mu.Unlock()
	return len(kl.locks)
}
