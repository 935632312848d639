package services

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OfferLocks serialises work on a single offer inside this process. Locks for
// different offers never contend. Entries are dropped once nobody holds or
// waits for them.
type OfferLocks struct {
	mu    sync.Mutex
	locks map[primitive.ObjectID]*offerLock
}

type offerLock struct {
	mu   sync.Mutex
	refs int
}

func NewOfferLocks() *OfferLocks {
	return &OfferLocks{locks: make(map[primitive.ObjectID]*offerLock)}
}

// Lock blocks until the offer is free and returns the matching unlock func.
func (l *OfferLocks) Lock(offerID primitive.ObjectID) func() {
	l.mu.Lock()
	lock, ok := l.locks[offerID]
	if !ok {
		lock = &offerLock{}
		l.locks[offerID] = lock
	}
	lock.refs++
	l.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		l.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(l.locks, offerID)
		}
		l.mu.Unlock()
	}
}

func (l *OfferLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
