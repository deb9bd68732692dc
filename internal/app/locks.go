package service

import (
	"hash/fnv"
	"sync"
)

const lockStripes = 64

// keyLocks serializes work on the same key with a fixed set of mutexes.
type keyLocks struct {
	stripes [lockStripes]sync.Mutex
}

func (l *keyLocks) lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &l.stripes[h.Sum32()%lockStripes]
	m.Lock()
	return m.Unlock
}
