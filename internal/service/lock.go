package service

import (
	"hash/fnv"
	"sync"
)

// stripedLock serializes work per key with a fixed number of mutexes.
type stripedLock struct {
	stripes []sync.Mutex
}

func newStripedLock(n int) *stripedLock {
	if n <= 0 {
		n = 64
	}
	return &stripedLock{stripes: make([]sync.Mutex, n)}
}

func (s *stripedLock) get(key string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key))
	return &s.stripes[h.Sum32()%uint32(len(s.stripes))]
}

// lock locks key's stripe and returns the unlock func.
func (s *stripedLock) lock(key string) func() {
	m := s.get(key)
	m.Lock()
	return m.Unlock
}
