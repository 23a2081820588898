package cache

import "sync"

// Synchronized wraps c so every method call is serialized behind a mutex,
// for use when the runner evaluates several top-level queries concurrently
// against one shared cache. Cache implementations themselves assume a
// single caller at a time; this decorator is what makes sharing one safe
// across goroutines without pushing locking into every backend.
func Synchronized(c Cache) Cache {
	return &synchronized{inner: c}
}

type synchronized struct {
	mu    sync.Mutex
	inner Cache
}

func (s *synchronized) Get(key string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Get(key)
}

func (s *synchronized) Put(key string, count int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Put(key, count)
}

func (s *synchronized) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Contains(key)
}

func (s *synchronized) Update(other Cache) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Update(other)
}

func (s *synchronized) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Reset()
}

func (s *synchronized) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Sync()
}

func (s *synchronized) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Close()
}

func (s *synchronized) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Len()
}

func (s *synchronized) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Keys()
}
