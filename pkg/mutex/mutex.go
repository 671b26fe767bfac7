package mutex

import "sync"

// KeyedMutex serializes operations on a per-key basis. The staging layer
// uses it to keep one operator's buffer mutations sequential without
// blocking unrelated deliveries.
type KeyedMutex struct {
	muMap sync.Map
}

func (km *KeyedMutex) Lock(key string) {
	mu, _ := km.muMap.LoadOrStore(key, &sync.Mutex{})
	mu.(*sync.Mutex).Lock()
}

func (km *KeyedMutex) Unlock(key string) {
	mu, ok := km.muMap.Load(key)
	if ok {
		mu.(*sync.Mutex).Unlock()
	}
}
