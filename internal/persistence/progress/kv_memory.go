package progress

import "sync"

// MemoryKV keeps progress in process memory. Used by tests and
// TYCOON_STORE_BACKEND=memory.
type MemoryKV struct {
	mu sync.Mutex
	m  map[string]string

	// FailWrites makes SetAll and Clear fail, to exercise best-effort paths.
	FailWrites error
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{m: map[string]string{}}
}

func (kv *MemoryKV) Get(key string) (string, bool, error) {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	v, ok := kv.m[key]
	return v, ok, nil
}

func (kv *MemoryKV) SetAll(pairs map[string]string) error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.FailWrites != nil {
		return kv.FailWrites
	}
	for k, v := range pairs {
		kv.m[k] = v
	}
	return nil
}

func (kv *MemoryKV) Clear() error {
	kv.mu.Lock()
	defer kv.mu.Unlock()
	if kv.FailWrites != nil {
		return kv.FailWrites
	}
	kv.m = map[string]string{}
	return nil
}

// Set writes a raw value, bypassing the codec.
func (kv *MemoryKV) Set(key, value string) {
	kv.mu.Lock()
	kv.m[key] = value
	kv.mu.Unlock()
}
