package scenario

import (
	"fmt"
	"sync"
)

// Values is a key/value store scoped to one scenario. Step code uses it to
// hand data from one step to a later one without any process-wide state.
type Values struct {
	mu   sync.RWMutex
	data map[string]any
}

func newValues() *Values {
	return &Values{data: make(map[string]any)}
}

// Put stores value under key, replacing any previous value.
func (v *Values) Put(key string, value any) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data[key] = value
}

// Get returns the value stored under key.
func (v *Values) Get(key string) (any, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	value, ok := v.data[key]
	return value, ok
}

// GetString returns the value under key formatted as a string.
func (v *Values) GetString(key string) (string, bool) {
	value, ok := v.Get(key)
	if !ok {
		return "", false
	}
	if s, isString := value.(string); isString {
		return s, true
	}
	return fmt.Sprint(value), true
}

// Snapshot returns a copy of every stored value.
func (v *Values) Snapshot() map[string]any {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make(map[string]any, len(v.data))
	for k, value := range v.data {
		out[k] = value
	}
	return out
}

// Len returns the number of stored values.
func (v *Values) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.data)
}

// Clear removes every stored value.
func (v *Values) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.data = make(map[string]any)
}
