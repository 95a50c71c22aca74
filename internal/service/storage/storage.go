package storage

import "time"

// Storage defines interface for any object storage
type Storage[K comparable, V any] interface {
	Set(key K, value V)
	Get(key K) (V, bool)
	Delete(key K) bool
	Touch(key K, at time.Time) (V, bool)
	DeleteIdle(cutoff time.Time) []K
	GetAll() map[K]V
	GetAllValues() []V
	GetDirty() []V
	DirtyKeys() []K
	ClearDirty(keys []K)
	ForEach(fn func(key K, value V) bool)
	Count() int
}

var _ Storage[string, int] = (*MemoryStorage[string, int])(nil)
