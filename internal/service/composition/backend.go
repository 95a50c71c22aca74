package composition

import (
	"context"
	"sync"

	"mapworkbench/internal/model"
)

// Backend is the local-storage style store: the whole saved list under one
// key and the active id under another, last write wins
type Backend interface {
	LoadCompositions(ctx context.Context) ([]*model.Composition, error)
	SaveCompositions(ctx context.Context, list []*model.Composition) error
	LoadActiveID(ctx context.Context) (string, error)
	SaveActiveID(ctx context.Context, id string) error
}

// Archive is an optional durable copy that the archive worker flushes to
type Archive interface {
	LoadAll(ctx context.Context) ([]*model.Composition, error)
	Save(ctx context.Context, list []*model.Composition) error
	Delete(ctx context.Context, ids []string) error
}

// FileRemover deletes an uploaded file by its bare filename
type FileRemover interface {
	Delete(filename string) error
}

// MemoryBackend keeps the serialised list in process memory. It goes
// through the same JSON form as the persistent backends.
type MemoryBackend struct {
	mu       sync.Mutex
	list     []byte
	activeID string
}

// NewMemoryBackend returns an empty backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (m *MemoryBackend) LoadCompositions(context.Context) ([]*model.Composition, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.list == nil {
		return nil, nil
	}
	return model.UnmarshalCompositions(m.list)
}

func (m *MemoryBackend) SaveCompositions(_ context.Context, list []*model.Composition) error {
	data, err := model.MarshalCompositions(list)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.list = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryBackend) LoadActiveID(context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeID, nil
}

func (m *MemoryBackend) SaveActiveID(_ context.Context, id string) error {
	m.mu.Lock()
	m.activeID = id
	m.mu.Unlock()
	return nil
}
