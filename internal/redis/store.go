package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mapworkbench/internal/model"

	"github.com/redis/go-redis/v9"
)

const opTimeout = 5 * time.Second

// Store keeps the saved composition list and the active id under two keys,
// the same layout a browser keeps in local storage. Every save rewrites the
// whole list.
type Store struct {
	client *redis.Client
	prefix string
}

// NewStore uses client; prefix namespaces the keys ("" for none)
func NewStore(client *redis.Client, prefix string) *Store {
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + ":" + name
}

// LoadCompositions reads the saved list; a missing key is an empty list
func (s *Store) LoadCompositions(ctx context.Context) ([]*model.Composition, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := s.client.Get(ctx, s.key(model.SavedCompositionsKey)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from Redis: %w", model.SavedCompositionsKey, err)
	}

	list, err := model.UnmarshalCompositions(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", model.SavedCompositionsKey, err)
	}
	return list, nil
}

// SaveCompositions overwrites the saved list
func (s *Store) SaveCompositions(ctx context.Context, list []*model.Composition) error {
	data, err := model.MarshalCompositions(list)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return s.client.Set(ctx, s.key(model.SavedCompositionsKey), data, 0).Err()
}

// LoadActiveID returns the active composition id or ""
func (s *Store) LoadActiveID(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	id, err := s.client.Get(ctx, s.key(model.ActiveCompositionKey)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return id, err
}

// SaveActiveID stores the active id; "" removes the key
func (s *Store) SaveActiveID(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if id == "" {
		return s.client.Del(ctx, s.key(model.ActiveCompositionKey)).Err()
	}
	return s.client.Set(ctx, s.key(model.ActiveCompositionKey), id, 0).Err()
}
