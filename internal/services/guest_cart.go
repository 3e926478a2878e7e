// internal/services/guest_cart.go
package services

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Guest cart key layout
const guestCartKeyFormat = "guestcart:%s"

// GuestCartStore keeps anonymous carts keyed by an opaque client token.
// Quantities are raw client intent; clamping happens when lines are read
// back against live products or merged into a real cart.
type GuestCartStore interface {
	Get(ctx context.Context, token string) (map[string]int, error)
	IncrItem(ctx context.Context, token, productID string, delta int) (int, error)
	SetItem(ctx context.Context, token, productID string, quantity int) error
	RemoveItem(ctx context.Context, token, productID string) error
	Clear(ctx context.Context, token string) error
}

type redisGuestCartStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisGuestCartStore(rdb *redis.Client, ttl time.Duration) GuestCartStore {
	return &redisGuestCartStore{rdb: rdb, ttl: ttl}
}

func (s *redisGuestCartStore) key(token string) string {
	return fmt.Sprintf(guestCartKeyFormat, token)
}

func (s *redisGuestCartStore) Get(ctx context.Context, token string) (map[string]int, error) {
	raw, err := s.rdb.HGetAll(ctx, s.key(token)).Result()
	if err != nil {
		return nil, err
	}

	items := make(map[string]int, len(raw))
	for productID, qty := range raw {
		n, err := strconv.Atoi(qty)
		if err != nil || n <= 0 {
			continue
		}
		items[productID] = n
	}
	return items, nil
}

func (s *redisGuestCartStore) IncrItem(ctx context.Context, token, productID string, delta int) (int, error) {
	key := s.key(token)
	n, err := s.rdb.HIncrBy(ctx, key, productID, int64(delta)).Result()
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		s.rdb.HDel(ctx, key, productID)
		n = 0
	}
	s.rdb.Expire(ctx, key, s.ttl)
	return int(n), nil
}

func (s *redisGuestCartStore) SetItem(ctx context.Context, token, productID string, quantity int) error {
	key := s.key(token)
	if quantity <= 0 {
		return s.rdb.HDel(ctx, key, productID).Err()
	}
	if err := s.rdb.HSet(ctx, key, productID, quantity).Err(); err != nil {
		return err
	}
	return s.rdb.Expire(ctx, key, s.ttl).Err()
}

func (s *redisGuestCartStore) RemoveItem(ctx context.Context, token, productID string) error {
	return s.rdb.HDel(ctx, s.key(token), productID).Err()
}

func (s *redisGuestCartStore) Clear(ctx context.Context, token string) error {
	return s.rdb.Del(ctx, s.key(token)).Err()
}

// memoryGuestCartStore backs guest carts when redis is disabled, for
// development and tests. Entries never expire.
type memoryGuestCartStore struct {
	mu    sync.Mutex
	carts map[string]map[string]int
}

func NewMemoryGuestCartStore() GuestCartStore {
	return &memoryGuestCartStore{carts: make(map[string]map[string]int)}
}

func (s *memoryGuestCartStore) Get(ctx context.Context, token string) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make(map[string]int, len(s.carts[token]))
	for productID, qty := range s.carts[token] {
		items[productID] = qty
	}
	return items, nil
}

func (s *memoryGuestCartStore) IncrItem(ctx context.Context, token, productID string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.carts[token]
	if cart == nil {
		cart = make(map[string]int)
		s.carts[token] = cart
	}
	cart[productID] += delta
	if cart[productID] <= 0 {
		delete(cart, productID)
		return 0, nil
	}
	return cart[productID], nil
}

func (s *memoryGuestCartStore) SetItem(ctx context.Context, token, productID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.carts[token]
	if cart == nil {
		cart = make(map[string]int)
		s.carts[token] = cart
	}
	if quantity <= 0 {
		delete(cart, productID)
		return nil
	}
	cart[productID] = quantity
	return nil
}

func (s *memoryGuestCartStore) RemoveItem(ctx context.Context, token, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts[token], productID)
	return nil
}

func (s *memoryGuestCartStore) Clear(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, token)
	return nil
}
