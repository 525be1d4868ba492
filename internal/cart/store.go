package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/cats-den/internal/domain"
	"github.com/fjod/cats-den/internal/logger"
	"github.com/shopspring/decimal"
)

// persisted mirrors the storefront's persisted state envelope so a cart saved
// by the browser and one saved here decode the same way.
type persisted struct {
	State struct {
		Items []domain.CartItem `json:"items"`
	} `json:"state"`
	Version int `json:"version"`
}

// Store is a set of cart items keyed by kitten id. Every mutation is written
// through to its Storage before it becomes visible, and is applied to what is
// stored at that moment so concurrent Stores on one key do not lose items.
type Store struct {
	mu      sync.RWMutex
	items   []domain.CartItem
	storage Storage
	key     string
	now     func() time.Time
	log     *slog.Logger
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.log = l }
}

// Open rehydrates the cart persisted under key. A missing entry yields an
// empty cart; so does an entry that cannot be decoded.
func Open(ctx context.Context, storage Storage, key string, opts ...Option) (*Store, error) {
	s := &Store{
		storage: storage,
		key:     key,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.OrDefault(s.log)

	data, err := storage.Load(ctx, key)
	if errors.Is(err, ErrNotPersisted) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	s.items = s.decode(ctx, data)
	return s, nil
}

// Add inserts the kitten unless it is already in the cart. It reports whether
// the cart changed.
func (s *Store) Add(ctx context.Context, kitten domain.Kitten) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var added bool
	err := s.update(ctx, func(items []domain.CartItem) []domain.CartItem {
		added = indexOf(items, kitten.ID) < 0
		if !added {
			return items
		}
		return append(items, domain.CartItem{
			Kitten:  kitten,
			AddedAt: s.now().UTC(),
		})
	})
	if err != nil {
		return false, err
	}
	return added, nil
}

// Remove deletes the kitten from the cart. Removing an absent kitten is a no-op.
func (s *Store) Remove(ctx context.Context, kittenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(ctx, func(items []domain.CartItem) []domain.CartItem {
		i := indexOf(items, kittenID)
		if i < 0 {
			return items
		}
		return append(items[:i:i], items[i+1:]...)
	})
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.update(ctx, func([]domain.CartItem) []domain.CartItem { return nil })
}

// Total sums the prices of every item in the cart.
func (s *Store) Total() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum := decimal.Zero
	for _, item := range s.items {
		sum = sum.Add(decimal.NewFromFloat(item.Kitten.Price))
	}
	return sum.InexactFloat64()
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store) Contains(kittenID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return indexOf(s.items, kittenID) >= 0
}

// Items returns a copy of the cart contents in insertion order.
func (s *Store) Items() []domain.CartItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.CartItem{}, s.items...)
}

// update applies mutate to the items currently in storage, not to the local
// copy, so writes from other Stores on the same key are kept. The local copy
// only changes once the write succeeds.
func (s *Store) update(ctx context.Context, mutate func([]domain.CartItem) []domain.CartItem) error {
	var next []domain.CartItem
	err := s.storage.Update(ctx, s.key, func(current []byte) ([]byte, error) {
		next = mutate(s.decode(ctx, current))
		return encode(next)
	})
	if err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	s.items = next
	return nil
}

// decode reads a persisted envelope. Unreadable data yields an empty cart.
func (s *Store) decode(ctx context.Context, data []byte) []domain.CartItem {
	if data == nil {
		return nil
	}
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		s.log.WarnContext(ctx, "discarding unreadable cart", "key", s.key, "error", err)
		return nil
	}
	return dedupe(p.State.Items)
}

func encode(items []domain.CartItem) ([]byte, error) {
	var p persisted
	p.State.Items = items
	if p.State.Items == nil {
		p.State.Items = []domain.CartItem{}
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal cart failed: %w", err)
	}
	return data, nil
}

func indexOf(items []domain.CartItem, kittenID string) int {
	for i, item := range items {
		if item.Kitten.ID == kittenID {
			return i
		}
	}
	return -1
}

// dedupe keeps the first occurrence of each kitten from externally written data.
func dedupe(items []domain.CartItem) []domain.CartItem {
	seen := make(map[string]struct{}, len(items))
	out := make([]domain.CartItem, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.Kitten.ID]; ok {
			continue
		}
		seen[item.Kitten.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}
