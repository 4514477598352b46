package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/JLTC3111/Quyenhair/internal/domain"
)

// Store persists the whole review collection as one document. Save always
// replaces the previous document.
type Store interface {
	Load(ctx context.Context) ([]domain.Review, error)
	Save(ctx context.Context, reviews []domain.Review) error
}

// EncodeDocument serializes a collection into the stored JSON document.
func EncodeDocument(reviews []domain.Review) ([]byte, error) {
	if reviews == nil {
		reviews = []domain.Review{}
	}
	data, err := json.Marshal(reviews)
	if err != nil {
		return nil, fmt.Errorf("encode reviews: %w", err)
	}
	return data, nil
}

// DecodeDocument parses a stored document. An empty document is an empty
// collection.
func DecodeDocument(data []byte) ([]domain.Review, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var reviews []domain.Review
	if err := json.Unmarshal(data, &reviews); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}
	return reviews, nil
}

// MemoryStore keeps the encoded document in memory.
type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

// NewMemoryStore returns a store seeded with reviews, if any.
func NewMemoryStore(reviews ...domain.Review) *MemoryStore {
	s := &MemoryStore{}
	if len(reviews) > 0 {
		s.data, _ = EncodeDocument(reviews)
	}
	return s
}

func (s *MemoryStore) Load(ctx context.Context) ([]domain.Review, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return DecodeDocument(s.data)
}

func (s *MemoryStore) Save(ctx context.Context, reviews []domain.Review) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodeDocument(reviews)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}
