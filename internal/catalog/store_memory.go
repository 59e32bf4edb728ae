package catalog

import (
	"context"
	"sync"
)

// MemBackend keeps the encoded snapshot in process memory. Nothing survives
// a restart; it backs the "memory" driver and tests.
type MemBackend struct {
	mu   sync.RWMutex
	data []byte
	ok   bool
}

func NewMemBackend() *MemBackend {
	return &MemBackend{}
}

// NewMemBackendWith seeds the backend with products, as if a previous store
// had saved them.
func NewMemBackendWith(products ...Product) (*MemBackend, error) {
	data, err := EncodeLines(products)
	if err != nil {
		return nil, err
	}
	return &MemBackend{data: data, ok: true}, nil
}

func (b *MemBackend) Target() string { return "memory" }

func (b *MemBackend) Ping(ctx context.Context) error { return nil }

func (b *MemBackend) Load(ctx context.Context) ([]Product, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.ok {
		return nil, ErrNoSnapshot
	}
	return DecodeLines(b.data)
}

func (b *MemBackend) Save(ctx context.Context, products []Product) error {
	data, err := EncodeLines(products)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.data, b.ok = data, true
	return nil
}
