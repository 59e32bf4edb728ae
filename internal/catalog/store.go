package catalog

import (
	"context"
	"encoding/hex"
	"errors"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// Backend holds the durable snapshot of a catalog. Save always receives the
// complete product list and replaces whatever was stored before.
type Backend interface {
	Load(ctx context.Context) ([]Product, error)
	Save(ctx context.Context, products []Product) error
	Ping(ctx context.Context) error
	Target() string
}

type IDFunc func() string

const maxIDAttempts = 8

// NewID returns a UUIDv7 (millisecond timestamp plus random bits) as 32 hex chars.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return hex.EncodeToString(id[:])
}

type LoadState int

const (
	LoadOK LoadState = iota
	LoadAbsent
	LoadCorrupt
	LoadFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadOK:
		return "ok"
	case LoadAbsent:
		return "absent"
	case LoadCorrupt:
		return "corrupt"
	case LoadFailed:
		return "failed"
	}
	return "unknown"
}

// LoadStatus describes how the initial load went. The store starts empty
// for every state except LoadOK.
type LoadStatus struct {
	State   LoadState
	Records int
	Err     error
}

type Option func(*Store)

func WithIDFunc(fn IDFunc) Option {
	return func(s *Store) { s.newID = fn }
}

// Store is the catalog: an ordered product list mirrored to a Backend after
// every mutation.
type Store struct {
	mu      sync.RWMutex
	backend Backend
	newID   IDFunc
	items   []Product
	ids     map[string]struct{}
	status  LoadStatus
}

// Open builds a store over backend and loads the existing snapshot. Load
// problems never fail Open; they are reported in the returned LoadStatus.
func Open(ctx context.Context, backend Backend, opts ...Option) (*Store, LoadStatus) {
	s := &Store{
		backend: backend,
		newID:   NewID,
		ids:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.status = s.load(ctx)
	return s, s.status
}

// OpenFile opens a store backed by the JSON lines file at path.
func OpenFile(ctx context.Context, path string, opts ...Option) (*Store, LoadStatus) {
	return Open(ctx, NewFileBackend(path), opts...)
}

func (s *Store) load(ctx context.Context) LoadStatus {
	products, err := s.backend.Load(ctx)
	if err != nil {
		var de *DecodeError
		switch {
		case errors.Is(err, ErrNoSnapshot):
			return LoadStatus{State: LoadAbsent}
		case errors.As(err, &de):
			return LoadStatus{State: LoadCorrupt, Err: err}
		default:
			return LoadStatus{State: LoadFailed, Err: err}
		}
	}

	s.items = products
	for _, p := range products {
		s.ids[p.ID] = struct{}{}
	}
	return LoadStatus{State: LoadOK, Records: len(products)}
}

func (s *Store) Status() LoadStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Store) Ping(ctx context.Context) error { return s.backend.Ping(ctx) }

func (s *Store) List() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, len(s.items))
	for i, p := range s.items {
		out[i] = p.clone()
	}
	return out
}

func (s *Store) Get(id string) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := s.indexByID(id)
	if i < 0 {
		return Product{}, &NotFoundError{ID: id}
	}
	return s.items[i].clone(), nil
}

// Add stores p under a freshly generated id. Any id already set on p is
// discarded.
func (s *Store) Add(ctx context.Context, p Product) (Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkPrice(p.Price); err != nil {
		return Product{}, err
	}
	if s.indexByCode(p.Code) >= 0 {
		return Product{}, &DuplicateCodeError{Code: p.Code}
	}

	p = p.clone()
	p.ID = s.nextID()
	s.items = append(s.items, p)

	if err := s.persist(ctx); err != nil {
		s.items = s.items[:len(s.items)-1]
		return Product{}, err
	}
	return p.clone(), nil
}

// Update merges fields into the product with the given id. The code is not
// re-checked for uniqueness.
func (s *Store) Update(ctx context.Context, id string, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexByID(id)
	if i < 0 {
		return &NotFoundError{ID: id}
	}

	prev := s.items[i]
	next, err := fields.apply(prev)
	if err != nil {
		return err
	}
	s.items[i] = next

	if err := s.persist(ctx); err != nil {
		s.items[i] = prev
		return err
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexByID(id)
	if i < 0 {
		return &NotFoundError{ID: id}
	}

	removed := s.items[i]
	s.items = slices.Delete(s.items, i, i+1)

	if err := s.persist(ctx); err != nil {
		s.items = slices.Insert(s.items, i, removed)
		return err
	}
	return nil
}

func (s *Store) persist(ctx context.Context) error {
	if err := s.backend.Save(ctx, s.items); err != nil {
		var pe *PersistenceError
		if errors.As(err, &pe) {
			return pe
		}
		return &PersistenceError{Op: "save", Target: s.backend.Target(), Err: err}
	}
	return nil
}

// nextID never hands out an id this store has seen, including ids of deleted
// products. A custom IDFunc that keeps colliding is replaced by NewID.
func (s *Store) nextID() string {
	gen := s.newID
	for attempt := 0; ; attempt++ {
		if attempt == maxIDAttempts {
			gen = NewID
		}
		id := gen()
		if _, taken := s.ids[id]; taken || id == "" {
			continue
		}
		s.ids[id] = struct{}{}
		return id
	}
}

func (s *Store) indexByID(id string) int {
	return slices.IndexFunc(s.items, func(p Product) bool { return p.ID == id })
}

func (s *Store) indexByCode(code string) int {
	return slices.IndexFunc(s.items, func(p Product) bool { return p.Code == code })
}
