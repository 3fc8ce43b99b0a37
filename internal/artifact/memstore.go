package artifact

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-memory Store for tests and dry runs. Payloads are held
// in memory; Path is a synthetic mem:// location.
type MemStore struct {
	mu       sync.Mutex
	entries  map[string]*Artifact
	payloads map[string][]byte
	builds   []*BuildRecord
	now      func() time.Time
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		entries:  make(map[string]*Artifact),
		payloads: make(map[string][]byte),
		now:      time.Now,
	}
}

func (s *MemStore) Get(name string) (*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.entries[name]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *MemStore) Put(name string, data []byte, format, fingerprint string) (*Artifact, error) {
	if name == "" {
		return nil, errors.New("artifact: name is empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	a := &Artifact{
		Name:        name,
		Path:        "mem://" + name + "." + format,
		Format:      format,
		Fingerprint: fingerprint,
		ProducedAt:  s.now().UTC(),
	}
	s.entries[name] = a
	s.payloads[name] = append([]byte(nil), data...)
	cp := *a
	return &cp, nil
}

func (s *MemStore) IsStale(name, fingerprint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.entries[name]
	return !ok || a.Fingerprint != fingerprint
}

func (s *MemStore) List() ([]*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Artifact, 0, len(s.entries))
	for _, a := range s.entries {
		cp := *a
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemStore) Clean() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*Artifact)
	s.payloads = make(map[string][]byte)
	return nil
}

func (s *MemStore) SaveBuild(b *BuildRecord) error {
	if b == nil {
		return errors.New("artifact: build record is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.builds = append(s.builds, &cp)
	return nil
}

func (s *MemStore) ListBuilds(limit int) ([]*BuildRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*BuildRecord, 0, len(s.builds))
	for i := len(s.builds) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		cp := *s.builds[i]
		out = append(out, &cp)
	}
	return out, nil
}

// Payload returns the stored bytes for name. Test helper.
func (s *MemStore) Payload(name string) []byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]byte(nil), s.payloads[name]...)
}
