package analysis

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Registry holds the figure-name -> Spec mapping for one report. Specs are
// registered at configuration time and live for the process lifetime.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]*Spec
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]*Spec)}
}

// Register binds name to routine and inputs. Re-registering the identical
// spec is a no-op; a conflicting spec fails with DuplicateNameError.
func (r *Registry) Register(name string, routine Routine, inputs map[string]any) error {
	if name == "" {
		return fmt.Errorf("analysis: figure name is empty")
	}
	if routine == nil {
		return fmt.Errorf("analysis: routine for %q is nil", name)
	}
	fp, err := fingerprint(routine.Kind(), inputs)
	if err != nil {
		return fmt.Errorf("analysis: fingerprint inputs for %q: %w", name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.specs[name]; ok {
		existingFP, err := fingerprint(existing.Routine.Kind(), existing.Inputs)
		if err != nil {
			return fmt.Errorf("analysis: fingerprint existing %q: %w", name, err)
		}
		if existingFP != fp {
			return &DuplicateNameError{Name: name}
		}
		return nil
	}
	r.specs[name] = &Spec{Name: name, Routine: routine, Inputs: cloneInputs(inputs)}
	return nil
}

// Lookup returns the spec for name, or false.
func (r *Registry) Lookup(name string) (*Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[name]
	return s, ok
}

// Names returns all registered figure names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.specs))
	for n := range r.specs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// InputsFingerprint returns the deterministic hash over the routine kind and
// inputs for name. Stable across runs given unchanged inputs.
func (r *Registry) InputsFingerprint(name string) (string, error) {
	r.mu.RLock()
	s, ok := r.specs[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("analysis: figure %q not registered", name)
	}
	return fingerprint(s.Routine.Kind(), s.Inputs)
}

// fingerprint hashes the routine kind plus a canonical encoding of inputs.
// encoding/json marshals maps with sorted keys, which makes the encoding
// canonical for JSON-shaped parameter bags.
func fingerprint(kind string, inputs map[string]any) (string, error) {
	enc, err := json.Marshal(inputs)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write(enc)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func cloneInputs(inputs map[string]any) map[string]any {
	if inputs == nil {
		return nil
	}
	out := make(map[string]any, len(inputs))
	for k, v := range inputs {
		out[k] = v
	}
	return out
}
