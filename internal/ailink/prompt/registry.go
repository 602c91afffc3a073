package prompt

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

// ErrNotFound is returned for slugs that are not registered.
var ErrNotFound = errors.New("prompt not found")

// Registry looks prompts up by slug.
type Registry interface {
	Get(slug string) (*Prompt, error)
	List() []*Prompt
}

// InMemoryRegistry holds prompts keyed by slug.
type InMemoryRegistry struct {
	bySlug map[string]*Prompt
}

// NewRegistry builds a registry. Duplicate or missing slugs are errors.
func NewRegistry(prompts []*Prompt) (*InMemoryRegistry, error) {
	reg := &InMemoryRegistry{bySlug: make(map[string]*Prompt, len(prompts))}
	for _, p := range prompts {
		if err := reg.put(p, false); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Override replaces prompts whose slug is already registered and adds the rest.
func (r *InMemoryRegistry) Override(prompts []*Prompt) error {
	for _, p := range prompts {
		if err := r.put(p, true); err != nil {
			return err
		}
	}
	return nil
}

func (r *InMemoryRegistry) put(p *Prompt, replace bool) error {
	if p == nil {
		return nil
	}
	slug := strings.TrimSpace(p.Config.Slug)
	if slug == "" {
		return fmt.Errorf("prompt %s: missing slug", p.Source)
	}
	if _, exists := r.bySlug[slug]; exists && !replace {
		return fmt.Errorf("prompt %s: duplicate slug %q", p.Source, slug)
	}
	r.bySlug[slug] = p
	return nil
}

// Get returns the prompt registered under slug.
func (r *InMemoryRegistry) Get(slug string) (*Prompt, error) {
	if r == nil {
		return nil, errors.New("prompt registry not configured")
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, errors.New("prompt slug is required")
	}
	p, ok := r.bySlug[slug]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, slug)
	}
	return p, nil
}

// List returns every prompt ordered by slug.
func (r *InMemoryRegistry) List() []*Prompt {
	if r == nil {
		return nil
	}
	out := make([]*Prompt, 0, len(r.bySlug))
	for _, slug := range slices.Sorted(maps.Keys(r.bySlug)) {
		out = append(out, r.bySlug[slug])
	}
	return out
}

// Require checks that every slug resolves, so a misconfigured scoring prompt
// fails at startup rather than on the first request.
func Require(reg Registry, slugs ...string) error {
	var errs []error
	for _, slug := range slugs {
		if _, err := reg.Get(slug); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
