package engine

import (
	"reflect"
	"sync"
)

// TemplateCache caches compiled Templates keyed by the identity of the
// string array passed to a tagged-template call, not by its contents: the
// Go compiler does not guarantee literal identity stability the way a JS
// tagged-template call site does, so callers that want the fast path (a
// generated component, for instance) pass the same backing array on every
// call (e.g. a package-level var). An ad hoc call that passes a freshly
// allocated array misses this cache and compiles again; the cache itself
// has no content-based key. Any content-keyed sharing of compilations
// happens inside a Backend's ParseTemplate (backend/wsbackend's
// TemplateStore keys by a hash of the template source).
type TemplateCache struct {
	mu      sync.RWMutex
	byIdent map[uintptr]map[TemplateMode]*Template
}

// NewTemplateCache returns an empty cache. The cache lives for the
// lifetime of the Runtime that owns it.
func NewTemplateCache() *TemplateCache {
	return &TemplateCache{byIdent: make(map[uintptr]map[TemplateMode]*Template)}
}

// identityOf returns a stable integer identity for the backing array of a
// string slice. Two slices sharing the same backing array (e.g. the same
// package-level []string a compiler-generated call site reuses) return the
// same identity even if their lengths differ due to slicing.
func identityOf(strings []string) uintptr {
	if len(strings) == 0 {
		return 0
	}
	return reflect.ValueOf(strings).Pointer()
}

// Get returns the cached Template for strings/mode, and whether it was
// found.
func (c *TemplateCache) Get(strings []string, mode TemplateMode) (*Template, bool) {
	key := identityOf(strings)
	c.mu.RLock()
	defer c.mu.RUnlock()
	byMode, ok := c.byIdent[key]
	if !ok {
		return nil, false
	}
	t, ok := byMode[mode]
	return t, ok
}

// Put stores a compiled Template for strings/mode.
func (c *TemplateCache) Put(strings []string, mode TemplateMode, t *Template) {
	key := identityOf(strings)
	c.mu.Lock()
	defer c.mu.Unlock()
	byMode, ok := c.byIdent[key]
	if !ok {
		byMode = make(map[TemplateMode]*Template)
		c.byIdent[key] = byMode
	}
	byMode[mode] = t
}

// GetOrCompile returns the cached template for strings/mode, compiling and
// storing it via compile if absent.
func (c *TemplateCache) GetOrCompile(strings []string, values []any, mode TemplateMode, compile func() (*Template, error)) (*Template, error) {
	if t, ok := c.Get(strings, mode); ok {
		return t, nil
	}
	t, err := compile()
	if err != nil {
		return nil, err
	}
	c.Put(strings, mode, t)
	return t, nil
}
