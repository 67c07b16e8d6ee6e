package odm

import (
	"context"
	"sync"
)

// MemoryBackend keeps collections in process memory.
type MemoryBackend struct {
	name        string
	mu          sync.Mutex
	collections map[string]*MemoryCollection
}

func NewMemoryBackend(name string) *MemoryBackend {
	return &MemoryBackend{name: name, collections: map[string]*MemoryCollection{}}
}

func (b *MemoryBackend) DatabaseName() string { return b.name }

func (b *MemoryBackend) Collection(name string) Collection {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.collections[name]
	if !ok {
		c = &MemoryCollection{name: name}
		b.collections[name] = c
	}
	return c
}

func (b *MemoryBackend) Close(context.Context) error { return nil }

// MemoryCollection reports unique violations with a structured KeyValue.
type MemoryCollection struct {
	name   string
	mu     sync.RWMutex
	docs   []Document
	unique []string
}

func (c *MemoryCollection) Name() string { return c.name }

func (c *MemoryCollection) InsertOne(_ context.Context, doc Document) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc = cloneDocument(doc)
	if path, v, dup := uniqueConflict(doc, c.docs, c.unique); dup {
		return &DuplicateKeyError{Code: DuplicateKeyCode, KeyValue: map[string]any{path: v}, Message: duplicateMessage(c.name, path, v)}
	}
	c.docs = append(c.docs, doc)
	return nil
}

func (c *MemoryCollection) FindOne(_ context.Context, filter Document) (Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.docs {
		if Match(d, filter) {
			return cloneDocument(d), nil
		}
	}
	return nil, ErrNotFound
}

func (c *MemoryCollection) Find(_ context.Context, filter Document, opts FindOptions) ([]Document, error) {
	c.mu.RLock()
	var out []Document
	for _, d := range c.docs {
		if Match(d, filter) {
			out = append(out, cloneDocument(d))
		}
	}
	c.mu.RUnlock()
	sortDocuments(out, opts.Sort)
	out = page(out, opts.Skip, opts.Limit)
	for i := range out {
		out[i] = project(out[i], opts.Projection)
	}
	return out, nil
}

func (c *MemoryCollection) CountDocuments(_ context.Context, filter Document) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var n int64
	for _, d := range c.docs {
		if Match(d, filter) {
			n++
		}
	}
	return n, nil
}

func (c *MemoryCollection) UpdateOne(_ context.Context, filter Document, set Document) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, d := range c.docs {
		if !Match(d, filter) {
			continue
		}
		updated := cloneDocument(d)
		applySet(updated, cloneDocument(set))
		if path, v, dup := uniqueConflict(updated, c.docs, c.unique); dup {
			return true, &DuplicateKeyError{Code: DuplicateKeyCode, KeyValue: map[string]any{path: v}, Message: duplicateMessage(c.name, path, v)}
		}
		c.docs[i] = updated
		return true, nil
	}
	return false, nil
}

func (c *MemoryCollection) DeleteOne(_ context.Context, filter Document) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, d := range c.docs {
		if Match(d, filter) {
			c.docs = append(c.docs[:i], c.docs[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (c *MemoryCollection) EnsureUnique(_ context.Context, paths []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unique = append([]string{}, paths...)
	return nil
}
