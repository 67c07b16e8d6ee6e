package odm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// BadgerBackend stores collections in an embedded badger database.
type BadgerBackend struct {
	db          *badger.DB
	name        string
	mu          sync.Mutex
	collections map[string]*BadgerCollection
}

// OpenBadger opens (or creates) a badger database at path. An empty path
// opens an in-memory database.
func OpenBadger(path, name string) (*BadgerBackend, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &BadgerBackend{db: db, name: name, collections: map[string]*BadgerCollection{}}, nil
}

func (b *BadgerBackend) DatabaseName() string { return b.name }

func (b *BadgerBackend) Collection(name string) Collection {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.collections[name]
	if !ok {
		c = &BadgerCollection{db: b.db, name: name}
		b.collections[name] = c
	}
	return c
}

func (b *BadgerBackend) Close(context.Context) error { return b.db.Close() }

// BadgerCollection keeps one document per key as canonical extended JSON.
// Unique violations carry only the server-style message.
type BadgerCollection struct {
	db     *badger.DB
	name   string
	mu     sync.Mutex
	unique []string
}

func (c *BadgerCollection) Name() string { return c.name }

func (c *BadgerCollection) prefix() []byte { return []byte(c.name + "/doc/") }

func (c *BadgerCollection) docKey(id any) ([]byte, error) {
	oid, ok := id.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("document %s must be an ObjectID, got %T", IDPath, id)
	}
	return append(c.prefix(), oid.Hex()...), nil
}

func encodeDocument(doc Document) ([]byte, error) {
	return bson.MarshalExtJSON(doc, true, false)
}

func decodeDocument(data []byte) (Document, error) {
	var m bson.M
	if err := bson.UnmarshalExtJSON(data, true, &m); err != nil {
		return nil, err
	}
	return NormalizeDocument(m), nil
}

// scan decodes every document of the collection inside txn.
func (c *BadgerCollection) scan(txn *badger.Txn, fn func(key []byte, doc Document) (bool, error)) error {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()
	prefix := c.prefix()
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		var doc Document
		err := item.Value(func(val []byte) error {
			var err error
			doc, err = decodeDocument(val)
			return err
		})
		if err != nil {
			return fmt.Errorf("decode %s: %w", item.Key(), err)
		}
		more, err := fn(item.KeyCopy(nil), doc)
		if err != nil || !more {
			return err
		}
	}
	return nil
}

func (c *BadgerCollection) all(txn *badger.Txn) ([]Document, error) {
	var docs []Document
	err := c.scan(txn, func(_ []byte, doc Document) (bool, error) {
		docs = append(docs, doc)
		return true, nil
	})
	return docs, err
}

func (c *BadgerCollection) InsertOne(_ context.Context, doc Document) error {
	key, err := c.docKey(doc[IDPath])
	if err != nil {
		return err
	}
	data, err := encodeDocument(doc)
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Update(func(txn *badger.Txn) error {
		docs, err := c.all(txn)
		if err != nil {
			return err
		}
		if path, v, dup := uniqueConflict(doc, docs, c.unique); dup {
			return &DuplicateKeyError{Code: DuplicateKeyCode, Message: duplicateMessage(c.name, path, v)}
		}
		if _, err := txn.Get(key); err == nil {
			return &DuplicateKeyError{Code: DuplicateKeyCode, Message: duplicateMessage(c.name, IDPath, doc[IDPath])}
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(key, data)
	})
}

// idKey returns the document key when filter is a plain identifier
// equality and nothing else.
func (c *BadgerCollection) idKey(filter Document) ([]byte, bool) {
	if len(filter) != 1 {
		return nil, false
	}
	oid, ok := filter[IDPath].(primitive.ObjectID)
	if !ok {
		return nil, false
	}
	return append(c.prefix(), oid.Hex()...), true
}

func (c *BadgerCollection) FindOne(_ context.Context, filter Document) (Document, error) {
	var found Document
	err := c.db.View(func(txn *badger.Txn) error {
		if key, ok := c.idKey(filter); ok {
			item, err := txn.Get(key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			return item.Value(func(val []byte) error {
				var err error
				found, err = decodeDocument(val)
				return err
			})
		}
		return c.scan(txn, func(_ []byte, doc Document) (bool, error) {
			if Match(doc, filter) {
				found = doc
				return false, nil
			}
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, ErrNotFound
	}
	return found, nil
}

func (c *BadgerCollection) Find(_ context.Context, filter Document, opts FindOptions) ([]Document, error) {
	var out []Document
	err := c.db.View(func(txn *badger.Txn) error {
		return c.scan(txn, func(_ []byte, doc Document) (bool, error) {
			if Match(doc, filter) {
				out = append(out, doc)
			}
			return true, nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortDocuments(out, opts.Sort)
	out = page(out, opts.Skip, opts.Limit)
	for i := range out {
		out[i] = project(out[i], opts.Projection)
	}
	return out, nil
}

func (c *BadgerCollection) CountDocuments(_ context.Context, filter Document) (int64, error) {
	var n int64
	err := c.db.View(func(txn *badger.Txn) error {
		return c.scan(txn, func(_ []byte, doc Document) (bool, error) {
			if Match(doc, filter) {
				n++
			}
			return true, nil
		})
	})
	return n, err
}

func (c *BadgerCollection) UpdateOne(_ context.Context, filter Document, set Document) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	matched := false
	err := c.db.Update(func(txn *badger.Txn) error {
		docs, err := c.all(txn)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if !Match(doc, filter) {
				continue
			}
			matched = true
			applySet(doc, cloneDocument(set))
			if path, v, dup := uniqueConflict(doc, docs, c.unique); dup {
				return &DuplicateKeyError{Code: DuplicateKeyCode, Message: duplicateMessage(c.name, path, v)}
			}
			key, err := c.docKey(doc[IDPath])
			if err != nil {
				return err
			}
			data, err := encodeDocument(doc)
			if err != nil {
				return fmt.Errorf("failed to serialize document: %w", err)
			}
			return txn.Set(key, data)
		}
		return nil
	})
	return matched, err
}

func (c *BadgerCollection) DeleteOne(_ context.Context, filter Document) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	err := c.db.Update(func(txn *badger.Txn) error {
		var key []byte
		err := c.scan(txn, func(k []byte, doc Document) (bool, error) {
			if Match(doc, filter) {
				key = k
				return false, nil
			}
			return true, nil
		})
		if err != nil || key == nil {
			return err
		}
		n = 1
		return txn.Delete(key)
	})
	return n, err
}

func (c *BadgerCollection) EnsureUnique(_ context.Context, paths []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.unique = append([]string{}, paths...)
	return nil
}
