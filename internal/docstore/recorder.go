package docstore

import (
	"context"
	"sync"
)

// Write is one mutating call observed by a Recorder.
type Write struct {
	Op         string // "set", "create" or "update"
	Collection string
	Key        string
	Doc        Document
}

// Recorder wraps a Store, records every write and can inject failures.
// It is a test double.
type Recorder struct {
	Store Store

	mu       sync.Mutex
	writes   []Write
	reads    int
	failGet  error
	failSave error
}

// NewRecorder wraps store, or a fresh MemoryStore when store is nil.
func NewRecorder(store Store) *Recorder {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Recorder{Store: store}
}

// FailReads makes Get and Ping return err until cleared with nil.
func (r *Recorder) FailReads(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failGet = err
}

// FailWrites makes every write return err until cleared with nil.
func (r *Recorder) FailWrites(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failSave = err
}

// Writes returns the successful writes in call order.
func (r *Recorder) Writes() []Write {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Write{}, r.writes...)
}

// Reads returns the number of Get calls.
func (r *Recorder) Reads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads
}

func (r *Recorder) Get(ctx context.Context, collection, key string) (Document, error) {
	r.mu.Lock()
	r.reads++
	fail := r.failGet
	r.mu.Unlock()

	if fail != nil {
		return nil, fail
	}
	return r.Store.Get(ctx, collection, key)
}

func (r *Recorder) Set(ctx context.Context, collection, key string, doc Document) error {
	return r.write(ctx, Write{Op: "set", Collection: collection, Key: key, Doc: doc}, r.Store.Set)
}

func (r *Recorder) Create(ctx context.Context, collection, key string, doc Document) error {
	return r.write(ctx, Write{Op: "create", Collection: collection, Key: key, Doc: doc}, r.Store.Create)
}

func (r *Recorder) Update(ctx context.Context, collection, key string, fields Document) error {
	return r.write(ctx, Write{Op: "update", Collection: collection, Key: key, Doc: fields}, r.Store.Update)
}

func (r *Recorder) Ping(ctx context.Context) error {
	r.mu.Lock()
	fail := r.failGet
	r.mu.Unlock()
	if fail != nil {
		return fail
	}
	return r.Store.Ping(ctx)
}

func (r *Recorder) write(ctx context.Context, w Write, fn func(context.Context, string, string, Document) error) error {
	r.mu.Lock()
	fail := r.failSave
	r.mu.Unlock()
	if fail != nil {
		return fail
	}

	if err := fn(ctx, w.Collection, w.Key, w.Doc); err != nil {
		return err
	}

	clone, err := w.Doc.Clone()
	if err != nil {
		return err
	}
	w.Doc = clone

	r.mu.Lock()
	r.writes = append(r.writes, w)
	r.mu.Unlock()
	return nil
}
