package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"snapfeed/internal/observability"
	"snapfeed/internal/store"
)

// DefaultVersion is the snapshot version written by this build.
const DefaultVersion = 1

// Snapshot is the persisted envelope. Only the session slice is whitelisted.
type Snapshot struct {
	Version int                `json:"version"`
	User    store.SessionState `json:"user"`
}

// Option configures a Persistor.
type Option func(*Persistor)

// WithKey sets the root key; the storage key becomes "persist:<root>".
func WithKey(root string) Option {
	return func(p *Persistor) { p.key = "persist:" + root }
}

// WithVersion sets the snapshot version written and accepted.
func WithVersion(v int) Option {
	return func(p *Persistor) { p.version = v }
}

// WithDriverName labels metrics with the storage backend name.
func WithDriverName(name string) Option {
	return func(p *Persistor) { p.driver = name }
}

// Credentials is the ambient backend credential that must outlive the
// process for a restored session to stay valid.
type Credentials interface {
	Cookies() []*http.Cookie
	SetCookies([]*http.Cookie)
}

// WithCredentials saves creds under "<key>:cookies" alongside the session
// and loads them back on Rehydrate.
func WithCredentials(creds Credentials) Option {
	return func(p *Persistor) { p.creds = creds }
}

type savedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Persistor mirrors the session slice of a Store into Storage.
type Persistor struct {
	storage Storage
	store   *store.Store
	key     string
	version int
	driver  string
	creds   Credentials
	logger  *observability.StoreLogger

	mu          sync.Mutex
	last        []byte
	lastCookies []byte

	runMu       sync.Mutex
	dirty       chan struct{}
	done        chan struct{}
	cancel      context.CancelFunc
	unsubscribe func()
}

// New builds a Persistor for st backed by storage.
func New(storage Storage, st *store.Store, opts ...Option) *Persistor {
	p := &Persistor{
		storage: storage,
		store:   st,
		key:     "persist:root",
		version: DefaultVersion,
		driver:  "unknown",
		logger:  observability.NewStoreLogger("persist"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Key returns the storage key snapshots are written under.
func (p *Persistor) Key() string { return p.key }

// CookieKey returns the storage key credentials are written under.
func (p *Persistor) CookieKey() string { return p.key + ":cookies" }

// Rehydrate loads the persisted session and dispatches it into the store.
// A missing, unreadable, undecodable or version-mismatched snapshot leaves
// the store anonymous; the reason is logged and false is returned.
func (p *Persistor) Rehydrate(ctx context.Context) bool {
	raw, err := p.storage.Get(ctx, p.key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			p.logger.LogRehydrate(ctx, false, "no snapshot")
			return false
		}
		p.degrade(ctx, "read", err)
		p.logger.LogRehydrate(ctx, false, "read failed")
		return false
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		p.degrade(ctx, "decode", err)
		p.logger.LogRehydrate(ctx, false, "decode failed")
		return false
	}
	if snap.Version != p.version {
		p.logger.LogRehydrate(ctx, false, fmt.Sprintf("version %d does not match %d", snap.Version, p.version))
		return false
	}

	// Nothing can still be in flight in a fresh process.
	snap.User.Loading = false

	p.mu.Lock()
	p.last = raw
	p.mu.Unlock()
	p.restoreCookies(ctx)

	p.store.Dispatch(store.Rehydrate{Session: snap.User})
	p.logger.LogRehydrate(ctx, true, "restored")
	return true
}

// Flush writes the current session slice, and the credentials when
// configured, if they differ from the last write.
func (p *Persistor) Flush(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	session := p.store.GetState().User
	if err := p.flushCookies(ctx, session.CurrentUser != nil); err != nil {
		return err
	}
	raw, err := json.Marshal(Snapshot{Version: p.version, User: session})
	if err != nil {
		p.degrade(ctx, "encode", err)
		return err
	}
	if bytes.Equal(raw, p.last) {
		return nil
	}
	if err := p.storage.Set(ctx, p.key, raw); err != nil {
		p.degrade(ctx, "write", err)
		return err
	}
	p.last = raw
	observability.PersistenceWrites.Inc()
	return nil
}

func (p *Persistor) restoreCookies(ctx context.Context) {
	if p.creds == nil {
		return
	}
	raw, err := p.storage.Get(ctx, p.CookieKey())
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			p.degrade(ctx, "read", err)
		}
		return
	}
	var saved []savedCookie
	if err := json.Unmarshal(raw, &saved); err != nil {
		p.degrade(ctx, "decode", err)
		return
	}
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, sc := range saved {
		cookies = append(cookies, &http.Cookie{Name: sc.Name, Value: sc.Value})
	}
	p.creds.SetCookies(cookies)
	p.mu.Lock()
	p.lastCookies = raw
	p.mu.Unlock()
}

// flushCookies writes the credential jar. A signed-out session keeps no
// credential. Callers hold p.mu.
func (p *Persistor) flushCookies(ctx context.Context, signedIn bool) error {
	if p.creds == nil {
		return nil
	}
	saved := []savedCookie{}
	if signedIn {
		for _, ck := range p.creds.Cookies() {
			saved = append(saved, savedCookie{Name: ck.Name, Value: ck.Value})
		}
	}
	raw, err := json.Marshal(saved)
	if err != nil {
		p.degrade(ctx, "encode", err)
		return err
	}
	if bytes.Equal(raw, p.lastCookies) {
		return nil
	}
	if err := p.storage.Set(ctx, p.CookieKey(), raw); err != nil {
		p.degrade(ctx, "write", err)
		return err
	}
	p.lastCookies = raw
	return nil
}

// Start subscribes to the store and writes snapshots in the background until
// Stop is called or ctx is cancelled.
func (p *Persistor) Start(ctx context.Context) {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.dirty = make(chan struct{}, 1)
	p.done = make(chan struct{})

	dirty := p.dirty
	p.unsubscribe = p.store.Subscribe(func(store.Change) {
		select {
		case dirty <- struct{}{}:
		default:
		}
	})

	go p.run(ctx, dirty, p.done)
}

func (p *Persistor) run(ctx context.Context, dirty <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-dirty:
			_ = p.Flush(ctx)
		}
	}
}

// Stop unsubscribes, waits for the writer and performs a final flush.
func (p *Persistor) Stop(ctx context.Context) error {
	p.runMu.Lock()
	if p.done == nil {
		p.runMu.Unlock()
		return p.Flush(ctx)
	}
	p.unsubscribe()
	p.cancel()
	done := p.done
	p.done = nil
	p.runMu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return p.Flush(ctx)
}

func (p *Persistor) degrade(ctx context.Context, op string, err error) {
	observability.PersistenceErrors.WithLabelValues(p.driver, op).Inc()
	p.logger.LogPersistError(ctx, op, err)
}
