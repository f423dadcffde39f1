package sessions

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/jrsteele09/smartcane-client/identity"
	"github.com/jrsteele09/smartcane-client/internal/errors"
	"github.com/jrsteele09/smartcane-client/sessions/storage"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Snapshot is an immutable copy of the session at one point in time.
type Snapshot struct {
	AccessToken  string
	RefreshToken string
	Identity     *identity.Identity
	State        State
	Generation   uint64 // Bumped on every token mutation
}

// HasToken reports whether an access token is held.
func (s Snapshot) HasToken() bool { return s.AccessToken != "" }

// IdentityLoading is true while a token is held but no identity is cached yet.
func (s Snapshot) IdentityLoading() bool { return s.AccessToken != "" && s.Identity == nil }

// Store owns the session. It is safe for concurrent use; observers run
// outside the lock, in subscription order.
type Store struct {
	storage   storage.Storage
	writeLock sync.Mutex

	lock       sync.RWMutex
	access     string
	refresh    string
	identity   *identity.Identity
	state      State
	generation uint64

	observerLock sync.Mutex
	observers    []observer
	nextObserver int
}

type observer struct {
	id int
	fn func(Snapshot)
}

// New restores persisted tokens from st. A missing key reads as empty.
func New(ctx context.Context, st storage.Storage) (*Store, error) {
	s := &Store{storage: st}

	access, err := readKey(ctx, st, storage.AccessTokenKey)
	if err != nil {
		return nil, err
	}
	refresh, err := readKey(ctx, st, storage.RefreshTokenKey)
	if err != nil {
		return nil, err
	}
	s.access, s.refresh = access, refresh
	if access != "" {
		s.state = FetchingIdentity
	}
	return s, nil
}

func readKey(ctx context.Context, st storage.Storage, key string) (string, error) {
	v, err := st.Get(ctx, key)
	if stderrors.Is(err, storage.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrapf(err, "[sessions.New] read %s", key)
	}
	return v, nil
}

// SaveTokens overwrites both tokens in memory and in storage. An empty value
// removes the persisted key. A new access token drops the cached identity.
func (s *Store) SaveTokens(ctx context.Context, access, refresh string) error {
	_, _, err := s.save(ctx, nil, access, refresh)
	return err
}

// SaveTokensIf saves only when no token mutation happened since gen was read.
// It returns the new generation and whether the pair was applied.
func (s *Store) SaveTokensIf(ctx context.Context, gen uint64, access, refresh string) (uint64, bool, error) {
	return s.save(ctx, &gen, access, refresh)
}

// ClearIf clears the session unless it changed since gen was read.
func (s *Store) ClearIf(ctx context.Context, gen uint64) (bool, error) {
	_, ok, err := s.SaveTokensIf(ctx, gen, "", "")
	return ok, err
}

// save applies the pair in memory first, then in storage. writeLock keeps
// storage writes in the same order as the in-memory mutations.
func (s *Store) save(ctx context.Context, gen *uint64, access, refresh string) (uint64, bool, error) {
	s.writeLock.Lock()

	s.lock.Lock()
	if gen != nil && *gen != s.generation {
		s.lock.Unlock()
		s.writeLock.Unlock()
		return 0, false, nil
	}
	if access != s.access || access == "" {
		s.identity = nil
	}
	s.access, s.refresh = access, refresh
	s.generation++
	switch {
	case access == "":
		s.state = Unauthenticated
	case s.identity == nil:
		s.state = FetchingIdentity
	}
	snap := s.snapshotLocked()
	s.lock.Unlock()

	err := stderrors.Join(
		persist(ctx, s.storage, storage.AccessTokenKey, access),
		persist(ctx, s.storage, storage.RefreshTokenKey, refresh),
	)
	s.writeLock.Unlock()
	if err != nil {
		log.Err(err).Msg("failed to persist session tokens")
	}

	s.notify(snap)
	return snap.Generation, true, err
}

func persist(ctx context.Context, st storage.Storage, key, value string) error {
	if value == "" {
		return st.Remove(ctx, key)
	}
	return st.Set(ctx, key, value)
}

// Clear empties tokens and identity. Memory is cleared before storage so no
// stale value is observable even when storage fails.
func (s *Store) Clear(ctx context.Context) error {
	return s.SaveTokens(ctx, "", "")
}

func (s *Store) Snapshot() Snapshot {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		AccessToken:  s.access,
		RefreshToken: s.refresh,
		Identity:     s.identity,
		State:        s.state,
		Generation:   s.generation,
	}
}

func (s *Store) Generation() uint64 {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.generation
}

// SetIdentityIf caches id only when no token mutation happened since gen was
// read and a token is still held. It reports whether id was applied.
func (s *Store) SetIdentityIf(gen uint64, id *identity.Identity) bool {
	s.lock.Lock()
	if gen != s.generation || s.access == "" {
		s.lock.Unlock()
		log.Debug().Uint64("generation", gen).Msg("dropping stale identity")
		return false
	}
	s.identity = id
	s.state = Authenticated
	snap := s.snapshotLocked()
	s.lock.Unlock()

	s.notify(snap)
	return true
}

// SetState moves the flow state under the same generation guard.
func (s *Store) SetState(gen uint64, state State) bool {
	s.lock.Lock()
	if gen != s.generation {
		s.lock.Unlock()
		return false
	}
	if s.state == state {
		s.lock.Unlock()
		return true
	}
	s.state = state
	snap := s.snapshotLocked()
	s.lock.Unlock()

	s.notify(snap)
	return true
}

// Subscribe registers fn to run after every mutation. The returned func
// removes it.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.observerLock.Lock()
	defer s.observerLock.Unlock()

	s.nextObserver++
	id := s.nextObserver
	s.observers = append(s.observers, observer{id: id, fn: fn})

	return func() {
		s.observerLock.Lock()
		defer s.observerLock.Unlock()
		for i, o := range s.observers {
			if o.id == id {
				s.observers = append(s.observers[:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

func (s *Store) notify(snap Snapshot) {
	s.observerLock.Lock()
	fns := make([]func(Snapshot), len(s.observers))
	for i, o := range s.observers {
		fns[i] = o.fn
	}
	s.observerLock.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// Token returns the current pair as an oauth2 token, nil without an access token.
func (s *Store) Token() *oauth2.Token {
	snap := s.Snapshot()
	if !snap.HasToken() {
		return nil
	}
	return &oauth2.Token{
		AccessToken:  snap.AccessToken,
		RefreshToken: snap.RefreshToken,
		TokenType:    "Bearer",
	}
}

// TokenSource reads the store on every call, so it always reflects the
// latest saved pair.
func (s *Store) TokenSource() oauth2.TokenSource {
	return storeTokenSource{store: s}
}

type storeTokenSource struct {
	store *Store
}

func (ts storeTokenSource) Token() (*oauth2.Token, error) {
	if tok := ts.store.Token(); tok != nil {
		return tok, nil
	}
	return nil, errors.ErrNotAuthenticated
}

// AccessToken returns the current access token or errors.ErrNotAuthenticated.
func (s *Store) AccessToken() (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.access == "" {
		return "", errors.ErrNotAuthenticated
	}
	return s.access, nil
}
