package token

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dropDatabas3/hellogate/internal/identity"
	"github.com/dropDatabas3/hellogate/internal/store"
)

// fakeRepo implementación en memoria de store.RememberTokens para tests.
type fakeRepo struct {
	mu   sync.Mutex
	rows map[string]store.RememberToken

	failReplace error
	failTouch   error
	failGet     error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[string]store.RememberToken)}
}

func (f *fakeRepo) Replace(_ context.Context, t store.RememberToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReplace != nil {
		return f.failReplace
	}
	// delete + insert, como la tx real
	for tok, row := range f.rows {
		if row.ExternalID == t.ExternalID && row.Provider == t.Provider {
			delete(f.rows, tok)
		}
	}
	f.rows[t.Token] = t
	return nil
}

func (f *fakeRepo) Get(_ context.Context, token string) (store.RememberToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet != nil {
		return store.RememberToken{}, f.failGet
	}
	t, ok := f.rows[token]
	if !ok {
		return store.RememberToken{}, store.ErrNotFound
	}
	return t, nil
}

func (f *fakeRepo) Touch(_ context.Context, token string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failTouch != nil {
		return f.failTouch
	}
	t, ok := f.rows[token]
	if !ok {
		return store.ErrNotFound
	}
	t.LastUsedAt = at
	f.rows[token] = t
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, token string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[token]
	delete(f.rows, token)
	return ok, nil
}

func (f *fakeRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for tok, row := range f.rows {
		if row.ExpiresAt.Before(before) {
			delete(f.rows, tok)
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) countFor(id identity.Identity) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, row := range f.rows {
		if row.ExternalID == id.ExternalID && row.Provider == id.Provider {
			n++
		}
	}
	return n
}

func (f *fakeRepo) has(token string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.rows[token]
	return ok
}

// fakeClock reloj controlable.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func testIdentity() identity.Identity {
	return identity.Identity{
		ExternalID:  "10203040",
		Provider:    identity.ProviderGoogle,
		DisplayName: "Ana Pérez",
		Email:       "ana@example.com",
		AvatarURL:   "https://lh3.example.com/a.png",
	}
}

func newTestLedger(t *testing.T, repo store.RememberTokens, clock *fakeClock) *Ledger {
	t.Helper()
	opts := []Option{}
	if clock != nil {
		opts = append(opts, WithClock(clock.Now))
	}
	return NewLedger(repo, zap.NewNop(), opts...)
}

func TestCreateThenValidateReturnsSnapshot(t *testing.T) {
	repo := newFakeRepo()
	l := newTestLedger(t, repo, nil)
	ctx := context.Background()
	id := testIdentity()

	tok, err := l.Create(ctx, id, 0)
	require.NoError(t, err)
	require.Len(t, tok, 64) // 32 bytes hex

	got, err := l.Validate(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestReplaceOnIssueInvalidatesPrevious(t *testing.T) {
	repo := newFakeRepo()
	l := newTestLedger(t, repo, nil)
	ctx := context.Background()
	id := testIdentity()

	first, err := l.Create(ctx, id, 30)
	require.NoError(t, err)
	second, err := l.Create(ctx, id, 30)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	_, err = l.Validate(ctx, first)
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := l.Validate(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, 1, repo.countFor(id))
}

func TestValidateExpiredSelfHeals(t *testing.T) {
	repo := newFakeRepo()
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := newTestLedger(t, repo, clock)
	ctx := context.Background()

	tok, err := l.Create(ctx, testIdentity(), 30)
	require.NoError(t, err)

	clock.Advance(31 * 24 * time.Hour)

	_, err = l.Validate(ctx, tok)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.False(t, repo.has(tok), "expired row should be removed on validate")
}

func TestValidateNearExpiryStillWorks(t *testing.T) {
	repo := newFakeRepo()
	t0 := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := &fakeClock{t: t0}
	l := newTestLedger(t, repo, clock)
	ctx := context.Background()

	tok, err := l.Create(ctx, testIdentity(), 30)
	require.NoError(t, err)

	clock.Advance(29 * 24 * time.Hour)
	_, err = l.Validate(ctx, tok)
	require.NoError(t, err)

	rec, err := repo.Get(ctx, tok)
	require.NoError(t, err)
	assert.Equal(t, clock.Now(), rec.LastUsedAt)
	assert.Equal(t, t0.AddDate(0, 0, 30), rec.ExpiresAt, "expiry must not slide")

	clock.Advance(2 * 24 * time.Hour) // T0+31d
	_, err = l.Validate(ctx, tok)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.False(t, repo.has(tok))
}

func TestLastUsedAtMonotonic(t *testing.T) {
	repo := newFakeRepo()
	clock := &fakeClock{t: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	l := newTestLedger(t, repo, clock)
	ctx := context.Background()

	tok, err := l.Create(ctx, testIdentity(), 30)
	require.NoError(t, err)

	var prev time.Time
	for i := 0; i < 5; i++ {
		clock.Advance(time.Hour)
		_, err := l.Validate(ctx, tok)
		require.NoError(t, err)
		rec, err := repo.Get(ctx, tok)
		require.NoError(t, err)
		assert.True(t, !rec.LastUsedAt.Before(prev))
		prev = rec.LastUsedAt
	}
}

func TestDeleteReportsWhetherRemoved(t *testing.T) {
	repo := newFakeRepo()
	l := newTestLedger(t, repo, nil)
	ctx := context.Background()

	removed, err := l.Delete(ctx, "deadbeef")
	require.NoError(t, err)
	assert.False(t, removed)

	tok, err := l.Create(ctx, testIdentity(), 30)
	require.NoError(t, err)

	removed, err = l.Delete(ctx, tok)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = l.Validate(ctx, tok)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestValidateEmptyTokenRejectedBeforeStorage(t *testing.T) {
	repo := newFakeRepo()
	repo.failGet = errors.New("storage must not be touched")
	l := newTestLedger(t, repo, nil)

	_, err := l.Validate(context.Background(), "   ")
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func TestTouchFailureDoesNotFailValidation(t *testing.T) {
	repo := newFakeRepo()
	l := newTestLedger(t, repo, nil)
	ctx := context.Background()
	id := testIdentity()

	tok, err := l.Create(ctx, id, 30)
	require.NoError(t, err)

	repo.failTouch = &store.OpError{Op: "touch_token", Err: errors.New("timeout")}
	got, err := l.Validate(ctx, tok)
	require.NoError(t, err, "touch is best-effort")
	assert.Equal(t, id, got)
}

func TestCreatePropagatesStorageFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.failReplace = &store.OpError{Op: "replace_token", Err: errors.New("tx aborted")}
	l := newTestLedger(t, repo, nil)

	_, err := l.Create(context.Background(), testIdentity(), 30)
	var opErr *store.OpError
	require.ErrorAs(t, err, &opErr)
}

func TestCreateRejectsInvalidIdentity(t *testing.T) {
	l := newTestLedger(t, newFakeRepo(), nil)
	_, err := l.Create(context.Background(), identity.Identity{Provider: "mispace"}, 30)
	assert.ErrorIs(t, err, store.ErrInvalid)
}

func TestConcurrentCreateLeavesSingleToken(t *testing.T) {
	repo := newFakeRepo()
	l := newTestLedger(t, repo, nil)
	id := testIdentity()

	const n = 32
	var wg sync.WaitGroup
	tokens := make([]string, n)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			tok, err := l.Create(context.Background(), id, 30)
			assert.NoError(t, err)
			tokens[i] = tok
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, repo.countFor(id), "exactly one live token per identity")

	valid := 0
	for _, tok := range tokens {
		if _, err := l.Validate(context.Background(), tok); err == nil {
			valid++
		}
	}
	assert.Equal(t, 1, valid)
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	repo := newFakeRepo()
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := newTestLedger(t, repo, clock)
	ctx := context.Background()

	a := identity.Identity{ExternalID: "a", Provider: identity.ProviderGoogle, Email: "a@x.com"}
	b := identity.Identity{ExternalID: "b", Provider: identity.ProviderGitHub, Email: "b@x.com"}
	c := identity.Identity{ExternalID: "c", Provider: identity.ProviderGoogle, Email: "c@x.com"}

	_, err := l.Create(ctx, a, 1)
	require.NoError(t, err)
	_, err = l.Create(ctx, b, 2)
	require.NoError(t, err)
	live, err := l.Create(ctx, c, 60)
	require.NoError(t, err)

	clock.Advance(10 * 24 * time.Hour)

	removed, err := l.SweepExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	got, err := l.Validate(ctx, live)
	require.NoError(t, err)
	assert.Equal(t, c.ExternalID, got.ExternalID)
}

func TestCalendarDayExpiry(t *testing.T) {
	repo := newFakeRepo()
	// Día anterior a un cambio DST en America/New_York no afecta: usamos
	// UTC y solo verificamos que se use AddDate (días), no horas fijas.
	t0 := time.Date(2025, 10, 31, 23, 30, 0, 0, time.UTC)
	clock := &fakeClock{t: t0}
	l := newTestLedger(t, repo, clock)

	tok, err := l.Create(context.Background(), testIdentity(), 30)
	require.NoError(t, err)

	rec, err := repo.Get(context.Background(), tok)
	require.NoError(t, err)
	assert.Equal(t, t0.AddDate(0, 0, 30), rec.ExpiresAt)
}
