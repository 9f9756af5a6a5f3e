package users

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestStore() *MemStore {
	return NewMemStoreWithCost(bcrypt.MinCost)
}

func TestMemStore_CreateAndVerify(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "u1", "p1"))

	u, err := s.Verify(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "u1", u.Username)
	assert.NotEqual(t, []byte("p1"), u.Hash, "password must not be stored in plaintext")

	_, err = s.Verify(ctx, "u1", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = s.Verify(ctx, "nobody", "p1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestMemStore_DuplicateUsername(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "u1", "p1"))
	assert.ErrorIs(t, s.Create(ctx, "u1", "other"), ErrUsernameExists)
	assert.Equal(t, []string{"u1"}, s.Usernames())
}

func TestMemStore_UsernamesAreNotNormalized(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	for _, name := range []string{"alice", "Alice", " alice"} {
		require.NoError(t, s.Create(ctx, name, "pw"), name)
	}
	assert.Equal(t, []string{"alice", "Alice", " alice"}, s.Usernames())
}

func TestMemStore_PasswordTooLong(t *testing.T) {
	s := newTestStore()

	err := s.Create(context.Background(), "u1", strings.Repeat("x", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrPasswordTooLong)
	assert.Empty(t, s.Usernames())
}

func TestMemStore_DuplicateWinsOverLongPassword(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, "u1", "p1"))

	err := s.Create(ctx, "u1", strings.Repeat("x", MaxPasswordBytes+1))
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func TestMemStore_ConcurrentRegistrationIsUnique(t *testing.T) {
	s := newTestStore()
	ctx := context.Background()

	const workers = 16
	var (
		wg      sync.WaitGroup
		created atomic.Int32
		dupes   atomic.Int32
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch err := s.Create(ctx, "racer", "pw"); err {
			case nil:
				created.Add(1)
			case ErrUsernameExists:
				dupes.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, created.Load())
	assert.EqualValues(t, workers-1, dupes.Load())
	assert.Equal(t, []string{"racer"}, s.Usernames())
}
