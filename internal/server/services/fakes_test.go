package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/advn1/rback/internal/common"
	"github.com/advn1/rback/internal/dbx"
	"github.com/advn1/rback/internal/logging"
	"github.com/advn1/rback/internal/server/auth"
	"github.com/advn1/rback/internal/server/hasher"
	"github.com/advn1/rback/internal/server/models"
	"github.com/advn1/rback/internal/server/repositories/refreshtokens"
	"github.com/advn1/rback/internal/server/repositories/users"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var errBoom = errors.New("boom")

// --- users ---

type fakeUsersRepo struct {
	mu     sync.Mutex
	nextID int64
	byMail map[string]*models.User

	existsErr error
	createErr error
	getErr    error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byMail: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, other := range f.byMail {
		if other.Name == u.Name || other.Email == u.Email {
			return nil, common.ErrAlreadyExists
		}
	}
	f.nextID++
	u.ID = f.nextID
	cp := *u
	f.byMail[u.Email] = &cp
	return u, nil
}

func (f *fakeUsersRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byMail[email]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsersRepo) ExistsByNameOrEmail(_ context.Context, name, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, u := range f.byMail {
		if u.Name == name || u.Email == email {
			return true, nil
		}
	}
	return false, nil
}

// --- refresh tokens ---

type fakeSessionRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []models.RefreshToken

	createErr error
	listErr   error
	rotateErr error
	deleteErr error
}

func (f *fakeSessionRepo) Create(_ context.Context, t *models.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.insert(t)
	return nil
}

func (f *fakeSessionRepo) insert(t *models.RefreshToken) {
	f.nextID++
	t.ID = f.nextID
	t.Used = false
	f.rows = append(f.rows, *t)
}

func (f *fakeSessionRepo) ListUnused(_ context.Context, userID int64) ([]models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.RefreshToken
	for _, r := range f.rows {
		if r.UserID == userID && !r.Used && r.Expires.After(time.Now()) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) ListByUser(_ context.Context, userID int64) ([]models.RefreshToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []models.RefreshToken
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeSessionRepo) Rotate(_ context.Context, consumedHash string, next *models.RefreshToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rotateErr != nil {
		return f.rotateErr
	}
	for i := range f.rows {
		if f.rows[i].Token == consumedHash && !f.rows[i].Used {
			f.rows[i].Used = true
			f.insert(next)
			return nil
		}
	}
	return common.ErrInvalidOrExpiredToken
}

func (f *fakeSessionRepo) Delete(_ context.Context, userID int64, hash string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return 0, f.deleteErr
	}
	for i := range f.rows {
		if f.rows[i].UserID == userID && f.rows[i].Token == hash {
			f.rows = append(f.rows[:i], f.rows[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (f *fakeSessionRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

// --- manager ---

type fakeRepoManager struct {
	u        *fakeUsersRepo
	sessions refreshtokens.Repository
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return m.u }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.sessions }

// --- service ---

var testHasherParams = hasher.Params{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

const (
	testAccessKey  = "access-key"
	testRefreshKey = "refresh-key"
)

func nopLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// newTxDB returns an in-memory database; the fakes ignore the transaction
// handle, so it only has to begin and commit.
func newTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

type fixture struct {
	svc      *UserService
	users    *fakeUsersRepo
	sessions *fakeSessionRepo
	codec    *auth.Codec
	hasher   *hasher.Argon2
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	sessions := &fakeSessionRepo{}
	f := newFixtureWith(t, sessions)
	f.sessions = sessions
	return f
}

func newFixtureWith(t *testing.T, sessions refreshtokens.Repository) *fixture {
	t.Helper()

	h, err := hasher.New(testHasherParams, []byte("pepper"))
	require.NoError(t, err)
	codec, err := auth.NewCodec([]byte(testAccessKey), []byte(testRefreshKey))
	require.NoError(t, err)

	u := newFakeUsersRepo()
	rm := &fakeRepoManager{u: u, sessions: sessions}

	svc, err := NewUserService(newTxDB(t), rm, h, codec, auth.NewClaimsFactory(0, 0), nopLogger())
	require.NoError(t, err)

	return &fixture{svc: svc, users: u, codec: codec, hasher: h}
}

const (
	aliceName     = "alice123"
	alicePassword = "Str0ng!Pass"
	aliceEmail    = "a@x.com"
)

func (f *fixture) registerAndLogin(t *testing.T) *TokenPair {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.Register(ctx, aliceName, alicePassword, aliceEmail)
	require.NoError(t, err)
	pair, err := f.svc.Login(ctx, aliceEmail, alicePassword)
	require.NoError(t, err)
	return pair
}

func (f *fixture) refresh(t *testing.T, token string) (*TokenPair, error) {
	t.Helper()
	caller, err := f.svc.IdentifyRefresh(token)
	if err != nil {
		return nil, err
	}
	return f.svc.Refresh(context.Background(), token, caller)
}
