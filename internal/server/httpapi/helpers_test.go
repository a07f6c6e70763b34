package httpapi

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/advn1/rback/internal/common"
	"github.com/advn1/rback/internal/dbx"
	"github.com/advn1/rback/internal/logging"
	"github.com/advn1/rback/internal/server/auth"
	"github.com/advn1/rback/internal/server/hasher"
	"github.com/advn1/rback/internal/server/models"
	"github.com/advn1/rback/internal/server/repositories/refreshtokens"
	"github.com/advn1/rback/internal/server/repositories/users"
	"github.com/advn1/rback/internal/server/services"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

type memUsers struct {
	mu   sync.Mutex
	rows []models.User
}

func (m *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Name == u.Name || r.Email == u.Email {
			return nil, common.ErrAlreadyExists
		}
	}
	u.ID = int64(len(m.rows) + 1)
	m.rows = append(m.rows, *u)
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Email == email {
			u := r
			return &u, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (m *memUsers) ExistsByNameOrEmail(_ context.Context, name, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.Name == name || r.Email == email {
			return true, nil
		}
	}
	return false, nil
}

type testManager struct {
	users    *memUsers
	sessions refreshtokens.Repository
}

func (m *testManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *testManager) Users(dbx.DBTX) users.Repository                 { return m.users }
func (m *testManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return m.sessions }

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type testAPI struct {
	srv   *httptest.Server
	codec *auth.Codec
}

// newTestAPI serves the router backed by a real UserService, an in-memory
// identity store and a miniredis session store.
func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	h, err := hasher.New(hasher.Params{Memory: 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}, []byte("pepper"))
	require.NoError(t, err)
	codec, err := auth.NewCodec([]byte("access-key"), []byte("refresh-key"))
	require.NoError(t, err)

	rm := &testManager{users: &memUsers{}, sessions: refreshtokens.NewRedisRepository(rdb, "test")}
	svc, err := services.NewUserService(db, rm, h, codec, auth.NewClaimsFactory(0, 0), discardLogger())
	require.NoError(t, err)

	srv := httptest.NewServer(NewRouter(svc, codec, discardLogger()))
	t.Cleanup(srv.Close)

	return &testAPI{srv: srv, codec: codec}
}

func (a *testAPI) do(t *testing.T, method, path string, body any, header http.Header) (int, []byte) {
	t.Helper()
	return doRequest(t, a.srv.URL, method, path, body, header)
}

func doRequest(t *testing.T, base, method, path string, body any, header http.Header) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rdr = bytes.NewBufferString(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(t, err)
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequest(method, base+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		req.Header[k] = vs
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func bearer(token string) http.Header {
	return http.Header{common.AuthorizationHeaderName: {common.BearerPrefix + token}}
}
