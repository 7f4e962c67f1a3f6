package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relbox/models"
	"relbox/store"
)

func init() {
	gin.SetMode(gin.TestMode)
	logrus.SetOutput(io.Discard)
}

// outageStore fails edge lookups and pings while down is set.
type outageStore struct {
	*store.MemoryStore
	down atomic.Bool
}

var errOutage = errors.Join(store.ErrUnavailable, errors.New("connection reset"))

func (o *outageStore) GetEdge(ctx context.Context, a, b string) (models.Friendship, bool, error) {
	if o.down.Load() {
		return models.Friendship{}, false, errOutage
	}
	return o.MemoryStore.GetEdge(ctx, a, b)
}

func (o *outageStore) Ping(ctx context.Context) error {
	if o.down.Load() {
		return errOutage
	}
	return o.MemoryStore.Ping(ctx)
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	store  *outageStore
}

type session struct {
	id    string
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &outageStore{MemoryStore: store.NewMemoryStore()}
	h := New(s, []byte("test-secret"), time.Hour)
	return &testServer{t: t, router: NewRouter(h, []string{"http://localhost"}), store: s}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (ts *testServer) do(method, path, token string, body any) (int, envelope) {
	ts.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(ts.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func (ts *testServer) register(username string) session {
	ts.t.Helper()
	code, env := ts.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": username, "password": "secret123"})
	require.Equal(ts.t, http.StatusCreated, code, env.Message)
	var resp AuthResponse
	require.NoError(ts.t, json.Unmarshal(env.Data, &resp))
	return session{id: resp.User.ID, token: resp.Token}
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func (ts *testServer) status(viewer, target session) models.FriendStatus {
	ts.t.Helper()
	code, env := ts.do(http.MethodGet, "/api/friends/status/"+target.id, viewer.token, nil)
	require.Equal(ts.t, http.StatusOK, code)
	return decode[struct {
		Status models.FriendStatus `json:"status"`
	}](ts.t, env).Status
}

func TestRegisterAndLogin(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register("alice")

	code, _ := ts.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "alice", "password": "secret123"})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = ts.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, code)

	code, env := ts.do(http.MethodPost, "/api/auth/login", "", gin.H{"username": "alice", "password": "secret123"})
	require.Equal(t, http.StatusOK, code)
	login := decode[AuthResponse](t, env)

	code, env = ts.do(http.MethodGet, "/api/users/me", login.Token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, alice.id, decode[models.UserResponse](t, env).ID)

	code, _ = ts.do(http.MethodGet, "/api/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestFriendshipFlow(t *testing.T) {
	ts := newTestServer(t)
	alice, bob, carol := ts.register("alice"), ts.register("bob"), ts.register("carol")

	code, env := ts.do(http.MethodPost, "/api/friends/request", alice.token, gin.H{"user_id": bob.id})
	require.Equal(t, http.StatusCreated, code, env.Message)
	edge := decode[models.Friendship](t, env)
	assert.Equal(t, models.PendingSent, ts.status(alice, bob))
	assert.Equal(t, models.PendingReceived, ts.status(bob, alice))

	code, _ = ts.do(http.MethodPost, "/api/friends/request", bob.token, gin.H{"user_id": alice.id})
	assert.Equal(t, http.StatusConflict, code)

	code, _ = ts.do(http.MethodPost, "/api/friends/request", alice.token, gin.H{"user_id": alice.id})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(http.MethodPost, "/api/friends/request", alice.token, gin.H{"user_id": "nobody"})
	assert.Equal(t, http.StatusNotFound, code)

	code, env = ts.do(http.MethodGet, "/api/friends/requests", bob.token, nil)
	require.Equal(t, http.StatusOK, code)
	requests := decode[models.FriendRequests](t, env)
	require.Len(t, requests.Incoming, 1)
	assert.Empty(t, requests.Outgoing)

	code, _ = ts.do(http.MethodPost, "/api/friends/"+edge.ID+"/accept", alice.token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = ts.do(http.MethodPost, "/api/friends/"+edge.ID+"/accept", carol.token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = ts.do(http.MethodPost, "/api/friends/"+edge.ID+"/accept", bob.token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.Friends, ts.status(alice, bob))

	code, _ = ts.do(http.MethodPost, "/api/friends/"+edge.ID+"/accept", bob.token, nil)
	assert.Equal(t, http.StatusConflict, code)

	code, _ = ts.do(http.MethodPost, "/api/friends/missing/accept", bob.token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = ts.do(http.MethodGet, "/api/friends", alice.token, nil)
	require.Equal(t, http.StatusOK, code)
	friends := decode[[]models.FriendWithUser](t, env)
	require.Len(t, friends, 1)
	assert.Equal(t, "bob", friends[0].Friend.Username)

	code, _ = ts.do(http.MethodDelete, "/api/friends/"+edge.ID, carol.token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = ts.do(http.MethodDelete, "/api/friends/"+edge.ID, bob.token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.NotFriends, ts.status(alice, bob))
}

func TestDeclineFriendRequest(t *testing.T) {
	ts := newTestServer(t)
	alice, bob := ts.register("alice"), ts.register("bob")

	_, env := ts.do(http.MethodPost, "/api/friends/request", alice.token, gin.H{"user_id": bob.id})
	edge := decode[models.Friendship](t, env)

	code, _ := ts.do(http.MethodPost, "/api/friends/"+edge.ID+"/decline", bob.token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.NotFriends, ts.status(alice, bob))

	code, _ = ts.do(http.MethodPost, "/api/friends/"+edge.ID+"/decline", bob.token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestPartnershipEndpoints(t *testing.T) {
	ts := newTestServer(t)
	alice, bob := ts.register("alice"), ts.register("bob")

	code, env := ts.do(http.MethodGet, "/api/partnership/public", alice.token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.StatusSingle, decode[models.PartnershipState](t, env).Status)

	code, env = ts.do(http.MethodPut, "/api/partnership/public", alice.token, gin.H{
		"status":      models.StatusCoupleMarried,
		"partner_ids": []string{bob.id},
	})
	require.Equal(t, http.StatusOK, code, env.Message)
	state := decode[models.PartnershipState](t, env)
	assert.Equal(t, []string{bob.id}, state.PartnerIDs)

	code, env = ts.do(http.MethodPut, "/api/partnership/public", alice.token, gin.H{
		"status":      models.StatusPolyamorous,
		"partner_ids": []string{bob.id, "ghost"},
	})
	require.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "ghost", decode[map[string]string](t, env)["partner_id"])

	code, _ = ts.do(http.MethodPut, "/api/partnership/public", alice.token, gin.H{"status": models.StatusSingle, "partner_ids": []string{bob.id}})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = ts.do(http.MethodPut, "/api/partnership/secret", alice.token, gin.H{"status": models.StatusSingle})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = ts.do(http.MethodGet, "/api/users/"+alice.id+"/partnership/public", bob.token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.StatusCoupleMarried, decode[models.PartnershipState](t, env).Status)
}

func TestPrivatePartnershipVisibleToFriends(t *testing.T) {
	ts := newTestServer(t)
	alice, bob := ts.register("alice"), ts.register("bob")

	code, _ := ts.do(http.MethodPut, "/api/partnership/private", alice.token, gin.H{
		"status":      models.StatusOpenRelationship,
		"looking_for": []string{"dating"},
	})
	require.Equal(t, http.StatusOK, code)

	path := "/api/users/" + alice.id + "/partnership/private"
	code, _ = ts.do(http.MethodGet, path, bob.token, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = ts.do(http.MethodGet, path, alice.token, nil)
	assert.Equal(t, http.StatusOK, code)

	_, env := ts.do(http.MethodPost, "/api/friends/request", alice.token, gin.H{"user_id": bob.id})
	edge := decode[models.Friendship](t, env)
	code, _ = ts.do(http.MethodPost, "/api/friends/"+edge.ID+"/accept", bob.token, nil)
	require.Equal(t, http.StatusOK, code)

	code, env = ts.do(http.MethodGet, path, bob.token, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []string{"dating"}, decode[models.PartnershipState](t, env).LookingFor)

	code, _ = ts.do(http.MethodGet, "/api/users/nobody/partnership/public", bob.token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestStoreOutage(t *testing.T) {
	ts := newTestServer(t)
	alice, bob := ts.register("alice"), ts.register("bob")

	code, _ := ts.do(http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, code)

	ts.store.down.Store(true)

	assert.Equal(t, models.NotFriends, ts.status(alice, bob), "reads degrade instead of failing")

	code, _ = ts.do(http.MethodPost, "/api/friends/request", alice.token, gin.H{"user_id": bob.id})
	assert.Equal(t, http.StatusServiceUnavailable, code)

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "down", health["store"])
	assert.EqualValues(t, 1, health["degraded_lookups"])
}

func TestSearchUsers(t *testing.T) {
	ts := newTestServer(t)
	alice := ts.register("alice")
	ts.register("alicia")
	ts.register("bob")

	code, env := ts.do(http.MethodGet, "/api/users/search?q=ali", alice.token, nil)
	require.Equal(t, http.StatusOK, code)
	users := decode[[]models.UserResponse](t, env)
	require.Len(t, users, 1)
	assert.Equal(t, "alicia", users[0].Username)

	code, _ = ts.do(http.MethodGet, "/api/users/search", alice.token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
	code, _ = ts.do(http.MethodGet, "/api/users/search?q=b&limit=zero", alice.token, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}
