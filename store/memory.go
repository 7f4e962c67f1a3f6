package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"relbox/models"
)

type stateKey struct {
	userID     string
	visibility models.Visibility
}

// MemoryStore keeps everything in process. It is used by tests and by
// callers that embed the core without a database.
type MemoryStore struct {
	mu        sync.RWMutex
	edges     map[string]models.Friendship // by id
	pairs     map[string]string            // pair key -> edge id
	states    map[stateKey]models.PartnershipState
	users     map[string]models.User
	usernames map[string]string
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		edges:     make(map[string]models.Friendship),
		pairs:     make(map[string]string),
		states:    make(map[stateKey]models.PartnershipState),
		users:     make(map[string]models.User),
		usernames: make(map[string]string),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

var (
	_ Store    = (*MemoryStore)(nil)
	_ Accounts = (*MemoryStore)(nil)
)

func (m *MemoryStore) GetEdge(ctx context.Context, a, b string) (models.Friendship, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Friendship{}, false, unavailable("get edge", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.pairs[models.PairKey(a, b)]
	if !ok {
		return models.Friendship{}, false, nil
	}
	return m.edges[id], true, nil
}

func (m *MemoryStore) GetEdgeByID(ctx context.Context, id string) (models.Friendship, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.Friendship{}, false, unavailable("get edge by id", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.edges[id]
	return f, ok, nil
}

func (m *MemoryStore) InsertEdge(ctx context.Context, edge models.Friendship) error {
	if err := ctx.Err(); err != nil {
		return unavailable("insert edge", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := models.PairKey(edge.RequesterID, edge.RecipientID)
	if _, exists := m.pairs[key]; exists {
		return fmt.Errorf("insert edge %s: %w", edge.ID, ErrDuplicate)
	}
	if _, exists := m.edges[edge.ID]; exists {
		return fmt.Errorf("insert edge %s: %w", edge.ID, ErrDuplicate)
	}
	m.edges[edge.ID] = edge
	m.pairs[key] = edge.ID
	return nil
}

func (m *MemoryStore) UpdateEdgeStatus(ctx context.Context, id string, expected, next models.FriendshipStatus) error {
	if err := ctx.Err(); err != nil {
		return unavailable("update edge status", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.edges[id]
	if !ok || f.Status != expected {
		return fmt.Errorf("update edge status %s: %w", id, ErrConflict)
	}
	f.Status = next
	f.UpdatedAt = m.now()
	m.edges[id] = f
	return nil
}

func (m *MemoryStore) DeleteEdge(ctx context.Context, id string, expected models.FriendshipStatus) error {
	if err := ctx.Err(); err != nil {
		return unavailable("delete edge", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.edges[id]
	if !ok || f.Status != expected {
		return fmt.Errorf("delete edge %s: %w", id, ErrConflict)
	}
	delete(m.edges, id)
	delete(m.pairs, models.PairKey(f.RequesterID, f.RecipientID))
	return nil
}

func (m *MemoryStore) ListEdges(ctx context.Context, userID string, status models.FriendshipStatus) ([]models.Friendship, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("list edges", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	edges := []models.Friendship{}
	for _, f := range m.edges {
		if f.Status == status && f.Involves(userID) {
			edges = append(edges, f)
		}
	}
	slices.SortFunc(edges, func(a, b models.Friendship) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return edges, nil
}

func (m *MemoryStore) GetPartnershipState(ctx context.Context, userID string, visibility models.Visibility) (models.PartnershipState, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.PartnershipState{}, false, unavailable("get partnership state", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.states[stateKey{userID, visibility}]
	if !ok {
		return models.PartnershipState{}, false, nil
	}
	return cloneState(state), true, nil
}

func (m *MemoryStore) UpsertPartnershipState(ctx context.Context, state models.PartnershipState, expectedVersion int64) (models.PartnershipState, error) {
	if err := ctx.Err(); err != nil {
		return models.PartnershipState{}, unavailable("upsert partnership state", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := stateKey{state.UserID, state.Visibility}
	if m.states[key].Version != expectedVersion {
		return models.PartnershipState{}, fmt.Errorf("upsert partnership state %s/%s: %w", state.UserID, state.Visibility, ErrConflict)
	}
	state = cloneState(state)
	state.Version = expectedVersion + 1
	state.UpdatedAt = m.now()
	m.states[key] = state
	return cloneState(state), nil
}

func (m *MemoryStore) AccountExists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, unavailable("account exists", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.users[id]
	return ok, nil
}

func (m *MemoryStore) CreateUser(ctx context.Context, user models.User) error {
	if err := ctx.Err(); err != nil {
		return unavailable("create user", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.usernames[user.Username]; exists {
		return fmt.Errorf("create user %s: %w", user.Username, ErrDuplicate)
	}
	if _, exists := m.users[user.ID]; exists {
		return fmt.Errorf("create user %s: %w", user.ID, ErrDuplicate)
	}
	m.users[user.ID] = user
	m.usernames[user.Username] = user.ID
	return nil
}

func (m *MemoryStore) GetUser(ctx context.Context, id string) (models.User, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, false, unavailable("get user", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	user, ok := m.users[id]
	return user, ok, nil
}

func (m *MemoryStore) GetUserByUsername(ctx context.Context, username string) (models.User, bool, error) {
	if err := ctx.Err(); err != nil {
		return models.User{}, false, unavailable("get user", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.usernames[username]
	if !ok {
		return models.User{}, false, nil
	}
	return m.users[id], true, nil
}

func (m *MemoryStore) SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("search users", err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	q := strings.ToLower(query)
	users := []models.User{}
	for id, u := range m.users {
		if id == excludeID {
			continue
		}
		if strings.Contains(strings.ToLower(u.Username), q) || strings.Contains(strings.ToLower(u.Nickname), q) {
			users = append(users, u)
		}
	}
	slices.SortFunc(users, func(a, b models.User) int { return strings.Compare(a.Username, b.Username) })
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func cloneState(s models.PartnershipState) models.PartnershipState {
	s.PartnerIDs = slices.Clone(nonNil(s.PartnerIDs))
	s.LookingFor = slices.Clone(nonNil(s.LookingFor))
	return s
}
