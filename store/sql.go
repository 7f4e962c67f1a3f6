package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"relbox/database"
	"relbox/models"
)

const mysqlDuplicateEntry = 1062

// SQLStore implements Store and Accounts on MySQL or SQLite. Both dialects
// share the same statements; only constraint error detection differs.
type SQLStore struct {
	db     *sql.DB
	driver string
	now    func() time.Time
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{
		db:     db,
		driver: driver,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

var (
	_ Store    = (*SQLStore)(nil)
	_ Accounts = (*SQLStore)(nil)
)

const edgeColumns = "id, requester_id, recipient_id, status, created_at, updated_at"

func scanEdge(row interface{ Scan(...any) error }) (models.Friendship, error) {
	var f models.Friendship
	err := row.Scan(&f.ID, &f.RequesterID, &f.RecipientID, &f.Status, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

func (s *SQLStore) GetEdge(ctx context.Context, a, b string) (models.Friendship, bool, error) {
	f, err := scanEdge(s.db.QueryRowContext(ctx,
		"SELECT "+edgeColumns+" FROM friendships WHERE pair_key = ?",
		models.PairKey(a, b),
	))
	return s.edgeResult("get edge", f, err)
}

func (s *SQLStore) GetEdgeByID(ctx context.Context, id string) (models.Friendship, bool, error) {
	f, err := scanEdge(s.db.QueryRowContext(ctx,
		"SELECT "+edgeColumns+" FROM friendships WHERE id = ?", id,
	))
	return s.edgeResult("get edge by id", f, err)
}

func (s *SQLStore) edgeResult(op string, f models.Friendship, err error) (models.Friendship, bool, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return models.Friendship{}, false, nil
	}
	if err != nil {
		return models.Friendship{}, false, unavailable(op, err)
	}
	return f, true, nil
}

func (s *SQLStore) InsertEdge(ctx context.Context, edge models.Friendship) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO friendships (id, pair_key, requester_id, recipient_id, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		edge.ID, models.PairKey(edge.RequesterID, edge.RecipientID), edge.RequesterID, edge.RecipientID,
		string(edge.Status), edge.CreatedAt.UTC(), edge.UpdatedAt.UTC(),
	)
	if err != nil {
		if s.isDuplicate(err) {
			return fmt.Errorf("insert edge %s: %w", edge.ID, ErrDuplicate)
		}
		return unavailable("insert edge", err)
	}
	return nil
}

func (s *SQLStore) UpdateEdgeStatus(ctx context.Context, id string, expected, next models.FriendshipStatus) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE friendships SET status = ?, updated_at = ? WHERE id = ? AND status = ?",
		string(next), s.now(), id, string(expected),
	)
	return s.conditionalResult("update edge status", id, result, err)
}

func (s *SQLStore) DeleteEdge(ctx context.Context, id string, expected models.FriendshipStatus) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM friendships WHERE id = ? AND status = ?", id, string(expected),
	)
	return s.conditionalResult("delete edge", id, result, err)
}

func (s *SQLStore) conditionalResult(op, key string, result sql.Result, err error) error {
	if err != nil {
		return unavailable(op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return unavailable(op, err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", op, key, ErrConflict)
	}
	return nil
}

func (s *SQLStore) ListEdges(ctx context.Context, userID string, status models.FriendshipStatus) ([]models.Friendship, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+edgeColumns+" FROM friendships WHERE (requester_id = ? OR recipient_id = ?) AND status = ? ORDER BY created_at DESC",
		userID, userID, string(status),
	)
	if err != nil {
		return nil, unavailable("list edges", err)
	}
	defer rows.Close()

	edges := []models.Friendship{}
	for rows.Next() {
		f, err := scanEdge(rows)
		if err != nil {
			return nil, unavailable("list edges", err)
		}
		edges = append(edges, f)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list edges", err)
	}
	return edges, nil
}

func (s *SQLStore) GetPartnershipState(ctx context.Context, userID string, visibility models.Visibility) (models.PartnershipState, bool, error) {
	var (
		state                  models.PartnershipState
		partnerIDs, lookingFor []byte
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, visibility, status, partner_ids, looking_for, version, updated_at FROM partnership_states WHERE user_id = ? AND visibility = ?",
		userID, string(visibility),
	).Scan(&state.UserID, &state.Visibility, &state.Status, &partnerIDs, &lookingFor, &state.Version, &state.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.PartnershipState{}, false, nil
	}
	if err != nil {
		return models.PartnershipState{}, false, unavailable("get partnership state", err)
	}

	if err := json.Unmarshal(partnerIDs, &state.PartnerIDs); err != nil {
		return models.PartnershipState{}, false, unavailable("decode partner_ids for "+userID+"/"+string(visibility), err)
	}
	if err := json.Unmarshal(lookingFor, &state.LookingFor); err != nil {
		return models.PartnershipState{}, false, unavailable("decode looking_for for "+userID+"/"+string(visibility), err)
	}
	if state.PartnerIDs == nil {
		state.PartnerIDs = []string{}
	}
	if state.LookingFor == nil {
		state.LookingFor = []string{}
	}
	return state, true, nil
}

func (s *SQLStore) UpsertPartnershipState(ctx context.Context, state models.PartnershipState, expectedVersion int64) (models.PartnershipState, error) {
	partnerIDs, err := json.Marshal(nonNil(state.PartnerIDs))
	if err != nil {
		return models.PartnershipState{}, unavailable("encode partner_ids", err)
	}
	lookingFor, err := json.Marshal(nonNil(state.LookingFor))
	if err != nil {
		return models.PartnershipState{}, unavailable("encode looking_for", err)
	}

	state.Version = expectedVersion + 1
	state.UpdatedAt = s.now()

	if expectedVersion == 0 {
		_, err := s.db.ExecContext(ctx,
			"INSERT INTO partnership_states (user_id, visibility, status, partner_ids, looking_for, version, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
			state.UserID, string(state.Visibility), string(state.Status), string(partnerIDs), string(lookingFor), state.Version, state.UpdatedAt,
		)
		if err != nil {
			if s.isDuplicate(err) {
				return models.PartnershipState{}, fmt.Errorf("insert partnership state %s/%s: %w", state.UserID, state.Visibility, ErrConflict)
			}
			return models.PartnershipState{}, unavailable("insert partnership state", err)
		}
		return state, nil
	}

	// The version bump guarantees a changed row, so MySQL's affected-row
	// count is 0 only when the guard failed.
	result, err := s.db.ExecContext(ctx,
		"UPDATE partnership_states SET status = ?, partner_ids = ?, looking_for = ?, version = ?, updated_at = ? WHERE user_id = ? AND visibility = ? AND version = ?",
		string(state.Status), string(partnerIDs), string(lookingFor), state.Version, state.UpdatedAt,
		state.UserID, string(state.Visibility), expectedVersion,
	)
	if err := s.conditionalResult("update partnership state", state.UserID+"/"+string(state.Visibility), result, err); err != nil {
		return models.PartnershipState{}, err
	}
	return state, nil
}

func (s *SQLStore) AccountExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)", id).Scan(&exists)
	if err != nil {
		return false, unavailable("account exists", err)
	}
	return exists, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, user models.User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, username, nickname, password, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)",
		user.ID, user.Username, user.Nickname, user.Password, user.CreatedAt.UTC(), user.UpdatedAt.UTC(),
	)
	if err != nil {
		if s.isDuplicate(err) {
			return fmt.Errorf("create user %s: %w", user.Username, ErrDuplicate)
		}
		return unavailable("create user", err)
	}
	return nil
}

func (s *SQLStore) GetUser(ctx context.Context, id string) (models.User, bool, error) {
	return s.getUser(ctx, "id", id)
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (models.User, bool, error) {
	return s.getUser(ctx, "username", username)
}

func (s *SQLStore) SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]models.User, error) {
	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, nickname, created_at, updated_at FROM users
		WHERE id != ? AND (username LIKE ? OR nickname LIKE ?)
		ORDER BY username
		LIMIT ?
	`, excludeID, pattern, pattern, limit)
	if err != nil {
		return nil, unavailable("search users", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var (
			user     models.User
			nickname sql.NullString
		)
		if err := rows.Scan(&user.ID, &user.Username, &nickname, &user.CreatedAt, &user.UpdatedAt); err != nil {
			return nil, unavailable("scan user", err)
		}
		user.Nickname = nickname.String
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("search users", err)
	}
	return users, nil
}

func (s *SQLStore) getUser(ctx context.Context, column, value string) (models.User, bool, error) {
	var (
		user     models.User
		nickname sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		"SELECT id, username, nickname, password, created_at, updated_at FROM users WHERE "+column+" = ?", value,
	).Scan(&user.ID, &user.Username, &nickname, &user.Password, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, unavailable("get user", err)
	}
	user.Nickname = nickname.String
	return user, true, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func (s *SQLStore) isDuplicate(err error) bool {
	switch s.driver {
	case database.DriverMySQL:
		var me *mysql.MySQLError
		return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
	case database.DriverSQLite:
		var se *sqlite.Error
		if !errors.As(err, &se) {
			return false
		}
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(se.Error(), "UNIQUE")
		}
	}
	return false
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
