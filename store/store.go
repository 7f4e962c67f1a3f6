// Package store persists friendship edges, partnership states and the
// account records they reference.
//
// Lookups report absence through a found flag and never through an error,
// so callers can tell "no row" apart from "could not ask".
package store

import (
	"context"
	"errors"

	"relbox/models"
)

var (
	// ErrUnavailable wraps any failure to reach or query the backend.
	ErrUnavailable = errors.New("store unavailable")
	// ErrDuplicate is returned when a uniqueness constraint rejects an insert.
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflict is returned when a conditional write matched no row.
	ErrConflict = errors.New("conditional write lost")
)

// Store is the set of primitives the relationship core needs.
type Store interface {
	// GetEdge returns the edge for the unordered pair {a, b}.
	GetEdge(ctx context.Context, a, b string) (models.Friendship, bool, error)
	GetEdgeByID(ctx context.Context, id string) (models.Friendship, bool, error)
	// InsertEdge fails with ErrDuplicate if the pair already has an edge.
	InsertEdge(ctx context.Context, edge models.Friendship) error
	// UpdateEdgeStatus moves an edge from expected to next, or fails with
	// ErrConflict if the edge is gone or no longer in the expected status.
	UpdateEdgeStatus(ctx context.Context, id string, expected, next models.FriendshipStatus) error
	// DeleteEdge removes an edge only while it is in the expected status.
	DeleteEdge(ctx context.Context, id string, expected models.FriendshipStatus) error
	ListEdges(ctx context.Context, userID string, status models.FriendshipStatus) ([]models.Friendship, error)

	GetPartnershipState(ctx context.Context, userID string, visibility models.Visibility) (models.PartnershipState, bool, error)
	// UpsertPartnershipState writes the whole row if its stored version still
	// equals expectedVersion (0 meaning no row yet) and returns the row as
	// committed. A lost race yields ErrConflict.
	UpsertPartnershipState(ctx context.Context, state models.PartnershipState, expectedVersion int64) (models.PartnershipState, error)

	AccountExists(ctx context.Context, id string) (bool, error)
}

// Accounts is the identity side used by registration and login.
type Accounts interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (models.User, bool, error)
	GetUserByUsername(ctx context.Context, username string) (models.User, bool, error)
	// SearchUsers matches query against username and nickname, ordered by
	// username and excluding excludeID.
	SearchUsers(ctx context.Context, query, excludeID string, limit int) ([]models.User, error)
	Ping(ctx context.Context) error
}
