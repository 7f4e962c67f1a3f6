package relationship

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"relbox/models"
	"relbox/store"
)

// Mutator creates, accepts, declines and removes friendship edges. Every
// operation ends in exactly one conditional store write.
type Mutator struct {
	store    store.Store
	verifier *PartnerVerifier
	now      func() time.Time
}

func NewMutator(s store.Store, verifier *PartnerVerifier) *Mutator {
	return &Mutator{
		store:    s,
		verifier: verifier,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Request opens a pending edge from requester to recipient.
func (m *Mutator) Request(ctx context.Context, requester, recipient string) (models.Friendship, error) {
	if requester == "" || recipient == "" {
		return models.Friendship{}, newError(ErrValidation, "requester and recipient are required")
	}
	if requester == recipient {
		return models.Friendship{}, newError(ErrValidation, "cannot send a friend request to yourself")
	}

	exists, err := m.verifier.VerifyOne(ctx, recipient)
	if err != nil {
		return models.Friendship{}, err
	}
	if !exists {
		return models.Friendship{}, newError(ErrNotFound, "user %s not found", recipient)
	}

	existing, found, err := m.store.GetEdge(ctx, requester, recipient)
	if err != nil {
		return models.Friendship{}, fromStore("look up edge", err)
	}
	if found {
		return models.Friendship{}, newError(ErrAlreadyExists, "a %s friendship already exists between %s and %s",
			existing.Status, requester, recipient)
	}

	now := m.now()
	edge := models.Friendship{
		ID:          uuid.NewString(),
		RequesterID: requester,
		RecipientID: recipient,
		Status:      models.FriendshipPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	// The unique pair index settles a race between two requests.
	if err := m.store.InsertEdge(ctx, edge); err != nil {
		return models.Friendship{}, fromStore("insert edge", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":  "Request",
		"edge_id":   edge.ID,
		"requester": requester,
		"recipient": recipient,
	}).Info("Friend request created")
	return edge, nil
}

// Accept lets the recipient of a pending request accept it. Accepting an
// edge that is already accepted fails with ErrConflict.
func (m *Mutator) Accept(ctx context.Context, edgeID, actor string) (models.Friendship, error) {
	edge, found, err := m.store.GetEdgeByID(ctx, edgeID)
	if err != nil {
		return models.Friendship{}, fromStore("load edge "+edgeID, err)
	}
	if !found {
		return models.Friendship{}, newError(ErrNotFound, "no pending friend request %s", edgeID)
	}
	// Already accepted means a concurrent accept won; re-reading shows the friendship.
	if edge.Status != models.FriendshipPending {
		return models.Friendship{}, newError(ErrConflict, "friend request %s was already accepted", edgeID)
	}
	if actor != edge.RecipientID {
		return models.Friendship{}, newError(ErrUnauthorized, "only the recipient can accept friend request %s", edgeID)
	}

	if err := m.store.UpdateEdgeStatus(ctx, edgeID, models.FriendshipPending, models.FriendshipAccepted); err != nil {
		return models.Friendship{}, fromStore("accept edge "+edgeID, err)
	}

	edge.Status = models.FriendshipAccepted
	edge.UpdatedAt = m.now()
	logrus.WithFields(logrus.Fields{
		"function": "Accept",
		"edge_id":  edgeID,
		"actor":    actor,
	}).Info("Friend request accepted")
	return edge, nil
}

// Decline deletes a pending request. Either participant may decline; the
// requester declining is a withdrawal.
func (m *Mutator) Decline(ctx context.Context, edgeID, actor string) error {
	return m.deleteEdge(ctx, "Decline", edgeID, actor, models.FriendshipPending)
}

// Remove deletes an accepted friendship. Either participant may remove it.
func (m *Mutator) Remove(ctx context.Context, edgeID, actor string) error {
	return m.deleteEdge(ctx, "Remove", edgeID, actor, models.FriendshipAccepted)
}

func (m *Mutator) deleteEdge(ctx context.Context, op, edgeID, actor string, expected models.FriendshipStatus) error {
	edge, err := m.loadEdge(ctx, edgeID, expected)
	if err != nil {
		return err
	}
	if !edge.Involves(actor) {
		return newError(ErrUnauthorized, "%s is not a participant of %s", actor, edgeID)
	}

	if err := m.store.DeleteEdge(ctx, edgeID, expected); err != nil {
		return fromStore("delete edge "+edgeID, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": op,
		"edge_id":  edgeID,
		"actor":    actor,
		"status":   expected,
	}).Info("Friendship edge deleted")
	return nil
}

// loadEdge returns the edge only if it exists in the wanted status.
func (m *Mutator) loadEdge(ctx context.Context, edgeID string, want models.FriendshipStatus) (models.Friendship, error) {
	edge, found, err := m.store.GetEdgeByID(ctx, edgeID)
	if err != nil {
		return models.Friendship{}, fromStore("load edge "+edgeID, err)
	}
	if !found || edge.Status != want {
		if want == models.FriendshipPending {
			return models.Friendship{}, newError(ErrNotFound, "no pending friend request %s", edgeID)
		}
		return models.Friendship{}, newError(ErrNotFound, "no friendship %s", edgeID)
	}
	return edge, nil
}

// List returns the accepted friendships of userID.
func (m *Mutator) List(ctx context.Context, userID string) ([]models.Friendship, error) {
	edges, err := m.store.ListEdges(ctx, userID, models.FriendshipAccepted)
	if err != nil {
		return nil, fromStore("list friends", err)
	}
	return edges, nil
}

// Requests returns the pending edges of userID split by direction.
func (m *Mutator) Requests(ctx context.Context, userID string) (models.FriendRequests, error) {
	edges, err := m.store.ListEdges(ctx, userID, models.FriendshipPending)
	if err != nil {
		return models.FriendRequests{}, fromStore("list friend requests", err)
	}
	out := models.FriendRequests{Incoming: []models.Friendship{}, Outgoing: []models.Friendship{}}
	for _, e := range edges {
		if e.RecipientID == userID {
			out.Incoming = append(out.Incoming, e)
		} else {
			out.Outgoing = append(out.Outgoing, e)
		}
	}
	return out, nil
}
