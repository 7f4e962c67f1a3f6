package relationship

import (
	"context"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"relbox/models"
)

// EdgeReader is the store view the resolver needs.
type EdgeReader interface {
	GetEdge(ctx context.Context, a, b string) (models.Friendship, bool, error)
}

// Resolver derives the friendship status one account sees for another.
type Resolver struct {
	edges    EdgeReader
	degraded atomic.Int64
}

func NewResolver(edges EdgeReader) *Resolver {
	return &Resolver{edges: edges}
}

// Resolve never fails. When the store cannot be read it answers NotFriends,
// so a false "friends" is never shown, and counts the degraded lookup.
func (r *Resolver) Resolve(ctx context.Context, viewer, target string) models.FriendStatus {
	if viewer == "" || target == "" || viewer == target {
		return models.NotFriends
	}

	edge, found, err := r.edges.GetEdge(ctx, viewer, target)
	if err != nil {
		total := r.degraded.Add(1)
		logrus.WithFields(logrus.Fields{
			"function": "Resolve",
			"viewer":   viewer,
			"target":   target,
			"degraded": true,
			"total":    total,
			"error":    err,
		}).Warn("Friendship lookup failed, reporting not_friends")
		return models.NotFriends
	}
	if !found {
		logrus.WithFields(logrus.Fields{
			"function": "Resolve",
			"viewer":   viewer,
			"target":   target,
		}).Debug("No friendship edge")
		return models.NotFriends
	}

	return statusFor(edge, viewer)
}

// DegradedLookups is the number of lookups answered NotFriends because the
// store failed.
func (r *Resolver) DegradedLookups() int64 {
	return r.degraded.Load()
}

func statusFor(edge models.Friendship, viewer string) models.FriendStatus {
	switch {
	case edge.Status == models.FriendshipAccepted:
		return models.Friends
	case edge.Status == models.FriendshipPending && viewer == edge.RequesterID:
		return models.PendingSent
	case edge.Status == models.FriendshipPending && viewer == edge.RecipientID:
		return models.PendingReceived
	}
	return models.NotFriends
}
