package models

import (
	"strconv"
	"time"
)

type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
)

// Friendship is the single stored edge for an unordered pair of accounts.
// Declined and removed edges are deleted rather than kept with a status.
type Friendship struct {
	ID          string           `json:"id"`
	RequesterID string           `json:"requester_id"`
	RecipientID string           `json:"recipient_id"`
	Status      FriendshipStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// Involves reports whether userID is one of the two participants.
func (f *Friendship) Involves(userID string) bool {
	return userID != "" && (f.RequesterID == userID || f.RecipientID == userID)
}

// Other returns the participant that is not userID.
func (f *Friendship) Other(userID string) string {
	if f.RequesterID == userID {
		return f.RecipientID
	}
	return f.RequesterID
}

// PairKey orders two account ids so that {a,b} and {b,a} share one key.
// The first id is length-prefixed so no two distinct pairs collide.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return strconv.Itoa(len(a)) + ":" + a + ":" + b
}

// FriendStatus is the friendship state as seen by one side of the pair.
type FriendStatus string

const (
	NotFriends      FriendStatus = "not_friends"
	PendingSent     FriendStatus = "pending_sent"
	PendingReceived FriendStatus = "pending_received"
	Friends         FriendStatus = "friends"
)

type FriendWithUser struct {
	Friendship
	Friend UserResponse `json:"friend"`
}

type FriendRequests struct {
	Incoming []Friendship `json:"incoming"`
	Outgoing []Friendship `json:"outgoing"`
}
