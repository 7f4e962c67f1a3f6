package models

import (
	"slices"
	"strings"
	"time"
)

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

type RelationshipStatus string

const (
	StatusSingle           RelationshipStatus = "Single"
	StatusCoupleMarried    RelationshipStatus = "CoupleMarried"
	StatusOpenRelationship RelationshipStatus = "OpenRelationship"
	StatusPolyamorous      RelationshipStatus = "Polyamorous"
)

// PartnershipState is the relationship status an account shows on one
// profile visibility. Public and private copies are independent rows.
type PartnershipState struct {
	UserID     string             `json:"user_id"`
	Visibility Visibility         `json:"visibility"`
	Status     RelationshipStatus `json:"status"`
	PartnerIDs []string           `json:"partner_ids"`
	LookingFor []string           `json:"looking_for"`
	Version    int64              `json:"version"`
	UpdatedAt  time.Time          `json:"updated_at,omitempty"`
}

// DefaultPartnershipState is what an account shows before it ever sets a status.
func DefaultPartnershipState(userID string, visibility Visibility) PartnershipState {
	return PartnershipState{
		UserID:     userID,
		Visibility: visibility,
		Status:     StatusSingle,
		PartnerIDs: []string{},
		LookingFor: []string{},
	}
}

// SameContent compares the user-visible fields, ignoring version and timestamps.
func (s PartnershipState) SameContent(o PartnershipState) bool {
	return s.UserID == o.UserID &&
		s.Visibility == o.Visibility &&
		s.Status == o.Status &&
		slices.Equal(s.PartnerIDs, o.PartnerIDs) &&
		slices.Equal(s.LookingFor, o.LookingFor)
}

// NormalizeSet trims, deduplicates and sorts ids or tags so that set
// equality is slice equality.
func NormalizeSet(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
