package relationship

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"relbox/models"
)

// cardinality bounds the number of partners a status allows. max < 0 means
// unbounded.
type cardinality struct {
	min, max int
}

func (c cardinality) allows(n int) bool {
	return n >= c.min && (c.max < 0 || n <= c.max)
}

func (c cardinality) String() string {
	switch {
	case c.max < 0:
		return fmt.Sprintf("%d or more", c.min)
	case c.min == c.max:
		return fmt.Sprintf("exactly %d", c.min)
	}
	return fmt.Sprintf("%d to %d", c.min, c.max)
}

var partnerCardinality = map[models.RelationshipStatus]cardinality{
	models.StatusSingle:           {0, 0},
	models.StatusCoupleMarried:    {1, 1},
	models.StatusOpenRelationship: {0, 1},
	models.StatusPolyamorous:      {1, -1},
}

// visibilityRules holds what differs between profile visibilities. Adding a
// visibility is a new entry here and nothing else.
type visibilityRules struct {
	keepsLookingFor bool
}

var visibilities = map[models.Visibility]visibilityRules{
	models.VisibilityPublic:  {keepsLookingFor: false},
	models.VisibilityPrivate: {keepsLookingFor: true},
}

// PartnershipStore is the store view the manager needs.
type PartnershipStore interface {
	GetPartnershipState(ctx context.Context, userID string, visibility models.Visibility) (models.PartnershipState, bool, error)
	UpsertPartnershipState(ctx context.Context, state models.PartnershipState, expectedVersion int64) (models.PartnershipState, error)
}

// PartnershipManager reads and updates per-visibility partnership states.
type PartnershipManager struct {
	store    PartnershipStore
	verifier *PartnerVerifier
}

func NewPartnershipManager(s PartnershipStore, verifier *PartnerVerifier) *PartnershipManager {
	return &PartnershipManager{store: s, verifier: verifier}
}

// UpdateRequest is the desired state for one (user, visibility) row.
type UpdateRequest struct {
	Status     models.RelationshipStatus
	PartnerIDs []string
	LookingFor []string
}

// GetState returns the stored state or the Single default when none exists.
func (p *PartnershipManager) GetState(ctx context.Context, userID string, visibility models.Visibility) (models.PartnershipState, error) {
	if _, ok := visibilities[visibility]; !ok {
		return models.PartnershipState{}, newError(ErrValidation, "unknown visibility %q", visibility)
	}
	state, found, err := p.store.GetPartnershipState(ctx, userID, visibility)
	if err != nil {
		return models.PartnershipState{}, fromStore("get partnership state", err)
	}
	if !found {
		return models.DefaultPartnershipState(userID, visibility), nil
	}
	return state, nil
}

// UpdateState validates req, verifies every partner and commits the whole
// row in one write. Nothing is written when any check fails. Committing a
// state equal to the stored one succeeds without a write.
func (p *PartnershipManager) UpdateState(ctx context.Context, userID string, visibility models.Visibility, req UpdateRequest) (models.PartnershipState, error) {
	rules, ok := visibilities[visibility]
	if !ok {
		return models.PartnershipState{}, newError(ErrValidation, "unknown visibility %q", visibility)
	}
	bounds, ok := partnerCardinality[req.Status]
	if !ok {
		return models.PartnershipState{}, newError(ErrValidation, "unknown relationship status %q", req.Status)
	}

	partners := models.NormalizeSet(req.PartnerIDs)
	if !bounds.allows(len(partners)) {
		return models.PartnershipState{}, newError(ErrValidation, "status %s requires %s partner(s), got %d",
			req.Status, bounds, len(partners))
	}
	for _, id := range partners {
		if id == userID {
			return models.PartnershipState{}, newError(ErrValidation, "cannot list yourself as a partner")
		}
	}

	lookingFor := []string{}
	if rules.keepsLookingFor {
		lookingFor = models.NormalizeSet(req.LookingFor)
	}

	// Verify in the caller's order so the reported id is the first bad one
	// they sent.
	failed, err := p.verifier.VerifyMany(ctx, nonBlank(req.PartnerIDs))
	if err != nil {
		return models.PartnershipState{}, err
	}
	if failed != "" {
		return models.PartnershipState{}, invalidPartner(failed)
	}

	current, found, err := p.store.GetPartnershipState(ctx, userID, visibility)
	if err != nil {
		return models.PartnershipState{}, fromStore("get partnership state", err)
	}

	next := models.PartnershipState{
		UserID:     userID,
		Visibility: visibility,
		Status:     req.Status,
		PartnerIDs: partners,
		LookingFor: lookingFor,
	}
	if !found {
		current = models.DefaultPartnershipState(userID, visibility)
	}
	if current.SameContent(next) {
		return current, nil
	}

	committed, err := p.store.UpsertPartnershipState(ctx, next, current.Version)
	if err != nil {
		return models.PartnershipState{}, fromStore("commit partnership state", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "UpdateState",
		"user_id":    userID,
		"visibility": visibility,
		"status":     committed.Status,
		"partners":   len(committed.PartnerIDs),
		"version":    committed.Version,
	}).Info("Partnership state updated")
	return committed, nil
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
