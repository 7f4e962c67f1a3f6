package handlers

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"relbox/relationship"
	"relbox/store"
	"relbox/utils"
)

// Handler holds everything the HTTP layer calls into.
type Handler struct {
	Accounts    store.Accounts
	Resolver    *relationship.Resolver
	Friends     *relationship.Mutator
	Partnership *relationship.PartnershipManager
	JWTSecret   []byte
	TokenTTL    time.Duration
}

// New wires the relationship core on top of s.
func New(s interface {
	store.Store
	store.Accounts
}, jwtSecret []byte, tokenTTL time.Duration) *Handler {
	verifier := relationship.NewPartnerVerifier(s)
	return &Handler{
		Accounts:    s,
		Resolver:    relationship.NewResolver(s),
		Friends:     relationship.NewMutator(s, verifier),
		Partnership: relationship.NewPartnershipManager(s, verifier),
		JWTSecret:   jwtSecret,
		TokenTTL:    tokenTTL,
	}
}

// respondError maps the relationship error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var relErr *relationship.Error
	message := err.Error()
	if errors.As(err, &relErr) {
		message = relErr.Error()
	}

	switch {
	case errors.Is(err, relationship.ErrValidation):
		utils.BadRequest(c, message)
	case errors.Is(err, relationship.ErrUnauthorized):
		utils.Forbidden(c, message)
	case errors.Is(err, relationship.ErrNotFound):
		utils.NotFound(c, message)
	case errors.Is(err, relationship.ErrAlreadyExists), errors.Is(err, relationship.ErrConflict):
		utils.Conflict(c, message)
	case errors.Is(err, relationship.ErrInvalidPartner):
		utils.Unprocessable(c, message, gin.H{"partner_id": relErr.PartnerID})
	case errors.Is(err, relationship.ErrTransient), errors.Is(err, store.ErrUnavailable):
		logrus.WithFields(logrus.Fields{
			"path":  c.FullPath(),
			"error": err,
		}).Error("Store unavailable")
		utils.ServiceUnavailable(c, "service temporarily unavailable")
	default:
		logrus.WithFields(logrus.Fields{
			"path":  c.FullPath(),
			"error": err,
		}).Error("Unhandled error")
		utils.InternalError(c, "internal error")
	}
}
