package service

import (
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/noah-isme/alumni-connect-api/internal/models"
	"github.com/noah-isme/alumni-connect-api/internal/repository"
	appErrors "github.com/noah-isme/alumni-connect-api/pkg/errors"
)

// parseID converts a path or payload identifier.
func parseID(raw, what string) (bson.ObjectID, error) {
	id, ok := models.ParseID(raw)
	if !ok {
		return bson.NilObjectID, appErrors.Clone(appErrors.ErrValidation, "invalid "+what+" id")
	}
	return id, nil
}

// actorID extracts the caller id from verified claims.
func actorID(actor *models.JWTClaims) (bson.ObjectID, error) {
	if actor == nil {
		return bson.NilObjectID, appErrors.Clone(appErrors.ErrUnauthorized, "authentication required")
	}
	id, ok := models.ParseID(actor.UserID)
	if !ok {
		return bson.NilObjectID, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token subject")
	}
	return id, nil
}

// ownerOrAdmin allows administrators and the owner of a resource.
func ownerOrAdmin(actor *models.JWTClaims, owner bson.ObjectID) bool {
	if actor.IsAdmin() {
		return true
	}
	return actor != nil && actor.UserID == owner.Hex()
}

// lookupError maps a repository read failure.
func lookupError(err error, notFound, failed string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, failed)
}

// writeError maps a repository write failure. ErrConflict from a versioned
// write means another request changed the document first.
func writeError(err error, notFound, failed string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return appErrors.Clone(appErrors.ErrNotFound, notFound)
	case errors.Is(err, repository.ErrConflict):
		return appErrors.Clone(appErrors.ErrConflict, "resource was modified concurrently, retry")
	default:
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, failed)
	}
}

func validationError(err error, what string) error {
	return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid "+what+" payload")
}
