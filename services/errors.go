package services

import (
	"errors"
	"net/http"

	"marketplace-service/common/auth"
	"marketplace-service/models"
	"marketplace-service/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ServiceError is a typed error with an HTTP status code.
type ServiceError struct {
	StatusCode int
	Message    string
}

func (e *ServiceError) Error() string { return e.Message }

func newError(code int, msg string) *ServiceError {
	return &ServiceError{StatusCode: code, Message: msg}
}

func badRequest(msg string) *ServiceError { return newError(http.StatusBadRequest, msg) }
func forbidden(msg string) *ServiceError  { return newError(http.StatusForbidden, msg) }
func notFound(msg string) *ServiceError   { return newError(http.StatusNotFound, msg) }

// internalError logs err and returns a generic 500.
func internalError(logger *zap.Logger, msg string, err error) *ServiceError {
	logger.Error(msg, zap.Error(err))
	return newError(http.StatusInternalServerError, "Internal server error")
}

// fromRepo maps repository sentinels to service errors. ServiceErrors returned from inside a
// transaction callback pass through unchanged.
func fromRepo(logger *zap.Logger, err error, notFoundMsg, op string) *ServiceError {
	var svcErr *ServiceError
	switch {
	case errors.As(err, &svcErr):
		return svcErr
	case errors.Is(err, repository.ErrNotFound):
		return notFound(notFoundMsg)
	}
	return internalError(logger, op, err)
}

// parseID converts a hex id from the URL into an ObjectID.
func parseID(id, what string) (primitive.ObjectID, *ServiceError) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, badRequest("Invalid " + what + " id")
	}
	return oid, nil
}

// principalID returns the caller's user id as an ObjectID.
func principalID(p auth.Principal) (primitive.ObjectID, *ServiceError) {
	oid, err := primitive.ObjectIDFromHex(p.UserID)
	if err != nil {
		return primitive.NilObjectID, newError(http.StatusUnauthorized, "Not authorized, token failed")
	}
	return oid, nil
}

// normalizePage clamps paging input to 1-based pages of at most 100 items.
func normalizePage(page models.Page) models.Page {
	if page.Page < 1 {
		page.Page = 1
	}
	if page.Limit < 1 {
		page.Limit = 10
	}
	if page.Limit > 100 {
		page.Limit = 100
	}
	return page
}
