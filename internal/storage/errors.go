package storage

import (
	"errors"

	"github.com/s/leadBoard/internal/models"
)

var (
	ErrLeadNotFound     = errors.New("lead not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrUserInactive     = errors.New("user is deactivated")
	ErrSessionNotFound  = errors.New("session not found or revoked")
	ErrInvalidStatus    = models.ErrInvalidStatus
	ErrMissingFields    = errors.New("missing required fields")
	ErrUnknownReference = errors.New("referenced record does not exist")
	ErrReasonRequired   = errors.New("a reason is required to delete a lead")
	ErrInUse            = errors.New("record is still referenced")
	ErrInvalidInput     = errors.New("invalid input")
)
