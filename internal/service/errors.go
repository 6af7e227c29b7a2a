package service

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Error kinds. Every domain error below wraps exactly one of them so callers can
// branch with errors.Is without knowing the individual sentinels.
var (
	ErrNotFound         = errors.New("not found")
	ErrDuplicate        = errors.New("duplicate")
	ErrInvalidState     = errors.New("invalid state")
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidation       = errors.New("validation failed")
	ErrAuthFailure      = errors.New("authentication failed")
)

func kindError(kind error, message string) error {
	return fmt.Errorf("%w: %s", kind, message)
}

var (
	ErrUserNotFound          = kindError(ErrNotFound, "user not found")
	ErrNicknameTaken         = kindError(ErrDuplicate, "nickname already in use")
	ErrEmailTaken            = kindError(ErrDuplicate, "email already in use")
	ErrInvalidCredentials    = kindError(ErrAuthFailure, "invalid nickname or password")
	ErrInvalidToken          = kindError(ErrAuthFailure, "invalid or expired token")
	ErrAccountBlocked        = kindError(ErrPermissionDenied, "account blocked")
	ErrAdministratorRequired = kindError(ErrPermissionDenied, "administrator privileges required")
	ErrModeratorRequired     = kindError(ErrPermissionDenied, "moderator privileges required")
	ErrRoleMismatch          = kindError(ErrNotFound, "user has another role")
	ErrAlreadyBlocked        = kindError(ErrDuplicate, "user already blocked")
	ErrNotBlocked            = kindError(ErrNotFound, "user is not blocked")
	ErrSelfModeration        = kindError(ErrInvalidState, "cannot moderate your own account")
	ErrNotAnAdmin            = kindError(ErrInvalidState, "target account is not an admin")

	ErrClinicNotFound  = kindError(ErrNotFound, "clinic not found")
	ErrClinicForbidden = kindError(ErrPermissionDenied, "only the owning organization or an admin may manage this clinic")

	ErrOrderNotFound          = kindError(ErrNotFound, "order not found")
	ErrOrderCreatorRole       = kindError(ErrPermissionDenied, "only specialists and organizations can create orders")
	ErrOrderForbidden         = kindError(ErrPermissionDenied, "only the order creator may do this")
	ErrOrderNotActive         = kindError(ErrInvalidState, "order is not active")
	ErrOrderStatusTransition  = kindError(ErrInvalidState, "order status transition not allowed")
	ErrOrderReferenceNotFound = kindError(ErrNotFound, "referenced patient, specialist or clinic not found")

	ErrResponseNotFound    = kindError(ErrNotFound, "response not found")
	ErrResponseDuplicate   = kindError(ErrDuplicate, "response already submitted for this order")
	ErrResponseOwnOrder    = kindError(ErrPermissionDenied, "cannot respond to your own order")
	ErrResponseForbidden   = kindError(ErrPermissionDenied, "not allowed to act on this response")
	ErrResponseNotProposed = kindError(ErrInvalidState, "response is no longer proposed")

	ErrReviewNotFound       = kindError(ErrNotFound, "review not found")
	ErrReviewDuplicate      = kindError(ErrDuplicate, "review already exists for this order and target")
	ErrReviewOrderActive    = kindError(ErrInvalidState, "reviews can only be created once the order is no longer active")
	ErrReviewTargetNotAllow = kindError(ErrPermissionDenied, "sender role may not review this target type")
	ErrReviewNotParticipant = kindError(ErrPermissionDenied, "only parties of the order may review it")
	ErrReviewForbidden      = kindError(ErrPermissionDenied, "not allowed to act on this review")
	ErrReviewTargetNotFound = kindError(ErrNotFound, "review target not found")

	ErrChatNotFound         = kindError(ErrNotFound, "chat not found")
	ErrChatForbidden        = kindError(ErrPermissionDenied, "not a participant of this chat")
	ErrChatWithSelf         = kindError(ErrValidation, "cannot chat with yourself")
	ErrMessageNotFound      = kindError(ErrNotFound, "message not found")
	ErrMessageForbidden     = kindError(ErrPermissionDenied, "only the sender may change this message")
	ErrMessageNotEditable   = kindError(ErrInvalidState, "only text messages can be edited")
	ErrAttachmentType       = kindError(ErrValidation, "unsupported attachment type")
	ErrAttachmentTooLarge   = kindError(ErrValidation, "attachment exceeds the size limit")
	ErrStorageNotConfigured = errors.New("attachment storage not configured")
)

// validationError wraps a validator failure or a business-level field problem into the Validation kind.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %s", ErrValidation, validationErrors.Error())
	}
	return fmt.Errorf("%w: %s", ErrValidation, err.Error())
}

func fieldError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
