package common

import "errors"

// Success messages returned to users by the transport shells.
const (
	MsgRegistered      = "user registered successfully"
	MsgLoggedIn        = "login successful"
	MsgLoggedOut       = "logged out"
	MsgPasswordChanged = "password changed successfully"
	MsgContactAdded    = "contact added successfully"
	MsgContactUpdated  = "contact updated successfully"
	MsgContactRemoved  = "contact removed successfully"
)

// Message maps an error returned by the services to the text shown to the
// user. Unknown errors get a generic message so backend details never leak.
func Message(err error) string {
	var ve *ValidationError

	switch {
	case err == nil:
		return ""
	case errors.As(err, &ve):
		return ve.Reason
	case errors.Is(err, ErrDuplicateUsername):
		return "this username is already taken"
	case errors.Is(err, ErrDuplicatePhone):
		return "this phone number is already registered"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid username or password"
	case errors.Is(err, ErrorNotFound):
		return "contact not found"
	case errors.Is(err, ErrorUnauthorized), errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired):
		return "not authorized"
	case errors.Is(err, ErrPoolExhausted):
		return "server is busy, try again later"
	default:
		return "internal server error"
	}
}
