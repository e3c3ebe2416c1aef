package types

import "strings"

// PermissionDeniedError is returned by membership authorization checks.
// The reason is meant for the end user and is surfaced verbatim.
type PermissionDeniedError struct {
	Reason string
}

func (e *PermissionDeniedError) Error() string {
	return e.Reason
}

// PermissionDenied builds a PermissionDeniedError.
func PermissionDenied(reason string) error {
	return &PermissionDeniedError{Reason: reason}
}

// Invite validation codes. Callers branch on the code, not the message.
const (
	CodeInvalidRecipient     = "invalid_recipient"
	CodeExpired              = "expired"
	CodeUserAlreadyMember    = "user_already_member"
	CodeExistingEmailAddress = "existing_email_address"
)

// InviteValidationError is returned by invite validation with a
// machine-readable code from the set above.
type InviteValidationError struct {
	Code    string
	Message string
}

func (e *InviteValidationError) Error() string {
	return e.Message
}

// InviteValidation builds an InviteValidationError.
func InviteValidation(code, message string) error {
	return &InviteValidationError{Code: code, Message: message}
}

// MaskEmail obscures the local part of an email address so it can be
// shown in error messages without leaking the full address, e.g.
// "john.doe@example.com" becomes "j*******e@example.com".
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at <= 0 {
		return email
	}
	local, domain := email[:at], email[at:]
	if len(local) <= 2 {
		return strings.Repeat("*", len(local)) + domain
	}
	return local[:1] + strings.Repeat("*", len(local)-2) + local[len(local)-1:] + domain
}
