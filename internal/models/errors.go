package models

import "errors"

// Error kinds returned by the membership and access layer. Each one is a
// distinct condition a client can act on; the HTTP layer maps them to
// status codes.
var (
	// ErrNotAuthorized is a permission failure for an identified user.
	ErrNotAuthorized = errors.New("not authorized")

	// ErrVisibilityDenied hides a space the viewer may not see into.
	ErrVisibilityDenied = errors.New("space not visible")

	// ErrForbidden denies a content action to a blocked or absent member.
	ErrForbidden = errors.New("action forbidden")

	ErrNotFound          = errors.New("not found")
	ErrAlreadyMember     = errors.New("already a member")
	ErrNotAMember        = errors.New("not a member")
	ErrDuplicatePending  = errors.New("a pending request already exists")
	ErrInvalidTransition = errors.New("request already settled")
)
