package iam

import "errors"

// Kind is a stable identifier for a domain failure. Callers branch on Kind
// (via errors.Is against the package sentinels), never on message text.
type Kind string

const (
	KindUserNotFound   Kind = "USER_NOT_FOUND"
	KindGroupNotFound  Kind = "GROUP_NOT_FOUND"
	KindRoleNotFound   Kind = "ROLE_NOT_FOUND"
	KindPolicyNotFound Kind = "POLICY_NOT_FOUND"

	KindUserExists     Kind = "USER_EXISTS"
	KindUsernameExists Kind = "USERNAME_EXISTS"
	KindGroupExists    Kind = "GROUP_EXISTS"
	KindRoleExists     Kind = "ROLE_EXISTS"
	KindPolicyExists   Kind = "POLICY_EXISTS"

	KindPolicyAlreadyAttached Kind = "POLICY_ALREADY_ATTACHED"
	KindRoleAlreadyAttached   Kind = "ROLE_ALREADY_ATTACHED"
	KindUserAlreadyInGroup    Kind = "USER_ALREADY_IN_GROUP"

	KindInvalidAccessKeyFormat Kind = "INVALID_ACCESS_KEY_FORMAT"
	KindAccessKeyLimitReached  Kind = "ACCESS_KEY_LIMIT_REACHED"

	KindInvalidEmail Kind = "INVALID_EMAIL"

	KindInvalidPolicyDocument   Kind = "INVALID_POLICY_DOCUMENT"
	KindPolicyMissingVersion    Kind = "POLICY_MISSING_VERSION"
	KindPolicyMissingStatement  Kind = "POLICY_MISSING_STATEMENT"
	KindPolicyStatementNotArray Kind = "POLICY_STATEMENT_NOT_ARRAY"
	KindPolicyVersionNotFound   Kind = "POLICY_VERSION_NOT_FOUND"

	KindGroupEssentialRemove Kind = "GROUP_ESSENTIAL_REMOVE"
)

// Error is the failure type returned by every operation in this package.
// Two Errors compare equal under errors.Is when their Kinds match, so the
// package sentinels below work as errors.Is targets even for errors carrying
// contextual detail.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Is reports Kind equality, making sentinel matching work through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

var (
	ErrUserNotFound   = &Error{KindUserNotFound, "user not found"}
	ErrGroupNotFound  = &Error{KindGroupNotFound, "group not found"}
	ErrRoleNotFound   = &Error{KindRoleNotFound, "role not found"}
	ErrPolicyNotFound = &Error{KindPolicyNotFound, "policy not found"}

	ErrUserExists     = &Error{KindUserExists, "user with id already exists"}
	ErrUsernameExists = &Error{KindUsernameExists, "username already exists"}
	ErrGroupExists    = &Error{KindGroupExists, "group with id already exists"}
	ErrRoleExists     = &Error{KindRoleExists, "role with id already exists"}
	ErrPolicyExists   = &Error{KindPolicyExists, "policy with id already exists"}

	ErrPolicyAlreadyAttached = &Error{KindPolicyAlreadyAttached, "policy already attached"}
	ErrRoleAlreadyAttached   = &Error{KindRoleAlreadyAttached, "role already attached to user"}
	ErrUserAlreadyInGroup    = &Error{KindUserAlreadyInGroup, "user already in group"}

	ErrInvalidAccessKeyFormat = &Error{KindInvalidAccessKeyFormat, "invalid access key format"}
	ErrAccessKeyLimitReached  = &Error{KindAccessKeyLimitReached, "access key limit reached"}

	ErrInvalidEmail = &Error{KindInvalidEmail, "invalid email address"}

	ErrInvalidPolicyDocument   = &Error{KindInvalidPolicyDocument, "invalid policy document"}
	ErrPolicyMissingVersion    = &Error{KindPolicyMissingVersion, "policy document must have a Version"}
	ErrPolicyMissingStatement  = &Error{KindPolicyMissingStatement, "policy document must have a Statement"}
	ErrPolicyStatementNotArray = &Error{KindPolicyStatementNotArray, "policy Statement must be an array"}
	ErrPolicyVersionNotFound   = &Error{KindPolicyVersionNotFound, "policy version not found"}

	ErrGroupEssentialRemove = &Error{KindGroupEssentialRemove, "essential group cannot be removed"}
)

// KindOf extracts the Kind from an error produced by this package.
// Returns the empty Kind for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
