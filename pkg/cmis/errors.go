package cmis

import (
	"errors"
	"fmt"
)

// ErrorKind classifies repository errors. Bindings translate kinds into
// their own fault representation.
type ErrorKind int

const (
	KindRuntime ErrorKind = iota
	KindInvalidArgument
	KindObjectNotFound
	KindNameConstraintViolation
	KindConstraint
	KindUpdateConflict
	KindPermissionDenied
	KindNotSupported
	KindStorageLimitExceeded
)

// Error types
var (
	// ErrRuntime indicates an unexpected internal failure
	ErrRuntime = errors.New("runtime error")

	// ErrInvalidArgument indicates a malformed or missing parameter
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrObjectNotFound indicates an unknown object id, path or type
	ErrObjectNotFound = errors.New("object not found")

	// ErrNameConstraintViolation indicates a sibling with the same name exists
	ErrNameConstraintViolation = errors.New("name constraint violation")

	// ErrConstraint indicates a repository or type constraint was violated
	ErrConstraint = errors.New("constraint violation")

	// ErrUpdateConflict indicates a stale change token or a checked-out conflict
	ErrUpdateConflict = errors.New("update conflict")

	// ErrPermissionDenied indicates the principal lacks the required permission
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotSupported indicates the operation is not supported by the repository
	ErrNotSupported = errors.New("not supported")

	// ErrStorageLimitExceeded indicates a content stream exceeds the size ceiling
	ErrStorageLimitExceeded = errors.New("storage limit exceeded")
)

var kindSentinels = map[ErrorKind]error{
	KindRuntime:                 ErrRuntime,
	KindInvalidArgument:         ErrInvalidArgument,
	KindObjectNotFound:          ErrObjectNotFound,
	KindNameConstraintViolation: ErrNameConstraintViolation,
	KindConstraint:              ErrConstraint,
	KindUpdateConflict:          ErrUpdateConflict,
	KindPermissionDenied:        ErrPermissionDenied,
	KindNotSupported:            ErrNotSupported,
	KindStorageLimitExceeded:    ErrStorageLimitExceeded,
}

func (k ErrorKind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalidArgument"
	case KindObjectNotFound:
		return "objectNotFound"
	case KindNameConstraintViolation:
		return "nameConstraintViolation"
	case KindConstraint:
		return "constraint"
	case KindUpdateConflict:
		return "updateConflict"
	case KindPermissionDenied:
		return "permissionDenied"
	case KindNotSupported:
		return "notSupported"
	case KindStorageLimitExceeded:
		return "storage"
	default:
		return "runtime"
	}
}

// Error represents a failed repository operation
type Error struct {
	Kind     ErrorKind
	Op       string
	ObjectID string
	Message  string
}

// Errorf creates an Error of the given kind with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = kindSentinels[e.Kind].Error()
	}
	switch {
	case e.Op != "" && e.ObjectID != "":
		return fmt.Sprintf("%s %s: %s", e.Op, e.ObjectID, msg)
	case e.Op != "":
		return fmt.Sprintf("%s: %s", e.Op, msg)
	default:
		return msg
	}
}

// Is reports whether target is the sentinel error of e's kind.
func (e *Error) Is(target error) bool {
	return kindSentinels[e.Kind] == target
}

// Unwrap returns the sentinel error of e's kind.
func (e *Error) Unwrap() error {
	return kindSentinels[e.Kind]
}

// WithOp returns a copy of e annotated with the operation and object id.
// Annotations already present are kept.
func (e *Error) WithOp(op, objectID string) *Error {
	c := *e
	if c.Op == "" {
		c.Op = op
	}
	if c.ObjectID == "" {
		c.ObjectID = objectID
	}
	return &c
}

// KindOf classifies err. Errors that are not repository errors are
// reported as KindRuntime.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	for kind, sentinel := range kindSentinels {
		if errors.Is(err, sentinel) {
			return kind
		}
	}
	return KindRuntime
}

// IsNotFound reports whether err is an ObjectNotFound error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}
