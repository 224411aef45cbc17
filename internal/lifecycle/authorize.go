package lifecycle

import "errors"

// Role identifies the kind of principal acting on a submission.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStudent Role = "student"
)

// Actor is the authenticated principal attempting an operation. Identity is
// supplied by the session layer and trusted verbatim here.
type Actor struct {
	ID   uint
	Role Role
}

// Operation names a submission operation for authorization purposes.
type Operation string

const (
	OpSubmit   Operation = "submit"
	OpResubmit Operation = "resubmit"
	OpReview   Operation = "review"
)

// ErrForbidden signals the acting principal may not invoke the operation.
var ErrForbidden = errors.New("operation not permitted for this principal")

// Authorize decides whether the actor may invoke op against a submission
// owned by ownerID. It must run before any state mutation; a denial leaves
// the store untouched.
//
// submit and resubmit are owner-only student operations. review is open to
// any admin regardless of which student owns the record.
func Authorize(actor Actor, op Operation, ownerID uint) error {
	switch op {
	case OpSubmit, OpResubmit:
		if actor.Role != RoleStudent || actor.ID != ownerID {
			return ErrForbidden
		}
		return nil
	case OpReview:
		if actor.Role != RoleAdmin {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}

// AuthorizeRole checks only the role requirement of an operation, for call
// sites that must deny before the record (and therefore its owner) has been
// loaded, so that a denial does not reveal whether the record exists.
func AuthorizeRole(actor Actor, op Operation) error {
	switch op {
	case OpSubmit, OpResubmit:
		if actor.Role != RoleStudent {
			return ErrForbidden
		}
		return nil
	case OpReview:
		if actor.Role != RoleAdmin {
			return ErrForbidden
		}
		return nil
	default:
		return ErrForbidden
	}
}
