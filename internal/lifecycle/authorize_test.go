package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAuthorizeOwnerOnlyStudentOperations(t *testing.T) {
	owner := Actor{ID: 1, Role: RoleStudent}
	otherStudent := Actor{ID: 2, Role: RoleStudent}
	admin := Actor{ID: 9, Role: RoleAdmin}

	for _, op := range []Operation{OpSubmit, OpResubmit} {
		require.NoError(t, Authorize(owner, op, 1))
		require.ErrorIs(t, Authorize(otherStudent, op, 1), ErrForbidden)
		require.ErrorIs(t, Authorize(admin, op, 1), ErrForbidden)
	}
}

func TestAuthorizeReviewIsAdminOnly(t *testing.T) {
	admin := Actor{ID: 9, Role: RoleAdmin}
	anotherAdmin := Actor{ID: 10, Role: RoleAdmin}
	student := Actor{ID: 1, Role: RoleStudent}

	// Any admin may review any submission, ownership is irrelevant.
	require.NoError(t, Authorize(admin, OpReview, 1))
	require.NoError(t, Authorize(anotherAdmin, OpReview, 1))
	require.ErrorIs(t, Authorize(student, OpReview, 1), ErrForbidden)
	require.ErrorIs(t, Authorize(Actor{ID: 1, Role: Role("guest")}, OpReview, 1), ErrForbidden)
}

func TestAuthorizeUnknownOperationDenied(t *testing.T) {
	require.ErrorIs(t, Authorize(Actor{ID: 9, Role: RoleAdmin}, Operation("delete"), 1), ErrForbidden)
}

func TestAuthorizeRoleDoesNotNeedOwner(t *testing.T) {
	require.NoError(t, AuthorizeRole(Actor{ID: 3, Role: RoleStudent}, OpResubmit))
	require.ErrorIs(t, AuthorizeRole(Actor{ID: 9, Role: RoleAdmin}, OpResubmit), ErrForbidden)
	require.NoError(t, AuthorizeRole(Actor{ID: 9, Role: RoleAdmin}, OpReview))
	require.ErrorIs(t, AuthorizeRole(Actor{ID: 3, Role: RoleStudent}, OpReview), ErrForbidden)
}
