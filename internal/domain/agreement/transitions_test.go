package agreement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusActive, true},
		{StatusPending, StatusCancelled, true},
		{StatusPending, StatusSuspended, false},
		{StatusPending, StatusExpired, false},

		{StatusActive, StatusSuspended, true},
		{StatusActive, StatusExpired, true},
		{StatusActive, StatusCancelled, true},
		{StatusActive, StatusPending, false},

		{StatusSuspended, StatusActive, true},
		{StatusSuspended, StatusExpired, true},
		{StatusSuspended, StatusCancelled, true},
		{StatusSuspended, StatusPending, false},

		{StatusExpired, StatusActive, true},
		{StatusExpired, StatusCancelled, true},
		{StatusExpired, StatusSuspended, false},
		{StatusExpired, StatusPending, false},

		// CANCELLED is terminal
		{StatusCancelled, StatusPending, false},
		{StatusCancelled, StatusActive, false},
		{StatusCancelled, StatusSuspended, false},
		{StatusCancelled, StatusExpired, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.allowed, CanTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestCanTransitionSameStatus(t *testing.T) {
	for _, s := range []Status{StatusPending, StatusActive, StatusSuspended, StatusExpired, StatusCancelled} {
		assert.True(t, CanTransition(s, s), "%s -> %s", s, s)
	}
}

func TestCanTransitionUnknownStatus(t *testing.T) {
	assert.False(t, CanTransition(Status("DRAFT"), StatusActive))
	assert.False(t, CanTransition(StatusActive, Status("DRAFT")))
}

func TestValidStatus(t *testing.T) {
	assert.True(t, ValidStatus(StatusPending))
	assert.True(t, ValidStatus(StatusCancelled))
	assert.False(t, ValidStatus(Status("DRAFT")))
	assert.False(t, ValidStatus(Status("")))
}
