package occupancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	assert.Equal(t, StatusOpen, StatusFor(0, 4))
	assert.Equal(t, StatusOpen, StatusFor(3, 4))
	assert.Equal(t, StatusFull, StatusFor(4, 4))
	// Over-capacity counts still report Full.
	assert.Equal(t, StatusFull, StatusFor(5, 4))
}

func TestSentinelErrorsAreDistinct(t *testing.T) {
	errs := []error{
		ErrAlreadyCheckedIn,
		ErrCourtNotFound,
		ErrCourtFull,
		ErrNoActiveSession,
	}
	for i, a := range errs {
		for j, b := range errs {
			if i == j {
				continue
			}
			assert.NotErrorIs(t, a, b)
		}
	}
}
