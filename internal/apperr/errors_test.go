package apperr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrappedKinds(t *testing.T) {
	assert.True(t, errors.Is(Validation("end must be after start"), ErrValidation))
	assert.True(t, errors.Is(Conflict("equipment %d is booked", 4), ErrConflict))
	assert.True(t, errors.Is(NotFound("reservation %d", 9), ErrNotFound))
	assert.True(t, errors.Is(Transport("email", errors.New("dial tcp")), ErrTransport))
	assert.True(t, errors.Is(ErrForbidden, ErrUnauthorized))

	assert.Equal(t, "conflict: equipment 4 is booked", Conflict("equipment %d is booked", 4).Error())
}
