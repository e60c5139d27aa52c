package reverts

import (
	"errors"
	"fmt"
	"testing"

	pkgErrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func Test_Reverts(t *testing.T) {
	t.Run("Should match the sentinel of the same kind", func(t *testing.T) {
		err := Validation("amount must be positive")
		assert.True(t, errors.Is(err, ErrValidation))
		assert.False(t, errors.Is(err, ErrState))
	})
	t.Run("Should match through wrapping", func(t *testing.T) {
		err := fmt.Errorf("createLock: %w", State("lock already exists"))
		assert.True(t, errors.Is(err, ErrState))
		assert.True(t, IsRevertErr(err))
		assert.Equal(t, KindState, KindOf(err))

		wrapped := pkgErrors.Wrap(Authorization("not owner"), "setBreaker")
		assert.True(t, errors.Is(wrapped, ErrAuthorization))
	})
	t.Run("Should keep the transfer cause", func(t *testing.T) {
		cause := errors.New("insufficient balance")
		err := ExternalTransfer(cause, "pull principal")
		assert.True(t, errors.Is(err, ErrExternalTransfer))
		assert.True(t, errors.Is(err, cause))
		assert.Contains(t, err.Error(), "insufficient balance")
	})
	t.Run("Should not treat plain errors as reverts", func(t *testing.T) {
		assert.False(t, IsRevertErr(errors.New("connection refused")))
		assert.False(t, IsRevertErr(nil))
		assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	})
}
