package moderation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	t.Run("kind of classified errors", func(t *testing.T) {
		assert.Equal(t, KindNotFound, KindOf(notFoundf("comment %d not found", 1)))
		assert.Equal(t, KindForbidden, KindOf(forbiddenf("no")))
		assert.Equal(t, KindValidation, KindOf(validationf("bad input")))
		assert.Equal(t, KindConflict, KindOf(conflictf("already done")))
		assert.Equal(t, KindTransient, KindOf(Transient(errors.New("database is locked"))))
	})

	t.Run("kind survives wrapping", func(t *testing.T) {
		err := fmt.Errorf("outer context: %w", conflictf("already done"))
		assert.True(t, IsKind(err, KindConflict))
	})

	t.Run("foreign errors are unknown", func(t *testing.T) {
		assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
		assert.Equal(t, KindUnknown, KindOf(nil))
	})

	t.Run("transient preserves the cause", func(t *testing.T) {
		cause := errors.New("database is locked")
		err := Transient(cause)
		assert.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), "retry")
	})

	t.Run("kind names", func(t *testing.T) {
		assert.Equal(t, "not_found", KindNotFound.String())
		assert.Equal(t, "degraded", KindDegraded.String())
		assert.Equal(t, "unknown", KindUnknown.String())
	})
}
