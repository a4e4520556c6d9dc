package core_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/carevoice/companion-go/pkg/core"
)

func TestCompanionError_Format(t *testing.T) {
	err := core.NewError("AddInterest", errors.New("boom"))
	assert.Equal(t, "companion: AddInterest: boom", err.Error())
}

func TestCompanionError_Unwrap(t *testing.T) {
	wrapped := core.NewError("GetBundle", fmt.Errorf("%w: disk full", core.ErrStorage))
	assert.True(t, errors.Is(wrapped, core.ErrStorage))

	var companionErr *core.CompanionError
	assert.True(t, errors.As(wrapped, &companionErr))
	assert.Equal(t, "GetBundle", companionErr.Op)
}

func TestNewError_NilPassthrough(t *testing.T) {
	assert.Nil(t, core.NewError("AddInterest", nil))
}

func TestErrorCategoriesAreDistinct(t *testing.T) {
	sentinels := []error{
		core.ErrValidation,
		core.ErrStorage,
		core.ErrEscalationDelivery,
		core.ErrNotFound,
		core.ErrInvalidConfig,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i == j {
				continue
			}
			assert.False(t, errors.Is(a, b))
		}
	}
}
