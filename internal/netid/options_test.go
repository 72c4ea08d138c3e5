package netid

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestConfig_ValidateAcceptsDefaults(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
}

func TestConfig_ValidateAccumulatesEveryFailure(t *testing.T) {
	cfg := NewConfig(
		WithMinHTL(0),
		WithFallOpenMark(2),
		WithAcceptedTimeout(0),
	)

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	assert.Len(t, multierr.Errors(err), 3, "one accumulated error per invalid field, not just the first")
}
