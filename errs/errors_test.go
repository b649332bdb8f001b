package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRefinementsAreCorrupted(t *testing.T) {
	refinements := []error{
		ErrTruncated,
		ErrTrailingBytes,
		ErrSizeMismatch,
		ErrSentinelMismatch,
		ErrUnknownProvider,
		ErrUnknownDiscriminant,
		ErrUnsupportedType,
		ErrDepthExceeded,
		ErrRepeatMismatch,
	}

	for _, err := range refinements {
		t.Run(err.Error(), func(t *testing.T) {
			require.ErrorIs(t, err, ErrCorrupted)

			wrapped := fmt.Errorf("%w: extra context", err)
			require.ErrorIs(t, wrapped, ErrCorrupted)
			require.ErrorIs(t, wrapped, err)
		})
	}
}

func TestRefinementsAreDistinct(t *testing.T) {
	require.False(t, errors.Is(ErrTruncated, ErrTrailingBytes))
	require.False(t, errors.Is(ErrUnknownProvider, ErrUnknownDiscriminant))
}

func TestWrapf(t *testing.T) {
	require.NoError(t, Wrapf(nil, "entry %d", 1))

	err := Wrapf(ErrTruncated, "entry %d", 3)
	require.EqualError(t, err, "entry 3: truncated input")
	require.ErrorIs(t, err, ErrTruncated)
	require.ErrorIs(t, err, ErrCorrupted)
}
