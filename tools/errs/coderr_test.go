package errs

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsMatchesByCodeThroughWraps(t *testing.T) {
	err := ErrNotFound.WrapMsg("user u123")
	require.True(t, Is(err, ErrNotFound))
	require.False(t, Is(err, ErrUnauthorized))

	wrapped := WrapMsg(err, "lookup")
	require.True(t, Is(wrapped, ErrNotFound))
}

func TestWithDetailKeepsIdentity(t *testing.T) {
	detailed := ErrInvalidContent.WithDetail("too large")
	require.True(t, Is(detailed, ErrInvalidContent))
	require.Contains(t, detailed.Error(), "too large")
	require.Empty(t, ErrInvalidContent.Detail, "the sentinel itself is never mutated")
}

func TestCodeOf(t *testing.T) {
	require.Equal(t, CodeUnavailable, CodeOf(ErrUnavailable.Wrap()))
	require.Zero(t, CodeOf(New("plain")))
	require.Zero(t, CodeOf(nil))
}

func TestWrapNil(t *testing.T) {
	require.NoError(t, Wrap(nil))
	require.NoError(t, WrapMsg(nil, "ignored"))
}
