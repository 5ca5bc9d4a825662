package logz

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewReturnsUsableLogger(t *testing.T) {
	lg := New(false)
	require.NotNil(t, lg)
	lg.Info("production logger smoke test")
}

func TestNewDebugReturnsUsableLogger(t *testing.T) {
	lg := New(true)
	require.NotNil(t, lg)
	lg.Debug("debug logger smoke test")
}

func TestNamedScopesChildLogger(t *testing.T) {
	base := New(false)
	child := Named(base, "component")
	require.NotNil(t, child)
}

func TestNamedOnNilBaseReturnsNoop(t *testing.T) {
	child := Named(nil, "component")
	require.NotNil(t, child)
	child.Info("must not panic")
}
