package errors

import (
	stderrors "errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnnotatesCallSite(t *testing.T) {
	err := New("zone %q not configured", "serp")
	require.Error(t, err)
	assert.Regexp(t, `^\[errors_test\.go:\d+\] zone "serp" not configured$`, err.Error())
}

func TestWrapfPreservesCause(t *testing.T) {
	err := Wrapf(io.ErrUnexpectedEOF, "reading config")
	require.Error(t, err)
	assert.Regexp(t, `^\[errors_test\.go:\d+\] reading config: unexpected EOF$`, err.Error())
	assert.True(t, stderrors.Is(err, io.ErrUnexpectedEOF))
}

func TestWrapfNil(t *testing.T) {
	assert.NoError(t, Wrapf(nil, "never happened"))
}
