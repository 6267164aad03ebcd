package core

import (
	"bytes"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssertPassesThrough(t *testing.T) {
	assert.NotPanics(t, func() { Assert(true, "never") })
	assert.NotPanics(t, func() { Assertf(1 == 1, "never %d", 1) })
}

func TestAssertPanicsWithAssertionFailure(t *testing.T) {
	var buf bytes.Buffer
	SetLogOutput(&buf)

	defer func() {
		r := recover()
		require.NotNil(t, r)
		require.True(t, IsAssertionFailure(r))
		err := r.(error)
		assert.True(t, errors.HasAssertionFailure(err))
		assert.Contains(t, err.Error(), "buffer 3 is pending")
		assert.Contains(t, buf.String(), "assertion failed")
	}()
	Assertf(false, "buffer %d is pending", 3)
}

func TestIsAssertionFailureIgnoresOtherPanics(t *testing.T) {
	assert.False(t, IsAssertionFailure("boom"))
	assert.False(t, IsAssertionFailure(errors.New("plain")))
}
