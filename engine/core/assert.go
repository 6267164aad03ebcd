package core

import (
	"github.com/cockroachdb/errors"
)

// Assert panics when cond is false. It is reserved for programming-contract
// violations; environmental failures are reported through return values.
func Assert(cond bool, msg string) {
	if cond {
		return
	}
	fail(errors.AssertionFailedWithDepthf(2, "%s", msg))
}

func Assertf(cond bool, format string, args ...interface{}) {
	if cond {
		return
	}
	fail(errors.AssertionFailedWithDepthf(2, format, args...))
}

func fail(err error) {
	LogError("assertion failed: %s", err.Error())
	panic(err)
}

// IsAssertionFailure reports whether a recovered panic value came from Assert.
func IsAssertionFailure(r interface{}) bool {
	err, ok := r.(error)
	return ok && errors.HasAssertionFailure(err)
}
