package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExitCodes(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitConfigError, GetExitCode(Config("bad")))
	assert.Equal(t, ExitReportError, GetExitCode(Baselinef("missing")))
	assert.Equal(t, ExitReportError, GetExitCode(MetricShapef("shape")))
	assert.Equal(t, ExitRuntimeError, GetExitCode(Transportf("gone")))
	assert.Equal(t, ExitRuntimeError, GetExitCode(errors.New("plain")))
}

func TestGetExitCodeUnwrapsWrappedErrors(t *testing.T) {
	err := fmt.Errorf("while loading: %w", Config("bad"))
	assert.Equal(t, ExitConfigError, GetExitCode(err))
}

func TestIsKindWalksTheChain(t *testing.T) {
	cause := errors.New("timeout")
	err := SuiteCase("size=100", cause)

	assert.True(t, IsKind(err, KindSuiteCase))
	assert.False(t, IsKind(err, KindConfig))
	assert.False(t, IsKind(nil, KindConfig))
}

func TestSuiteCaseMessageFallsBackToCause(t *testing.T) {
	cause := errors.New("assertion failed")
	err := SuiteCase("impl=b", cause)

	assert.Equal(t, "assertion failed", err.Error())
	assert.Equal(t, "impl=b", err.Params)
	assert.Same(t, cause, errors.Unwrap(err))
}
