package kernel

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSentinelErrorsMatchAnyConcreteType(t *testing.T) {
	require.True(t, errors.Is(&ActivateTaskError{kind: errBadContext}, ErrBadContext))
	require.False(t, errors.Is(&ActivateTaskError{kind: errQueueOverflow}, ErrBadContext))
	require.True(t, errors.Is(&ActivateTaskError{kind: errQueueOverflow}, ErrQueueOverflow))

	require.True(t, errors.Is(&CpuLockError{kind: errBadContext}, ErrBadContext))
	require.True(t, errors.Is(&ExitTaskError{kind: errBadContext}, ErrBadContext))
	require.True(t, errors.Is(&InterruptLineError{kind: errNotSupported}, ErrNotSupported))
}

func TestErrKindStrings(t *testing.T) {
	require.Equal(t, "bad context", errBadContext.String())
	require.Equal(t, "bad id", errBadID.String())
	require.Equal(t, "bad parameter", errBadParam.String())
	require.Equal(t, "queue overflow", errQueueOverflow.String())
	require.Equal(t, "not supported", errNotSupported.String())
	require.Equal(t, "unknown", errKind(99).String())
}

func TestErrorMessagesNameTheirOperation(t *testing.T) {
	require.Contains(t, (&ActivateTaskError{kind: errBadID}).Error(), "activate task")
	require.Contains(t, (&CpuLockError{kind: errBadContext}).Error(), "cpu lock")
	require.Contains(t, (&ExitTaskError{kind: errBadContext}).Error(), "exit task")
	require.Contains(t, (&InterruptLineError{kind: errBadParam}).Error(), "interrupt line")
}
