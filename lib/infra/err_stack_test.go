package infra

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

var initPC = caller()

func caller() Frame {
	var PCs [3]uintptr
	n := runtime.Callers(2, PCs[:])
	frames := runtime.CallersFrames(PCs[:n])
	frame, _ := frames.Next()
	return Frame(frame.PC)
}

func TestFrameFormat(t *testing.T) {
	testcases := []struct {
		Frame
		format string
		want   string
	}{
		{initPC, "%s", "err_stack_test.go"},
		{initPC, "%n", "init"},
		{Frame(0), "%s", "unknownFile"},
		{Frame(0), "%n", "unknownFunc"},
		{Frame(0), "%d", "0"},
		{Frame(0), "%v", "unknownFile:0"},
	}

	for _, tc := range testcases {
		require.Equal(t, tc.want, fmt.Sprintf(tc.format, tc.Frame))
	}
	require.True(t, strings.HasPrefix(fmt.Sprintf("%v", initPC), "err_stack_test.go:"))
}

func TestFrameMarshalText(t *testing.T) {
	text, err := Frame(0).MarshalText()
	require.NoError(t, err)
	require.Equal(t, "unknownFrame", string(text))

	text, err = initPC.MarshalText()
	require.NoError(t, err)
	require.Contains(t, string(text), "lib/infra.init")
	require.Contains(t, string(text), "err_stack_test.go:")
}

func TestErrorStack_Wrap(t *testing.T) {
	require.Nil(t, WrapErrorStack(nil))
	require.Nil(t, WrapErrorStackWithMessage(nil, "ignored"))

	errBase := errors.New("base failure")
	err := WrapErrorStack(errBase)
	require.ErrorIs(t, err, errBase)
	require.Equal(t, "base failure", err.Error())

	// Already carries frames.
	require.Same(t, err, WrapErrorStack(err))

	err = WrapErrorStackWithMessage(errBase, "load tree")
	require.ErrorIs(t, err, errBase)
	require.Equal(t, "load tree: base failure", err.Error())

	var es ErrorStack
	require.ErrorAs(t, err, &es)
	require.NotEmpty(t, es.Frames())
	require.Equal(t, "TestErrorStack_Wrap", fmt.Sprintf("%n", es.Frames()[0]))
}

func TestErrorStack_MarshalLogObject(t *testing.T) {
	err := NewErrorStack("tree corrupted")
	es, ok := err.(ErrorStack)
	require.True(t, ok)

	enc := zapcore.NewMapObjectEncoder()
	require.NoError(t, es.MarshalLogObject(enc))
	require.Equal(t, "tree corrupted", enc.Fields["error"])
	stack, ok := enc.Fields["errorStack"].([]any)
	require.True(t, ok)
	require.Len(t, stack, len(es.Frames()))
}
