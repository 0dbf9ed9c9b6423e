package sandbox

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Tests drive the runner with sh so they do not depend on a Python install.

func TestRunCodeSuccess(t *testing.T) {
	runner := NewRunner(WithInterpreter("sh"), WithTimeout(10*time.Second))

	result, err := runner.RunCode(context.Background(), "echo hello world")
	require.NoError(t, err)

	assert.False(t, result.Failed())
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Stdout, "hello world")
}

func TestRunCodeFailure(t *testing.T) {
	runner := NewRunner(WithInterpreter("sh"), WithTimeout(10*time.Second))

	result, err := runner.RunCode(context.Background(), "echo broken >&2; exit 3")
	require.NoError(t, err)

	assert.True(t, result.Failed())
	assert.Equal(t, 3, result.ExitCode)
	assert.Contains(t, result.Stderr, "broken")
}

func TestRunCodeTimeout(t *testing.T) {
	runner := NewRunner(WithInterpreter("sh"), WithTimeout(200*time.Millisecond))

	result, err := runner.RunCode(context.Background(), "sleep 5")
	require.NoError(t, err)

	assert.True(t, result.TimedOut)
	assert.True(t, result.Failed())
}

func TestRunFileMissingInterpreter(t *testing.T) {
	runner := NewRunner(WithInterpreter("definitely-not-a-binary"))

	_, err := runner.RunCode(context.Background(), "echo hi")
	assert.Error(t, err)
}

func TestResultOutput(t *testing.T) {
	result := Result{Stdout: "out", Stderr: "err"}
	out := result.Output()
	assert.Contains(t, out, "out")
	assert.Contains(t, out, "stderr:")
	assert.Contains(t, out, "err")

	timedOut := Result{TimedOut: true, Duration: time.Second}
	assert.Contains(t, timedOut.Output(), "timed out")
}

func TestSessionInteractive(t *testing.T) {
	manager := NewManager(WithManagerInterpreter("sh"))
	ctx := context.Background()

	session, err := manager.StartCode(ctx, "echo ready\nread name\necho \"hello $name\"\n")
	require.NoError(t, err)

	line, ok, err := session.ReadLine(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ready", line)

	require.NoError(t, session.Send("go"))

	line, ok, err = session.ReadLine(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello go", line)

	code, err := session.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.False(t, session.Running())
}

func TestManagerStop(t *testing.T) {
	manager := NewManager(WithManagerInterpreter("sh"))
	ctx := context.Background()

	session, err := manager.StartCode(ctx, "sleep 30\n")
	require.NoError(t, err)

	got, ok := manager.Get(session.ID)
	require.True(t, ok)
	assert.Equal(t, session, got)

	require.NoError(t, manager.Stop(ctx, session.ID))
	assert.False(t, session.Running())

	_, ok = manager.Get(session.ID)
	assert.False(t, ok)

	assert.Error(t, manager.Stop(ctx, "missing"))
}

func TestManagerStopAll(t *testing.T) {
	manager := NewManager(WithManagerInterpreter("sh"))
	ctx := context.Background()

	first, err := manager.StartCode(ctx, "sleep 30\n")
	require.NoError(t, err)
	second, err := manager.StartCode(ctx, "sleep 30\n")
	require.NoError(t, err)

	manager.StopAll(ctx)

	assert.False(t, first.Running())
	assert.False(t, second.Running())
}

func TestExecTool(t *testing.T) {
	runner := NewRunner(WithInterpreter("sh"), WithWorkDir(t.TempDir()))
	tool := NewExecTool(runner)
	ctx := context.Background()

	output, err := tool.Execute(ctx, `{"code":"echo tool ok"}`)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(output, "Execution successful:\n\n"))
	assert.Contains(t, output, "tool ok")

	output, err = tool.Execute(ctx, `{"code":"exit 4"}`)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(output, "Execution error:\n\n"))

	_, err = tool.Execute(ctx, `{"code":""}`)
	require.Error(t, err)

	_, err = tool.Execute(ctx, `not json`)
	require.Error(t, err)
}
