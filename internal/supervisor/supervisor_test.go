package supervisor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testCommand struct {
	Kind string `json:"kind"`
}

type testReport struct {
	Kind string `json:"kind"`
}

func TestReportCallbackShortCircuits(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sup, err := Spawn[testCommand, testReport](ctx, "sh", []string{"-c", `echo '{"kind":"progress"}'; echo '{"kind":"gameover"}'; sleep 5`},
		func(r testReport) *bool {
			if r.Kind == "gameover" {
				clean := true
				return &clean
			}
			return nil
		}, 2*time.Second, nil)
	require.NoError(t, err)

	status := sup.Wait()
	require.True(t, status.Clean)
}

func TestCleanExitIsClean(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sup, err := Spawn[testCommand, testReport](ctx, "sh", []string{"-c", "exit 0"}, nil, time.Second, nil)
	require.NoError(t, err)

	status := sup.Wait()
	require.True(t, status.Clean)
}

func TestNonzeroExitIsAborted(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sup, err := Spawn[testCommand, testReport](ctx, "sh", []string{"-c", "exit 1"}, nil, time.Second, nil)
	require.NoError(t, err)

	status := sup.Wait()
	require.False(t, status.Clean)
}

func TestMalformedLineTerminatesAsAborted(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sup, err := Spawn[testCommand, testReport](ctx, "sh", []string{"-c", `echo 'not json'; sleep 5`}, nil, time.Second, nil)
	require.NoError(t, err)

	status := sup.Wait()
	require.False(t, status.Clean)
}

func TestAbortKillsSlowChild(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sup, err := Spawn[testCommand, testReport](ctx, "sh", []string{"-c", "cat; sleep 30"}, nil, 300*time.Millisecond, nil)
	require.NoError(t, err)

	start := time.Now()
	status := sup.Abort(testCommand{Kind: "abort"})
	require.False(t, status.Clean)
	require.Less(t, time.Since(start), 5*time.Second)
}
