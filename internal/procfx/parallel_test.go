package procfx_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hive2hive/h2h/internal/h2herrors"
	"github.com/hive2hive/h2h/internal/procfx"
)

func TestParallelRunsChildrenConcurrently(t *testing.T) {
	var mu sync.Mutex
	var ran []string
	track := func(name string) *procfx.Step {
		return procfx.NewStep(name, func(ctx context.Context) *procfx.StepFailure {
			mu.Lock()
			ran = append(ran, name)
			mu.Unlock()
			return nil
		}, nil)
	}

	proc := procfx.New(procfx.NewParallel("par", track("a"), track("b"), track("c")))
	state, failure := proc.ExecuteBlocking(context.Background())

	require.Nil(t, failure)
	assert.Equal(t, procfx.Succeeded, state)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, ran)
}

func TestParallelRollsBackSucceededSiblingsOnOneFailure(t *testing.T) {
	var mu sync.Mutex
	var rolledBack []string
	succeedAndRecord := func(name string) *procfx.Step {
		return procfx.NewStep(name,
			func(ctx context.Context) *procfx.StepFailure { return nil },
			func(ctx context.Context, _ *procfx.StepFailure) {
				mu.Lock()
				rolledBack = append(rolledBack, name)
				mu.Unlock()
			})
	}
	fail := procfx.NewStep("boom", func(ctx context.Context) *procfx.StepFailure {
		return procfx.Fail(h2herrors.ProcessExecutionFailure, "boom")
	}, nil)

	proc := procfx.New(procfx.NewParallel("par", succeedAndRecord("a"), succeedAndRecord("b"), fail))
	state, failure := proc.ExecuteBlocking(context.Background())

	require.NotNil(t, failure)
	assert.Equal(t, procfx.RolledBack, state)
	assert.ElementsMatch(t, []string{"a", "b"}, rolledBack)
}

func TestResultStepCarriesValueToLaterSteps(t *testing.T) {
	result := procfx.NewResultStep[int]("compute", func(ctx context.Context) (int, *procfx.StepFailure) {
		return 42, nil
	}, nil)

	var observed int
	useResult := procfx.NewStep("use", func(ctx context.Context) *procfx.StepFailure {
		observed = result.Value()
		return nil
	}, nil)

	proc := procfx.New(procfx.NewSequential("seq", result.Step, useResult))
	_, failure := proc.ExecuteBlocking(context.Background())

	require.Nil(t, failure)
	assert.Equal(t, 42, observed)
}

func TestCancelBeforeStartSkipsEverySequentialChild(t *testing.T) {
	var ran []string
	step := procfx.NewStep("never", func(ctx context.Context) *procfx.StepFailure {
		ran = append(ran, "never")
		return nil
	}, nil)

	proc := procfx.New(procfx.NewSequential("seq", step))
	proc.Cancel()
	_, failure := proc.ExecuteBlocking(context.Background())

	require.NotNil(t, failure)
	kind, ok := h2herrors.Of(failure)
	require.True(t, ok)
	assert.Equal(t, h2herrors.AbortedByUser, kind)
	assert.Empty(t, ran)
}
