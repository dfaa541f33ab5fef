package site

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/mdsite/internal/metrics"
)

func newTestState() *BuildState {
	g := &Generator{recorder: metrics.NoopRecorder{}}
	return newBuildState(g, newBuildReport())
}

func namedStage(name StageName, fn Stage) StageDef { return StageDef{Name: name, Fn: fn} }

func TestRunStages_ExecutesInOrder(t *testing.T) {
	bs := newTestState()
	var order []StageName

	record := func(name StageName) Stage {
		return func(context.Context, *BuildState) error {
			order = append(order, name)
			return nil
		}
	}

	err := runStages(context.Background(), bs, []StageDef{
		namedStage(StageScanSource, record(StageScanSource)),
		namedStage(StageRenderArticles, record(StageRenderArticles)),
	})
	require.NoError(t, err)
	require.Equal(t, []StageName{StageScanSource, StageRenderArticles}, order)
	require.Contains(t, bs.Timings, StageScanSource)
	require.Contains(t, bs.Report.StageDurations, StageRenderArticles)
}

func TestRunStages_WarningContinues(t *testing.T) {
	bs := newTestState()
	ran := false

	err := runStages(context.Background(), bs, []StageDef{
		namedStage(StageRenderArticles, func(context.Context, *BuildState) error {
			return newWarnStageError(StageRenderArticles, errors.New("2 articles failed"))
		}),
		namedStage(StageWriteIndex, func(context.Context, *BuildState) error {
			ran = true
			return nil
		}),
	})
	require.NoError(t, err)
	require.True(t, ran)
	require.Len(t, bs.Report.Warnings, 1)
	require.Equal(t, StageErrorWarning, bs.Report.StageErrorKinds[StageRenderArticles])
}

func TestRunStages_FatalStops(t *testing.T) {
	bs := newTestState()
	ran := false

	err := runStages(context.Background(), bs, []StageDef{
		namedStage(StageScanSource, func(context.Context, *BuildState) error {
			return newFatalStageError(StageScanSource, errors.New("unreadable"))
		}),
		namedStage(StageRenderArticles, func(context.Context, *BuildState) error {
			ran = true
			return nil
		}),
	})
	require.Error(t, err)
	require.False(t, ran)

	var se *StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, StageErrorFatal, se.Kind)
	require.Len(t, bs.Report.Errors, 1)
}

func TestRunStages_PlainErrorTreatedAsFatal(t *testing.T) {
	bs := newTestState()

	err := runStages(context.Background(), bs, []StageDef{
		namedStage(StagePrepareOutput, func(context.Context, *BuildState) error {
			return errors.New("mkdir failed")
		}),
	})

	var se *StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, StageErrorFatal, se.Kind)
	require.Equal(t, StagePrepareOutput, se.Stage)
}

func TestRunStages_CanceledContextStopsBeforeStage(t *testing.T) {
	bs := newTestState()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := runStages(ctx, bs, []StageDef{
		namedStage(StageScanSource, func(context.Context, *BuildState) error {
			ran = true
			return nil
		}),
	})
	require.Error(t, err)
	require.False(t, ran)

	var se *StageError
	require.ErrorAs(t, err, &se)
	require.Equal(t, StageErrorCanceled, se.Kind)
	require.ErrorIs(t, err, context.Canceled)
}
