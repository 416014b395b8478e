package framework

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func TestRunnerAggregatesErrors(t *testing.T) {
	errA := errors.New("a")
	r := NewRunner().Go(
		NamedRun("ok", RunFunc(func(context.Context) error { return nil })),
		NamedRun("canceled", RunFunc(func(context.Context) error { return context.Canceled })),
		NamedRun("failed", RunFunc(func(context.Context) error { return errA })),
	)
	err := r.Wait()
	require.Error(t, err)
	agg, ok := err.(*AggregatedError)
	require.True(t, ok)
	require.Equal(t, []error{&RunnerError{Name: "failed", Err: errA}}, agg.Errors)
	require.True(t, errors.Is(err, errA))
	require.Equal(t, "failed: a", err.Error())
}

func TestRunnerFailFast(t *testing.T) {
	errA := errors.New("a")
	r := NewRunner().WithFailFast(true).Go(
		RunFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}),
		RunFunc(func(context.Context) error { return errA }),
	)
	err := r.Wait()
	var rerr *RunnerError
	require.True(t, errors.As(err, &rerr))
	require.Equal(t, "#1", rerr.Name)
	require.Error(t, r.Context.Err())
}

func TestRunnerStop(t *testing.T) {
	r := NewRunner()
	r.Go(NamedRun("loop", RunFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})))
	r.Stop()
	require.NoError(t, r.Wait())
}

func TestRunnerNoError(t *testing.T) {
	r := NewRunner().Go(RunFunc(func(context.Context) error { return nil }))
	require.NoError(t, r.Wait())
}

func TestRunWithContextCloser(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stopCh := make(chan struct{})
	closed := 0
	closer := closerFunc(func() error {
		closed++
		close(stopCh)
		return nil
	})
	cancel()
	err := RunWithContextCloser(ctx, closer, func() error {
		<-stopCh
		return nil
	})
	require.Equal(t, context.Canceled, err)
	require.Equal(t, 1, closed)
}

func TestAggregatedError(t *testing.T) {
	var errs AggregatedError
	require.NoError(t, errs.Add(nil).Aggregate())

	errA, errB := errors.New("a"), errors.New("b")
	err := errs.Add(errA).Aggregate()
	require.Equal(t, "a", err.Error())
	err = errs.Add(nil, errB).Aggregate()
	require.Equal(t, "multiple errors:\n  a\n  b", err.Error())
	require.True(t, errors.Is(err, errB))
}
