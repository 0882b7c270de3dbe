package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	*BaseComponent
	events  *[]string
	failure error
}

func newRecorder(events *[]string, name string, deps ...string) *recorder {
	return &recorder{BaseComponent: NewBaseComponent(name, deps...), events: events}
}

func (r *recorder) Start(ctx context.Context) error {
	if r.failure != nil {
		return r.failure
	}
	*r.events = append(*r.events, "start:"+r.Name())
	return r.BaseComponent.Start(ctx)
}

func (r *recorder) Stop(ctx context.Context) error {
	*r.events = append(*r.events, "stop:"+r.Name())
	return r.BaseComponent.Stop(ctx)
}

func TestLifecycleStartsInDependencyOrderAndStopsInReverse(t *testing.T) {
	var events []string
	c := NewContainer()
	require.NoError(t, c.Register("service", newRecorder(&events, "service", "store", "logging")))
	require.NoError(t, c.Register("store", newRecorder(&events, "store", "logging")))
	require.NoError(t, c.Register("logging", newRecorder(&events, "logging")))

	lm := NewLifecycleManager(c, nil)
	require.NoError(t, lm.StartAll(context.Background()))
	lm.StopAll(context.Background())
	lm.StopAll(context.Background())

	assert.Equal(t, []string{
		"start:logging", "start:store", "start:service",
		"stop:service", "stop:store", "stop:logging",
	}, events)
}

func TestLifecycleRollsBackOnStartFailure(t *testing.T) {
	var events []string
	c := NewContainer()
	broken := newRecorder(&events, "store", "logging")
	broken.failure = errors.New("disk full")
	require.NoError(t, c.Register("logging", newRecorder(&events, "logging")))
	require.NoError(t, c.Register("store", broken))

	err := NewLifecycleManager(c, nil).StartAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, broken.failure)
	assert.Equal(t, []string{"start:logging", "stop:logging"}, events)
}

func TestContainerDetectsCyclesAndMissingDeps(t *testing.T) {
	var events []string
	c := NewContainer()
	require.NoError(t, c.Register("a", newRecorder(&events, "a", "b")))
	require.NoError(t, c.Register("b", newRecorder(&events, "b", "a")))
	_, err := c.SortComponentsByDependencies()
	assert.ErrorContains(t, err, "circular dependency")

	c2 := NewContainer()
	require.NoError(t, c2.Register("a", newRecorder(&events, "a", "ghost")))
	_, err = c2.ValidateDependencies()
	assert.ErrorContains(t, err, "a -> ghost")
}
