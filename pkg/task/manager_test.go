package task

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTask struct {
	name     string
	startErr error
	log      *[]string
	ctx      context.Context
}

func (r *recordingTask) Name() string { return r.name }

func (r *recordingTask) Start(ctx context.Context) error {
	r.ctx = ctx
	*r.log = append(*r.log, "start:"+r.name)
	return r.startErr
}

func (r *recordingTask) Stop() error {
	*r.log = append(*r.log, "stop:"+r.name)
	return nil
}

func reset(t *testing.T) {
	defaultManager = &manager{}
	t.Cleanup(func() { defaultManager = &manager{} })
}

func TestStartAllAndStopAllOrder(t *testing.T) {
	reset(t)
	var log []string
	a := &recordingTask{name: "a", log: &log}
	Register(a)
	Register(&recordingTask{name: "b", log: &log})
	Register(nil)

	require.NoError(t, StartAll(context.Background()))
	require.NoError(t, StartAll(context.Background()))
	StopAll()

	assert.Equal(t, []string{"start:a", "start:b", "stop:b", "stop:a"}, log)
	assert.ErrorIs(t, a.ctx.Err(), context.Canceled)
}

func TestStartAllRollsBackOnFailure(t *testing.T) {
	reset(t)
	var log []string
	Register(&recordingTask{name: "a", log: &log})
	Register(&recordingTask{name: "b", log: &log, startErr: errors.New("port in use")})
	Register(&recordingTask{name: "c", log: &log})

	err := StartAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start background task b")
	assert.Equal(t, []string{"start:a", "start:b", "stop:a"}, log)
}
