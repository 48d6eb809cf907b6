package task_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ringproactor/reactor/task"
)

func TestCompleteBeforeAwait(t *testing.T) {
	tk, c := task.New[int]()
	c.Complete(42)
	v, err := tk.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestFailBeforeAwait(t *testing.T) {
	tk, c := task.New[string]()
	wantErr := errors.New("boom")
	c.Fail(wantErr)
	_, err := tk.Await(context.Background())
	assert.ErrorIs(t, err, wantErr)
}

func TestCompleteAfterAwait(t *testing.T) {
	tk, c := task.New[int]()
	done := make(chan struct{})
	go func() {
		defer close(done)
		time.Sleep(10 * time.Millisecond)
		c.Complete(7)
	}()
	v, err := tk.Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	<-done
}

func TestAwaitContextCanceled(t *testing.T) {
	tk, _ := task.New[int]()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := tk.Await(ctx)
	assert.Error(t, err)
}

func TestDoubleAwaitPanics(t *testing.T) {
	tk, c := task.New[int]()
	c.Complete(1)
	_, _ = tk.Await(context.Background())
	assert.Panics(t, func() {
		_, _ = tk.Await(context.Background())
	})
}
