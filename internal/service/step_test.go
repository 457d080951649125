package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	ierr "github.com/flexprice/reconciler/internal/errors"
	"github.com/flexprice/reconciler/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepRunnerRecoversPanics(t *testing.T) {
	r := &stepRunner{logger: logger.NewNopLogger()}

	err := r.Run(context.Background(), "explodes", func(context.Context) error {
		panic("boom")
	})
	require.Error(t, err)
	assert.True(t, ierr.IsSystem(err))

	assert.NoError(t, r.Run(context.Background(), "fine", func(context.Context) error { return nil }))

	want := errors.New("failed")
	assert.ErrorIs(t, r.Run(context.Background(), "fails", func(context.Context) error { return want }), want)
}

func TestEnsureConvergesOnWinner(t *testing.T) {
	ctx := context.Background()
	var lookups atomic.Int32

	got, created, err := ensure(ctx, "test",
		func(context.Context) (string, error) {
			if lookups.Add(1) == 1 {
				return "", ierr.NewError("missing").Mark(ierr.ErrNotFound)
			}
			return "winner", nil
		},
		func(context.Context) (string, error) {
			return "", ierr.NewError("duplicate").Mark(ierr.ErrAlreadyExists)
		},
	)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "winner", got)
	assert.Equal(t, int32(2), lookups.Load())
}

func TestEnsurePropagatesLookupErrors(t *testing.T) {
	inserted := false
	_, _, err := ensure(context.Background(), "test",
		func(context.Context) (int, error) {
			return 0, ierr.NewError("connection refused").Mark(ierr.ErrDatabase)
		},
		func(context.Context) (int, error) {
			inserted = true
			return 1, nil
		},
	)
	assert.True(t, ierr.IsDatabase(err))
	assert.False(t, inserted)
}

func TestEnsureCreates(t *testing.T) {
	got, created, err := ensure(context.Background(), "test",
		func(context.Context) (int, error) {
			return 0, ierr.NewError("missing").Mark(ierr.ErrNotFound)
		},
		func(context.Context) (int, error) { return 7, nil },
	)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 7, got)
}
