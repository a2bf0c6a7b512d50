package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockLocker struct {
	mock.Mock
}

func (m *mockLocker) Acquire(ctx context.Context, ownerID string) (bool, error) {
	args := m.Called(ctx, ownerID)
	return args.Bool(0), args.Error(1)
}

func (m *mockLocker) Release(ctx context.Context, ownerID string) error {
	args := m.Called(ctx, ownerID)
	return args.Error(0)
}

func TestFailoverLocker(t *testing.T) {
	primary := new(mockLocker)
	fallback := new(mockLocker)
	logger := zerolog.New(io.Discard)
	clock := newFakeClock()
	l := NewFailoverLocker(primary, fallback, clock, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary.On("Acquire", ctx, "o1").Return(true, nil).Once()

		ok, err := l.Acquire(ctx, "o1")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.False(t, l.Degraded())
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryBusy", func(t *testing.T) {
		primary.On("Acquire", ctx, "o2").Return(false, nil).Once()

		ok, err := l.Acquire(ctx, "o2")
		assert.NoError(t, err)
		assert.False(t, ok)
		primary.AssertExpectations(t)
		fallback.AssertNotCalled(t, "Acquire", ctx, "o2")
	})

	t.Run("ReleaseBoth", func(t *testing.T) {
		fallback.On("Release", ctx, "o1").Return(nil).Once()
		primary.On("Release", ctx, "o1").Return(nil).Once()

		assert.NoError(t, l.Release(ctx, "o1"))
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallbackSuccess", func(t *testing.T) {
		primary.On("Acquire", ctx, "o3").Return(false, errors.New("fail")).Once()
		fallback.On("Acquire", ctx, "o3").Return(true, nil).Once()

		ok, err := l.Acquire(ctx, "o3")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, l.Degraded())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("AlreadyDownUsesFallback", func(t *testing.T) {
		fallback.On("Acquire", ctx, "o4").Return(true, nil).Once()
		fallback.On("Release", ctx, "o4").Return(nil).Once()

		ok, err := l.Acquire(ctx, "o4")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.NoError(t, l.Release(ctx, "o4"))
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttemptFail", func(t *testing.T) {
		clock.Advance(2 * time.Minute)
		primary.On("Acquire", ctx, "o5").Return(false, errors.New("still fail")).Once()
		fallback.On("Acquire", ctx, "o5").Return(true, nil).Once()

		ok, err := l.Acquire(ctx, "o5")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.True(t, l.Degraded())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("RecoveryAttempt", func(t *testing.T) {
		clock.Advance(2 * time.Minute)
		primary.On("Acquire", ctx, "o6").Return(true, nil).Once()

		ok, err := l.Acquire(ctx, "o6")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.False(t, l.Degraded())
		primary.AssertExpectations(t)
	})

	t.Run("ReleaseFailureMarksDown", func(t *testing.T) {
		fallback.On("Release", ctx, "o6").Return(nil).Once()
		primary.On("Release", ctx, "o6").Return(errors.New("fail")).Once()

		assert.NoError(t, l.Release(ctx, "o6"))
		assert.True(t, l.Degraded())
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})
}

func TestFailoverLockerWithRealFallback(t *testing.T) {
	primary := new(mockLocker)
	clock := newFakeClock()
	l := NewFailoverLocker(primary, NewMemoryLocker(time.Minute, clock), clock, nil)
	ctx := context.Background()

	primary.On("Acquire", ctx, mock.Anything).Return(false, errors.New("down"))

	ok, err := l.Acquire(ctx, "a")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = l.Acquire(ctx, "b")
	assert.NoError(t, err)
	assert.False(t, ok, "fallback still excludes a second owner in process")
}
