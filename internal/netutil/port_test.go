package netutil

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForPort_Success(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = listener.Close() }()

	addr := listener.Addr().(*net.TCPAddr)

	err = WaitForPort(context.Background(), "127.0.0.1", addr.Port, 5*time.Second)
	assert.NoError(t, err)
}

func TestWaitForPort_Timeout(t *testing.T) {
	t.Parallel()

	// Port that is definitely not listening
	err := WaitForPort(context.Background(), "127.0.0.1", 59999, 100*time.Millisecond)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestIsReachable(t *testing.T) {
	t.Parallel()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer func() { _ = listener.Close() }()

	addr := listener.Addr().(*net.TCPAddr)

	assert.True(t, IsReachable(context.Background(), "127.0.0.1", addr.Port))
	assert.False(t, IsReachable(context.Background(), "127.0.0.1", 59999))
}

func TestPollUntil_ImmediateSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	err := PollUntil(context.Background(), time.Second, 10*time.Millisecond, func(context.Context) bool {
		calls++
		return true
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestPollUntil_EventualSuccess(t *testing.T) {
	t.Parallel()

	calls := 0
	err := PollUntil(context.Background(), time.Second, 10*time.Millisecond, func(context.Context) bool {
		calls++
		return calls >= 3
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestPollUntil_Timeout(t *testing.T) {
	t.Parallel()

	err := PollUntil(context.Background(), 50*time.Millisecond, 10*time.Millisecond, func(context.Context) bool {
		return false
	})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestPollUntil_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := PollUntil(ctx, time.Second, 10*time.Millisecond, func(context.Context) bool {
		return false
	})
	assert.Error(t, err)
}
