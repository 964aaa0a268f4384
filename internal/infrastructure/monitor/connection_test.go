package monitor

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

type fixedSize int

func (s fixedSize) Size() (int, error) { return int(s), nil }

func TestMonitor_Refresh(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })

	pgUp := true
	pg := pingerFunc(func(context.Context) error {
		if pgUp {
			return nil
		}
		return errors.New("connection refused")
	})

	m := New(pg, client, fixedSize(4), Options{}, nil)

	status := m.Refresh(context.Background())
	assert.True(t, status.PostgreSQL)
	assert.True(t, status.Redis)
	assert.True(t, status.Buffer)
	assert.Equal(t, 4, status.BufferSize)
	assert.True(t, status.Healthy())
	assert.True(t, m.IsOnline())

	pgUp = false
	mr.Close()
	status = m.Refresh(context.Background())
	assert.False(t, status.PostgreSQL)
	assert.False(t, status.Redis)
	assert.False(t, m.IsOnline())
	assert.Equal(t, status, m.GetStatus())
}

func TestMonitor_NilDependencies(t *testing.T) {
	m := New(nil, nil, nil, Options{}, nil)
	status := m.Refresh(context.Background())
	require.False(t, status.Healthy())
	assert.False(t, status.Buffer)

	m.Stop()
	m.Stop()
}
