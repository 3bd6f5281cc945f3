package grpc

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
)

func TestPool_ReusesConnectionPerTarget(t *testing.T) {
	p := NewPool()
	defer p.Close()

	a, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)
	b, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)
	c, err := p.GetConnection("localhost:50052")
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
	assert.Equal(t, 2, p.Len())
}

func TestPool_ConcurrentGetConnection(t *testing.T) {
	p := NewPool()
	defer p.Close()

	const callers = 32
	conns := make([]*grpc.ClientConn, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			conn, err := p.GetConnection("localhost:50051")
			assert.NoError(t, err)
			conns[i] = conn
		}(i)
	}
	wg.Wait()

	for _, conn := range conns {
		assert.Same(t, conns[0], conn)
	}
	assert.Equal(t, 1, p.Len())
}

func TestPool_ReplacesClosedConnection(t *testing.T) {
	p := NewPool()
	defer p.Close()

	first, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestPool_Close(t *testing.T) {
	p := NewPool()
	_, err := p.GetConnection("localhost:50051")
	require.NoError(t, err)

	require.NoError(t, p.Close())
	assert.Zero(t, p.Len())
}
