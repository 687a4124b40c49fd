package apperr

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_OpensAfterMaxFailures(t *testing.T) {
	cb := NewCircuitBreaker("embedder",
		WithMaxFailures(3),
		WithResetTimeout(1*time.Second),
	)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errors.New("embed server unreachable") })
	}

	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(func() error { return nil }) // would succeed if called
	assert.Error(t, err)
	assert.True(t, errors.Is(err, ErrCircuitOpen))
}

func TestCircuitBreaker_RecoversAfterResetTimeout(t *testing.T) {
	cb := NewCircuitBreaker("embedder",
		WithMaxFailures(2),
		WithResetTimeout(50*time.Millisecond),
	)

	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errors.New("error") })
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(60 * time.Millisecond)

	executed := false
	err := cb.Execute(func() error {
		executed = true
		return nil
	})

	assert.NoError(t, err)
	assert.True(t, executed)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenFailureReOpens(t *testing.T) {
	cb := NewCircuitBreaker("embedder",
		WithMaxFailures(2),
		WithResetTimeout(50*time.Millisecond),
	)

	for i := 0; i < 2; i++ {
		_ = cb.Execute(func() error { return errors.New("error") })
	}
	time.Sleep(60 * time.Millisecond)

	_ = cb.Execute(func() error { return errors.New("still down") })

	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker("embedder",
		WithMaxFailures(5),
		WithResetTimeout(1*time.Second),
	)

	for i := 0; i < 3; i++ {
		_ = cb.Execute(func() error { return errors.New("error") })
	}

	err := cb.Execute(func() error { return nil })

	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreaker_Concurrent(t *testing.T) {
	cb := NewCircuitBreaker("embedder",
		WithMaxFailures(10),
		WithResetTimeout(1*time.Second),
	)

	var wg sync.WaitGroup
	var successCount, failCount atomic.Int32

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := cb.Execute(func() error {
				if i%2 == 0 {
					return nil
				}
				return errors.New("error")
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(20), successCount.Load()+failCount.Load())
}

func TestNewCircuitBreaker_DefaultValues(t *testing.T) {
	cb := NewCircuitBreaker("embedder")

	assert.Equal(t, "embedder", cb.Name())
	assert.Equal(t, 5, cb.maxFailures)
	assert.Equal(t, 30*time.Second, cb.resetTimeout)
	assert.Equal(t, StateClosed, cb.State())
}

func TestErrCircuitOpen_WrapsEmbedderErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeEmbedderHTTP, ErrCircuitOpen.Code)
}
