package killer_test

import (
	"sync"
	"testing"

	"github.com/sanix-darker/loadgun/internal/errs"
	"github.com/sanix-darker/loadgun/internal/killer"
	"github.com/stretchr/testify/assert"
)

func TestKill_FirstErrorWins(t *testing.T) {
	k := killer.New()
	k.Kill(errs.Other("first failure"))
	k.Kill(errs.Other("second failure"))

	out := k.Wait()
	assert.Equal(t, killer.ReasonKilled, out.Reason)
	assert.Equal(t, "first failure", out.Err.Message)
}

func TestEnd_IgnoredAfterKill(t *testing.T) {
	k := killer.New()
	k.Kill(errs.Other("boom"))
	k.End(killer.ReasonCompleted)

	out := k.Wait()
	assert.Equal(t, killer.ReasonKilled, out.Reason)
}

func TestEnd_CompletedWhenNoError(t *testing.T) {
	k := killer.New()
	k.End(killer.ReasonCompleted)

	out := k.Wait()
	assert.Equal(t, killer.ReasonCompleted, out.Reason)
	assert.Nil(t, out.Err)
}

func TestFired_ReflectsState(t *testing.T) {
	k := killer.New()
	assert.False(t, k.Fired())
	k.End(killer.ReasonCtrlC)
	assert.True(t, k.Fired())
}

func TestKill_ConcurrentCallersOnlyOneWins(t *testing.T) {
	k := killer.New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			k.Kill(errs.Other("race-%d", n))
		}(i)
	}
	wg.Wait()

	out := k.Wait()
	assert.Equal(t, killer.ReasonKilled, out.Reason)
	assert.NotNil(t, out.Err)
}
