package mention

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDebouncerOnlyLastTriggerRuns(t *testing.T) {
	d := NewDebouncer(30*time.Millisecond, nil)
	var ran atomic.Int32
	var last atomic.Int32

	for i := 1; i <= 5; i++ {
		n := int32(i)
		d.Trigger(func() {
			ran.Add(1)
			last.Store(n)
		})
		time.Sleep(5 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return ran.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, int32(5), last.Load())

	// quiet period over, nothing else may fire
	time.Sleep(60 * time.Millisecond)
	require.Equal(t, int32(1), ran.Load())
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(20*time.Millisecond, nil)
	var ran atomic.Int32

	d.Trigger(func() { ran.Add(1) })
	d.Cancel()

	time.Sleep(60 * time.Millisecond)
	require.Equal(t, int32(0), ran.Load())
}

func TestDebouncerSpacedTriggersEachRun(t *testing.T) {
	d := NewDebouncer(10*time.Millisecond, nil)
	var ran atomic.Int32

	d.Trigger(func() { ran.Add(1) })
	time.Sleep(40 * time.Millisecond)
	d.Trigger(func() { ran.Add(1) })
	time.Sleep(40 * time.Millisecond)

	require.Equal(t, int32(2), ran.Load())
}
