package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestGuard() (*LoginGuard, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)}
	guard := NewLoginGuard(DefaultLockoutConfig)
	guard.now = clock.Now
	return guard, clock
}

func TestLoginGuardLocksAfterMaxFailures(t *testing.T) {
	guard, clock := newTestGuard()

	guard.RecordFailure("10.0.0.1")
	guard.RecordFailure("10.0.0.1")
	locked, _ := guard.Locked("10.0.0.1")
	assert.False(t, locked)

	clock.Advance(time.Minute)
	guard.RecordFailure("10.0.0.1")
	locked, until := guard.Locked("10.0.0.1")
	assert.True(t, locked)
	assert.Equal(t, clock.now.Add(15*time.Minute), until)

	locked, _ = guard.Locked("10.0.0.2")
	assert.False(t, locked, "other clients are unaffected")
}

func TestLoginGuardLockExpires(t *testing.T) {
	guard, clock := newTestGuard()
	for i := 0; i < 3; i++ {
		guard.RecordFailure("10.0.0.1")
	}

	clock.Advance(14 * time.Minute)
	locked, _ := guard.Locked("10.0.0.1")
	assert.True(t, locked)

	clock.Advance(2 * time.Minute)
	locked, _ = guard.Locked("10.0.0.1")
	assert.False(t, locked)
}

func TestLoginGuardOnlyCountsFailuresInsideWindow(t *testing.T) {
	guard, clock := newTestGuard()

	guard.RecordFailure("10.0.0.1")
	guard.RecordFailure("10.0.0.1")
	clock.Advance(6 * time.Minute)
	guard.RecordFailure("10.0.0.1")

	locked, _ := guard.Locked("10.0.0.1")
	assert.False(t, locked)
}

func TestLoginGuardSuccessClearsFailures(t *testing.T) {
	guard, _ := newTestGuard()

	guard.RecordFailure("10.0.0.1")
	guard.RecordFailure("10.0.0.1")
	guard.RecordSuccess("10.0.0.1")
	guard.RecordFailure("10.0.0.1")

	locked, _ := guard.Locked("10.0.0.1")
	assert.False(t, locked)
}
