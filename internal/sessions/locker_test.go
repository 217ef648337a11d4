package sessions

import (
	"context"
	"testing"
	"time"
)

func TestLockerLockUnlockRoundtrip(t *testing.T) {
	l := NewLocker(0)
	if !l.TryLock("s1") {
		t.Fatal("TryLock() failed on unheld lock")
	}
	if l.TryLock("s1") {
		t.Fatal("TryLock() succeeded while already held")
	}
	l.Unlock("s1")
	if !l.TryLock("s1") {
		t.Fatal("TryLock() failed after Unlock()")
	}
}

func TestLockerLockTimesOut(t *testing.T) {
	l := NewLocker(20 * time.Millisecond)
	if !l.TryLock("s1") {
		t.Fatal("TryLock() failed on unheld lock")
	}
	err := l.Lock(context.Background(), "s1")
	if err != ErrLockTimeout {
		t.Errorf("Lock() err = %v, want ErrLockTimeout", err)
	}
}

func TestLockerLockRespectsContextCancellation(t *testing.T) {
	l := NewLocker(time.Second)
	if !l.TryLock("s1") {
		t.Fatal("TryLock() failed on unheld lock")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.Lock(ctx, "s1"); err != context.Canceled {
		t.Errorf("Lock() err = %v, want context.Canceled", err)
	}
}

func TestLockerUnlockUnheldIsSafe(t *testing.T) {
	l := NewLocker(0)
	l.Unlock("never-locked")
}
