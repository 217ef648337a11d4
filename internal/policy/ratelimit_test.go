package policy

import "testing"

func TestRateLimiterAllowsUpToBurstThenBlocks(t *testing.T) {
	rl := NewRateLimiter(1, 2)

	if !rl.Allow("session-a") {
		t.Error("first request should be allowed")
	}
	if !rl.Allow("session-a") {
		t.Error("second request within burst should be allowed")
	}
	if rl.Allow("session-a") {
		t.Error("third immediate request should exceed burst and be denied")
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, 1)

	if !rl.Allow("session-a") {
		t.Error("session-a's first request should be allowed")
	}
	if !rl.Allow("session-b") {
		t.Error("session-b should have its own independent bucket")
	}
	if rl.Allow("session-a") {
		t.Error("session-a should be rate limited on its second immediate request")
	}
}

func TestRateLimiterEmptyKeyUsesDefaultBucket(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	if !rl.Allow("") {
		t.Error("empty key should still get a usable bucket")
	}
}
