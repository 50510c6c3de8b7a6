package ratelimit

import "testing"

func TestAllowConsumesCapacity(t *testing.T) {
	l := New()
	for i := 0; i < 5; i++ {
		if !l.Allow("orders", 5, 0.0001) {
			t.Fatalf("token %d should be available", i)
		}
	}
	if l.Allow("orders", 5, 0.0001) {
		t.Fatalf("bucket should be drained")
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l := New()
	if !l.Allow("orders", 1, 0.0001) {
		t.Fatalf("expected token")
	}
	if l.Allow("orders", 1, 0.0001) {
		t.Fatalf("orders drained")
	}
	if !l.Allow("public", 1, 0.0001) {
		t.Fatalf("public bucket must be unaffected")
	}
}
