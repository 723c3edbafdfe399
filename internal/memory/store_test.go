package memory

import "testing"

func TestSingletonIdentities(t *testing.T) {
	s := New(nil)
	if NilRef != 0 || FalseRef != 1 || TrueRef != 2 {
		t.Fatalf("reserved identities moved: nil=%d false=%d true=%d", NilRef, FalseRef, TrueRef)
	}
	for _, r := range []ObjectRef{NilRef, FalseRef, TrueRef} {
		if _, err := s.Get(r); err != nil {
			t.Errorf("singleton %d not allocated: %v", r, err)
		}
	}
}

func TestAllocateAssignsStableIdentity(t *testing.T) {
	s := New(nil)
	a := s.Allocate(NilRef, KindArray, 3)
	b := s.Allocate(NilRef, KindArray, 2)
	if a == b {
		t.Fatalf("expected distinct identities, got %d and %d", a, b)
	}
	if a < firstFreeRef || b < firstFreeRef {
		t.Fatalf("allocation reused a reserved identity: %d %d", a, b)
	}
}

func TestSlotGetSetRoundTrip(t *testing.T) {
	s := New(nil)
	ref := s.Allocate(NilRef, KindArray, 2)
	if err := s.SlotSet(ref, 0, Int(42)); err != nil {
		t.Fatalf("SlotSet: %v", err)
	}
	v, err := s.SlotGet(ref, 0)
	if err != nil {
		t.Fatalf("SlotGet: %v", err)
	}
	if !v.IsInt() || v.Int() != 42 {
		t.Errorf("expected Int(42), got %+v", v)
	}
}

func TestSlotOutOfBounds(t *testing.T) {
	s := New(nil)
	ref := s.Allocate(NilRef, KindArray, 1)
	if _, err := s.SlotGet(ref, 5); err == nil {
		t.Error("expected out-of-bounds error")
	}
}

func TestResizeGrowsAndPreservesSlots(t *testing.T) {
	s := New(nil)
	ref := s.Allocate(NilRef, KindArray, 2)
	s.SlotSet(ref, 0, Int(1))
	s.SlotSet(ref, 1, Int(2))
	if err := s.Resize(ref, 4); err != nil {
		t.Fatalf("Resize: %v", err)
	}
	v0, _ := s.SlotGet(ref, 0)
	v1, _ := s.SlotGet(ref, 1)
	v3, _ := s.SlotGet(ref, 3)
	if v0.Int() != 1 || v1.Int() != 2 {
		t.Error("resize lost existing slots")
	}
	if !v3.Equal(Nil) {
		t.Error("new slots should be nil")
	}
}

func TestFreeIsIdempotent(t *testing.T) {
	s := New(nil)
	ref := s.Allocate(NilRef, KindArray, 1)
	s.Free(ref)
	s.Free(ref) // must not panic or double-count

	if _, err := s.Get(ref); err == nil {
		t.Error("expected freed reference to be unreachable")
	}
}

func TestFreeingSingletonsIsNoOp(t *testing.T) {
	s := New(nil)
	s.Free(NilRef)
	if _, err := s.Get(NilRef); err != nil {
		t.Error("nil singleton must survive Free")
	}
}

func TestHashOfIsIdentityBased(t *testing.T) {
	s := New(nil)
	a := s.Allocate(NilRef, KindArray, 0)
	if s.IdentityOf(a) != uint32(a) {
		t.Error("IdentityOf must equal the handle value in this design")
	}
	if s.HashOf(a) != s.HashOf(a) {
		t.Error("HashOf must be deterministic for a fixed identity")
	}
}
