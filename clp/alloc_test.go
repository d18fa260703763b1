package clp

import "testing"

func TestAllocAppendsNewEntry(t *testing.T) {
	a := NewAllocator()
	buf, idx := a.Alloc(-1, 4, FlagNone)
	if idx != 0 || len(buf) != 4 {
		t.Fatalf("Alloc() = (%v, %d), want len 4 at index 0", buf, idx)
	}
}

func TestAllocGrowsInPlacePreservingContent(t *testing.T) {
	a := NewAllocator()
	buf, idx := a.Alloc(-1, 4, FlagNone)
	copy(buf, []byte{1, 2, 3, 4})
	grown, idx2 := a.Alloc(idx, 8, FlagNone)
	if idx2 != idx {
		t.Fatalf("growth changed index: got %d, want %d", idx2, idx)
	}
	want := []byte{1, 2, 3, 4, 0, 0, 0, 0}
	for i, b := range want {
		if grown[i] != b {
			t.Errorf("grown[%d] = %d, want %d", i, grown[i], b)
		}
	}
}

func TestAllocShrinkingPwdWipesTrimmedTail(t *testing.T) {
	a := NewAllocator()
	buf, idx := a.Alloc(-1, 8, FlagPwd)
	for i := range buf {
		buf[i] = 0xAA
	}
	// capture the backing array the tail byte lived in before shrink
	tail := buf[4:8:8]
	a.Alloc(idx, 4, FlagPwd)
	for i, b := range tail {
		if b != 0 {
			t.Errorf("trimmed tail[%d] = 0x%02X, want wiped to 0", i, b)
		}
	}
}

func TestFreeWipesPwdEntry(t *testing.T) {
	a := NewAllocator()
	buf, idx := a.Alloc(-1, 4, FlagPwd)
	for i := range buf {
		buf[i] = 0xFF
	}
	a.Free(idx)
	for i, b := range buf {
		if b != 0 {
			t.Errorf("freed PWD buffer[%d] = 0x%02X, want wiped to 0", i, b)
		}
	}
}

func TestFreeAllClearsEveryEntry(t *testing.T) {
	a := NewAllocator()
	a.Alloc(-1, 4, FlagNone)
	a.Alloc(-1, 4, FlagNone)
	a.FreeAll()
	if len(a.entries) != 0 {
		t.Errorf("entries after FreeAll = %d, want 0", len(a.entries))
	}
}

func TestFreeExceptDynamicLeavesCallerBuffersUntouched(t *testing.T) {
	a := NewAllocator()
	buf, _ := a.Alloc(-1, 4, FlagNone)
	copy(buf, []byte{9, 9, 9, 9})
	a.FreeExceptDynamic()
	if len(a.entries) != 0 {
		t.Errorf("entries after FreeExceptDynamic = %d, want 0", len(a.entries))
	}
	for _, b := range buf {
		if b != 9 {
			t.Errorf("caller-owned buffer was mutated: %v", buf)
		}
	}
}

func TestFreeKeepDynamicKeepsOnlyDynFlaggedEntries(t *testing.T) {
	a := NewAllocator()
	a.Alloc(-1, 4, FlagDyn)
	a.Alloc(-1, 4, FlagNone)
	a.FreeKeepDynamic()
	if len(a.entries) != 1 {
		t.Fatalf("entries after FreeKeepDynamic = %d, want 1", len(a.entries))
	}
	if !a.entries[0].flags.Has(FlagDyn) {
		t.Errorf("surviving entry flags = %v, want FlagDyn set", a.entries[0].flags)
	}
}

func TestFreeKeepDynamicWipesDiscardedPwdEntries(t *testing.T) {
	a := NewAllocator()
	buf, _ := a.Alloc(-1, 4, FlagPwd)
	for i := range buf {
		buf[i] = 0xAA
	}
	a.FreeKeepDynamic()
	for i, b := range buf {
		if b != 0 {
			t.Errorf("discarded PWD buffer[%d] = 0x%02X, want wiped to 0", i, b)
		}
	}
}

func TestFindByPointer(t *testing.T) {
	a := NewAllocator()
	buf, idx := a.Alloc(-1, 4, FlagNone)
	got, ok := a.FindByPointer(buf)
	if !ok || got != idx {
		t.Errorf("FindByPointer() = (%d, %v), want (%d, true)", got, ok, idx)
	}
	if _, ok := a.FindByPointer(nil); ok {
		t.Error("FindByPointer(nil) should report not found")
	}
}
