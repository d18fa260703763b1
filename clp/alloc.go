package clp

// allocEntry is one tracked DYN allocation: a caller-visible byte slice
// together with the flags that decide how it is wiped on shrink/free.
type allocEntry struct {
	data  []byte
	flags Flag
	live  bool
}

// Allocator is the Allocator Registry of spec.md §4.9: a single
// growable array of (pointer, size, flags) tuples serving every DYN
// target field bound during a parse.
type Allocator struct {
	entries []allocEntry
}

// NewAllocator returns an empty registry.
func NewAllocator() *Allocator {
	return &Allocator{}
}

// Alloc grows or creates the allocation at index (append when index < 0),
// realloc'ing in place when index names a known entry. It returns the new
// buffer and the index to remember for subsequent growths of the same
// field.
func (a *Allocator) Alloc(index int, newSize int, flags Flag) ([]byte, int) {
	if index < 0 || index >= len(a.entries) || !a.entries[index].live {
		buf := make([]byte, newSize)
		a.entries = append(a.entries, allocEntry{data: buf, flags: flags, live: true})
		return buf, len(a.entries) - 1
	}
	old := a.entries[index]
	buf := make([]byte, newSize)
	n := copy(buf, old.data)
	if flags.Has(FlagPwd) && newSize < len(old.data) {
		// shrinking a PWD block zeroes the trimmed tail before it is dropped
		wipe(old.data[n:])
	}
	a.entries[index] = allocEntry{data: buf, flags: flags, live: true}
	return buf, index
}

// FindByPointer linear-searches for the entry currently backing ptr, for
// the "unknown non-NULL pointer" realloc path of alloc_flg.
func (a *Allocator) FindByPointer(ptr []byte) (int, bool) {
	if ptr == nil {
		return -1, false
	}
	for i, e := range a.entries {
		if e.live && &e.data[0] == &ptr[0] {
			return i, true
		}
	}
	return -1, false
}

// Free releases one entry, zeroing it first if it is PWD-flagged.
func (a *Allocator) Free(index int) {
	if index < 0 || index >= len(a.entries) || !a.entries[index].live {
		return
	}
	if a.entries[index].flags.Has(FlagPwd) {
		wipe(a.entries[index].data)
	}
	a.entries[index].live = false
	a.entries[index].data = nil
}

// FreeAll frees every tracked allocation (Close(CloseAll)).
func (a *Allocator) FreeAll() {
	for i := range a.entries {
		a.Free(i)
	}
	a.entries = nil
}

// FreeExceptDynamic frees the registry bookkeeping only; individual
// allocations remain live because the caller owns them
// (Close(CloseExceptDynamic)).
func (a *Allocator) FreeExceptDynamic() {
	a.entries = nil
}

// FreeKeepDynamic frees every entry that is not itself a DYN target
// field, keeping DYN-flagged buffers alive for the caller
// (Close(CloseKeepDynamic)).
func (a *Allocator) FreeKeepDynamic() {
	kept := a.entries[:0]
	for _, e := range a.entries {
		if e.live && e.flags.Has(FlagDyn) {
			kept = append(kept, e)
			continue
		}
		if e.live && e.flags.Has(FlagPwd) {
			wipe(e.data)
		}
	}
	a.entries = kept
}

// wipe zeroes a byte slice in place (secure-wipe for PWD allocations).
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
