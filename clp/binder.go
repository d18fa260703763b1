package clp

import (
	"encoding/binary"
	"math"
)

// beginScope resets sym's Variable block at scope entry: write cursor to
// the start of its slot, count/bytes to zero, remaining to size*max
// unless the field is DYN (spec.md §4.6).
func beginScope(sym *Symbol) {
	self := sym.self()
	self.Var.Elements = 0
	self.Var.BytesWritten = 0
	self.Var.History = nil
	if self.Fixed.Flags.Has(FlagDyn) {
		self.Var.Remaining = -1 // unbounded; grown on demand
		self.Var.DynBuf = nil
	} else {
		self.Var.Remaining = self.Fixed.Size * self.Fixed.Max
	}
}

// Bind writes one element of val into sym's slot in h.buffer, enforces
// SELECTION and the safety callback, updates sym's Variable bookkeeping,
// and runs the Link Resolver for every sibling holding a role flag.
// indexInStream is the byte offset of the keyword that produced this
// value in the original input, used for an IND link.
func (h *Handle) Bind(sym *Symbol, val Value, indexInStream int) error {
	self := sym.self()
	f := self.Fixed

	if f.Flags.Has(FlagSelection) {
		if !selectionHasValue(self, val) {
			return &Error{Code: TYP, Message: "value is not a member of this selection"}
		}
	}
	if h.opts.AuthCallback != nil {
		if err := h.opts.AuthCallback(sym.Path()); err != nil {
			return &Error{Code: AUT, Message: err.Error()}
		}
	}
	if self.Var.Elements >= f.Max && f.Max > 0 {
		return &Error{Code: SIZ, Message: "too many elements for " + sym.Keyword}
	}

	var written int
	var err error
	switch f.Kind {
	case KindSwitch:
		written, err = h.bindNumber(self, intValue(f.OID))
	case KindNumber:
		written, err = h.bindNumber(self, val)
	case KindFloat:
		written, err = h.bindFloat(self, val)
	case KindString:
		written, err = h.bindString(self, val)
	default:
		return &Error{Code: INT, Message: "Bind called on non-scalar descriptor"}
	}
	if err != nil {
		return err
	}

	self.Var.Elements++
	self.Var.BytesWritten += written
	if self.Var.Remaining >= 0 {
		self.Var.Remaining -= written
	}
	self.Var.History = append(self.Var.History, val)

	h.resolveLinks(self, written, indexInStream)
	return nil
}

func selectionHasValue(sym *Symbol, val Value) bool {
	if sym.Table == nil {
		return true
	}
	if err := sym.Table.Extend(sym); err != nil {
		return false
	}
	for _, c := range sym.Children {
		if !c.Fixed.Flags.Has(FlagConstant) {
			continue
		}
		cv := constantSymbolValue(c)
		if valuesEqual(cv, val) {
			return true
		}
	}
	return false
}

func valuesEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case VInt:
		return a.Int == b.Int
	case VFloat:
		return a.Flt == b.Flt
	case VStr:
		return string(a.Str) == string(b.Str)
	}
	return false
}

// bindNumber width/sign-validates val and writes it at base+offset in
// two's-complement layout, size 1/2/4/8 bytes.
func (h *Handle) bindNumber(sym *Symbol, val Value) (int, error) {
	f := sym.Fixed
	if val.Kind == VStr {
		return 0, &Error{Code: TYP, Message: "cannot bind a string value to a NUMBER field"}
	}
	v := val.Int
	if val.Kind == VFloat {
		v = int64(val.Flt)
	}
	if f.Flags.Has(FlagUnsigned) && v < 0 {
		return 0, &Error{Code: SEM, Message: "UNSIGNED field given negative value"}
	}
	if err := checkWidth(v, f.Size, f.Flags.Has(FlagUnsigned)); err != nil {
		return 0, err
	}
	off := h.curDelta + f.Offset + sym.Var.Elements*f.Size
	if err := h.checkBounds(off, f.Size); err != nil {
		return 0, err
	}
	switch f.Size {
	case 1:
		h.buffer[off] = byte(v)
	case 2:
		binary.LittleEndian.PutUint16(h.buffer[off:], uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(h.buffer[off:], uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(h.buffer[off:], uint64(v))
	default:
		return 0, &Error{Code: INT, Message: "unsupported NUMBER width"}
	}
	return f.Size, nil
}

func checkWidth(v int64, size int, unsigned bool) error {
	var lo, hi int64
	bits := uint(size * 8)
	if unsigned {
		lo = 0
		if bits >= 64 {
			hi = math.MaxInt64
		} else {
			hi = (int64(1) << bits) - 1
		}
	} else {
		if bits >= 64 {
			lo, hi = math.MinInt64, math.MaxInt64
		} else {
			lo = -(int64(1) << (bits - 1))
			hi = (int64(1) << (bits - 1)) - 1
		}
	}
	if v < lo || v > hi {
		return &Error{Code: SIZ, Message: "value overflows target width"}
	}
	return nil
}

// bindFloat writes val as IEEE 754, size 4 or 8 bytes.
func (h *Handle) bindFloat(sym *Symbol, val Value) (int, error) {
	f := sym.Fixed
	if val.Kind == VStr {
		return 0, &Error{Code: TYP, Message: "cannot bind a string value to a FLOAT field"}
	}
	v := val.Flt
	if val.Kind == VInt {
		v = float64(val.Int)
	}
	off := h.curDelta + f.Offset + sym.Var.Elements*f.Size
	if err := h.checkBounds(off, f.Size); err != nil {
		return 0, err
	}
	switch f.Size {
	case 4:
		binary.LittleEndian.PutUint32(h.buffer[off:], math.Float32bits(float32(v)))
	case 8:
		binary.LittleEndian.PutUint64(h.buffer[off:], math.Float64bits(v))
	default:
		return 0, &Error{Code: INT, Message: "unsupported FLOAT width"}
	}
	return f.Size, nil
}

// bindString writes val's bytes at the field's current write cursor.
// Fixed-layout arrays pad each element to size; non-fixed arrays
// concatenate directly (and append a DLM sentinel after the last
// element, handled by the caller at scope close). DYN fields grow
// through the Allocator Registry instead of the static buffer.
func (h *Handle) bindString(sym *Symbol, val Value) (int, error) {
	f := sym.Fixed
	data := val.Str

	if f.Flags.Has(FlagUpp) {
		data = toUpperBytes(data)
	}
	if f.Flags.Has(FlagLow) {
		data = toLowerBytes(data)
	}

	if f.Flags.Has(FlagDyn) {
		return h.bindDynString(sym, data)
	}

	off := h.curDelta + f.Offset + sym.Var.BytesWritten
	if f.Flags.Has(FlagFixed) {
		off = h.curDelta + f.Offset + sym.Var.Elements*f.Size
	}
	n := len(data)
	if f.Flags.Has(FlagFixed) && n > f.Size {
		return 0, &Error{Code: SIZ, Message: "string exceeds fixed element size"}
	}
	writeLen := n
	if f.Flags.Has(FlagFixed) {
		writeLen = f.Size
	}
	if err := h.checkBounds(off, writeLen); err != nil {
		return 0, err
	}
	copy(h.buffer[off:off+n], data)
	if writeLen > n {
		for i := n; i < writeLen; i++ {
			h.buffer[off+i] = 0
		}
	}
	if !f.Flags.Has(FlagBinary) && !f.Flags.Has(FlagFixed) {
		if err := h.checkBounds(off+n, 1); err != nil {
			return 0, err
		}
		h.buffer[off+n] = 0
		return n + 1, nil
	}
	return writeLen, nil
}

// bindDynString grows the field's heap allocation through the
// Allocator Registry and stores the new pointer's backing slice at the
// field's offset (the caller-visible "pointer" is the Go slice header
// itself, retrievable via Handle.DynString).
func (h *Handle) bindDynString(sym *Symbol, data []byte) (int, error) {
	grown := append(sym.Var.DynBuf, data...)
	if !sym.Fixed.Flags.Has(FlagBinary) {
		grown = append(grown, 0)
	}
	buf, idx := h.alloc.Alloc(sym.Var.AllocIndex, len(grown), sym.Fixed.Flags)
	copy(buf, grown)
	sym.Var.AllocIndex = idx
	sym.Var.DynBuf = buf
	return len(data), nil
}

// applyDlm writes the trailing 0xFF sentinel byte a DLM-flagged,
// non-fixed STRING array reserves after its last element (spec.md §4.6).
// It is a no-op for anything else, including DLM on a FIXED or numeric
// field — SPEC_FULL.md §5 resolves that ambiguity as string-only.
func (h *Handle) applyDlm(sym *Symbol) error {
	self := sym.self()
	f := self.Fixed
	if f.Kind != KindString || !f.Flags.Has(FlagDlm) || f.Flags.Has(FlagFixed) || f.Flags.Has(FlagDyn) {
		return nil
	}
	off := h.curDelta + f.Offset + self.Var.BytesWritten
	if err := h.checkBounds(off, 1); err != nil {
		return err
	}
	h.buffer[off] = 0xFF
	self.Var.BytesWritten++
	if self.Var.Remaining >= 0 {
		self.Var.Remaining--
	}
	return nil
}

func (h *Handle) checkBounds(off, n int) error {
	if off < 0 || n < 0 || off+n > len(h.buffer) {
		return &Error{Code: SIZ, Message: "write falls outside target buffer"}
	}
	return nil
}

func toUpperBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return out
}

func toLowerBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return out
}

// DynString returns the current contents of a DYN string field's
// backing allocation, for hosts that bound a pointer-sized slot instead
// of a fixed buffer.
func (h *Handle) DynString(sym *Symbol) []byte { return sym.self().Var.DynBuf }
