package clp

// SymbolEntry is the entry_out record of spec.md §6's symbol_walk: a
// read-only snapshot of one symbol table node, plus the computed scalar
// a COUNT/ELN/OID/SLN/TLN operation produced.
type SymbolEntry struct {
	Symbol  *Symbol
	Path    string
	Keyword string
	Kind    Kind
	Min     int
	Max     int
	Flags   Flag
	Help    string
	Manual  string
	Value   int64 // populated by WalkCount/WalkELN/WalkOID/WalkSLN/WalkTLN
}

// SymbolWalk implements the introspection operation of spec.md §6: given
// the symbol currently under the cursor (nil at the very start of a
// walk) and an operation, it returns the resulting entry or nil if the
// operation has no result (e.g. WalkNext past the last sibling).
func (h *Handle) SymbolWalk(cur *Symbol, op WalkOp) *SymbolEntry {
	switch op {
	case WalkCount:
		if cur == nil {
			return nil
		}
		return &SymbolEntry{Symbol: cur, Value: int64(cur.self().Var.Elements)}
	case WalkELN:
		if cur == nil {
			return nil
		}
		self := cur.self()
		if len(self.Var.History) == 0 {
			return &SymbolEntry{Symbol: cur}
		}
		return &SymbolEntry{Symbol: cur, Value: int64(elementSize(self))}
	case WalkOID:
		if cur == nil {
			return nil
		}
		return &SymbolEntry{Symbol: cur, Value: cur.self().Fixed.OID}
	case WalkSLN:
		if cur == nil {
			return nil
		}
		self := cur.self()
		if self.Fixed.Kind != KindString || len(self.Var.History) == 0 {
			return &SymbolEntry{Symbol: cur}
		}
		last := self.Var.History[len(self.Var.History)-1]
		sln := len(last.Str)
		return &SymbolEntry{Symbol: cur, Value: int64(sln)}
	case WalkTLN:
		if cur == nil {
			return nil
		}
		return &SymbolEntry{Symbol: cur, Value: int64(cur.self().Var.BytesWritten)}
	case WalkLink:
		if cur == nil || cur.self().Fixed.LinkOf == nil {
			return nil
		}
		return h.describeSymbol(cur.self().Fixed.LinkOf)
	default:
		siblings := h.siblingsOf(cur)
		target := h.table.WalkFrom(cur, siblings, op)
		return h.describeSymbol(target)
	}
}

func (h *Handle) describeSymbol(sym *Symbol) *SymbolEntry {
	if sym == nil {
		return nil
	}
	self := sym.self()
	return &SymbolEntry{
		Symbol: sym, Path: sym.Path(), Keyword: sym.Keyword,
		Kind: self.Fixed.Kind, Min: self.Fixed.Min, Max: self.Fixed.Max,
		Flags: self.Fixed.Flags, Help: self.Fixed.Help, Manual: self.Fixed.Manual,
	}
}

// siblingsOf returns the sibling list cur belongs to: the table root for
// a top-level symbol, or its parent's (lazily extended) children.
func (h *Handle) siblingsOf(cur *Symbol) []*Symbol {
	if cur == nil || cur.Parent == nil {
		return h.table.Root()
	}
	if err := h.table.Extend(cur.Parent); err != nil {
		return nil
	}
	return cur.Parent.Children
}

// elementSize reports the byte size of self's most recently written
// element: the field's fixed size for scalars, or the trailing-NUL-
// inclusive length of the last history entry for a non-fixed string.
func elementSize(self *Symbol) int {
	if self.Fixed.Kind != KindString || self.Fixed.Flags.Has(FlagFixed) {
		return self.Fixed.Size
	}
	last := self.Var.History[len(self.Var.History)-1]
	n := len(last.Str)
	if !self.Fixed.Flags.Has(FlagBinary) {
		n++
	}
	return n
}

// SymbolUpdate implements symbol_update (spec.md §6): it overrides sym's
// default-expression string the same way a property record does,
// without requiring a dotted-path parse.
func (h *Handle) SymbolUpdate(sym *Symbol, newDefault string) {
	self := sym.self()
	self.Fixed.Default = newDefault
	self.Fixed.Flags |= FlagPropDef
	self.Fixed.SourcePath = SrcPropertyList + sym.Path()
}
