package clp

// resolveLinks writes self's computed back-references into every
// sibling descriptor holding a role flag, after self has just written
// one element of `written` bytes (spec.md §4.7). COUNT/TLN/IND
// overwrite their slot; ELN/SLN/OID append as array elements.
func (h *Handle) resolveLinks(self *Symbol, written int, indexInStream int) {
	f := self.Fixed
	if f.LinkCount != nil {
		h.writeLinkScalar(f.LinkCount, int64(self.Var.Elements), false)
	}
	if f.LinkTLN != nil {
		h.writeLinkScalar(f.LinkTLN, int64(self.Var.BytesWritten), false)
	}
	if f.LinkIND != nil {
		h.writeLinkScalar(f.LinkIND, int64(indexInStream), false)
	}
	if f.LinkELN != nil {
		h.writeLinkScalar(f.LinkELN, int64(written), true)
	}
	if f.LinkSLN != nil && self.Fixed.Kind == KindString && len(self.Var.History) > 0 {
		last := self.Var.History[len(self.Var.History)-1]
		h.writeLinkScalar(f.LinkSLN, int64(len(last.Str)), true)
	}
	if f.LinkOID != nil && self.Fixed.OID != 0 {
		h.writeLinkScalar(f.LinkOID, self.Fixed.OID, true)
	}
}

// writeLinkScalar writes value into link's slot: overwrite at its base
// offset (link.Var.Elements stays 0), or append as the next array
// element when append is true (link.Var.Elements advances by one).
func (h *Handle) writeLinkScalar(link *Symbol, value int64, appendElement bool) {
	_, _ = h.bindNumber(link, intValue(value))
	if appendElement {
		link.Var.Elements++
	}
}
