package clp

// validateTree walks a descriptor tree and reports the first structural
// defect as a TAB-class error (spec.md §3 Invariants): duplicate
// keywords within a scope, an unresolvable ALIAS/link target, a
// SELECTION descriptor with no constant table, or Min/Max/Size values
// that cannot produce a valid layout. It runs once at Open, before any
// parse, so malformed host tables fail fast rather than surfacing as a
// confusing runtime write error.
func validateTree(descs []*Descriptor) error {
	return validateScope(descs)
}

func validateScope(descs []*Descriptor) error {
	seen := make(map[string]*Descriptor, len(descs))
	for _, d := range descs {
		if prior, dup := seen[d.Keyword]; dup {
			return tabError("duplicate keyword %q (also used by a sibling of kind %s)", d.Keyword, prior.Kind)
		}
		seen[d.Keyword] = d

		if d.Min < 0 || d.Max < 0 || (d.Max > 0 && d.Min > d.Max) {
			return tabError("%s: invalid min/max (%d/%d)", d.Keyword, d.Min, d.Max)
		}

		switch d.Kind {
		case KindAlias:
			if d.AliasOf == "" {
				return tabError("%s: ALIAS with no target", d.Keyword)
			}
			if !hasKeyword(descs, d.AliasOf) {
				return tabError("%s: ALIAS target %q not found in same scope", d.Keyword, d.AliasOf)
			}
		case KindSwitch, KindNumber, KindFloat, KindString:
			if !d.Flags.Has(FlagDummy) && d.Size <= 0 && !d.Flags.IsLink() {
				return tabError("%s: non-DUMMY scalar descriptor needs Size > 0", d.Keyword)
			}
			if d.Flags.IsLink() && d.LinkTo == "" {
				return tabError("%s: link-role descriptor needs a link target", d.Keyword)
			}
			if d.Flags.IsLink() && !hasKeyword(descs, d.LinkTo) {
				return tabError("%s: link target %q not found in same scope", d.Keyword, d.LinkTo)
			}
			if d.Flags.Has(FlagSelection) && len(d.Constants) == 0 {
				return tabError("%s: SELECTION flag set with no constant table", d.Keyword)
			}
		case KindObject, KindOverlay:
			if len(d.Children) == 0 {
				return tabError("%s: OBJECT/OVERLAY with no children", d.Keyword)
			}
			if err := validateScope(d.Children); err != nil {
				if e, ok := err.(*Error); ok {
					e.Message = d.Keyword + "." + e.Message
					return e
				}
				return err
			}
		}
	}
	return nil
}

func hasKeyword(descs []*Descriptor, keyword string) bool {
	for _, d := range descs {
		if d.Keyword == keyword {
			return true
		}
	}
	return false
}

func tabError(format string, args ...any) error {
	return newError(Position{}, TAB, format, args...)
}
