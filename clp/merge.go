package clp

import (
	"strconv"
	"strings"
)

// ApplyDefaults iterates scope's direct children and, for each that
// received zero writes and carries a non-empty default-expression
// string, scans and evaluates that string as if it had appeared inline,
// then binds the result (spec.md §4.8). Call this once a scope (object,
// overlay, or the top-level command) has finished parsing its explicit
// input.
func (h *Handle) ApplyDefaults(scope *Symbol) error {
	var children []*Symbol
	if scope == nil {
		children = h.table.Root()
	} else {
		if err := h.table.Extend(scope); err != nil {
			return err
		}
		children = scope.Children
	}
	for _, child := range children {
		self := child.self()
		if child.IsAlias() || self.Fixed.Flags.Has(FlagConstant) || self.Fixed.Flags.Has(FlagDummy) {
			continue
		}
		if self.Fixed.Kind == KindObject || self.Fixed.Kind == KindOverlay {
			continue
		}
		if self.Var.Elements == 0 && self.Fixed.Default != "" {
			if err := h.applyDefaultExpr(self); err != nil {
				return err
			}
		}
	}
	if h.opts.Strict {
		for _, child := range children {
			self := child.self()
			if child.IsAlias() || self.Fixed.Flags.Has(FlagConstant) {
				continue
			}
			if self.Fixed.Min > 0 && self.Var.Elements < self.Fixed.Min {
				return h.fail(Position{Source: SrcDefaultValue}, SEM,
					"%s: required at least %d occurrence(s), found %d", child.Path(), self.Fixed.Min, self.Var.Elements)
			}
		}
	}
	return nil
}

// applyDefaultExpr re-scans self's remembered default-expression
// string, tagging error/source-location output with self's remembered
// origin (environment variable, property, or hard-coded default).
func (h *Handle) applyDefaultExpr(self *Symbol) error {
	srcTag := self.Fixed.SourcePath
	if srcTag == "" {
		srcTag = SrcDefaultValue + self.Path()
	}
	lex, err := NewLexer(self.Fixed.Default, srcTag, h.resolver.Now(), h.opts.FileLoader)
	if err != nil {
		return err
	}
	ev, err := NewExprEvaluator(lex, ExprContext{Table: h.table, Scope: self.Parent, Resolver: h.resolver, Target: self})
	if err != nil {
		return err
	}
	val, err := ev.Eval()
	if err != nil {
		return h.fail(Position{Source: srcTag}, SEM, "default for %s: %v", self.Path(), err)
	}
	return h.Bind(self, val, 0)
}

// ParseProperties accepts "keyword.keyword...=SUPPLEMENT" records
// separated by h.opts.EntrySeparator or newlines, and overrides each
// matching descriptor's default-expression string with SUPPLEMENT
// (spec.md §4.5 "Property parsing"). Only descriptors whose dotted path
// matches a record's prefix receive the supplement; other records are
// warned about, or — in strict mode — rejected as unknown roots.
func (h *Handle) ParseProperties(text, sourceName string) error {
	for _, rec := range splitPropertyRecords(text, h.opts.EntrySeparator) {
		rec = strings.TrimSpace(rec)
		if rec == "" {
			continue
		}
		path, supplement, ok := splitPropertyRecord(rec)
		if !ok {
			return h.fail(Position{Source: sourceName}, SYN, "malformed property record %q", rec)
		}
		sym, ok := h.resolvePropertyPath(path)
		if !ok {
			if h.opts.Strict {
				return h.fail(Position{Source: sourceName}, SEM, "unknown property root %q", path)
			}
			h.warnings = append(h.warnings, &Warning{Pos: Position{Source: sourceName}, Message: "unknown property root " + path})
			continue
		}
		self := sym.self()
		self.Fixed.Default = supplement
		self.Fixed.Flags |= FlagPropDef
		self.Fixed.SourcePath = SrcPropertyList + path
	}
	return nil
}

func splitPropertyRecords(text string, entrySep byte) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var recs []string
	for _, line := range strings.Split(text, "\n") {
		for _, rec := range strings.Split(line, string(entrySep)) {
			recs = append(recs, rec)
		}
	}
	return recs
}

func splitPropertyRecord(rec string) (path, supplement string, ok bool) {
	idx := strings.IndexByte(rec, '=')
	if idx < 0 {
		return "", "", false
	}
	supplement = strings.TrimSpace(rec[idx+1:])
	// A double-quoted supplement (the form Properties writes) is unquoted.
	if strings.HasPrefix(supplement, `"`) {
		if unquoted, err := strconv.Unquote(supplement); err == nil {
			supplement = unquoted
		}
	}
	return strings.TrimSpace(rec[:idx]), supplement, true
}

// resolvePropertyPath walks path's dotted segments strictly downward
// from the table root, extending each scope on demand.
func (h *Handle) resolvePropertyPath(path string) (*Symbol, bool) {
	var cur *Symbol
	for _, part := range strings.Split(path, ".") {
		found, ok := h.table.FindLocal(part, cur)
		if !ok {
			return nil, false
		}
		cur = found
	}
	return cur, cur != nil
}
