package clp

import (
	"fmt"
	"os"
	"strings"
)

// fixedRec holds a symbol's immutable-after-open Fixed sub-record. Alias
// symbols share their principal's fixedRec by pointer.
type fixedRec struct {
	Default          string
	Manual           string
	Help             string
	PropertyOverride string
	Kind             Kind
	Min, Max         int
	Size, Offset     int
	Stride           int
	OID              int64
	Flags            Flag
	SourcePath       string // origin tag for the current Default, e.g. SrcEnvironment+"NAME"

	LinkCount *Symbol // sibling receiving COUNT
	LinkELN   *Symbol // sibling receiving ELN
	LinkSLN   *Symbol // sibling receiving SLN
	LinkTLN   *Symbol // sibling receiving TLN
	LinkOID   *Symbol // sibling receiving OID
	LinkIND   *Symbol // sibling receiving IND
	LinkOf    *Symbol // for a link-role symbol: the principal it links to (psLnk)
}

// variableRec holds a symbol's live write state for one parse pass.
// Alias symbols share their principal's variableRec by pointer.
type variableRec struct {
	BytesWritten int
	Elements     int
	Remaining    int
	AllocIndex   int // index into the Allocator Registry, -1 if not DYN
	OIDHistory   []int64
	History      []Value // one entry per written element, for variable references and {N} subscripts
	DynBuf       []byte  // backing allocation for a DYN string field, grown through the Allocator Registry
}

// Symbol is the Parser's internal, lazily extended mirror of a
// Descriptor, carrying live write state (spec.md §3).
type Symbol struct {
	Keyword   string
	MinAbbrev int
	Principal *Symbol // set for ALIAS symbols
	Parent    *Symbol // hih
	Table     *SymbolTable

	Children      []*Symbol // dep: first materialized on first access
	childDescs    []*Descriptor
	childConsts   []Constant
	extended      bool

	Descriptor *Descriptor
	Fixed      *fixedRec
	Var        *variableRec
}

// IsAlias reports whether sym is an ALIAS view over another symbol.
func (s *Symbol) IsAlias() bool { return s.Principal != nil }

// self returns the symbol that owns s's Fixed/Var records: s itself
// unless s is an alias, in which case its Principal.
func (s *Symbol) self() *Symbol {
	if s.Principal != nil {
		return s.Principal
	}
	return s
}

// Path returns the dotted keyword path from the table root to s.
func (s *Symbol) Path() string {
	var parts []string
	for cur := s; cur != nil; cur = cur.Parent {
		parts = append([]string{cur.Keyword}, parts...)
	}
	return strings.Join(parts, ".")
}

// SymbolTable is the dynamic, lazily extended mirror of a caller's
// descriptor tree.
type SymbolTable struct {
	CaseSensitive bool
	Owner         string
	Program       string
	Resolver      *ConstResolver

	root []*Symbol

	// Getenv is overridable for tests; defaults to os.Getenv.
	Getenv func(string) string
}

// NewSymbolTable builds the table's top level from root descriptors
// (open()'s root_table argument) and runs ins()+cal() on it.
func NewSymbolTable(caseSensitive bool, owner, program string, resolver *ConstResolver, roots []*Descriptor) (*SymbolTable, error) {
	t := &SymbolTable{CaseSensitive: caseSensitive, Owner: owner, Program: program, Resolver: resolver, Getenv: os.Getenv}
	syms, err := t.ins(nil, roots)
	if err != nil {
		return nil, err
	}
	if err := t.cal(syms); err != nil {
		return nil, err
	}
	t.root = syms
	return t, nil
}

// Root returns the top-level sibling list.
func (t *SymbolTable) Root() []*Symbol { return t.root }

// ins allocates symbol entries for descs under parent, pre-filling
// Static/Fixed from the descriptor and from any matching environment
// variable.
func (t *SymbolTable) ins(parent *Symbol, descs []*Descriptor) ([]*Symbol, error) {
	syms := make([]*Symbol, 0, len(descs))
	for _, d := range descs {
		sym := &Symbol{Keyword: d.Keyword, Parent: parent, Table: t, Descriptor: d, childDescs: d.Children, childConsts: d.Constants}
		if d.Kind == KindAlias {
			syms = append(syms, sym)
			continue
		}
		sym.Fixed = &fixedRec{
			Default: d.Default, Manual: d.Manual, Help: d.Help, Kind: d.Kind,
			Min: d.Min, Max: d.Max, Size: d.Size, Offset: d.Offset, Stride: d.Stride, OID: d.OID, Flags: d.Flags,
		}
		sym.Var = &variableRec{AllocIndex: -1}

		if !d.Flags.Has(FlagConstant) {
			if val, srcTag := t.lookupEnvDefault(sym); val != "" {
				sym.Fixed.Default = val
				sym.Fixed.Flags |= FlagPropDef
				sym.Fixed.SourcePath = srcTag
			}
		}
		syms = append(syms, sym)
	}
	return syms, nil
}

// lookupEnvDefault checks OWN.PGM.PATH.KYW, then PGM.PATH.KYW, then
// PATH.KYW.
func (t *SymbolTable) lookupEnvDefault(sym *Symbol) (string, string) {
	path := sym.Path()
	candidates := []string{}
	if t.Owner != "" && t.Program != "" {
		candidates = append(candidates, t.Owner+"."+t.Program+"."+path)
	}
	if t.Program != "" {
		candidates = append(candidates, t.Program+"."+path)
	}
	candidates = append(candidates, path)
	for _, c := range candidates {
		key := envKey(c)
		if v := t.Getenv(key); v != "" {
			return v, SrcEnvironment + key
		}
	}
	return "", ""
}

// cal resolves aliases to principals, resolves link roles to their
// sibling targets, and computes each symbol's minimum unambiguous
// abbreviation.
func (t *SymbolTable) cal(syms []*Symbol) error {
	byKeyword := make(map[string]*Symbol, len(syms))
	for _, s := range syms {
		byKeyword[t.fold(s.Keyword)] = s
	}

	for _, s := range syms {
		if s.Descriptor == nil || s.Descriptor.Kind != KindAlias {
			continue
		}
		principal, ok := byKeyword[t.fold(s.Descriptor.AliasOf)]
		if !ok {
			return fmt.Errorf("alias %q: principal %q not found in same scope", s.Keyword, s.Descriptor.AliasOf)
		}
		if principal.Descriptor.Kind == KindAlias {
			return fmt.Errorf("alias %q: principal %q is itself an alias", s.Keyword, s.Descriptor.AliasOf)
		}
		s.Principal = principal
		s.Fixed = principal.Fixed
		s.Var = principal.Var
	}

	for _, s := range syms {
		if s.IsAlias() || s.Fixed == nil || !s.Fixed.Flags.IsLink() {
			continue
		}
		target, ok := byKeyword[t.fold(s.Descriptor.LinkTo)]
		if !ok {
			return fmt.Errorf("link %q: target %q not found in same scope", s.Keyword, s.Descriptor.LinkTo)
		}
		s.Fixed.LinkOf = target
		if s.Fixed.Flags.Has(FlagCount) {
			target.Fixed.LinkCount = s
		}
		if s.Fixed.Flags.Has(FlagElementLen) {
			target.Fixed.LinkELN = s
		}
		if s.Fixed.Flags.Has(FlagStringLen) {
			target.Fixed.LinkSLN = s
		}
		if s.Fixed.Flags.Has(FlagTotalLen) {
			target.Fixed.LinkTLN = s
		}
		if s.Fixed.Flags.Has(FlagOID) {
			target.Fixed.LinkOID = s
		}
		if s.Fixed.Flags.Has(FlagIndex) {
			target.Fixed.LinkIND = s
		}
	}

	for _, s := range syms {
		best := 1
		for _, o := range syms {
			if o == s {
				continue
			}
			common := commonPrefixLen(t.fold(s.Keyword), t.fold(o.Keyword))
			if common+1 > best {
				best = common + 1
			}
		}
		if best > len(s.Keyword) {
			best = len(s.Keyword)
		}
		s.MinAbbrev = best
	}
	return nil
}

func commonPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func (t *SymbolTable) fold(s string) string {
	if t.CaseSensitive {
		return s
	}
	return strings.ToUpper(s)
}

// Extend lazily materializes sym's children, running ins()+cal() on
// them exactly once.
func (t *SymbolTable) Extend(sym *Symbol) error {
	target := sym.self()
	if target.extended {
		return nil
	}
	syms, err := t.ins(target, target.childDescs)
	if err != nil {
		return err
	}
	constSyms, err := t.insConstants(target, target.childConsts)
	if err != nil {
		return err
	}
	syms = append(syms, constSyms...)
	if err := t.cal(syms); err != nil {
		return err
	}
	target.Children = syms
	target.extended = true
	return nil
}

// insConstants builds symbol entries for a SELECTION descriptor's
// constant child table.
func (t *SymbolTable) insConstants(parent *Symbol, consts []Constant) ([]*Symbol, error) {
	out := make([]*Symbol, 0, len(consts))
	for _, c := range consts {
		sym := &Symbol{Keyword: c.Keyword, Parent: parent, Table: t}
		sym.Fixed = &fixedRec{Kind: parent.Fixed.Kind, OID: c.OID, Flags: c.Flags | FlagConstant, Help: c.Help, Manual: c.Manual}
		sym.Var = &variableRec{AllocIndex: -1}
		switch parent.Fixed.Kind {
		case KindFloat:
			sym.Fixed.Default = fmt.Sprintf("%g", c.Flt)
		case KindString:
			sym.Fixed.Default = string(c.Str)
		default:
			sym.Fixed.Default = fmt.Sprintf("%d", c.Num)
		}
		out = append(out, sym)
	}
	return out, nil
}

// FindSymbol searches scope's children, then outward through parent
// scopes, for a keyword matching at least its principal's minimum
// abbreviation. It does not consult the Predefined-Constant Resolver;
// callers fall back to ConstResolver.Resolve themselves (spec.md §4.3).
func (t *SymbolTable) FindSymbol(keyword string, scope *Symbol) (*Symbol, bool) {
	folded := t.fold(keyword)
	for s := scope; s != nil; s = s.Parent {
		if err := t.Extend(s); err != nil {
			return nil, false
		}
		for _, child := range s.Children {
			if len(folded) < child.MinAbbrev || len(folded) > len(child.Keyword) {
				continue
			}
			if t.fold(child.Keyword[:len(folded)]) == folded {
				return child, true
			}
		}
	}
	for _, top := range t.root {
		if len(folded) < top.MinAbbrev || len(folded) > len(top.Keyword) {
			continue
		}
		if t.fold(top.Keyword[:len(folded)]) == folded {
			return top, true
		}
	}
	return nil, false
}

// FindLocal searches only scope's own children (no outward walk), for
// resolving the keyword that opens a parameter within a scope — as
// opposed to FindSymbol, which also walks outward for expression
// variable references.
func (t *SymbolTable) FindLocal(keyword string, scope *Symbol) (*Symbol, bool) {
	folded := t.fold(keyword)
	if scope != nil {
		if err := t.Extend(scope); err != nil {
			return nil, false
		}
	}
	children := t.root
	if scope != nil {
		children = scope.Children
	}
	for _, child := range children {
		if child.Fixed != nil && child.Fixed.Flags.Has(FlagConstant) {
			continue
		}
		if len(folded) < child.MinAbbrev || len(folded) > len(child.Keyword) {
			continue
		}
		if t.fold(child.Keyword[:len(folded)]) == folded {
			return child, true
		}
	}
	return nil, false
}

// FindInSelection searches only scope's own selection-constant children
// (used when scope is SELECTION-flagged).
func (t *SymbolTable) FindInSelection(keyword string, scope *Symbol) (*Symbol, bool) {
	folded := t.fold(keyword)
	if err := t.Extend(scope); err != nil {
		return nil, false
	}
	for _, child := range scope.Children {
		if !child.Fixed.Flags.Has(FlagConstant) {
			continue
		}
		if t.fold(child.Keyword) == folded {
			return child, true
		}
	}
	return nil, false
}

// WalkOp names the symbol_walk introspection operations (spec.md §6)
// that Handle.SymbolWalk performs; it is one of the constants below.
type WalkOp int

const (
	WalkRoot WalkOp = iota
	WalkOld         // re-read cur without moving
	WalkNext
	WalkBack
	WalkDep
	WalkHih
	WalkAlias
	WalkCount // entry_out.Value <- cur's element count
	WalkELN   // entry_out.Value <- size of cur's most recent element
	WalkLink  // entry_out.Symbol <- the sibling cur links to (psLnk)
	WalkOID   // entry_out.Value <- cur's object_id
	WalkSLN   // entry_out.Value <- string length of cur's most recent element
	WalkTLN   // entry_out.Value <- cur's total bytes written so far
)

// WalkFrom returns the symbol reached from cur by applying op, within
// siblings (the sibling list cur belongs to).
func (t *SymbolTable) WalkFrom(cur *Symbol, siblings []*Symbol, op WalkOp) *Symbol {
	switch op {
	case WalkRoot:
		if len(t.root) == 0 {
			return nil
		}
		return t.root[0]
	case WalkOld:
		return cur
	case WalkHih:
		if cur == nil {
			return nil
		}
		return cur.Parent
	case WalkDep:
		if cur == nil {
			return nil
		}
		if err := t.Extend(cur); err != nil || len(cur.Children) == 0 {
			return nil
		}
		return cur.Children[0]
	case WalkAlias:
		if cur == nil {
			return nil
		}
		return cur.Principal
	case WalkNext, WalkBack:
		if cur == nil || len(siblings) == 0 {
			return nil
		}
		idx := -1
		for i, s := range siblings {
			if s == cur {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil
		}
		if op == WalkNext {
			if idx+1 < len(siblings) {
				return siblings[idx+1]
			}
			return nil
		}
		if idx-1 >= 0 {
			return siblings[idx-1]
		}
		return nil
	}
	return nil
}

// ResetPass clears every symbol's Variable record (count/bytes/
// remaining/write state) for a fresh parse pass, matching §3's
// save/restore-of-Variable-records lifecycle. It does not touch Fixed
// (defaults survive across passes within a session).
func (t *SymbolTable) ResetPass() {
	var walk func(syms []*Symbol)
	walk = func(syms []*Symbol) {
		for _, s := range syms {
			if !s.IsAlias() {
				s.Var.BytesWritten = 0
				s.Var.Elements = 0
				s.Var.Remaining = s.Fixed.Size * s.Fixed.Max
				s.Var.OIDHistory = nil
				s.Var.History = nil
			}
			if s.extended {
				walk(s.Children)
			}
		}
	}
	walk(t.root)
}
