package clp

// cmdParser drives the grammar of spec.md §4.5 over one token stream,
// sharing its lookahead token with an embedded ExprEvaluator so that
// assignment values, array elements, and defaults all go through the
// same expression grammar.
type cmdParser struct {
	*ExprEvaluator
	h *Handle
}

func newCmdParser(h *Handle, lex *Lexer) (*cmdParser, error) {
	ev, err := NewExprEvaluator(lex, ExprContext{Table: h.table, Resolver: h.resolver})
	if err != nil {
		return nil, err
	}
	return &cmdParser{ExprEvaluator: ev, h: h}, nil
}

func (p *cmdParser) syntaxErr(format string, args ...any) error {
	e := newErrorAt(p.lex, p.cur, SYN, format, args...)
	return p.h.latch(e)
}

// ParseCommand parses text as a command string against the root
// descriptor tree and binds its values into the target buffer.
// objectID is the selected branch's object_id when the root is an
// overlay (Options.IsOverlayRoot); otherwise it is always zero.
func (h *Handle) ParseCommand(sourceName, text string) (oid int64, err error) {
	defer func() {
		if e, ok := err.(*Error); ok && h.lastErr != e {
			h.latch(e)
		}
	}()
	lex, err := NewLexer(text, sourceName, h.resolver.Now(), h.opts.FileLoader)
	if err != nil {
		return 0, err
	}
	p, err := newCmdParser(h, lex)
	if err != nil {
		return 0, err
	}

	if h.opts.IsOverlayRoot {
		if p.cur.Type == TokDot {
			if err := p.advance(); err != nil {
				return 0, err
			}
		}
		if p.cur.Type != TokKeyword {
			return 0, p.syntaxErr("expected an overlay branch keyword")
		}
		name, pos := p.cur.Keyword, p.cur.Pos
		branch, ok := h.table.FindLocal(name, nil)
		if !ok {
			return 0, p.syntaxErr("unknown overlay branch %q", name)
		}
		if err := p.advance(); err != nil {
			return 0, err
		}
		if err := p.dispatchParameter(nil, branch, pos); err != nil {
			return 0, err
		}
		return branch.Fixed.OID, nil
	}

	if err := p.parseParameterList(nil, TokEnd); err != nil {
		return 0, err
	}
	if err := h.ApplyDefaults(nil); err != nil {
		return 0, err
	}
	if p.cur.Type != TokEnd {
		return 0, p.syntaxErr("unexpected trailing input %q", p.cur.Raw)
	}
	return 0, nil
}

// ParseOverlay implements the overlay-only discovery mode: it reads
// just the leading branch keyword (an optional '.' may precede it) and
// returns that branch's object_id without binding anything.
func (h *Handle) ParseOverlay(sourceName, text string) (int64, error) {
	lex, err := NewLexer(text, sourceName, h.resolver.Now(), h.opts.FileLoader)
	if err != nil {
		return 0, err
	}
	tok, err := lex.Next()
	if err != nil {
		return 0, err
	}
	if tok.Type == TokDot {
		if tok, err = lex.Next(); err != nil {
			return 0, err
		}
	}
	if tok.Type != TokKeyword {
		return 0, h.fail(tok.Pos, SYN, "expected an overlay branch keyword")
	}
	branch, ok := h.table.FindLocal(tok.Keyword, nil)
	if !ok {
		return 0, h.fail(tok.Pos, SYN, "unknown overlay branch %q", tok.Keyword)
	}
	return branch.Fixed.OID, nil
}

func (p *cmdParser) parseParameterList(scope *Symbol, closer TokenType) error {
	for p.cur.Type != TokEnd && p.cur.Type != closer {
		if err := p.parseParameter(scope); err != nil {
			return err
		}
	}
	return nil
}

func (p *cmdParser) parseParameter(scope *Symbol) error {
	if p.cur.Type != TokKeyword {
		return p.syntaxErr("expected a keyword, found %s", p.cur)
	}
	name, pos := p.cur.Keyword, p.cur.Pos
	sym, ok := p.h.table.FindLocal(name, scope)
	if !ok {
		return p.syntaxErr("unknown keyword %q in this scope", name)
	}
	if err := p.advance(); err != nil {
		return err
	}
	return p.dispatchParameter(scope, sym, pos)
}

// dispatchParameter binds one parameter whose keyword has already been
// consumed (p.cur is the token following the keyword).
func (p *cmdParser) dispatchParameter(scope, sym *Symbol, pos Position) error {
	switch sym.Fixed.Kind {
	case KindSwitch:
		p.h.recordParsed(sym)
		return p.h.Bind(sym, intValue(sym.Fixed.OID), pos.Offset)
	case KindNumber, KindFloat, KindString:
		return p.parseScalarParameter(sym, pos)
	case KindObject:
		return p.parseObjectBody(sym)
	case KindOverlay:
		if p.cur.Type == TokLBrack {
			return p.parseObjectOrOverlayArray(sym)
		}
		_, err := p.parseOverlayBranch(sym, p.h.curDelta)
		return err
	default:
		return p.syntaxErr("%s: cannot appear as a parameter", sym.Keyword)
	}
}

func (p *cmdParser) parseScalarParameter(sym *Symbol, pos Position) error {
	switch p.cur.Type {
	case TokAssign:
		if err := p.advance(); err != nil {
			return err
		}
		return p.parseScalarAssignment(sym, pos)
	case TokAssignFile:
		if err := p.advance(); err != nil {
			return err
		}
		if p.cur.Type != TokStr {
			return p.syntaxErr("expected a filename after '=>'")
		}
		filename := string(p.cur.Str)
		if err := p.advance(); err != nil {
			return err
		}
		return p.includeParameterFile(sym.Parent, filename)
	case TokLBrack:
		return p.parseValueArray(sym, pos)
	default:
		if sym.Fixed.Flags.Has(FlagDef) {
			p.h.recordParsed(sym)
			return p.h.Bind(sym, intValue(sym.Fixed.OID), pos.Offset)
		}
		return p.syntaxErr("%s: expected '=', '=>' or '[' after keyword", sym.Keyword)
	}
}

func (p *cmdParser) parseScalarAssignment(sym *Symbol, kwPos Position) error {
	p.ctx.Scope = sym.Parent
	p.ctx.Target = sym
	pos := p.cur.Pos
	val, err := p.Eval()
	if err != nil {
		return p.h.fail(pos, SEM, "%s: %v", sym.Keyword, err)
	}
	if err := p.h.Bind(sym, val, kwPos.Offset); err != nil {
		return err
	}
	p.h.recordParsed(sym)

	for sym.Fixed.Max != 1 && !p.cur.SepWasComma && isValueStart(p.cur.Type) {
		pos = p.cur.Pos
		val, err = p.Eval()
		if err != nil {
			return p.h.fail(pos, SEM, "%s: %v", sym.Keyword, err)
		}
		if err := p.h.Bind(sym, val, kwPos.Offset); err != nil {
			return err
		}
	}
	if sym.Fixed.Max != 1 {
		if err := p.h.applyDlm(sym); err != nil {
			return err
		}
	}
	return nil
}

func isValueStart(t TokenType) bool {
	return t == TokNum || t == TokFlt || t == TokStr || t == TokKeyword
}

func (p *cmdParser) parseValueArray(sym *Symbol, kwPos Position) error {
	if err := p.advance(); err != nil { // consume '['
		return err
	}
	for p.cur.Type != TokRBrack {
		if p.cur.Type == TokEnd {
			return p.syntaxErr("unterminated array, expected ']'")
		}
		p.ctx.Scope = sym.Parent
		p.ctx.Target = sym
		pos := p.cur.Pos
		val, err := p.Eval()
		if err != nil {
			return p.h.fail(pos, SEM, "%s: %v", sym.Keyword, err)
		}
		if err := p.h.Bind(sym, val, kwPos.Offset); err != nil {
			return err
		}
	}
	if err := p.h.applyDlm(sym); err != nil {
		return err
	}
	p.h.recordParsed(sym)
	return p.advance() // consume ']'
}

func (p *cmdParser) parseObjectBody(sym *Symbol) error {
	switch p.cur.Type {
	case TokLParen:
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.parseParameterList(sym, TokRParen); err != nil {
			return err
		}
		if p.cur.Type != TokRParen {
			return p.syntaxErr("%s: expected ')'", sym.Keyword)
		}
		if err := p.advance(); err != nil {
			return err
		}
	case TokAssign:
		if err := p.advance(); err != nil {
			return err
		}
		if p.cur.Type != TokStr {
			return p.syntaxErr("%s: expected a filename after '='", sym.Keyword)
		}
		filename := string(p.cur.Str)
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.includeParameterFile(sym, filename); err != nil {
			return err
		}
	case TokLBrack:
		return p.parseObjectOrOverlayArray(sym)
	default:
		if err := p.parseImplicitObjectBody(sym); err != nil {
			return err
		}
	}
	return p.h.ApplyDefaults(sym)
}

// parseImplicitObjectBody handles "KYW with implicit parentheses
// (permitted at one level)": parameters continue to be read as sym's
// children for as long as the next keyword actually resolves inside
// sym; the first keyword that does not is left for the enclosing
// parameter_list.
func (p *cmdParser) parseImplicitObjectBody(sym *Symbol) error {
	for p.cur.Type == TokKeyword {
		if _, ok := p.h.table.FindLocal(p.cur.Keyword, sym); !ok {
			break
		}
		if err := p.parseParameter(sym); err != nil {
			return err
		}
	}
	return nil
}

// parseOverlayBranch parses ".KYW parameter" for overlay sym. linkDelta
// is the buffer delta of the scope that holds sym, at which sym's OID
// link is written.
func (p *cmdParser) parseOverlayBranch(sym *Symbol, linkDelta int) (int64, error) {
	if p.cur.Type != TokDot {
		return 0, p.syntaxErr("%s: expected '.' to select an overlay branch", sym.Keyword)
	}
	if err := p.advance(); err != nil {
		return 0, err
	}
	if p.cur.Type != TokKeyword {
		return 0, p.syntaxErr("%s: expected an overlay branch keyword", sym.Keyword)
	}
	name, pos := p.cur.Keyword, p.cur.Pos
	branch, ok := p.h.table.FindLocal(name, sym)
	if !ok {
		return 0, p.syntaxErr("%s: unknown overlay branch %q", sym.Keyword, name)
	}
	if err := p.advance(); err != nil {
		return 0, err
	}
	if err := p.dispatchParameter(sym, branch, pos); err != nil {
		return 0, err
	}
	if sym.Fixed.LinkOID != nil && branch.Fixed.OID != 0 {
		saved := p.h.pushDelta(linkDelta - p.h.curDelta)
		p.h.writeLinkScalar(sym.Fixed.LinkOID, branch.Fixed.OID, true)
		p.h.popDelta(saved)
	}
	return branch.Fixed.OID, nil
}

// parseObjectOrOverlayArray handles "KYW '[' object_list ']'" and
// "KYW '[' overlay_list ']'": each element occupies sym.Fixed.Stride
// bytes beyond the previous one and starts with a freshly reset
// Variable block for every descendant field.
func (p *cmdParser) parseObjectOrOverlayArray(sym *Symbol) error {
	if err := p.advance(); err != nil { // consume '['
		return err
	}
	index := 0
	for p.cur.Type != TokRBrack {
		if p.cur.Type == TokEnd {
			return p.syntaxErr("%s: unterminated array, expected ']'", sym.Keyword)
		}
		prevDelta := p.h.pushDelta(sym.Fixed.Stride * index)
		if err := resetScopeVars(p.h.table, sym); err != nil {
			p.h.popDelta(prevDelta)
			return err
		}
		var err error
		if sym.Fixed.Kind == KindOverlay {
			_, err = p.parseOverlayBranch(sym, prevDelta)
		} else {
			err = p.parseObjectElement(sym)
		}
		p.h.popDelta(prevDelta)
		if err != nil {
			return err
		}
		index++
	}
	if index > sym.Fixed.Max && sym.Fixed.Max > 0 {
		return p.syntaxErr("%s: too many array elements (max %d)", sym.Keyword, sym.Fixed.Max)
	}
	p.h.recordParsed(sym)
	return p.advance() // consume ']'
}

func (p *cmdParser) parseObjectElement(sym *Symbol) error {
	switch p.cur.Type {
	case TokLParen:
		if err := p.advance(); err != nil {
			return err
		}
		if err := p.parseParameterList(sym, TokRParen); err != nil {
			return err
		}
		if p.cur.Type != TokRParen {
			return p.syntaxErr("%s: expected ')'", sym.Keyword)
		}
		if err := p.advance(); err != nil {
			return err
		}
	default:
		if err := p.parseImplicitObjectBody(sym); err != nil {
			return err
		}
	}
	return p.h.ApplyDefaults(sym)
}

// includeParameterFile implements "Opening filename swaps the input
// source" (spec.md §4.5): it saves the caller's cursor, loads filename
// through the host's FileLoader, parses it to TokEnd as a nested
// parameter_list of scope, then restores the caller's cursor. Files may
// not recurse into another file inclusion.
func (p *cmdParser) includeParameterFile(scope *Symbol, filename string) error {
	if !p.h.opts.ParameterFilesOK {
		return p.syntaxErr("parameter-file inclusion is disabled")
	}
	if p.h.fileIncluded {
		return p.syntaxErr("parameter file %q may not recurse into another file inclusion", filename)
	}
	if p.h.opts.FileLoader == nil {
		return p.syntaxErr("parameter-file inclusion used but no file loader is configured")
	}
	content, err := p.h.opts.FileLoader(filename)
	if err != nil {
		return p.h.fail(p.cur.Pos, SYS, "failed to load parameter file %q: %v", filename, err)
	}

	mark := p.lex.Mark()
	p.h.fileIncluded = true
	if err := p.lex.SwitchSource(content, SrcParameterFile+filename); err != nil {
		p.h.fileIncluded = false
		return err
	}
	if err := p.advance(); err != nil {
		p.h.fileIncluded = false
		return err
	}

	if err := p.parseParameterList(scope, TokEnd); err != nil {
		p.h.fileIncluded = false
		p.lex.Restore(mark)
		return err
	}
	if p.cur.Type != TokEnd {
		err := p.syntaxErr("unexpected trailing input in parameter file %q", filename)
		p.h.fileIncluded = false
		p.lex.Restore(mark)
		return err
	}

	p.h.fileIncluded = false
	p.lex.Restore(mark)
	return p.advance()
}

// resetScopeVars recursively resets every descendant symbol's Variable
// block, as required before parsing a fresh element of an object/overlay
// array (spec.md §4.6 "init_obj/init_ovl").
func resetScopeVars(table *SymbolTable, scope *Symbol) error {
	if err := table.Extend(scope); err != nil {
		return err
	}
	for _, child := range scope.Children {
		if child.IsAlias() || child.Fixed.Flags.Has(FlagConstant) {
			continue
		}
		beginScope(child)
		if child.Fixed.Kind == KindObject || child.Fixed.Kind == KindOverlay {
			if err := resetScopeVars(table, child); err != nil {
				return err
			}
		}
	}
	return nil
}
