package clp

import "fmt"

// ExprContext supplies an expression evaluation with the scope needed to
// resolve bare-keyword variable/constant references (spec.md §4.4).
type ExprContext struct {
	Table    *SymbolTable
	Scope    *Symbol      // enclosing scope searched for variable references
	Resolver *ConstResolver
	Target   *Symbol // descriptor the expression is bound to; consulted for SELECTION constants
}

// ExprEvaluator is a recursive-descent evaluator over the grammar
//
//	expr   := term (('+'|'-') term)*
//	term   := factor (('*'|'/') factor)*
//	factor := NUM | FLT | STR | '(' expr ')' | KEYWORD ['{' NUM '}']
//
// with juxtaposition of a NUM and an immediately following unit constant
// multiplying them, and juxtaposition of adjacent STR factors
// concatenating them (spec.md §4.4).
type ExprEvaluator struct {
	lex *Lexer
	cur Token
	ctx ExprContext
}

// NewExprEvaluator primes the evaluator with lex's first token.
func NewExprEvaluator(lex *Lexer, ctx ExprContext) (*ExprEvaluator, error) {
	e := &ExprEvaluator{lex: lex, ctx: ctx}
	tok, err := lex.Next()
	if err != nil {
		return nil, err
	}
	e.cur = tok
	return e, nil
}

func (e *ExprEvaluator) advance() error {
	tok, err := e.lex.Next()
	if err != nil {
		return err
	}
	e.cur = tok
	return nil
}

// Eval consumes and evaluates one expression. It does not require the
// lexer to be at TokEnd afterward; callers decide whether trailing
// input is an error.
func (e *ExprEvaluator) Eval() (Value, error) {
	return e.parseExpr()
}

// Cur exposes the evaluator's current lookahead token, for callers that
// need to inspect what follows the expression (e.g. the array parser
// deciding whether a comma follows).
func (e *ExprEvaluator) Cur() Token { return e.cur }

func (e *ExprEvaluator) parseExpr() (Value, error) {
	left, err := e.parseTerm()
	if err != nil {
		return Value{}, err
	}
	for {
		switch {
		case e.cur.Type == TokAdd || e.cur.Type == TokSub:
			op := e.cur.Type
			if err := e.advance(); err != nil {
				return Value{}, err
			}
			right, err := e.parseTerm()
			if err != nil {
				return Value{}, err
			}
			left, err = applyAddSub(left, right, op)
			if err != nil {
				return Value{}, err
			}
		case left.Kind == VStr && e.cur.Type == TokStr && !e.cur.SepAny:
			right, err := e.parseFactor()
			if err != nil {
				return Value{}, err
			}
			left, err = concatStrings(left, right)
			if err != nil {
				return Value{}, err
			}
		default:
			return left, nil
		}
	}
}

func (e *ExprEvaluator) parseTerm() (Value, error) {
	left, err := e.parseFactor()
	if err != nil {
		return Value{}, err
	}
	for e.cur.Type == TokMul || e.cur.Type == TokDiv {
		op := e.cur.Type
		if err := e.advance(); err != nil {
			return Value{}, err
		}
		right, err := e.parseFactor()
		if err != nil {
			return Value{}, err
		}
		left, err = applyMulDiv(left, right, op)
		if err != nil {
			return Value{}, err
		}
	}
	return left, nil
}

func (e *ExprEvaluator) parseFactor() (Value, error) {
	switch e.cur.Type {
	case TokNum:
		raw := e.cur.Num
		if err := e.advance(); err != nil {
			return Value{}, err
		}
		v := intValue(raw)
		if e.cur.Type == TokKeyword && !e.cur.SepAny && e.ctx.Resolver != nil {
			if unit, ok := e.ctx.Resolver.Resolve(e.cur.Keyword); ok && (unit.Kind == VInt || unit.Kind == VFloat) {
				if err := e.advance(); err != nil {
					return Value{}, err
				}
				return applyMulDiv(v, unit, TokMul)
			}
		}
		return v, nil

	case TokFlt:
		v := fltValue(e.cur.Flt)
		if err := e.advance(); err != nil {
			return Value{}, err
		}
		return v, nil

	case TokStr:
		v := strValue(e.cur.Str, e.cur.StrEnc)
		if err := e.advance(); err != nil {
			return Value{}, err
		}
		return v, nil

	case TokLParen:
		if err := e.advance(); err != nil {
			return Value{}, err
		}
		v, err := e.parseExpr()
		if err != nil {
			return Value{}, err
		}
		if e.cur.Type != TokRParen {
			return Value{}, fmt.Errorf("expected ')', found %s", e.cur)
		}
		if err := e.advance(); err != nil {
			return Value{}, err
		}
		return v, nil

	case TokKeyword:
		return e.parseReference()

	default:
		return Value{}, fmt.Errorf("unexpected token in expression: %s", e.cur)
	}
}

// parseReference resolves a bare keyword as a SELECTION constant, a
// symbol-table variable (with an optional {N} subscript), or a
// predefined constant, in that order.
func (e *ExprEvaluator) parseReference() (Value, error) {
	name := e.cur.Keyword
	pos := e.cur.Pos
	if err := e.advance(); err != nil {
		return Value{}, err
	}

	subscript := -1
	if e.cur.Type == TokLBrace {
		if err := e.advance(); err != nil {
			return Value{}, err
		}
		if e.cur.Type != TokNum {
			return Value{}, fmt.Errorf("%s: expected subscript number, found %s", pos, e.cur)
		}
		subscript = int(e.cur.Num)
		if err := e.advance(); err != nil {
			return Value{}, err
		}
		if e.cur.Type != TokRBrace {
			return Value{}, fmt.Errorf("%s: expected '}', found %s", pos, e.cur)
		}
		if err := e.advance(); err != nil {
			return Value{}, err
		}
	}

	if e.ctx.Target != nil && e.ctx.Table != nil && e.ctx.Target.Fixed.Flags.Has(FlagSelection) {
		if sym, ok := e.ctx.Table.FindInSelection(name, e.ctx.Target); ok {
			return constantSymbolValue(sym), nil
		}
	}

	if e.ctx.Table != nil {
		if sym, ok := e.ctx.Table.FindSymbol(name, e.ctx.Scope); ok {
			if sym.Fixed.Flags.Has(FlagConstant) {
				return constantSymbolValue(sym), nil
			}
			return variableReference(sym, subscript, pos)
		}
	}

	if e.ctx.Resolver != nil {
		if v, ok := e.ctx.Resolver.Resolve(name); ok {
			return v, nil
		}
	}

	return Value{}, fmt.Errorf("%s: unknown variable or constant %q", pos, name)
}

// constantSymbolValue reconstructs a Value from a selection-constant
// symbol's Fixed record (populated by insConstants).
func constantSymbolValue(sym *Symbol) Value {
	switch sym.Fixed.Kind {
	case KindFloat:
		var f float64
		fmt.Sscanf(sym.Fixed.Default, "%g", &f)
		return fltValue(f)
	case KindString:
		return strValue([]byte(sym.Fixed.Default), EncZero)
	default:
		var n int64
		fmt.Sscanf(sym.Fixed.Default, "%d", &n)
		return intValue(n)
	}
}

// variableReference returns sym's most recently written element, or the
// subscript-th element (0-based) if subscript >= 0.
func variableReference(sym *Symbol, subscript int, pos Position) (Value, error) {
	self := sym.self()
	if len(self.Var.History) == 0 {
		return Value{}, fmt.Errorf("%s: variable %q has not been written", pos, sym.Keyword)
	}
	idx := len(self.Var.History) - 1
	if subscript >= 0 {
		idx = subscript
	}
	if idx < 0 || idx >= len(self.Var.History) {
		return Value{}, fmt.Errorf("%s: subscript %d out of range for %q (%d elements)", pos, subscript, sym.Keyword, len(self.Var.History))
	}
	return self.Var.History[idx], nil
}

func applyAddSub(left, right Value, op TokenType) (Value, error) {
	if left.Kind == VStr || right.Kind == VStr {
		if op == TokSub {
			return Value{}, fmt.Errorf("strings do not support '-'")
		}
		return concatStrings(left, right)
	}
	if left.Kind == VFloat || right.Kind == VFloat {
		a, b := asFloat(left), asFloat(right)
		if op == TokAdd {
			return fltValue(a + b), nil
		}
		return fltValue(a - b), nil
	}
	if op == TokAdd {
		return intValue(left.Int + right.Int), nil
	}
	return intValue(left.Int - right.Int), nil
}

func applyMulDiv(left, right Value, op TokenType) (Value, error) {
	if left.Kind == VStr || right.Kind == VStr {
		return Value{}, fmt.Errorf("strings do not support '*' or '/'")
	}
	if left.Kind == VFloat || right.Kind == VFloat {
		a, b := asFloat(left), asFloat(right)
		if op == TokMul {
			return fltValue(a * b), nil
		}
		if b == 0 {
			return Value{}, fmt.Errorf("division by zero")
		}
		return fltValue(a / b), nil
	}
	if op == TokMul {
		return intValue(left.Int * right.Int), nil
	}
	if right.Int == 0 {
		return Value{}, fmt.Errorf("division by zero")
	}
	return intValue(left.Int / right.Int), nil
}

func asFloat(v Value) float64 {
	if v.Kind == VFloat {
		return v.Flt
	}
	return float64(v.Int)
}

// concatStrings merges two string values, permissively reconciling
// encodings: d+s -> s, d+c -> c; any other heterogeneous pair is
// rejected (spec.md §4.4).
func concatStrings(left, right Value) (Value, error) {
	if left.Kind != VStr || right.Kind != VStr {
		return Value{}, fmt.Errorf("cannot concatenate non-string value")
	}
	enc, ok := mergeEncoding(left.StrEnc, right.StrEnc)
	if !ok {
		return Value{}, fmt.Errorf("incompatible string encodings %q and %q", left.StrEnc, right.StrEnc)
	}
	combined := make([]byte, 0, len(left.Str)+len(right.Str))
	combined = append(combined, left.Str...)
	combined = append(combined, right.Str...)
	return strValue(combined, enc), nil
}

func mergeEncoding(a, b StrEncoding) (StrEncoding, bool) {
	if a == b {
		return a, true
	}
	if a == EncDefault && (b == EncZero || b == EncChar) {
		return b, true
	}
	if b == EncDefault && (a == EncZero || a == EncChar) {
		return a, true
	}
	return 0, false
}
