package clp

import "fmt"

// ValueKind is the scalar type tag of a Value (Int | Float | Str).
type ValueKind int

const (
	VInt ValueKind = iota
	VFloat
	VStr
)

// Value is the tagged-value type the Expression Evaluator and the
// Predefined-Constant Resolver both produce.
type Value struct {
	Kind   ValueKind
	Int    int64
	Flt    float64
	Str    []byte
	StrEnc StrEncoding
}

func intValue(v int64) Value   { return Value{Kind: VInt, Int: v} }
func fltValue(v float64) Value { return Value{Kind: VFloat, Flt: v} }
func strValue(b []byte, enc StrEncoding) Value {
	return Value{Kind: VStr, Str: b, StrEnc: enc}
}

func (v Value) String() string {
	switch v.Kind {
	case VInt:
		return fmt.Sprintf("%d", v.Int)
	case VFloat:
		return fmt.Sprintf("%g", v.Flt)
	case VStr:
		return string(v.Str)
	default:
		return "<invalid value>"
	}
}
