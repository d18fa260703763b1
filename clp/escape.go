package clp

import (
	"fmt"
	"strconv"
	"strings"
)

// punctuationNames maps the symbolic escape names (&NAME;) to the
// punctuation byte they stand for. decodeEscapes replaces each &NAME;
// with that byte before the lexer sees the text; the lexer itself
// compares against literal punctuation bytes.
var punctuationNames = map[string]byte{
	"EXC": '!',
	"DLR": '$',
	"HSH": '#',
	"ATS": '@',
	"SBO": '[',
	"BSL": '\\',
	"SBC": ']',
	"CRT": '^',
	"GRV": '`',
	"CBO": '{',
	"VBR": '|',
	"CBC": '}',
	"TLD": '~',
}

// Symbolic punctuation constants, named the way the original C interface
// names them (C_xxx). No grammar code refers to them; the lexer compares
// against the literal bytes.
const (
	cSBO = '['
	cSBC = ']'
	cCBO = '{'
	cCBC = '}'
	cHSH = '#'
	cGRV = '`'
	cCRT = '^'
	cEXC = '!'
	cTLD = '~'
)

// decodeEscapes expands &NAME;, &xFF; and &NNNN;/&0; escape sequences in
// the raw source text before any other lexical processing runs. &NNNN;
// switches the nominal CCSID of subsequent input until reset by &0;;
// since this implementation only ever runs over a single host character
// set, the switch is accepted syntactically and has no further effect —
// translating between charsets is the portability layer's job, which is
// out of scope for the core (see spec.md PURPOSE & SCOPE).
func decodeEscapes(src string) (string, error) {
	var sb strings.Builder
	i := 0
	for i < len(src) {
		if src[i] != '&' {
			sb.WriteByte(src[i])
			i++
			continue
		}
		end := strings.IndexByte(src[i+1:], ';')
		if end < 0 {
			return "", fmt.Errorf("unterminated escape sequence at offset %d", i)
		}
		name := src[i+1 : i+1+end]
		switch {
		case name == "0":
			// reset CCSID — no-op here, see doc comment above.
		case len(name) > 0 && name[0] == 'x':
			val, err := strconv.ParseUint(name[1:], 16, 8)
			if err != nil {
				return "", fmt.Errorf("invalid hex escape &%s; at offset %d: %w", name, i, err)
			}
			sb.WriteByte(byte(val))
		case isAllDigits(name):
			// CCSID switch — accepted, no effect (see doc comment above).
		default:
			b, ok := punctuationNames[name]
			if !ok {
				return "", fmt.Errorf("unknown escape name &%s; at offset %d", name, i)
			}
			sb.WriteByte(b)
		}
		i += 1 + end + 1
	}
	return sb.String(), nil
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
