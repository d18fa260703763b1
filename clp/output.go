package clp

import (
	"fmt"
	"sort"
	"strings"
)

// redactedValue is substituted for any PWD-flagged descriptor's value in
// every diagnostic surface: the parsed-list, error messages, and the
// output helpers below (spec.md §8 "Redaction").
const redactedValue = "***SECRET***"

// Syntax renders a one-line-per-branch usage summary of path (the root
// if path is empty), the way the reference shell's SYNTAX built-in does.
func (h *Handle) Syntax(path string) (string, error) {
	scope, err := h.resolveDocPath(path)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	siblings := h.table.Root()
	if scope != nil {
		siblings = []*Symbol{scope}
	}
	h.writeSyntax(&sb, scope, siblings, 0)
	return sb.String(), nil
}

func (h *Handle) writeSyntax(sb *strings.Builder, scope *Symbol, siblings []*Symbol, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, sym := range siblings {
		if sym.IsAlias() || sym.Fixed.Flags.Has(FlagConstant) || sym.Fixed.Flags.Has(FlagDummy) || sym.Fixed.Flags.Has(FlagHidden) {
			continue
		}
		fmt.Fprintf(sb, "%s%s%s\n", indent, sym.Keyword, cardinality(sym))
		if sym.Fixed.Kind == KindObject || sym.Fixed.Kind == KindOverlay {
			if err := h.table.Extend(sym); err == nil {
				h.writeSyntax(sb, sym, sym.Children, depth+1)
			}
		}
	}
}

func cardinality(sym *Symbol) string {
	switch {
	case sym.Fixed.Min == 0 && sym.Fixed.Max == 1:
		return "?"
	case sym.Fixed.Min == 0 && sym.Fixed.Max != 1:
		return "*"
	case sym.Fixed.Min >= 1 && sym.Fixed.Max == 1:
		return ""
	default:
		return "+"
	}
}

// Help renders path's own help text, falling back to its children's
// one-line summaries when path names an object or overlay.
func (h *Handle) Help(path string) (string, error) {
	sym, err := h.resolveDocPath(path)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if sym == nil {
		for _, top := range h.table.Root() {
			h.writeHelpLine(&sb, top)
		}
		return sb.String(), nil
	}
	h.writeHelpLine(&sb, sym)
	if sym.Fixed.Kind == KindObject || sym.Fixed.Kind == KindOverlay {
		if err := h.table.Extend(sym); err == nil {
			for _, child := range sym.Children {
				if child.Fixed.Flags.Has(FlagHidden) {
					continue
				}
				h.writeHelpLine(&sb, child)
			}
		}
	}
	return sb.String(), nil
}

func (h *Handle) writeHelpLine(sb *strings.Builder, sym *Symbol) {
	help := sym.Fixed.Help
	if help == "" {
		help = "(no help available)"
	}
	fmt.Fprintf(sb, "%-24s %s\n", sym.Keyword, help)
}

// Docu generates a cross-referenced, machine-readable manual page
// listing every descriptor's dotted path, type, cardinality, and manual
// text, in the style of the reference GENDOCU built-in.
func (h *Handle) Docu() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "MANUAL PAGE: %s\n", h.opts.Program)
	if h.opts.Manual != "" {
		fmt.Fprintf(&sb, "\n%s\n", h.opts.Manual)
	}
	sb.WriteString("\nARGUMENTS\n")
	h.writeDocu(&sb, h.table.Root(), 0)
	return sb.String()
}

func (h *Handle) writeDocu(sb *strings.Builder, siblings []*Symbol, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, sym := range siblings {
		if sym.IsAlias() || sym.Fixed.Flags.Has(FlagConstant) {
			continue
		}
		manual := sym.Fixed.Manual
		if manual == "" {
			manual = sym.Fixed.Help
		}
		fmt.Fprintf(sb, "%s%s (%s, %d..%s)\n", indent, sym.Path(), sym.Fixed.Kind, sym.Fixed.Min, maxStr(sym.Fixed.Max))
		if manual != "" {
			fmt.Fprintf(sb, "%s    %s\n", indent, manual)
		}
		if sym.Fixed.Kind == KindObject || sym.Fixed.Kind == KindOverlay {
			if err := h.table.Extend(sym); err == nil {
				h.writeDocu(sb, sym.Children, depth+1)
			}
		}
	}
}

func maxStr(max int) string {
	if max <= 0 {
		return "n"
	}
	return fmt.Sprintf("%d", max)
}

// Properties generates a property-file rendering of the current default
// for every bindable descriptor (generate_properties in spec.md §8's
// round-trip property). PWD-flagged descriptors are redacted.
func (h *Handle) Properties() string {
	var sb strings.Builder
	h.writeProperties(&sb, h.table.Root())
	return sb.String()
}

func (h *Handle) writeProperties(sb *strings.Builder, siblings []*Symbol) {
	for _, sym := range siblings {
		self := sym.self()
		if sym.IsAlias() || self.Fixed.Flags.Has(FlagConstant) || self.Fixed.Flags.Has(FlagDummy) {
			continue
		}
		switch self.Fixed.Kind {
		case KindObject, KindOverlay:
			if err := h.table.Extend(sym); err == nil {
				h.writeProperties(sb, sym.Children)
			}
		default:
			if self.Fixed.Default == "" {
				continue
			}
			val := self.Fixed.Default
			if self.Fixed.Flags.Has(FlagPwd) {
				val = redactedValue
			}
			fmt.Fprintf(sb, "%s=%q\n", sym.Path(), val)
		}
	}
}

// PrintPage streams Docu()'s text through emit one line at a time, the
// way the reference print_page callback interface works.
func (h *Handle) PrintPage(emit func(line string) error) error {
	for _, line := range strings.Split(strings.TrimRight(h.Docu(), "\n"), "\n") {
		if err := emit(line); err != nil {
			return err
		}
	}
	return nil
}

// ParsedList renders the dotted paths bound during the most recent parse
// pass, redacting any PWD-flagged path's value (spec.md §8 "Redaction").
// Unlike Error.Parsed (a plain comma join kept for error messages), this
// form is suitable as a standalone diagnostic trace.
func (h *Handle) ParsedList() []string {
	out := make([]string, len(h.parsed))
	copy(out, h.parsed)
	for i, path := range out {
		if sym, ok := h.resolvePropertyPath(path); ok && sym.self().Fixed.Flags.Has(FlagPwd) {
			out[i] = path + "=" + redactedValue
		}
	}
	return out
}

// resolveDocPath walks a dotted path from the table root for the
// output helpers above; an empty path means the root scope (nil).
func (h *Handle) resolveDocPath(path string) (*Symbol, error) {
	if path == "" {
		return nil, nil
	}
	sym, ok := h.resolvePropertyPath(path)
	if !ok {
		return nil, h.fail(Position{}, SYN, "unknown path %q", path)
	}
	return sym, nil
}

// Lexemes dumps the lexical grammar's reserved forms — token names,
// string-literal prefixes, and number-literal radix prefixes — the way
// the reference lexemes built-in does.
func Lexemes() string {
	var sb strings.Builder
	sb.WriteString("TOKENS\n")
	names := make([]string, 0, len(tokenNames))
	for _, n := range tokenNames {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintf(&sb, "  %s\n", n)
	}
	sb.WriteString("\nSTRING PREFIXES\n  s c a e x f d\n")
	sb.WriteString("\nNUMBER RADIX PREFIXES\n  0b 0o 0d 0x 0t\n")
	return sb.String()
}

// Grammar dumps the EBNF the Parser implements (spec.md §4.5), as a
// fixed reference string.
func Grammar() string {
	return strings.TrimLeft(`
parse_main    := object_body | ['.'] overlay_body
parameter_list:= parameter*
parameter     := switch | assignment | object_body | overlay_body | array
switch        := KYW
assignment    := KYW '=' expr | KYW '=>' STR
object_body   := KYW '(' parameter_list ')' | KYW parameter_list | KYW '=' STR
overlay_body  := KYW '.' parameter
array         := KYW '[' value_list ']' | KYW '[' object_list ']' | KYW '[' overlay_list ']'
expr          := term (('+'|'-') expr)?
term          := factor (('*'|'/') term)?
factor        := NUM | FLT | STR | KYW ['{' NUM '}'] | '(' expr ')'
`, "\n")
}
