package clp

import (
	"fmt"
	"io"
	"time"
)

// FileLoader already appears in lexer.go (string-file literals); Handle
// reuses the same type for parameter-file inclusion (spec.md §4.5).

// AuthCallback is invoked with the full dotted path of a value about to
// be written. A non-zero return aborts the parse with code AUT
// (spec.md §4.6 "Safety callback").
type AuthCallback func(path string) error

// OutStreams names the six optional diagnostic streams a host may wire
// up at Open (spec.md §6); a nil stream suppresses that output.
type OutStreams struct {
	Help io.Writer
	Err  io.Writer
	Sym  io.Writer
	Scan io.Writer
	Prs  io.Writer
	Bld  io.Writer
}

// Options configures one Handle for its lifetime (spec.md §6 "Opening").
type Options struct {
	CaseSensitive       bool
	ParameterFilesOK    bool
	EnvSubstOK          bool
	MinKeywordLength    int
	Owner               string
	Program             string
	Build               string
	Command             string
	Manual              string
	Help                string
	IsOverlayRoot       bool
	Strict              bool
	OptionSeparator     byte // default ' '
	EntrySeparator      byte // default ','
	Out                 OutStreams
	FileLoader          FileLoader
	AuthCallback        AuthCallback
	RandomSeed          int64
	Now                 time.Time // open-time reference for NOW/LCSTAMP/time literals; zero means time.Now()
}

// Handle is the opaque parser instance returned by Open — one per
// independent command/property parse against one descriptor tree and
// one target buffer.
type Handle struct {
	opts    Options
	table   *SymbolTable
	resolver *ConstResolver
	alloc   *Allocator
	buffer  []byte
	root    []*Descriptor

	lastErr  *Error
	warnings []*Warning
	parsed   []string // dotted paths bound so far, for Error.Parsed

	fileIncluded bool // parameter-file inclusion guard: at most one level

	// curDelta is the byte offset added to every scalar write beneath the
	// object/overlay array element currently being parsed (index *
	// descriptor.Stride). The parser pushes/pops it around each element
	// of an OBJECT/OVERLAY array; it is otherwise zero.
	curDelta int
}

// pushDelta adds extra to the current element-offset delta and returns
// the previous value, for the caller to restore on scope exit.
func (h *Handle) pushDelta(extra int) int {
	prev := h.curDelta
	h.curDelta += extra
	return prev
}

func (h *Handle) popDelta(prev int) { h.curDelta = prev }

// Open builds a Handle: constructs the Symbol Table over root (the
// host's descriptor tree) and an Allocator Registry for DYN targets.
func Open(root []*Descriptor, target []byte, opts Options) (*Handle, error) {
	if opts.MinKeywordLength < 1 {
		opts.MinKeywordLength = 1
	}
	if opts.OptionSeparator == 0 {
		opts.OptionSeparator = ' '
	}
	if opts.EntrySeparator == 0 {
		opts.EntrySeparator = ','
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	resolver := NewConstResolver(now, opts.RandomSeed)
	table, err := NewSymbolTable(opts.CaseSensitive, opts.Owner, opts.Program, resolver, root)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	table.Resolver = resolver
	h := &Handle{
		opts:     opts,
		table:    table,
		resolver: resolver,
		alloc:    NewAllocator(),
		buffer:   target,
		root:     root,
	}
	if err := validateTree(root); err != nil {
		return nil, err
	}
	return h, nil
}

// Reset clears per-pass Variable state so the same Handle can parse a
// fresh command/property string against the same descriptor tree and
// target buffer.
func (h *Handle) Reset() {
	h.table.ResetPass()
	h.lastErr = nil
	h.warnings = nil
	h.parsed = nil
	h.fileIncluded = false
}

// CloseMode selects how Close disposes of the Allocator Registry
// (spec.md §4.9).
type CloseMode int

const (
	CloseAll           CloseMode = iota // free every tracked allocation
	CloseExceptDynamic                  // free the registry bookkeeping, leave caller-owned allocations
	CloseKeepDynamic                    // free only non-DYN-target bookkeeping
)

// Close releases the Allocator Registry per mode.
func (h *Handle) Close(mode CloseMode) {
	switch mode {
	case CloseAll:
		h.alloc.FreeAll()
	case CloseExceptDynamic:
		h.alloc.FreeExceptDynamic()
	case CloseKeepDynamic:
		h.alloc.FreeKeepDynamic()
	}
}

// LastError returns the error latched by the most recent failed parse,
// or nil.
func (h *Handle) LastError() *Error { return h.lastErr }

// Warnings returns non-fatal diagnostics accumulated by the most recent
// parse (e.g. unknown property roots in non-strict mode).
func (h *Handle) Warnings() []*Warning { return h.warnings }

func (h *Handle) fail(pos Position, code Code, format string, args ...any) *Error {
	return h.latch(newError(pos, code, format, args...))
}

// latch attaches the "parsed list" of arguments successfully bound so
// far (spec.md §7) to e and records it as the handle's last error.
func (h *Handle) latch(e *Error) *Error {
	if len(h.parsed) > 0 {
		e.Parsed = joinParsed(h.parsed)
	}
	h.lastErr = e
	return e
}

// recordParsed appends sym's path (and, for a scalar, its just-written
// value) to the handle's parsed-list, redacting PWD-flagged descriptors
// (spec.md §8 "Redaction").
func (h *Handle) recordParsed(sym *Symbol) {
	self := sym.self()
	entry := sym.Path()
	switch self.Fixed.Kind {
	case KindNumber, KindFloat, KindString:
		if len(self.Var.History) > 0 {
			val := redactedValue
			if !self.Fixed.Flags.Has(FlagPwd) {
				val = self.Var.History[len(self.Var.History)-1].String()
			}
			entry = entry + "=" + val
		}
	}
	h.parsed = append(h.parsed, entry)
}

func joinParsed(paths []string) string {
	out := ""
	for i, p := range paths {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
