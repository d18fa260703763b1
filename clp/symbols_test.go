package clp

import "testing"

// Keyword abbreviation: for every pair of siblings, the prefix of
// length kwl of each is unique among siblings (spec.md §8).
func TestKeywordAbbreviationMinimalUnambiguous(t *testing.T) {
	descs := []*Descriptor{
		NewNumber("NAME", 0, 1, 2, 0, 1, FlagNone, ""),
		NewNumber("NAMESPACE", 0, 1, 2, 2, 2, FlagNone, ""),
		NewNumber("OTHER", 0, 1, 2, 4, 3, FlagNone, ""),
	}
	buf := make([]byte, 6)
	h := openTestHandle(t, descs, buf, Options{})

	if _, err := h.ParseCommand("test", "O=9"); err != nil {
		t.Fatalf("abbreviating OTHER to 'O' should succeed: %v", err)
	}
	if buf[4] != 9 {
		t.Errorf("OTHER = %d, want 9", buf[4])
	}

	h.Reset()
	if _, err := h.ParseCommand("test", "NAME=5"); err != nil {
		t.Fatalf("ParseCommand() error = %v", err)
	}
	if buf[0] != 5 {
		t.Errorf("NAME = %d, want 5 (NAME must not abbreviate-match NAMESPACE)", buf[0])
	}
}

func TestCaseInsensitiveByDefault(t *testing.T) {
	descs := []*Descriptor{NewNumber("FOO", 0, 1, 1, 0, 1, FlagNone, "")}
	buf := make([]byte, 1)
	h := openTestHandle(t, descs, buf, Options{})
	if _, err := h.ParseCommand("test", "foo=7"); err != nil {
		t.Fatalf("case-insensitive keyword match should succeed: %v", err)
	}
	if buf[0] != 7 {
		t.Errorf("buf[0] = %d, want 7", buf[0])
	}
}

func TestCaseSensitiveRejectsWrongCase(t *testing.T) {
	descs := []*Descriptor{NewNumber("FOO", 0, 1, 1, 0, 1, FlagNone, "")}
	buf := make([]byte, 1)
	h := openTestHandle(t, descs, buf, Options{CaseSensitive: true})
	if _, err := h.ParseCommand("test", "foo=7"); err == nil {
		t.Fatal("expected an unknown-keyword error under case-sensitive matching")
	}
}

// Alias resolution: an ALIAS shares its principal's Fixed/Var records by
// pointer, so writing through the alias is visible through the
// principal.
func TestAliasSharesPrincipalState(t *testing.T) {
	descs := []*Descriptor{
		NewNumber("LONGNAME", 0, 1, 2, 0, 1, FlagNone, ""),
		NewAlias("LN", "LONGNAME"),
	}
	buf := make([]byte, 2)
	h := openTestHandle(t, descs, buf, Options{})
	if _, err := h.ParseCommand("test", "LN=300"); err != nil {
		t.Fatalf("ParseCommand() error = %v", err)
	}
	got := int(buf[0]) | int(buf[1])<<8
	if got != 300 {
		t.Errorf("LONGNAME via alias LN = %d, want 300", got)
	}
}

func TestAliasToUnknownPrincipalFailsAtOpen(t *testing.T) {
	descs := []*Descriptor{NewAlias("LN", "MISSING")}
	if _, err := Open(descs, make([]byte, 1), Options{}); err == nil {
		t.Fatal("expected Open to fail: alias principal does not exist")
	}
}

// Lazy child-table extension: children of an OBJECT are only
// materialized the first time the table is asked about them.
func TestLazyChildExtension(t *testing.T) {
	child := NewNumber("X", 0, 1, 2, 0, 1, FlagNone, "")
	obj := NewObject("OBJ", 0, 1, 5, FlagNone, []*Descriptor{child})
	buf := make([]byte, 2)
	h := openTestHandle(t, []*Descriptor{obj}, buf, Options{})

	sym := h.table.Root()[0]
	if sym.extended {
		t.Fatal("OBJ's children must not be extended before first access")
	}
	if _, err := h.ParseCommand("test", "OBJ(X=3)"); err != nil {
		t.Fatalf("ParseCommand() error = %v", err)
	}
	if !sym.extended {
		t.Error("OBJ's children must be extended after being visited")
	}
}

func TestDuplicateKeywordRejectedAtOpen(t *testing.T) {
	descs := []*Descriptor{
		NewNumber("A", 0, 1, 1, 0, 1, FlagNone, ""),
		NewNumber("A", 0, 1, 1, 1, 2, FlagNone, ""),
	}
	if _, err := Open(descs, make([]byte, 2), Options{}); err == nil {
		t.Fatal("expected Open to reject duplicate sibling keywords")
	}
}
