package clp

import "testing"

// asTabError fails t unless err is a *Error with Code == TAB, returning it
// for further inspection.
func asTabError(t *testing.T, err error) *Error {
	t.Helper()
	if err == nil {
		t.Fatal("expected a TAB validation error, got nil")
	}
	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("error = %v (%T), want *Error{Code: TAB}", err, err)
	}
	if e.Code != TAB {
		t.Errorf("error code = %v, want TAB", e.Code)
	}
	return e
}

func TestValidateTreeAcceptsWellFormedTable(t *testing.T) {
	descs := []*Descriptor{
		NewNumber("N", 0, 1, 4, 0, 1, FlagNone, ""),
		NewAlias("ALI", "N"),
	}
	if _, err := Open(descs, make([]byte, 4), Options{}); err != nil {
		t.Fatalf("Open() error = %v, want nil for a well-formed table", err)
	}
}

func TestDuplicateKeywordAtTopLevelRejected(t *testing.T) {
	descs := []*Descriptor{
		NewNumber("N", 0, 1, 4, 0, 1, FlagNone, ""),
		NewNumber("N", 0, 1, 4, 4, 2, FlagNone, ""),
	}
	_, err := Open(descs, make([]byte, 8), Options{})
	asTabError(t, err)
}

func TestInvalidMinMaxRejected(t *testing.T) {
	descs := []*Descriptor{
		NewNumber("N", 5, 2, 1, 0, 1, FlagNone, ""),
	}
	_, err := Open(descs, make([]byte, 1), Options{})
	asTabError(t, err)
}

func TestNonDummyScalarNeedsPositiveSizeRejected(t *testing.T) {
	descs := []*Descriptor{
		NewNumber("N", 0, 1, 0, 0, 1, FlagNone, ""),
	}
	_, err := Open(descs, make([]byte, 1), Options{})
	asTabError(t, err)
}

func TestSelectionWithNoConstantsRejected(t *testing.T) {
	descs := []*Descriptor{
		{Kind: KindNumber, Keyword: "N", Min: 0, Max: 1, Size: 1, Flags: FlagSelection},
	}
	_, err := Open(descs, make([]byte, 1), Options{})
	asTabError(t, err)
}

func TestObjectWithNoChildrenRejected(t *testing.T) {
	descs := []*Descriptor{
		NewObject("OBJ", 0, 1, 1, FlagNone, nil),
	}
	_, err := Open(descs, make([]byte, 1), Options{})
	asTabError(t, err)
}

func TestOverlayWithNoChildrenRejected(t *testing.T) {
	descs := []*Descriptor{
		NewOverlay("OVL", 0, 1, 1, FlagNone, nil),
	}
	_, err := Open(descs, make([]byte, 1), Options{})
	asTabError(t, err)
}

// A top-level ALIAS whose principal can't be found is caught by
// SymbolTable.cal() during NewSymbolTable, before validateTree ever runs,
// and surfaces as a plain wrapped error rather than a *Error{Code: TAB}.
func TestAliasToUnknownPrincipalAtTopLevelFailsOpenButIsNotTabCoded(t *testing.T) {
	descs := []*Descriptor{
		NewAlias("ALI", "MISSING"),
	}
	_, err := Open(descs, make([]byte, 1), Options{})
	if err == nil {
		t.Fatal("expected Open() to fail for an ALIAS with an unresolvable principal")
	}
	if _, ok := err.(*Error); ok {
		t.Error("top-level alias resolution is caught by cal(), not validateScope; got a *Error where a plain wrapped error was expected")
	}
}

// Nesting the same defect inside an OBJECT's children bypasses cal() (Open
// never eagerly Extends nested scopes) and exercises validateScope's own
// ALIAS-target check, producing a genuine *Error{Code: TAB}.
func TestAliasTargetNotFoundNestedInObjectProducesTabError(t *testing.T) {
	descs := []*Descriptor{
		NewObject("OBJ", 0, 1, 1, FlagNone, []*Descriptor{
			NewNumber("N", 0, 1, 4, 0, 1, FlagNone, ""),
			NewAlias("ALI", "MISSING"),
		}),
	}
	_, err := Open(descs, make([]byte, 4), Options{})
	asTabError(t, err)
}

func TestAliasWithNoTargetNestedInObjectProducesTabError(t *testing.T) {
	descs := []*Descriptor{
		NewObject("OBJ", 0, 1, 1, FlagNone, []*Descriptor{
			NewNumber("N", 0, 1, 4, 0, 1, FlagNone, ""),
			NewAlias("ALI", ""),
		}),
	}
	_, err := Open(descs, make([]byte, 4), Options{})
	asTabError(t, err)
}

func TestLinkWithNoTargetNestedInObjectProducesTabError(t *testing.T) {
	descs := []*Descriptor{
		NewObject("OBJ", 0, 1, 1, FlagNone, []*Descriptor{
			NewNumber("N", 0, 1, 4, 0, 1, FlagNone, ""),
			{Kind: KindNumber, Keyword: "CNT", Size: 1, Offset: 4, Flags: FlagCount},
		}),
	}
	_, err := Open(descs, make([]byte, 5), Options{})
	asTabError(t, err)
}

func TestLinkTargetNotFoundNestedInObjectProducesTabError(t *testing.T) {
	descs := []*Descriptor{
		NewObject("OBJ", 0, 1, 1, FlagNone, []*Descriptor{
			NewNumber("N", 0, 1, 4, 0, 1, FlagNone, ""),
			NewLink("CNT", "MISSING", 1, 4, FlagCount),
		}),
	}
	_, err := Open(descs, make([]byte, 5), Options{})
	asTabError(t, err)
}
