package clp

import (
	"testing"
	"time"
)

func TestParseTimeLiteralAbsoluteDate(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	got, err := parseTimeLiteral("2024/03/15.10:30:00", now)
	if err != nil {
		t.Fatalf("parseTimeLiteral() error = %v", err)
	}
	want := time.Date(2024, 3, 15, 10, 30, 0, 0, time.Local)
	if isDST(want) {
		want = want.Add(-time.Hour)
	}
	if got != want.Unix() {
		t.Errorf("parseTimeLiteral() = %d, want %d", got, want.Unix())
	}
}

func TestParseTimeLiteralYearOnly(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	got, err := parseTimeLiteral("2024", now)
	if err != nil {
		t.Fatalf("parseTimeLiteral() error = %v", err)
	}
	want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local)
	if isDST(want) {
		want = want.Add(-time.Hour)
	}
	if got != want.Unix() {
		t.Errorf("parseTimeLiteral() = %d, want %d", got, want.Unix())
	}
}

func TestParseTimeLiteralRelativeAddsToNow(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	got, err := parseTimeLiteral("+0/0/1", now)
	if err != nil {
		t.Fatalf("parseTimeLiteral() error = %v", err)
	}
	want := now.AddDate(0, 0, 1).Unix()
	if got != want {
		t.Errorf("parseTimeLiteral(+1 day) = %d, want %d", got, want)
	}
}

func TestParseTimeLiteralRelativeSubtractsFromNow(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	got, err := parseTimeLiteral("-0/0/1", now)
	if err != nil {
		t.Fatalf("parseTimeLiteral() error = %v", err)
	}
	want := now.AddDate(0, 0, -1).Unix()
	if got != want {
		t.Errorf("parseTimeLiteral(-1 day) = %d, want %d", got, want)
	}
}

func TestParseTimeLiteralEmptyErrors(t *testing.T) {
	if _, err := parseTimeLiteral("", time.Now()); err == nil {
		t.Fatal("expected an error for an empty time literal")
	}
}

func TestParseTimeLiteralInvalidYearErrors(t *testing.T) {
	if _, err := parseTimeLiteral("notayear", time.Now()); err == nil {
		t.Fatal("expected an error for a non-numeric year")
	}
}

func TestLexerScans0tTimeLiteral(t *testing.T) {
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	lex, err := NewLexer("0t2024/03/15", "test", now, nil)
	if err != nil {
		t.Fatalf("NewLexer() error = %v", err)
	}
	tok, err := lex.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if tok.Type != TokNum || !tok.IsTime {
		t.Fatalf("tok = %v, want a NUM token with IsTime set", tok)
	}
}
