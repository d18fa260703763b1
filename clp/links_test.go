package clp

import "testing"

func TestElementLenLinkRecordsEachWriteSize(t *testing.T) {
	arr := NewString("ARR", 0, 3, 3, 0, 1, FlagNone, "")
	eln := NewLink("ELN", "ARR", 1, 10, FlagElementLen)
	buf := make([]byte, 13)
	h := openTestHandle(t, []*Descriptor{arr, eln}, buf, Options{})
	if _, err := h.ParseCommand("test", "ARR[ 'ab' 'cde' ]"); err != nil {
		t.Fatalf("ParseCommand() error = %v", err)
	}
	// "ab\0" is 3 bytes, "cde\0" is 4 bytes; ELN records each element's
	// written length as a separate array entry.
	if buf[10] != 3 || buf[11] != 4 {
		t.Errorf("ELN history = %v, want [3 4]", buf[10:12])
	}
}

func TestStringLenLinkExcludesTerminator(t *testing.T) {
	s := NewString("S", 0, 1, 10, 0, 1, FlagNone, "")
	sln := NewLink("SLN", "S", 1, 10, FlagStringLen)
	buf := make([]byte, 11)
	h := openTestHandle(t, []*Descriptor{s, sln}, buf, Options{})
	if _, err := h.ParseCommand("test", "S='hello'"); err != nil {
		t.Fatalf("ParseCommand() error = %v", err)
	}
	if buf[10] != 5 {
		t.Errorf("SLN = %d, want 5 (excludes the NUL terminator)", buf[10])
	}
}

func TestStringLenLinkOnFixedFieldExcludesPadding(t *testing.T) {
	s := NewString("S", 0, 1, 10, 0, 1, FlagFixed, "")
	sln := NewLink("SLN", "S", 1, 10, FlagStringLen)
	buf := make([]byte, 11)
	h := openTestHandle(t, []*Descriptor{s, sln}, buf, Options{})
	if _, err := h.ParseCommand("test", "S='hi'"); err != nil {
		t.Fatalf("ParseCommand() error = %v", err)
	}
	if buf[10] != 2 {
		t.Errorf("SLN = %d, want 2 (true content length, not the padded FIXED slot size)", buf[10])
	}
}

func TestIndexLinkRecordsByteOffsetInInput(t *testing.T) {
	n := NewNumber("N", 0, 1, 1, 0, 1, FlagNone, "")
	ind := NewLink("IND", "N", 1, 1, FlagIndex)
	buf := make([]byte, 2)
	h := openTestHandle(t, []*Descriptor{n, ind}, buf, Options{})
	if _, err := h.ParseCommand("test", "  N=5"); err != nil {
		t.Fatalf("ParseCommand() error = %v", err)
	}
	if buf[1] == 0 {
		t.Error("IND = 0, want the byte offset of the keyword")
	}
}

func TestCountLinkOverwritesRatherThanAppends(t *testing.T) {
	arr := NewString("ARR", 0, 3, 4, 0, 1, FlagFixed, "")
	cnt := NewLink("CNT", "ARR", 1, 12, FlagCount)
	buf := make([]byte, 13)
	h := openTestHandle(t, []*Descriptor{arr, cnt}, buf, Options{})
	if _, err := h.ParseCommand("test", "ARR[ 'a' 'b' 'c' ]"); err != nil {
		t.Fatalf("ParseCommand() error = %v", err)
	}
	if buf[12] != 3 {
		t.Errorf("CNT = %d, want 3 (overwritten, not appended)", buf[12])
	}
}
