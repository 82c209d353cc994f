package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "Hello_World"},
		{`a/b\c:d*e?f"g<h>i|j`, "a_b_c_d_e_f_g_h_i_j"},
		{"  spaced   out\ttabs\n", "spaced_out_tabs"},
		{"／full-width slash", "full-width_slash"},
		{"ﬁligature", "filigature"},
		{"प्रवचन | भाग 1", "प्रवचन___भाग_1"},
		{"", ""},
	}
	for _, tc := range tests {
		if got := SanitizeFileName(tc.in); got != tc.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSanitizeFileNameTruncatesByRune(t *testing.T) {
	long := strings.Repeat("श", 300)
	got := SanitizeFileName(long)
	if n := utf8.RuneCountInString(got); n != MaxFileNameRunes {
		t.Fatalf("expected %d runes, got %d", MaxFileNameRunes, n)
	}
	if !utf8.ValidString(got) {
		t.Fatal("truncation split a multi-byte rune")
	}
}

func TestSanitizeToken(t *testing.T) {
	if got := SanitizeToken("Hindi Verbatim!"); got != "hindi_verbatim" {
		t.Fatalf("unexpected token %q", got)
	}
	if got := SanitizeToken("  "); got != "unknown" {
		t.Fatalf("expected unknown, got %q", got)
	}
}

func TestExtractSpeaker(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"पूज्य मुनि श्री प्रमाणसागर जी महाराज | प्रवचन", "प्रमाणसागर जी"},
		{"आचार्य श्री विद्यासागर महाराज - अमृत वाणी", "विद्यासागर"},
		{"श्री सुधासागर महाराज जी, मंगल प्रवचन", "सुधासागर"},
		{"मुनि श्री क्षमासागर", "क्षमासागर"},
		{"Morning discourse", UnknownSpeaker},
	}
	for _, tc := range tests {
		if got := ExtractSpeaker(tc.title); got != tc.want {
			t.Errorf("ExtractSpeaker(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestTruncateBytesKeepsRunes(t *testing.T) {
	s := "क्षमा_सागर"
	for limit := 0; limit <= len(s)+2; limit++ {
		got := TruncateBytes(s, limit)
		if len(got) > limit || !utf8.ValidString(got) {
			t.Fatalf("TruncateBytes(%q, %d) = %q", s, limit, got)
		}
		if !strings.HasPrefix(s, got) {
			t.Fatalf("TruncateBytes(%q, %d) = %q is not a prefix", s, limit, got)
		}
	}
	if got := TruncateBytes("ab_cd", 3); got != "ab" {
		t.Fatalf("expected trailing underscore trimmed, got %q", got)
	}
}
