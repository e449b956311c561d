package segment

import "testing"

func TestScrubCommon(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "  Read the passage.  \n", "Read the passage."},
		{"option lines", "Read.\n(A) one\n<strong>(B)</strong> two\nMore.", "Read.\nMore."},
		{"embedded question", "Passage.\n<strong>3.</strong> swallowed body\n<strong>Note</strong> kept", "Passage.\n<strong>Note</strong> kept"},
		{"wide gaps", "Name    Age\nText.", "Text."},
		{"numeric run", "Data:\n10 | 20\n30 | 40\nEnd.", "Data:\nEnd."},
		{"single numeric line kept", "Year\n2024\nEnd.", "Year\n2024\nEnd."},
		{"bare header", "<strong>TEST - II</strong>\nBody.", "Body."},
		{"blank runs", "a\n\n\n\nb", "a\n\nb"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScrubCommon(tt.in); got != tt.want {
				t.Errorf("ScrubCommon(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
