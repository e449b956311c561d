package markup

import "testing"

func TestStripTags(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<strong>1.</strong> What", "1. What"},
		{"<em><strong>Directions</strong></em>", "Directions"},
		{"a < b and c > d", "a < b and c > d"},
		{`<img src="x.png"> after`, " after"},
		{`\<b\>hi\</b\> <b>x</b>`, `\<b\>hi\</b\> x`},
	}
	for _, tt := range tests {
		if got := StripTags(tt.in); got != tt.want {
			t.Errorf("StripTags(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestUnescape(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`a\*b\*c`, "a*b*c"},
		{`costs \$5`, "costs $5"},
		{`\<b\> and \\ and \[x]`, `<b> and \ and [x]`},
		{`C:\path\n`, `C:\path\n`},
		{`trailing\`, `trailing\`},
	}
	for _, tt := range tests {
		if got := Unescape(tt.in); got != tt.want {
			t.Errorf("Unescape(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCollapseBlankLines(t *testing.T) {
	got := CollapseBlankLines("  a  \n\n\n\n b\n")
	if got != "a\n\nb" {
		t.Errorf("expected %q, got %q", "a\n\nb", got)
	}
}
