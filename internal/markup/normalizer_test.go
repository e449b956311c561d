package markup

import (
	"strings"
	"testing"
)

func normalize(s string) string {
	return NewNormalizer(nil).Normalize(s)
}

func TestNormalize_LatexFractions(t *testing.T) {
	got := normalize(`$\frac{1}{2} + \frac{a+b}{c}$`)
	want := "1/2 + (a+b)/c"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNormalize_LatexInline(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`Area is $x^{2}$ units`, "Area is x² units"},
		{`$\sqrt{x+1}$`, "√(x+1)"},
		{`$a \times b$`, "a × b"},
		{`Bare \frac{3}{4} fraction`, "Bare 3/4 fraction"},
		{`$$\dfrac{1}{4}$$`, "1/4"},
		{`costs \$5 and \$10`, "costs \\$5 and \\$10"},
	}
	for _, tt := range tests {
		if got := normalize(tt.in); got != tt.want {
			t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_MalformedLatexPassesThrough(t *testing.T) {
	in := `See $\frac{1}{2$ here`
	if got := normalize(in); got != in {
		t.Errorf("expected malformed fragment unchanged, got %q", got)
	}
}

func TestNormalize_EmphasisSpellings(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`**Bold** and *italic*`, "<strong>Bold</strong> and <em>italic</em>"},
		{`__also bold__ and _it_`, "<strong>also bold</strong> and <em>it</em>"},
		{`***both***`, "<strong><em>both</em></strong>"},
		{`<b>x</b> <i>y</i>`, "<strong>x</strong> <em>y</em>"},
		{`[under]{.underline}`, "<u>under</u>"},
		{`<span class="underline">under</span>`, "<u>under</u>"},
		{`*under*{.underline}`, "<u>under</u>"},
		{`<ins>under</ins>`, "<u>under</u>"},
		{`2 \* 3`, "2 * 3"},
		{`snake_case_name`, "snake_case_name"},
		{`Fill in ____ here`, "Fill in ____ here"},
		{`a * b`, "a * b"},
	}
	for _, tt := range tests {
		if got := normalize(tt.in); got != tt.want {
			t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_EmphasisDoesNotCrossBlankLine(t *testing.T) {
	got := normalize("*open\n\nclose*")
	want := "*open\n\nclose*"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNormalize_Scripts(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`x^2^`, "x²"},
		{`H~2~O`, "H₂O"},
		{`5^th^ term`, "5th term"},
		{`^1^/~2~ cup`, "½ cup"},
		{`^3/4^ cup`, "¾ cup"},
		{`10<sup>3</sup>`, "10³"},
		{`CO<sub>2</sub>`, "CO₂"},
		{`~~gone~~ kept`, "gone kept"},
		{`ratio 1/2 stays`, "ratio 1/2 stays"},
	}
	for _, tt := range tests {
		if got := normalize(tt.in); got != tt.want {
			t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_Options(t *testing.T) {
	in := "What is 2+1?\\\n(A) 3\n\\(B\\) 4\n**(C)** 5\n(D) {1, 2}"
	want := "What is 2+1?\n<strong>(A)</strong> 3\n<strong>(B)</strong> 4\n<strong>(C)</strong> 5\n(D) {1, 2}"
	if got := normalize(in); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNormalize_Blockquotes(t *testing.T) {
	got := normalize("> quoted line\n> > nested")
	want := "quoted line\nnested"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNormalize_Images(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`![](media/media/image1.png){width="1in" height="2in"}`, "![](media/image1.png)"},
		{`![alt](media/image2.jpeg "title")`, "![](media/image2.jpeg)"},
		{`<img src="media\image3.png" alt="x">`, "![](media/image3.png)"},
	}
	for _, tt := range tests {
		if got := normalize(tt.in); got != tt.want {
			t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_Whitespace(t *testing.T) {
	got := normalize("\r\n  first  \r\n\n\n\n\nsecond\u00a0word   \n")
	want := "first\n\nsecond word"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		`$\frac{1}{2} + \frac{a+b}{c}$`,
		"**1.** What is *x* if $x^{2} = 4$?\n(A) 2\n(B) -2\n\n[note]{.underline} H~2~O",
		"<strong>PASSAGE - I</strong>\n\n> Read the passage.\n\n+---+---+\n| a | b |\n+---+---+\n\nText after",
		"Fill ____ and snake_case with 5^th^ and ^1^/~2~",
		`See $\frac{1}{2$ here`,
		"![](media/media/image9.png){width=\"2in\"}\n\n***Directions (1-5):*** Study",
		`a\*b\*c`,
		`\$x\$ cost`,
		`Find \_x\_ now`,
		`2\^3\^ x`,
		`H\~2\~O`,
		`\<b\>hi\</b\>`,
		`\[note\]{.underline}`,
		`2 \* 3 and a\\*b*`,
	}
	for _, in := range inputs {
		once := normalize(in)
		twice := normalize(once)
		if once != twice {
			t.Errorf("not idempotent for %q:\n once: %q\ntwice: %q", in, once, twice)
		}
	}
}

func TestNormalize_EscapedMarkupStaysText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`a\*b\*c`, `a\*b\*c`},
		{`Find \_x\_ now`, `Find \_x\_ now`},
		{`\<b\>hi\</b\>`, `\<b\>hi\</b\>`},
		{`2 \* 3`, "2 * 3"},
		{`1\.5 \(approx\)`, "1.5 (approx)"},
	}
	for _, tt := range tests {
		if got := normalize(tt.in); got != tt.want {
			t.Errorf("normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalize_NoMarkdownEmphasisLeft(t *testing.T) {
	got := normalize("**<strong>1.</strong>** **Read** *carefully*")
	if strings.Contains(got, "**") || strings.Contains(got, "*c") {
		t.Errorf("expected markdown emphasis to be rewritten, got %q", got)
	}
}

func TestCleanImagePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`"media/image1.png"`, "media/image1.png"},
		{`media\image2.png`, "media/image2.png"},
		{"media/media/media/image3.png", "media/image3.png"},
		{"media/\u200bimage4.png", "media/image4.png"},
		{"  media/image5.png  ", "media/image5.png"},
	}
	for _, tt := range tests {
		if got := CleanImagePath(tt.in); got != tt.want {
			t.Errorf("CleanImagePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
