package markup

import (
	"errors"
	"testing"
)

func TestLatexToText(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`\frac{1}{2}`, "1/2"},
		{`\frac{a+b}{c}`, "(a+b)/c"},
		{`\frac{x}{y - 1}`, "x/(y - 1)"},
		{`\dfrac{3}{4} \cdot 2`, "3/4 · 2"},
		{`\frac12`, "1/2"},
		{`\frac{2 x}{3}`, "2 x/3"},
		{`\frac{x = 1}{2}`, "(x = 1)/2"},
		{`\sqrt{16}`, "√16"},
		{`\sqrt[3]{8}`, "³√8"},
		{`x_{10}`, "x₁₀"},
		{`x^{ab}`, "x^(ab)"},
		{`x^y`, "x^y"},
		{`\text{km} \quad 5`, "km 5"},
		{`90^\circ`, "90°"},
		{`a \leq b \neq c`, "a ≤ b ≠ c"},
		{`\left( x \right)`, "( x )"},
		{`\alpha + \beta`, "α + β"},
		{`\unknown`, "unknown"},
	}
	for _, tt := range tests {
		got, err := LatexToText(tt.in)
		if err != nil {
			t.Errorf("LatexToText(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("LatexToText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLatexToText_Malformed(t *testing.T) {
	inputs := []string{
		`\frac{1}`,
		`\frac{1}{2`,
		`a}`,
		`\sqrt[3{8}`,
		`x^`,
		`\`,
	}
	for _, in := range inputs {
		_, err := LatexToText(in)
		if !errors.Is(err, ErrMalformedLatex) {
			t.Errorf("LatexToText(%q): expected ErrMalformedLatex, got %v", in, err)
		}
	}
}
