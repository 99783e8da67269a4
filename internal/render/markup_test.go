package render

import (
	"strings"
	"testing"
)

func TestUntrustedMarkupIsEscaped(t *testing.T) {
	p := NewPolicy(false)
	got := string(p.HTML("<b>bold</b>\nnext"))
	if strings.Contains(got, "<b>") {
		t.Fatalf("expected markup escaped, got %q", got)
	}
	if !strings.Contains(got, "&lt;b&gt;bold&lt;/b&gt;") || !strings.Contains(got, "<br>next") {
		t.Fatalf("unexpected rendering %q", got)
	}
}

func TestTrustedMarkupIsSanitized(t *testing.T) {
	p := NewPolicy(true)
	got := string(p.HTML(`<b>Key</b> <strong>points</strong><br><script>alert(1)</script><img src="x" onerror="alert(2)">`))
	for _, keep := range []string{"<b>Key</b>", "<strong>points</strong>", "<br"} {
		if !strings.Contains(got, keep) {
			t.Fatalf("expected %q to survive, got %q", keep, got)
		}
	}
	for _, drop := range []string{"<script", "alert(1)", "onerror"} {
		if strings.Contains(got, drop) {
			t.Fatalf("expected %q stripped, got %q", drop, got)
		}
	}
}

func TestNilPolicyEscapes(t *testing.T) {
	var p *Policy
	if got := string(p.HTML("<i>x</i>")); got != "&lt;i&gt;x&lt;/i&gt;" {
		t.Fatalf("unexpected rendering %q", got)
	}
}
