// Package render converts summary text from the service into page markup.
package render

import (
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Policy decides how service markup reaches the page.
type Policy struct {
	trust     bool
	sanitizer *bluemonday.Policy
}

// NewPolicy returns a renderer. With trust on, markup is kept after
// sanitizing with the UGC policy; with trust off it is shown as plain text.
func NewPolicy(trust bool) *Policy {
	p := &Policy{trust: trust}
	if trust {
		p.sanitizer = bluemonday.UGCPolicy()
	}
	return p
}

func (p *Policy) Trusted() bool {
	return p != nil && p.trust
}

// HTML renders text for inclusion in a template.
func (p *Policy) HTML(text string) template.HTML {
	if !p.Trusted() {
		escaped := template.HTMLEscapeString(text)
		return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>"))
	}
	return template.HTML(p.sanitizer.Sanitize(text))
}
