package core

import _ "embed"

// defaultTemplateHTML is the fallback page shell used when an entry's
// metadata names no template. It is guaranteed to carry CONTENTS and
// CSS directives and to produce valid minimal HTML5.
//
//go:embed template.html
var defaultTemplateHTML string

// DefaultTemplateName labels the embedded template in diagnostics.
const DefaultTemplateName = "embedded default"

// DefaultTemplate parses the embedded fallback template. The embedded
// text is known-good, so a parse failure is a programming error.
func DefaultTemplate() *Template {
	t, err := ParseTemplate(DefaultTemplateName, defaultTemplateHTML)
	if err != nil {
		panic("kiln: embedded template is invalid: " + err.Error())
	}
	return t
}
