// Package prompt turns source code into documentation prompts and cleans
// the model's answer for display.
package prompt

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"
)

type DocumentationType string

const (
	Docstrings         DocumentationType = "docstrings"
	DetailedDocstrings DocumentationType = "detailed_docstrings"
	ExternalFile       DocumentationType = "external_file"
)

var DocumentationTypes = []DocumentationType{Docstrings, DetailedDocstrings, ExternalFile}

const inlineRules = "Add the documentation to the code directly, keeping the original code intact and unchanged, only adding documentation. " +
	"Please do not put the code inside triple backticks. Make sure that the code can be copied as is, comment non code properly."

var templates = map[DocumentationType]string{
	Docstrings:         "Provide a concise documentation for the following code. " + inlineRules + ":",
	DetailedDocstrings: "Provide a detailed documentation for the following code, explaining what each part does, including loops, conditionals, and other constructs. " + inlineRules,
	ExternalFile:       "Provide a concise documentation for the following code. Create a md file to document it.:",
}

// ParseDocumentationType accepts the type names case-insensitively, with
// either dashes or underscores.
func ParseDocumentationType(s string) (DocumentationType, error) {
	normalized := DocumentationType(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if normalized == "" {
		return Docstrings, nil
	}
	if !lo.Contains(DocumentationTypes, normalized) {
		return "", errors.Errorf("unknown documentation type %q, expected one of %s", s,
			strings.Join(lo.Map(DocumentationTypes, func(t DocumentationType, _ int) string { return string(t) }), ", "))
	}
	return normalized, nil
}

// WritesInline reports whether the answer is the original code with
// documentation added, as opposed to a separate Markdown document.
func (t DocumentationType) WritesInline() bool {
	return t == Docstrings || t == DetailedDocstrings
}

// Extension is the file extension to save a generated answer under.
func (t DocumentationType) Extension() string {
	return lo.Ternary(t == ExternalFile, ".md", "")
}

func Build(t DocumentationType, code string) string {
	template, ok := templates[t]
	if !ok {
		template = templates[Docstrings]
	}
	return template + "\n\n" + code
}

var fenceLine = regexp.MustCompile("(?m)^```.*$")

// CleanResponse drops Markdown code fence lines the model adds despite
// being asked not to.
func CleanResponse(text string) string {
	return strings.TrimSpace(fenceLine.ReplaceAllString(text, ""))
}
