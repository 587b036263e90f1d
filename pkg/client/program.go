package client

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/datastic/docsbuilder/pkg/config"
	"github.com/datastic/docsbuilder/pkg/llm"
	"github.com/datastic/docsbuilder/pkg/prompt"
)

var ErrNoCode = errors.New("no code found to document")

type Documenter interface {
	Generate(ctx context.Context, src Source) (*Documentation, error)
	Models(ctx context.Context) ([]string, error)
	DocumentationType() prompt.DocumentationType
}

type Reporter interface {
	Report(msg string)
}

type Source struct {
	Name      string     // file the code comes from, for reporting only
	Content   string     // whole file content
	Selection *Selection // optional line range, whole file when nil
}

type Documentation struct {
	Type   prompt.DocumentationType
	Result llm.Result
	Text   string // cleaned documentation on success, the failure description otherwise
}

type Option func(d *documenter)

func WithReporter(reporter Reporter) Option {
	return func(d *documenter) {
		d.reporter = reporter
	}
}

func WithDocumentationType(docType prompt.DocumentationType) Option {
	return func(d *documenter) {
		d.docType = docType
	}
}

type nopReporter struct{}

func (nopReporter) Report(string) {}

func NewDocumenter(settings *config.Settings, client llm.Client, opts ...Option) Documenter {
	d := &documenter{
		settings: settings,
		client:   client,
		reporter: nopReporter{},
		docType:  settings.DocType(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

type documenter struct {
	settings *config.Settings
	client   llm.Client
	reporter Reporter
	docType  prompt.DocumentationType
}

func (d *documenter) DocumentationType() prompt.DocumentationType {
	return d.docType
}

// Generate fails only when there is nothing to send; completion failures
// are carried in Documentation.Result.
func (d *documenter) Generate(ctx context.Context, src Source) (*Documentation, error) {
	code, err := src.Selection.Apply(src.Content)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to select code from %s", src.Name)
	}
	if strings.TrimSpace(code) == "" {
		return nil, ErrNoCode
	}

	d.reporter.Report(fmt.Sprintf("Generating %s for %s (%s) with %s...",
		d.docType, src.Name, src.Selection, d.settings.Model))
	res := d.client.GenerateCompletion(ctx, d.settings.Request(prompt.Build(d.docType, code)))
	d.reporter.Report(fmt.Sprintf("Got result: %s", res.Kind))

	doc := &Documentation{
		Type:   d.docType,
		Result: res,
		Text:   res.String(),
	}
	if res.OK() {
		doc.Text = prompt.CleanResponse(res.Text)
	}
	return doc, nil
}

func (d *documenter) Models(ctx context.Context) ([]string, error) {
	d.reporter.Report("Fetching available models...")
	models, err := d.client.ListModels(ctx, d.settings.APIKey)
	if err != nil {
		return models, errors.Wrapf(err, "failed to list models")
	}
	d.reporter.Report(fmt.Sprintf("Got %d models", len(models)))
	return models, nil
}
