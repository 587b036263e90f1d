package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"github.com/savioxavier/termlink"
)

type (
	documentationMsg struct {
		doc *Documentation
		err error
	}
	savedMsg struct {
		path string
		err  error
	}
)

var headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF88")).Background(lipgloss.Color("#444444"))

// Panel shows the documentation generated for one source in a scrollable
// viewport: r regenerates, s saves the result, q quits.
type Panel struct {
	ctx        context.Context
	documenter Documenter
	source     Source
	viewport   viewport.Model
	loader     spinner.Model
	okStyle    lipgloss.Style
	errorStyle lipgloss.Style
	generating bool
	doc        *Documentation
	status     string
	outDir     string
}

func NewPanel(ctx context.Context, documenter Documenter, source Source, outDir string) *Panel {
	vp := viewport.New(120, 30)
	vp.SetContent("Waiting for documentation...")
	return &Panel{
		ctx:        ctx,
		documenter: documenter,
		source:     source,
		viewport:   vp,
		loader: spinner.New(
			spinner.WithStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("205"))),
			spinner.WithSpinner(spinner.Dot),
		),
		okStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		errorStyle: lipgloss.NewStyle().Background(lipgloss.Color("#330000")).Foreground(lipgloss.Color("#FF3333")),
		outDir:     outDir,
	}
}

func (m *Panel) Init() tea.Cmd {
	return m.startGenerating()
}

func (m *Panel) startGenerating() tea.Cmd {
	m.generating = true
	m.status = ""
	ctx, documenter, source := m.ctx, m.documenter, m.source
	return tea.Batch(m.loader.Tick, func() tea.Msg {
		doc, err := documenter.Generate(ctx, source)
		return documentationMsg{doc: doc, err: err}
	})
}

func (m *Panel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.ctx.Err() != nil {
		return m, tea.Quit
	}
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewport.Width = msg.Width
		m.viewport.Height = max(msg.Height-4, 1)
		return m, nil
	case spinner.TickMsg:
		if !m.generating {
			return m, nil
		}
		var cmd tea.Cmd
		m.loader, cmd = m.loader.Update(msg)
		return m, cmd
	case documentationMsg:
		m.generating = false
		m.processResponse(msg.doc, msg.err)
		return m, nil
	case savedMsg:
		if msg.err != nil {
			m.status = m.errorStyle.Render("ERROR: " + msg.err.Error())
		} else {
			m.status = "Saved to " + termlink.ColorLink(filepath.Base(msg.path), "file://"+msg.path, "italic green")
		}
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc", "q":
			return m, tea.Quit
		case "r":
			if !m.generating {
				return m, m.startGenerating()
			}
			return m, nil
		case "s":
			if !m.generating && m.doc != nil && m.doc.Result.OK() {
				return m, m.save(m.doc)
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Panel) processResponse(doc *Documentation, err error) {
	m.doc = doc
	if err != nil {
		m.viewport.SetContent(m.errorStyle.Render("ERROR: " + err.Error()))
		return
	}
	if !doc.Result.OK() {
		m.viewport.SetContent(m.errorStyle.Render(doc.Text))
		return
	}
	m.viewport.SetContent(doc.Text)
	m.viewport.GotoTop()
	usage := lo.Ternary(doc.Type.WritesInline(), "paste over the documented code", "save as a separate Markdown file")
	m.status = m.okStyle.Render(fmt.Sprintf("%d lines generated, %s", strings.Count(doc.Text, "\n")+1, usage))
}

func (m *Panel) save(doc *Documentation) tea.Cmd {
	outDir, name := m.outDir, m.source.Name
	return func() tea.Msg {
		path, err := SaveDocumentation(outDir, name, doc)
		return savedMsg{path: path, err: err}
	}
}

// SaveDocumentation writes doc into outDir, named after the source file.
func SaveDocumentation(outDir, sourceName string, doc *Documentation) (string, error) {
	base := filepath.Base(sourceName)
	if base == "." || base == string(filepath.Separator) || base == "" {
		base = "stdin"
	}
	fileName := filepath.Join(outDir, base+".docs"+doc.Type.Extension())
	if err := os.WriteFile(fileName, []byte(doc.Text+"\n"), 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to save documentation to %s", fileName)
	}
	return fileName, nil
}

func (m *Panel) View() string {
	header := headerStyle.Render(fmt.Sprintf("%s (%s): %s", m.source.Name, m.source.Selection, m.documenter.DocumentationType()))
	footer := m.status
	if m.generating {
		footer = m.loader.View() + " Generating documentation..."
	}
	return header + fmt.Sprintf(
		"\n\n%s\n\n%s  [r]egenerate [s]ave [q]uit",
		m.viewport.View(),
		footer,
	) + "\n"
}
