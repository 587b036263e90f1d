package client

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	. "github.com/onsi/gomega"

	"github.com/datastic/docsbuilder/pkg/llm"
	"github.com/datastic/docsbuilder/pkg/prompt"
)

func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, runCmd(c)...)
		}
		return msgs
	}
	return []tea.Msg{msg}
}

func findDocumentation(msgs []tea.Msg) (documentationMsg, bool) {
	for _, msg := range msgs {
		if doc, ok := msg.(documentationMsg); ok {
			return doc, true
		}
	}
	return documentationMsg{}, false
}

func TestPanelGeneratesAndSaves(t *testing.T) {
	RegisterTestingT(t)

	fake := &fakeLLM{result: llm.Result{Kind: llm.KindSuccess, Text: "// add sums.\nfunc add() {}"}}
	outDir := t.TempDir()
	panel := NewPanel(context.Background(), NewDocumenter(testSettings(), fake), Source{Name: "src/main.go", Content: sample}, outDir)

	msg, found := findDocumentation(runCmd(panel.Init()))
	Expect(found).To(BeTrue())
	Expect(panel.View()).To(ContainSubstring("Generating documentation..."))

	panel.Update(msg)
	Expect(panel.generating).To(BeFalse())
	Expect(panel.View()).To(ContainSubstring("// add sums."))
	Expect(panel.View()).To(ContainSubstring("src/main.go (whole file): docstrings"))
	Expect(panel.status).To(ContainSubstring("2 lines generated, paste over the documented code"))

	_, cmd := panel.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	msgs := runCmd(cmd)
	Expect(msgs).To(HaveLen(1))
	saved, ok := msgs[0].(savedMsg)
	Expect(ok).To(BeTrue())
	Expect(saved.err).To(BeNil())
	Expect(saved.path).To(Equal(filepath.Join(outDir, "main.go.docs")))

	content, err := os.ReadFile(saved.path)
	Expect(err).To(BeNil())
	Expect(string(content)).To(Equal("// add sums.\nfunc add() {}\n"))

	panel.Update(saved)
	Expect(panel.status).To(ContainSubstring("Saved to"))
}

func TestPanelShowsFailures(t *testing.T) {
	RegisterTestingT(t)

	fake := &fakeLLM{result: llm.Result{Kind: llm.KindTimeout}}
	panel := NewPanel(context.Background(), NewDocumenter(testSettings(), fake), Source{Name: "main.go", Content: sample}, t.TempDir())

	msg, found := findDocumentation(runCmd(panel.Init()))
	Expect(found).To(BeTrue())
	panel.Update(msg)
	Expect(panel.View()).To(ContainSubstring("Request timed out."))

	_, cmd := panel.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	Expect(cmd).To(BeNil())

	_, cmd = panel.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	Expect(cmd).NotTo(BeNil())
	Expect(panel.generating).To(BeTrue())
	_, ok := findDocumentation(runCmd(cmd))
	Expect(ok).To(BeTrue())
	Expect(fake.requests).To(HaveLen(2))
}

func TestSaveDocumentationUsesMarkdownForExternalFiles(t *testing.T) {
	RegisterTestingT(t)

	path, err := SaveDocumentation(t.TempDir(), "", &Documentation{Type: prompt.ExternalFile, Text: "# Docs"})
	Expect(err).To(BeNil())
	Expect(filepath.Base(path)).To(Equal("stdin.docs.md"))

	fake := &fakeLLM{result: llm.Result{Kind: llm.KindSuccess, Text: "# Docs"}}
	panel := NewPanel(context.Background(), NewDocumenter(testSettings(), fake, WithDocumentationType(prompt.ExternalFile)), Source{Name: "main.go", Content: sample}, t.TempDir())
	msg, found := findDocumentation(runCmd(panel.Init()))
	Expect(found).To(BeTrue())
	panel.Update(msg)
	Expect(panel.status).To(ContainSubstring("save as a separate Markdown file"))
}
