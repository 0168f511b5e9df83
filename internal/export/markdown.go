package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
)

// Markdown renders a Document as CommonMark.
type Markdown struct{}

// Extension implements Exporter.
func (Markdown) Extension() string { return "md" }

// Export implements Exporter.
func (Markdown) Export(doc Document, w io.Writer) error {
	_, err := io.WriteString(w, renderMarkdown(doc))
	return err
}

func renderMarkdown(doc Document) string {
	var b strings.Builder
	if doc.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", escapeMarkdown(doc.Title))
	}
	for _, sec := range doc.Sections {
		if sec.Title != "" {
			fmt.Fprintf(&b, "## %s\n\n", strings.TrimSuffix(sec.Title, ":"))
		}
		for _, e := range sec.Entries {
			fmt.Fprintf(&b, "### %s\n\n", escapeMarkdown(e.Name))
			for _, f := range e.Fields {
				fmt.Fprintf(&b, "- **%s:** %s\n", f.Label, escapeMarkdown(flatten(f.Value)))
			}
			if len(e.Fields) > 0 {
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"#", `\#`,
	"<", `\<`,
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// flatten keeps multi-line catalog text inside a single list item.
func flatten(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Terminal renders a Document as styled text for a terminal via glamour.
type Terminal struct {
	// Width wraps output at this many columns; zero disables wrapping.
	Width int
	// Style is a glamour standard style name; empty selects one from the
	// terminal's background.
	Style string
}

// Extension implements Exporter.
func (Terminal) Extension() string { return "txt" }

// Export implements Exporter.
func (t Terminal) Export(doc Document, w io.Writer) error {
	var opts []glamour.TermRendererOption
	if t.Style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(t.Style))
	}
	if t.Width > 0 {
		opts = append(opts, glamour.WithWordWrap(t.Width))
	}
	renderer, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return fmt.Errorf("creating terminal renderer: %w", err)
	}
	out, err := renderer.Render(renderMarkdown(doc))
	if err != nil {
		return fmt.Errorf("rendering document: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
