package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"bunseki/internal/render"
	"bunseki/internal/schema"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	scriptStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	argStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("242")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("42"))
)

// describeCatalog lists the scripts of c and their items in render order.
func describeCatalog(c *schema.Catalog) string {
	var sb strings.Builder
	title := c.Title
	if title == "" {
		title = c.Name
	}
	fmt.Fprintf(&sb, "%s\n", titleStyle.Render(title))
	if c.Description != "" {
		fmt.Fprintf(&sb, "%s\n", hintStyle.Render(c.Description))
	}
	for _, s := range c.Scripts {
		fmt.Fprintf(&sb, "\n%s  %s\n", scriptStyle.Render(s.Name), argStyle.Render(s.Filename))
		if s.Description != "" {
			fmt.Fprintf(&sb, "  %s\n", s.Description)
		}
		for _, it := range s.Items {
			req := ""
			if it.Required {
				req = " (required)"
			}
			fmt.Fprintf(&sb, "  %-16s %-9s %-15s %s%s\n",
				it.Arg, it.Kind, it.Input, it.Name, req)
		}
	}
	return sb.String()
}

// previewMarkdown lays the artifacts of a script out as markdown.
func previewMarkdown(script schema.ScriptDescriptor, art render.Artifacts) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", script.Name)
	fmt.Fprintf(&sb, "## %s\n\n```bat\n%s\n```\n", script.Name+schema.CommandSuffix, art.Command)
	if art.Settings != "" {
		fmt.Fprintf(&sb, "\n## %s\n\n```python\n%s\n```\n", schema.SettingsFilename, art.Settings)
	}
	if art.JSON != "" {
		fmt.Fprintf(&sb, "\n## %s.config.json\n\n```json\n%s\n```\n", script.Name, art.JSON)
	}
	return sb.String()
}

// renderMarkdown styles md for the terminal, falling back to the raw text.
func renderMarkdown(md string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}

// plainPreview prints the artifacts exactly as they are written to disk,
// each under a header line.
func plainPreview(script schema.ScriptDescriptor, art render.Artifacts) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n%s\n", hintStyle.Render("# "+script.Name+".bat"), art.Command)
	if art.Settings != "" {
		fmt.Fprintf(&sb, "%s\n%s\n", hintStyle.Render("# "+schema.SettingsFilename), art.Settings)
	}
	if art.JSON != "" {
		fmt.Fprintf(&sb, "%s\n%s\n", hintStyle.Render("# "+script.Name+".config.json"), art.JSON)
	}
	return sb.String()
}
