package cli

import (
	"fmt"
	coreapp "overrides/internal/core/app"
	"overrides/internal/engine/model"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	methodStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	noneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

func describeMethod(m model.Method) string {
	var b strings.Builder
	b.WriteString(methodStyle.Render(m.String()))
	if params := m.Parameters; params != "" {
		b.WriteString(params)
	}
	if flags := m.Flags.String(); flags != "" {
		b.WriteString(statusStyle.Render(" [" + flags + "]"))
	}
	if m.Line > 0 {
		b.WriteString(statusStyle.Render(fmt.Sprintf(" line %d", m.Line)))
	}
	return b.String()
}

func renderResult(query model.Method, res *model.Method) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(query.String()))
	b.WriteString("\n")
	if res == nil {
		b.WriteString("  " + noneStyle.Render("(none)") + "\n")
		return b.String()
	}
	b.WriteString("  -> " + describeMethod(*res) + "\n")
	return b.String()
}

func renderChain(query model.Method, chain []model.Method) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(query.String()))
	b.WriteString("\n")
	if len(chain) == 0 {
		b.WriteString("  " + noneStyle.Render("(overrides nothing)") + "\n")
		return b.String()
	}
	for i, m := range chain {
		b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, describeMethod(m)))
	}
	return b.String()
}

func renderType(info coreapp.TypeInfo) string {
	var b strings.Builder
	header := string(info.ID)
	if info.Kind != "" {
		header = string(info.Kind) + " " + header
	}
	b.WriteString(titleStyle.Render(header))
	if info.File != "" {
		b.WriteString(statusStyle.Render(fmt.Sprintf(" %s:%d", info.File, info.Line)))
	}
	b.WriteString("\n")

	if len(info.Supertypes) > 0 {
		supers := make([]string, len(info.Supertypes))
		for i, s := range info.Supertypes {
			supers[i] = string(s)
		}
		b.WriteString("  supertypes: " + strings.Join(supers, ", ") + "\n")
	}
	b.WriteString(fmt.Sprintf("  methods (%d)\n", len(info.Methods)))
	for _, m := range info.Methods {
		b.WriteString("    " + describeMethod(m) + "\n")
	}
	return b.String()
}

func renderIndexReport(report *coreapp.IndexReport) string {
	res := report.Result
	var b strings.Builder
	b.WriteString(titleStyle.Render("Index complete"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  files: %d  types: %d  skipped: %d  took: %s\n",
		len(res.Files), res.Snapshot.Len(), len(res.Skipped), res.Duration.Round(time.Millisecond)))
	b.WriteString("  source hash: " + res.SourceHash + "\n")
	for _, s := range res.Skipped {
		b.WriteString("  " + noneStyle.Render("skipped") + " " + s.Path + ": " + s.Reason + "\n")
	}
	if report.Saved != nil {
		b.WriteString(statusStyle.Render(fmt.Sprintf("  snapshot %s (project %s)", report.Saved.ID, report.Saved.ProjectKey)))
		b.WriteString("\n")
	}
	return b.String()
}

func renderStatus(st coreapp.Status) string {
	if !st.Loaded {
		return noneStyle.Render("no hierarchy loaded") + "\n"
	}
	line := fmt.Sprintf("hierarchy from %s", st.Source)
	if st.Types >= 0 {
		line += fmt.Sprintf(", %d types", st.Types)
	}
	if st.SnapshotID != "" {
		line += ", snapshot " + st.SnapshotID
	}
	return statusStyle.Render(line) + "\n"
}
