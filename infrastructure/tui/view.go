package tui

import (
	"fmt"
	"strings"

	"github.com/ahrav/go-factorlens/infrastructure/render"
	"github.com/ahrav/go-factorlens/internal/application"
	"github.com/ahrav/go-factorlens/internal/domain"
)

const barCells = 24

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(m.theme.Title.Render("factorlens"))
	b.WriteString(m.theme.Muted.Render("  " + m.theme.Name + " theme"))
	b.WriteString("\n\n")

	if len(m.entries) == 0 {
		b.WriteString(m.theme.Muted.Render("Type an item and press enter to see what drives it."))
		b.WriteString("\n\n")
	}

	for i, e := range m.entries {
		switch e.role {
		case roleUser:
			b.WriteString(m.theme.User.Render(e.text))
		case roleAssistant:
			b.WriteString(m.theme.Assistant.Width(max(20, m.width-2)).Render(m.renderAssistant(i, e)))
		}
		b.WriteString("\n\n")
	}

	b.WriteString(m.input.View())
	b.WriteString("\n")
	b.WriteString(m.theme.Help.Render(m.help.View(keys)))
	return b.String()
}

func (m Model) renderAssistant(index int, e entry) string {
	var b strings.Builder
	live := index == m.active

	if e.err != nil {
		b.WriteString(m.theme.Error.Render(application.UserMessage(e.err)))
		return b.String()
	}

	st := e.state
	if len(st.Factors) == 0 {
		if !st.Done && !e.closed {
			b.WriteString(m.spinner.View() + " " + m.theme.Muted.Render("Analyzing "+e.text+"..."))
		} else {
			b.WriteString(m.theme.Muted.Render("No factors yet."))
		}
		if st.Err != nil {
			b.WriteString("\n" + m.theme.Error.Render(application.UserMessage(st.Err)))
		}
		return b.String()
	}

	b.WriteString(m.theme.Heading.Render("Factors"))
	b.WriteString("\n")
	for i, f := range st.Factors {
		b.WriteString(m.renderRow(f, live && i == m.cursor, st.InFlightKey == f.Key() && st.Typing()))
		b.WriteString("\n")
		if live && m.expanded == f.Key() {
			b.WriteString(m.renderExplanation(f))
		}
	}
	if st.Typing() && !e.closed {
		b.WriteString(m.spinner.View() + " " + m.theme.Muted.Render("streaming..."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.theme.Heading.Render("Importance"))
	b.WriteString("\n")
	for _, l := range render.TextBars(st.Report.Importance, barCells) {
		b.WriteString(m.theme.Bar.Render(l))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.theme.Heading.Render("AI Recommendations"))
	for _, sec := range render.RecommendationSections(st.Report.Recommendations) {
		b.WriteString("\n" + sec.Title + "\n")
		for _, l := range sec.Lines {
			b.WriteString("  • " + l + "\n")
		}
	}

	if p := render.PriceLines(st.Report.Price); p != nil {
		b.WriteString("\n")
		b.WriteString(m.theme.Heading.Render(p[0]))
		b.WriteString("\n")
		b.WriteString(strings.Join(p[1:], "\n"))
		b.WriteString("\n")
	}

	if st.Err != nil {
		b.WriteString("\n" + m.theme.Error.Render(application.UserMessage(st.Err)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderRow(f domain.Factor, selected, inFlight bool) string {
	marker := "  "
	if selected {
		marker = "› "
	}
	row := fmt.Sprintf("%s#%-3d %-20s %-28s ", marker, f.Rank, f.Name, f.EffectShort)
	if selected {
		row = m.theme.Selected.Render(row)
	}
	row += m.theme.Pill(f.Direction)
	if inFlight {
		row += " " + m.spinner.View()
	}
	return row
}

func (m Model) renderExplanation(f domain.Factor) string {
	var b strings.Builder
	indent := "      "

	text, ok := m.explanations[f.Key()]
	switch {
	case ok:
		for _, l := range strings.Split(text.String(), "\n") {
			b.WriteString(indent + l + "\n")
		}
	case m.explaining == f.Key():
		b.WriteString(indent + m.spinner.View() + " " + m.theme.Muted.Render("Loading explanation...") + "\n")
	}
	b.WriteString(indent + m.theme.Muted.Render("Recommendation: "+domain.FactorAdvice(f)) + "\n")
	return b.String()
}
