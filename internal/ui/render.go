package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/signalnine/deskmate/internal/interpret"
	"github.com/signalnine/deskmate/internal/protocol"
	"github.com/signalnine/deskmate/internal/session"
)

const timeFormat = "15:04:05"

// Renderer turns log entries into terminal text
type Renderer struct {
	styles *Styles
	md     *glamour.TermRenderer // nil renders markdown verbatim
	plain  bool
}

// NewRenderer creates a styled renderer wrapping markdown at width
func NewRenderer(styles *Styles, width int) *Renderer {
	if width <= 0 {
		width = 80
	}
	md, _ := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	return &Renderer{styles: styles, md: md}
}

// NewPlainRenderer creates a renderer with no styling or markdown
func NewPlainRenderer() *Renderer {
	return &Renderer{styles: PlainStyles(), plain: true}
}

// Entries renders a whole log, separated by blank lines
func (r *Renderer) Entries(entries []session.Entry) string {
	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		parts = append(parts, r.Entry(e))
	}
	return strings.Join(parts, "\n\n")
}

// Entry renders one log entry with its header line
func (r *Renderer) Entry(e session.Entry) string {
	stamp := r.styles.Timestamp.Render(e.Timestamp.Format(timeFormat))

	switch e.Kind {
	case session.KindUser:
		return r.styles.User.Render("You") + "  " + stamp + "\n" + e.Command
	case session.KindError:
		return r.styles.Error.Render("Error") + "  " + stamp + "\n" + r.styles.Failure.Render(e.Message)
	}

	var b strings.Builder
	b.WriteString(r.styles.Assistant.Render("DeskMate") + "  " + stamp)
	if info := r.intent(e.Response); info != "" {
		b.WriteString("\n" + info)
	}
	if len(e.Units) == 0 {
		b.WriteString("\n" + e.Text())
		return b.String()
	}
	for _, u := range e.Units {
		b.WriteString("\n" + r.Unit(u))
	}
	return b.String()
}

func (r *Renderer) intent(resp *protocol.Response) string {
	if resp == nil {
		return ""
	}

	var lines []string
	confirm := resp.RequiresConfirmation
	if in := resp.Intent; in != nil {
		confirm = confirm || in.ConfirmationRequired
		if in.Intent != "" {
			lines = append(lines, r.styles.Muted.Render("Intent: "+in.Intent))
		}
		if len(in.Assumptions) > 0 {
			lines = append(lines, r.styles.Muted.Render("Assumptions: "+strings.Join(in.Assumptions, ", ")))
		}
		if in.ClarificationQuestion != "" {
			lines = append(lines, r.styles.Label.Render("? "+in.ClarificationQuestion))
		}
	}
	if confirm {
		lines = append(lines, r.styles.Badge.Render(interpret.ConfirmationLabel))
	}
	return strings.Join(lines, "\n")
}

// Unit renders one display unit
func (r *Renderer) Unit(u interpret.Unit) string {
	var b strings.Builder

	switch u.Kind {
	case interpret.KindFailure:
		b.WriteString(r.styles.Failure.Render("✗ " + u.Label))
		b.WriteString("\n" + u.Message)

	case interpret.KindRichText:
		b.WriteString(r.styles.Label.Render(u.Label))
		b.WriteString("\n" + r.markdown(u.Message))
		b.WriteString(r.details(u.Details))

	case interpret.KindEmailDraft:
		b.WriteString(r.styles.Label.Render("✓ " + u.Label))
		if u.Email != nil {
			b.WriteString("\nTo: " + u.Email.Recipient)
			b.WriteString("\nSubject: " + u.Email.Subject)
			b.WriteString("\n\n" + r.markdown(u.Email.Body))
		}

	case interpret.KindFileContent:
		b.WriteString(r.styles.Label.Render("✓ " + u.Label))
		b.WriteString(r.details(u.Details))
		b.WriteString("\n" + r.styles.Code.Render(u.Message))

	case interpret.KindShellResult:
		b.WriteString(r.styles.Label.Render("✓ " + u.Label))
		if sh := u.Shell; sh != nil {
			if sh.Friendly != "" {
				b.WriteString("\n" + sh.Friendly)
			}
			if sh.Stdout != "" {
				b.WriteString("\n" + r.styles.Code.Render(sh.Stdout))
			}
			if sh.Stderr != "" {
				b.WriteString("\n" + r.styles.Stderr.Render(sh.Stderr))
			}
		}

	case interpret.KindSystemInfo:
		b.WriteString(r.styles.Label.Render("System information"))
		if u.System != nil {
			b.WriteString(r.system(u.System))
		}

	default:
		b.WriteString(r.styles.Label.Render("✓ " + u.Label))
		if u.Message != "" {
			b.WriteString("\n" + u.Message)
		}
		b.WriteString(r.details(u.Details))
	}

	return b.String()
}

func (r *Renderer) details(details []interpret.Detail) string {
	var b strings.Builder
	for _, d := range details {
		b.WriteString("\n" + r.styles.Muted.Render(d.Label+": ") + d.Value)
	}
	return b.String()
}

func (r *Renderer) markdown(text string) string {
	if r.md == nil {
		return text
	}
	out, err := r.md.Render(text)
	if err != nil {
		return text
	}
	return strings.Trim(out, "\n")
}

func (r *Renderer) system(info *interpret.SystemInfo) string {
	var b strings.Builder

	if h := info.OS; h != nil {
		header := h.System
		if h.Architecture != "" {
			header += " (" + h.Architecture + ")"
		}
		if h.Machine != "" {
			header += " " + h.Machine
		}
		if h.RuntimeVersion != "" {
			header += ", runtime " + h.RuntimeVersion
		}
		b.WriteString("\n" + strings.TrimSpace(header))
	}

	if info.Note != "" {
		b.WriteString("\n" + r.styles.Muted.Render(info.Note))
		return b.String()
	}

	var cards []string
	if c := info.CPU; c != nil {
		cards = append(cards, r.card("CPU",
			row("Processor", c.Processor),
			row("Cores", c.Cores.String()),
			row("Logical cores", c.LogicalCores.String()),
			row("Frequency", suffix(c.FrequencyMHz, " MHz")),
			row("Usage", suffix(c.UsagePercent, "%")),
		))
	}
	if m := info.RAM; m != nil {
		cards = append(cards, r.card("RAM",
			row("Total", suffix(m.TotalGB, " GB")),
			row("Used", suffix(m.UsedGB, " GB")),
			row("Available", suffix(m.AvailableGB, " GB")),
			row("Usage", suffix(m.Percent, "%")),
		))
	}
	if s := info.Storage; s != nil {
		cards = append(cards, r.card("Storage",
			row("Drive", s.Drive),
			row("Total", suffix(s.TotalGB, " GB")),
			row("Used", suffix(s.UsedGB, " GB")),
			row("Free", suffix(s.FreeGB, " GB")),
			row("Usage", suffix(s.Percent, "%")),
		))
	}
	if len(cards) == 0 {
		return b.String()
	}

	if r.plain {
		b.WriteString("\n" + strings.Join(cards, "\n"))
	} else {
		b.WriteString("\n" + lipgloss.JoinHorizontal(lipgloss.Top, cards...))
	}
	return b.String()
}

func (r *Renderer) card(title string, rows ...string) string {
	lines := []string{r.styles.CardTitle.Render(title)}
	for _, l := range rows {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return r.styles.Card.Render(strings.Join(lines, "\n"))
}

// row is empty when value is, so absent fields drop out of a card
func row(label, value string) string {
	if value == "" {
		return ""
	}
	return fmt.Sprintf("%s: %s", label, value)
}

func suffix(n interpret.Number, unit string) string {
	if !n.Valid {
		return ""
	}
	return n.String() + unit
}
