package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/oxyadmin/oxyadmin/internal/console"
	"github.com/oxyadmin/oxyadmin/internal/resource"
	"github.com/oxyadmin/oxyadmin/internal/theme"
)

// maxNotices is how many live notices the footer shows at once.
const maxNotices = 3

func (m AppModel) View() string {
	if m.width == 0 || m.height < 3 {
		return "Loading..."
	}

	header := m.renderHeader()
	tabs := m.renderTabBar()
	notices := m.renderNotices()
	statusBar := m.renderStatusBar()

	used := 3 + len(notices)
	style := CardStyle
	if m.state == stateForm || m.state == statePrompt || m.state == stateSystemInput {
		style = FocusedCardStyle
	}
	hf, vf := style.GetFrameSize()
	cw := m.width - hf
	ch := m.height - used - vf
	if cw < 1 {
		cw = 1
	}
	if ch < 1 {
		ch = 1
	}

	var lines []string
	switch m.state {
	case stateForm:
		lines = m.formLines(cw)
	case statePrompt:
		lines = m.promptLines(cw, ch)
	case stateConfirmDelete:
		lines = m.confirmDeleteLines()
	case stateResult:
		lines = m.resultLines(ch)
	case stateSystem:
		lines = m.systemLines(cw)
		lines = m.scrollWindow(lines, ch)
	case stateSystemInput:
		lines = m.systemInputLines(cw)
	case stateConfirmRestart:
		lines = []string{
			ErrorStyle.Render("Restart the backend?"),
			"",
			DimStyle.Render("Running agents and workflows will be interrupted."),
			"",
			HelpTextStyle.Render("y: restart  n/esc: cancel"),
		}
	default:
		lines = m.listLines(cw, ch)
	}

	parts := []string{header, tabs, style.Render(fitLines(lines, cw, ch))}
	parts = append(parts, notices...)
	parts = append(parts, statusBar)
	return strings.Join(parts, "\n")
}

func (m AppModel) renderHeader() string {
	title := " oxyadmin"
	if m.backend != "" {
		title += " · " + m.backend
	}
	if m.live != nil {
		title += " · live"
	}
	title += " "
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorBase).
		Background(theme.ColorBlue).
		Padding(0, 2).
		Width(m.width).
		MaxWidth(m.width).
		Render(title)
}

func (m AppModel) renderTabBar() string {
	var tabs []string
	for i, k := range resource.Kinds {
		label := fmt.Sprintf("%d %s", i+1, tabLabel(k))
		if k == m.kind {
			tabs = append(tabs, ActiveTabStyle.Render(label))
		} else {
			tabs = append(tabs, InactiveTabStyle.Render(label))
		}
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return ansi.Truncate(bar, m.width, "")
}

func tabLabel(k resource.Kind) string {
	switch k {
	case resource.KindSystem:
		return "System"
	case resource.KindMAS:
		return "MAS"
	}
	return k.Title() + "s"
}

// renderNotices returns one full-width line per live notice, newest last.
func (m AppModel) renderNotices() []string {
	if m.notices == nil {
		return nil
	}
	active := m.notices.Active(time.Now())
	if len(active) > maxNotices {
		active = active[len(active)-maxNotices:]
	}
	lines := make([]string, 0, len(active))
	for _, n := range active {
		text := ansi.Truncate(n.Message, m.width-2, "…")
		lines = append(lines, NoticeStyle(n.Severity).Width(m.width).MaxWidth(m.width).Render(text))
	}
	return lines
}

func (m AppModel) renderStatusBar() string {
	var parts []string
	add := func(key, desc string) {
		parts = append(parts, StatusKeyStyle.Render(key)+StatusValueStyle.Render(" "+desc))
	}

	switch m.state {
	case stateList:
		add("j/k", "navigate")
		add("/", "search")
		if len(console.Categories(m.kind)) > 0 {
			add("t", "type")
		}
		add("n", "new")
		add("e", "edit")
		if ctrl := m.controller(); ctrl != nil {
			add("x", ctrl.Verb())
			if ctrl.CanValidate() {
				add("v", "validate")
			}
			if ctrl.CanToggle() {
				add("s/p", "start/stop")
			}
		}
		add("d", "delete")
		add("r", "reload")
		add("q", "quit")
	case stateSearch:
		add("enter", "keep")
		add("esc", "clear")
	case stateForm:
		add("tab", "next field")
		add("space", "toggle")
		add("←/→", "choose")
		add("ctrl+s", "save")
		add("esc", "cancel")
	case statePrompt:
		add("ctrl+s", "send")
		add("esc", "cancel")
	case stateResult:
		add("j/k", "scroll")
		add("esc", "back")
	case stateSystem:
		add("j/k", "navigate")
		add("enter", "edit")
		add("d", "remove")
		add("s", "save")
		add("u", "discard")
		add("x", "export")
		add("R", "restart")
		add("q", "quit")
	default:
		add("esc", "cancel")
	}

	content := strings.Join(parts, StatusValueStyle.Render("  "))
	return StatusBarStyle.
		Width(m.width).
		MaxWidth(m.width).
		Render(content)
}

func (m AppModel) listLines(width, height int) []string {
	ctrl := m.controller()
	if ctrl == nil {
		return nil
	}

	var lines []string
	head := SectionStyle.Render(tabLabel(m.kind))
	if ctrl.ShowingDemo() {
		head += " " + DemoBadgeStyle.Render("DEMO")
	}
	if !ctrl.Loaded() && !ctrl.ShowingDemo() {
		head += " " + DimStyle.Render("loading...")
	}
	lines = append(lines, head)

	f := ctrl.Filter()
	var filters []string
	if m.state == stateSearch {
		m.ensureTextInput("search", m.searchText, 0)
		m.syncTextInput(m.searchText)
		filters = append(filters, "search "+m.viewTextInput(24))
	} else if f.Query != "" {
		filters = append(filters, "search: "+BadgeStyle.Render(f.Query))
	}
	if f.Category != "" {
		filters = append(filters, "type: "+BadgeStyle.Render(f.Category))
	}
	lines = append(lines, strings.Join(filters, "  "), "")

	widths := fitWidths(ctrl.Widths(), width-2)
	lines = append(lines, "  "+renderCells(ctrl.Titles(), widths, TableHeaderStyle))

	rows := ctrl.Rows()
	avail := height - len(lines)
	if avail < 1 {
		avail = 1
	}
	start := 0
	if cur := ctrl.Cursor(); cur >= avail {
		start = cur - avail + 1
	}
	for i := start; i < len(rows) && i < start+avail; i++ {
		row := rows[i]
		if row.Placeholder {
			lines = append(lines, "  "+EmptyStateStyle.Render(strings.Join(row.Cells, "")))
			continue
		}
		if i == ctrl.Cursor() {
			lines = append(lines, CursorStyle.Render("> ")+renderCells(row.Cells, widths, TableSelectedRowStyle))
		} else {
			lines = append(lines, "  "+renderCells(row.Cells, widths, TableRowStyle))
		}
	}
	return lines
}

// fitWidths shrinks or stretches the last column so the row fits total.
func fitWidths(widths []int, total int) []int {
	out := append([]int(nil), widths...)
	if len(out) == 0 {
		return out
	}
	sum := 0
	for _, w := range out {
		sum += w + 1
	}
	last := len(out) - 1
	out[last] += total - sum
	if out[last] < 4 {
		out[last] = 4
	}
	return out
}

func renderCells(cells []string, widths []int, style lipgloss.Style) string {
	out := make([]string, 0, len(cells))
	for i, c := range cells {
		w := 12
		if i < len(widths) {
			w = widths[i]
		}
		c = ansi.Truncate(c, w, "…")
		if pad := w - lipgloss.Width(c); pad > 0 {
			c += strings.Repeat(" ", pad)
		}
		out = append(out, c)
	}
	return style.Render(strings.Join(out, " "))
}

func (m AppModel) formLines(width int) []string {
	ctrl := m.controller()
	if ctrl == nil {
		return nil
	}
	title := ctrl.DescribeSession()
	if title == "" {
		title = "Loading..."
	}
	lines := []string{SectionStyle.Render(title), ""}
	if ctrl.SessionState() == console.Idle {
		return append(lines, EmptyStateStyle.Render("Fetching record..."))
	}

	form := ctrl.Form()
	valueWidth := width - DetailLabelStyle.GetWidth() - 2
	for i, spec := range ctrl.Fields() {
		focused := i == m.formSel
		label := spec.Label
		if spec.Required {
			label += " *"
		}
		prefix := "  "
		if focused {
			prefix = CursorStyle.Render("> ")
		}
		value := form.Value(spec.ID)

		switch spec.Kind {
		case console.FieldText:
			if focused {
				m.ensureTextInput(formFieldKey(m.kind, spec.ID), value, 0)
				m.syncTextInput(value)
				value = m.viewTextInput(valueWidth)
			} else if value == "" {
				value = DimStyle.Render("-")
			}
			lines = append(lines, prefix+DetailLabelStyle.Render(label)+value)

		case console.FieldMultiline:
			if focused {
				m.ensureTextarea(formFieldKey(m.kind, spec.ID), value)
				m.syncTextarea(value)
				lines = append(lines, prefix+DetailLabelStyle.Render(label))
				lines = append(lines, splitRenderableLines(m.viewTextarea(width-4, 5))...)
				continue
			}
			first, _, more := strings.Cut(value, "\n")
			if more || len(first) > valueWidth {
				first = ansi.Truncate(first, valueWidth-1, "") + "…"
			}
			if first == "" {
				first = DimStyle.Render("-")
			}
			lines = append(lines, prefix+DetailLabelStyle.Render(label)+DetailValueStyle.Render(first))

		case console.FieldBool:
			box := "[ ]"
			if value == "true" {
				box = "[x]"
			}
			lines = append(lines, prefix+DetailLabelStyle.Render(label)+DetailValueStyle.Render(box))

		case console.FieldChoice:
			shown := optionLabel(form.Options(spec.ID), value)
			if shown == "" {
				shown = "(none)"
			}
			if focused {
				shown = "‹ " + shown + " ›"
			}
			lines = append(lines, prefix+DetailLabelStyle.Render(label)+DetailValueStyle.Render(shown))

		case console.FieldMulti:
			selected := form.Selected(spec.ID)
			if !focused {
				names := make([]string, 0, len(selected))
				for _, v := range selected {
					names = append(names, optionLabel(form.Options(spec.ID), v))
				}
				shown := strings.Join(names, ", ")
				if spec.Ordered {
					shown = strings.Join(names, " → ")
				}
				if shown == "" {
					shown = DimStyle.Render("-")
				}
				lines = append(lines, prefix+DetailLabelStyle.Render(label)+DetailValueStyle.Render(shown))
				continue
			}
			lines = append(lines, prefix+DetailLabelStyle.Render(label))
			opts := form.Options(spec.ID)
			if len(opts) == 0 {
				lines = append(lines, "    "+DimStyle.Render("no options available"))
			}
			for j, o := range opts {
				mark := "[ ]"
				if pos := indexOf(selected, o.Value); pos >= 0 {
					mark = "[x]"
					if spec.Ordered {
						mark = fmt.Sprintf("[%d]", pos+1)
					}
				}
				text := mark + " " + o.Label
				if j == m.optionSel {
					text = CursorStyle.Render(text)
				} else {
					text = DetailValueStyle.Render(text)
				}
				lines = append(lines, "    "+text)
			}
		}
	}
	lines = append(lines, "")
	if ctrl.SessionBusy() {
		lines = append(lines, DimStyle.Render("Saving..."))
	}
	return lines
}

func optionLabel(opts []console.Option, value string) string {
	for _, o := range opts {
		if o.Value == value {
			if o.Label != "" {
				return o.Label
			}
			return o.Value
		}
	}
	return value
}

func indexOf(values []string, v string) int {
	for i, x := range values {
		if x == v {
			return i
		}
	}
	return -1
}

func (m AppModel) rowName(id string) string {
	ctrl := m.controller()
	if ctrl == nil {
		return id
	}
	for _, r := range ctrl.Rows() {
		if r.ID == id && len(r.Cells) > 0 {
			return r.Cells[0]
		}
	}
	return id
}

func (m AppModel) promptLines(width, height int) []string {
	ctrl := m.controller()
	if ctrl == nil {
		return nil
	}
	verb := ctrl.Verb()
	title := fmt.Sprintf("%s%s %s %s", strings.ToUpper(verb[:1]), verb[1:], m.kind, m.rowName(m.promptID))
	hint := "JSON object, empty sends {}"
	switch m.kind {
	case resource.KindAgent:
		hint = "Free text becomes {\"query\": ...}; a JSON object is sent as is"
	case resource.KindMAS:
		hint = "Free text becomes {\"query\": ...}; the instance must be running"
	}
	m.ensureTextarea("prompt-"+string(m.kind)+"-"+m.promptID, m.promptText)
	m.syncTextarea(m.promptText)
	lines := []string{SectionStyle.Render(title), DimStyle.Render(hint), ""}
	lines = append(lines, splitRenderableLines(m.viewTextarea(width, height-len(lines)-2))...)
	return append(lines, "", HelpTextStyle.Render("ctrl+s: send  esc: cancel"))
}

func (m AppModel) confirmDeleteLines() []string {
	ctrl := m.controller()
	if ctrl == nil {
		return nil
	}
	id := ctrl.PendingDelete()
	return []string{
		ErrorStyle.Render(fmt.Sprintf("Delete %s %s?", m.kind, m.rowName(id))),
		"",
		DimStyle.Render("This cannot be undone."),
		"",
		HelpTextStyle.Render("y: delete  n/esc: cancel"),
	}
}

func (m AppModel) resultLines(height int) []string {
	body := splitRenderableLines(m.resultBody)
	for i, l := range body {
		body[i] = DetailContentStyle.Render(l)
	}
	lines := []string{SectionStyle.Render(m.resultTitle), ""}
	return append(lines, m.scrollWindow(body, height-len(lines))...)
}

func fitLines(lines []string, w, h int) string {
	emptyLine := strings.Repeat(" ", w)
	result := make([]string, h)

	for i := 0; i < h; i++ {
		if i < len(lines) {
			line := lines[i]
			parts := splitRenderableLines(line)
			if len(parts) > 0 {
				line = parts[0]
			}
			line = ansi.Truncate(line, w, "")
			lw := lipgloss.Width(line)
			if pad := w - lw; pad > 0 {
				line += strings.Repeat(" ", pad)
			}
			result[i] = line
		} else {
			result[i] = emptyLine
		}
	}
	return strings.Join(result, "\n")
}

func splitRenderableLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	parts := strings.Split(s, "\n")
	if len(parts) == 0 {
		return []string{""}
	}
	return parts
}
