package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/oxyadmin/oxyadmin/internal/console"
	"github.com/oxyadmin/oxyadmin/internal/theme"
)

func newStyledTextInput() textinput.Model {
	input := textinput.New()
	input.Prompt = "> "
	input.PromptStyle = lipgloss.NewStyle().Foreground(theme.ColorMauve)
	input.TextStyle = lipgloss.NewStyle().Bold(true).Foreground(theme.ColorText)
	input.PlaceholderStyle = lipgloss.NewStyle().Foreground(theme.ColorOverlay0)
	input.Cursor.Style = lipgloss.NewStyle().Foreground(theme.ColorMauve)
	return input
}

func newStyledTextarea() textarea.Model {
	editor := textarea.New()
	editor.Prompt = ""
	editor.ShowLineNumbers = false
	return editor
}

func (m *AppModel) resetInputEditors() {
	m.textInputKey = ""
	m.textAreaKey = ""
}

func (m *AppModel) ensureTextInput(key, value string, charLimit int) tea.Cmd {
	if m.textInputKey == key {
		return nil
	}
	input := newStyledTextInput()
	if charLimit > 0 {
		input.CharLimit = charLimit
	}
	input.SetValue(value)
	input.CursorEnd()
	m.textInput = input
	m.textInputKey = key
	return m.textInput.Focus()
}

func (m *AppModel) syncTextInput(value string) {
	if m.textInput.Value() == value {
		return
	}
	m.textInput.SetValue(value)
	m.textInput.CursorEnd()
}

func (m *AppModel) updateTextInput(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.textInput, cmd = m.textInput.Update(msg)
	return cmd
}

func (m AppModel) viewTextInput(width int) string {
	input := m.textInput
	if width < 8 {
		width = 8
	}
	input.Width = width
	return input.View()
}

func (m *AppModel) ensureTextarea(key, value string) tea.Cmd {
	if m.textAreaKey == key {
		return nil
	}
	editor := newStyledTextarea()
	editor.SetValue(value)
	m.textArea = editor
	m.textAreaKey = key
	return m.textArea.Focus()
}

func (m *AppModel) syncTextarea(value string) {
	if m.textArea.Value() == value {
		return
	}
	m.textArea.SetValue(value)
}

func (m *AppModel) updateTextarea(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.textArea, cmd = m.textArea.Update(msg)
	return cmd
}

func (m AppModel) viewTextarea(width, height int) string {
	editor := m.textArea
	if width < 8 {
		width = 8
	}
	if height < 3 {
		height = 3
	}
	editor.SetWidth(width)
	editor.SetHeight(height)
	return editor.View()
}

func digitsOnly(input string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	var b strings.Builder
	for _, r := range input {
		if r < '0' || r > '9' {
			continue
		}
		if b.Len() >= maxLen {
			break
		}
		b.WriteRune(r)
	}
	return b.String()
}

func sanitizeDigitsMsg(msg tea.Msg) (tea.Msg, bool) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || keyMsg.Type != tea.KeyRunes {
		return msg, true
	}
	digits := make([]rune, 0, len(keyMsg.Runes))
	for _, r := range keyMsg.Runes {
		if r >= '0' && r <= '9' {
			digits = append(digits, r)
		}
	}
	if len(digits) == 0 {
		return nil, false
	}
	keyMsg.Runes = digits
	return keyMsg, true
}

func (m *AppModel) initInputEditorForState() tea.Cmd {
	switch m.state {
	case stateSearch:
		return m.ensureTextInput("search", m.searchText, 0)
	case statePrompt:
		return m.ensureTextarea("prompt-"+string(m.kind)+"-"+m.promptID, m.promptText)
	case stateSystemInput:
		return m.ensureTextInput("system-"+string(m.sysInput), m.sysInputText, 0)
	case stateForm:
		spec, ok := m.focusedField()
		if !ok {
			return nil
		}
		value := m.controller().Form().Value(spec.ID)
		switch spec.Kind {
		case console.FieldText:
			limit := 0
			if spec.ID == console.FieldTimeout {
				limit = 6
			}
			return m.ensureTextInput(formFieldKey(m.kind, spec.ID), value, limit)
		case console.FieldMultiline:
			return m.ensureTextarea(formFieldKey(m.kind, spec.ID), value)
		}
	}
	return nil
}
