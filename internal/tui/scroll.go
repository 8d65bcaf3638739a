package tui

import tea "github.com/charmbracelet/bubbletea"

func (m *AppModel) syncScrollState(prev appState) {
	if m.state != prev {
		m.clearStateScroll(m.state)
		m.resetInputEditors()
	}
}

func (m AppModel) stateScrollOffset() int {
	if m.viewScroll == nil {
		return 0
	}
	if offset, ok := m.viewScroll[m.state]; ok && offset > 0 {
		return offset
	}
	return 0
}

func (m *AppModel) setStateScroll(offset int) {
	if offset <= 0 {
		m.clearStateScroll(m.state)
		return
	}
	if m.viewScroll == nil {
		m.viewScroll = map[appState]int{}
	}
	m.viewScroll[m.state] = offset
}

func (m *AppModel) adjustStateScroll(delta int) {
	offset := m.stateScrollOffset() + delta
	if offset < 0 {
		offset = 0
	}
	m.setStateScroll(offset)
}

func (m *AppModel) clearStateScroll(state appState) {
	if m.viewScroll == nil {
		return
	}
	delete(m.viewScroll, state)
}

func (m AppModel) pageScrollStep() int {
	step := (m.height - 2) / 2
	if step < 3 {
		step = 3
	}
	return step
}

func (m AppModel) stateSupportsManualScroll() bool {
	switch m.state {
	case stateResult, stateSystem:
		return true
	default:
		return false
	}
}

func (m *AppModel) handleGlobalScrollKey(msg tea.KeyMsg) bool {
	if !m.stateSupportsManualScroll() {
		return false
	}
	switch msg.String() {
	case "pgdown", "ctrl+d":
		m.adjustStateScroll(m.pageScrollStep())
		return true
	case "pgup", "ctrl+u":
		m.adjustStateScroll(-m.pageScrollStep())
		return true
	}
	return false
}

// scrollWindow clips lines to h rows starting at the state's offset,
// clamping the offset so the last page stays full.
func (m *AppModel) scrollWindow(lines []string, h int) []string {
	if h < 1 {
		h = 1
	}
	maxOffset := len(lines) - h
	if maxOffset < 0 {
		maxOffset = 0
	}
	offset := m.stateScrollOffset()
	if offset > maxOffset {
		offset = maxOffset
		m.setStateScroll(offset)
	}
	end := offset + h
	if end > len(lines) {
		end = len(lines)
	}
	return lines[offset:end]
}
