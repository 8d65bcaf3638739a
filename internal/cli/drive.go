package cli

import (
	"errors"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/oxyadmin/oxyadmin/internal/console"
	"github.com/oxyadmin/oxyadmin/internal/notify"
)

// driver runs the console controllers without a terminal. Each tea.Cmd is
// executed inline and its message fed back through Update, as the program
// loop would do, so commands see the same notices the TUI shows.
type driver struct {
	console  *console.Console
	notices  *notify.Recorder
	messages []tea.Msg
}

func newDriver(cmd *cobra.Command) (*driver, error) {
	conn, err := resolveConnection(cmd, "")
	if err != nil {
		return nil, err
	}
	rec := &notify.Recorder{}
	return &driver{
		console: console.New(conn.client(rec), rec, console.Options{Fallback: conn.fallback}),
		notices: rec,
	}, nil
}

func (d *driver) run(cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg := next()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		d.messages = append(d.messages, msg)
		if follow, ok := d.console.Update(msg); ok {
			queue = append(queue, follow)
		}
	}
}

// mark is the position later calls to failure and success count from.
func (d *driver) mark() int { return len(d.notices.Notices) }

// failure returns the first error notice posted since mark.
func (d *driver) failure(mark int) error {
	for _, n := range d.notices.Notices[mark:] {
		if n.Severity == notify.SeverityError {
			return errors.New(n.Message)
		}
	}
	return nil
}

// success returns the last success notice posted since mark.
func (d *driver) success(mark int) string {
	notices := d.notices.Notices[mark:]
	for i := len(notices) - 1; i >= 0; i-- {
		if notices[i].Severity == notify.SeveritySuccess {
			return notices[i].Message
		}
	}
	return ""
}

// lastMessage returns the most recent message of type M.
func lastMessage[M tea.Msg](d *driver) (M, bool) {
	for i := len(d.messages) - 1; i >= 0; i-- {
		if m, ok := d.messages[i].(M); ok {
			return m, true
		}
	}
	var zero M
	return zero, false
}
