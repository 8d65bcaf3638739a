package theme

import (
	"testing"

	"github.com/oxyadmin/oxyadmin/internal/notify"
	"github.com/oxyadmin/oxyadmin/internal/resource"
)

func TestSeverityColor(t *testing.T) {
	tests := map[notify.Severity]string{
		notify.SeveritySuccess: string(ColorGreen),
		notify.SeverityWarning: string(ColorYellow),
		notify.SeverityError:   string(ColorRed),
		notify.SeverityInfo:    string(ColorBlue),
	}
	for sev, want := range tests {
		if got := string(SeverityColor(sev)); got != want {
			t.Errorf("SeverityColor(%v) = %s, want %s", sev, got, want)
		}
	}
}

func TestStatusColor(t *testing.T) {
	if StatusColor(resource.StatusActive) != ColorGreen {
		t.Fatal("active should be green")
	}
	if StatusColor(resource.StatusInactive) != ColorOverlay0 {
		t.Fatal("inactive should be dimmed")
	}
	if StatusColor("paused") != ColorText {
		t.Fatal("unknown statuses should use the text color")
	}
}
