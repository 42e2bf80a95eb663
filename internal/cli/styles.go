package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/pflag"

	"github.com/raysh454/lawtrack/internal/logging"
	"github.com/raysh454/lawtrack/internal/tracker"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#667EEA"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#2ECC71"))
	changedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F1C40F"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C"))
	boxStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#667EEA")).
			Padding(0, 1)
)

func stateStyle(s tracker.State) lipgloss.Style {
	switch s {
	case tracker.StateRecorded:
		return changedStyle
	case tracker.StateFailed:
		return errorStyle
	default:
		return okStyle
	}
}

func lf(key string, v any) logging.Field {
	return logging.Field{Key: key, Value: v}
}

func jsonFlag(fs *pflag.FlagSet, p *bool, usage string) {
	fs.BoolVar(p, "json", false, usage)
}
