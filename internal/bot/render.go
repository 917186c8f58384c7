package bot

import (
	"fmt"
	"strings"

	"github.com/gratefultolord/loan_intake_bot/internal/events"
)

var statusIcons = map[events.Status]string{
	events.StatusPending:    "⏳",
	events.StatusProcessing: "🔄",
	events.StatusCompleted:  "✅",
}

func formatActivity(entries []events.ProcessEvent) string {
	if len(entries) == 0 {
		return "No activity yet."
	}

	var b strings.Builder
	b.WriteString("Application progress:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %s · %s (%s)\n",
			statusIcons[e.Status], e.Timestamp.Format("15:04:05"), e.Message, e.Category)
	}

	return strings.TrimRight(b.String(), "\n")
}
