package shared

import (
	"strconv"
	"strings"
)

// RenderActivityLog renders a chronological activity log with optional title.
// Entries are displayed oldest first. If maxEntries > 0, only the most
// recent maxEntries are shown and a dimmed line counts the hidden ones.
func RenderActivityLog(title string, entries []string, maxEntries int) string {
	var builder strings.Builder

	trimmedTitle := strings.TrimSpace(title)
	if trimmedTitle != "" {
		builder.WriteString(RenderLabel(trimmedTitle))
		builder.WriteString("\n")
	}

	if len(entries) == 0 {
		return builder.String()
	}

	startIdx := 0
	if maxEntries > 0 && maxEntries < len(entries) {
		startIdx = len(entries) - maxEntries

		builder.WriteString("  ")
		builder.WriteString(RenderDim("… " + strconv.Itoa(startIdx) + " earlier"))
		builder.WriteString("\n")
	}

	for i := startIdx; i < len(entries); i++ {
		builder.WriteString("  ")
		builder.WriteString(entries[i])

		if i < len(entries)-1 {
			builder.WriteString("\n")
		}
	}

	return builder.String()
}
