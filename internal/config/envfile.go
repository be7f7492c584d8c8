package config

import (
	"strings"
)

// replaceEnvLine swaps the KEY=... line in env content for line, appending it when absent.
func replaceEnvLine(content, key, line string) string {
	line = strings.TrimRight(line, "\n")
	lines := strings.Split(strings.TrimRight(content, "\n"), "\n")

	replaced := false
	out := make([]string, 0, len(lines)+1)
	for _, l := range lines {
		if l == "" && len(lines) == 1 {
			continue
		}
		if strings.HasPrefix(strings.TrimSpace(l), key+"=") {
			if !replaced {
				out = append(out, line)
				replaced = true
			}
			continue
		}
		out = append(out, l)
	}
	if !replaced {
		out = append(out, line)
	}
	return strings.Join(out, "\n") + "\n"
}
