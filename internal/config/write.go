package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joeycumines/storefront/internal/storage"
)

// SetKeyInFile updates or adds a global option key in the config file,
// preserving comments and layout. An existing global line for key is
// replaced in place; otherwise the key is inserted before the first section
// header, or appended when there are no sections. Keys inside [section]
// blocks are never touched. An empty value writes the bare key.
func SetKeyInFile(path, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file: %w", err)
	}

	var lines []string
	if len(data) > 0 {
		lines = strings.Split(string(data), "\n")
	}

	newLine := key
	if value != "" {
		newLine = key + " " + value
	}

	insertAt := -1
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
			insertAt = i
			break
		}
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if name, _, _ := strings.Cut(trimmed, " "); name == key {
			lines[i] = newLine
			return writeLines(path, lines)
		}
	}

	switch {
	case insertAt >= 0:
		lines = append(lines[:insertAt], append([]string{newLine}, lines[insertAt:]...)...)
	case len(lines) > 0 && lines[len(lines)-1] == "":
		// keep the trailing newline last
		lines = append(lines[:len(lines)-1], newLine, "")
	default:
		lines = append(lines, newLine)
	}
	return writeLines(path, lines)
}

func writeLines(path string, lines []string) error {
	return storage.AtomicWriteFile(path, []byte(strings.Join(lines, "\n")), 0600)
}
