package cmd

import (
	"fmt"
	"io"
	"os"
)

// readContent returns the content given by --content, --file or piped stdin,
// in that order. ok is false when none was supplied.
func readContent(content string, contentSet bool, file string) (string, bool, error) {
	if contentSet {
		return content, true, nil
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", false, fmt.Errorf("read %s: %w", file, err)
		}
		return string(data), true, nil
	}
	stat, err := os.Stdin.Stat()
	if err == nil && (stat.Mode()&os.ModeCharDevice) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", false, fmt.Errorf("read stdin: %w", err)
		}
		return string(data), true, nil
	}
	return "", false, nil
}
