package feed

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadList reads a newline-delimited feed URL list. Blank lines and lines
// starting with '#' are ignored.
func LoadList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reading feed list %s: %w", path, err)
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading feed list %s: %w", path, err)
	}
	return urls, nil
}
