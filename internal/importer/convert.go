package importer

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
)

var markdown = goldmark.New()

// toHTML converts a markdown article body to the HTML the editor works
// on. An empty body converts to an empty string.
func toHTML(source string) (string, error) {
	if source == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("markdown conversion failed: %w", err)
	}
	return buf.String(), nil
}
