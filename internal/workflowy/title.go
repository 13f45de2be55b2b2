package workflowy

import (
	"bytes"
	"fmt"
	"html"
	"strings"
)

const (
	titleOpen  = "<title>"
	titleClose = "</title>"
)

// extractTitle pulls the text between the first <title> tag pair out of an
// HTML document. Entities are unescaped and surrounding whitespace trimmed.
func extractTitle(p []byte) (string, error) {
	lower := bytes.ToLower(p)

	i := bytes.Index(lower, []byte(titleOpen))
	if i < 0 {
		return "", fmt.Errorf("%q not found in page", titleOpen)
	}
	b := i + len(titleOpen)

	ii := bytes.Index(lower[b:], []byte(titleClose))
	if ii < 0 {
		return "", fmt.Errorf("did not find %q in page", titleClose)
	}

	title := string(p[b : b+ii])
	return strings.TrimSpace(html.UnescapeString(title)), nil
}
