package liquid

import (
	"fmt"
	"strings"

	"github.com/osteele/liquid"
)

// MaxTemplateSize bounds a single subject or body
const MaxTemplateSize = 256 * 1024

var engine = liquid.NewEngine()

func hasMarkup(template string) bool {
	return strings.Contains(template, "{{") || strings.Contains(template, "{%")
}

// Validate parses template without rendering it
func Validate(template string) error {
	if len(template) > MaxTemplateSize {
		return fmt.Errorf("template exceeds %d bytes", MaxTemplateSize)
	}
	if !hasMarkup(template) {
		return nil
	}
	if _, err := engine.ParseString(template); err != nil {
		return fmt.Errorf("invalid liquid template: %w", err)
	}
	return nil
}

// Render renders a Liquid template with the provided data. Templates without
// markup are returned unchanged.
func Render(template string, data map[string]interface{}) (string, error) {
	if !hasMarkup(template) {
		return template, nil
	}
	if len(template) > MaxTemplateSize {
		return "", fmt.Errorf("template exceeds %d bytes", MaxTemplateSize)
	}

	rendered, err := engine.ParseAndRenderString(template, data)
	if err != nil {
		return "", fmt.Errorf("liquid rendering failed: %w", err)
	}

	return rendered, nil
}
