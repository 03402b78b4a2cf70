package genimage

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const promptTemplate = "High-resolution, photorealistic image of %s, plated on a clean white plate, viewed at a 45-degree angle under natural lighting, realistic background, food magazine style"

// BuildPrompt renders the generation prompt for a dish. The output is a pure
// function of name and description so retries and reruns hit the same cache
// entries downstream.
func BuildPrompt(name, description string) string {
	dish := cases.Title(language.English).String(strings.TrimSpace(name))
	if dish == "" {
		dish = "A Restaurant Dish"
	}
	prompt := fmt.Sprintf(promptTemplate, dish)
	if desc := strings.TrimSpace(description); desc != "" {
		prompt += fmt.Sprintf(". The dish contains: %s", desc)
	}
	return prompt
}
