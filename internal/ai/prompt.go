package ai

import (
	"fmt"
	"strings"
)

const careTipsPrompt = `You write short care notes for plants logged in a nature journaling app.

Rules:

* Answer in plain text, no markdown, no headings, no lists.
* At most three sentences covering light, water and soil.
* Do not mention that you are an assistant or that the answer may be wrong.
* If the plant cannot be identified from the input, answer with the single word UNKNOWN.`

// BuildCareTipsPrompt returns the instruction and the plant description as
// two prompt parts.
func BuildCareTipsPrompt(name, scientificName, description string) (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", strings.TrimSpace(name))
	if s := strings.TrimSpace(scientificName); s != "" {
		fmt.Fprintf(&b, "Scientific name: %s\n", s)
	}
	if d := strings.TrimSpace(description); d != "" {
		fmt.Fprintf(&b, "Notes: %s\n", d)
	}
	return careTipsPrompt, b.String()
}
