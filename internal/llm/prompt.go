package llm

import (
	"strings"
)

// SystemPrompt frames every extraction request.
const SystemPrompt = "You are a data processing assistant. Process the file content based on the user's prompt. " +
	"Return ONLY JSON. Never output null; omit fields that are not present."

const truncatedMarker = "\n…(truncated)"

// BuildUserPrompt lays out the request as USER PROMPT, FILE CONTENT and, when a template is active,
// TEMPLATE FORMAT sections, followed by the reply shape. Content beyond maxChars runes is cut.
func BuildUserPrompt(req ExtractRequest, maxChars int) string {
	var b strings.Builder
	b.WriteString("USER PROMPT: ")
	b.WriteString(strings.TrimSpace(req.Prompt))
	b.WriteString("\n\n")

	if name := strings.TrimSpace(req.FileName); name != "" {
		b.WriteString("FILE NAME: ")
		b.WriteString(name)
		b.WriteString("\n\n")
	}

	b.WriteString("FILE CONTENT:\n")
	b.WriteString(clipRunes(strings.TrimSpace(req.Content), maxChars))
	b.WriteString("\n")

	if tpl := strings.TrimSpace(req.Template); tpl != "" {
		b.WriteString("\nTEMPLATE FORMAT:\n")
		b.WriteString(tpl)
		b.WriteString("\n\nPlease structure the output according to the template format provided above.")
		if len(req.TemplateFields) > 0 {
			b.WriteString(" Every object in \"data\" should use these keys: ")
			b.WriteString(strings.Join(req.TemplateFields, ", "))
			b.WriteString(".")
		}
		b.WriteString("\n")
	}

	b.WriteString(`
Return the data in JSON format with the following structure:
{
  "data": [array of processed data objects],
  "summary": "brief summary of processing",
  "confidence": 0.95,
  "notes": "any additional notes or clarifications"
}`)
	return b.String()
}

func clipRunes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + truncatedMarker
}
