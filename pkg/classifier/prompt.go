package classifier

import (
	"strings"

	"github.com/jmylchreest/portfolioscan/pkg/portfolio"
)

const question = "Is this an AI company? Return only 'yes' or 'no'."

// BuildPrompt creates the text half of the classification request.
// The logo travels alongside it as an image part.
func BuildPrompt(item portfolio.Item) string {
	var prompt strings.Builder

	prompt.WriteString("Analyze this company:\n")
	prompt.WriteString("Name: ")
	prompt.WriteString(item.Name)
	prompt.WriteString("\nDescription: ")
	prompt.WriteString(item.Description)
	prompt.WriteString("\nImage: [attached]\n\n")
	prompt.WriteString(question)

	return prompt.String()
}

// IsAffirmative reports whether a model answer counts as "yes".
// Only an exact "yes" after trimming and lower-casing qualifies.
func IsAffirmative(answer string) bool {
	return strings.ToLower(strings.TrimSpace(answer)) == "yes"
}
