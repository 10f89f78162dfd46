package tagging

import (
	"strings"

	"github.com/ticket-tagger/backend/internal/models"
)

// BuildPrompt renders the zero-shot classification instruction for one
// ticket. The message is embedded verbatim between double quotes.
func BuildPrompt(message string, categories []models.Category) string {
	names := make([]string, len(categories))
	for i, c := range categories {
		names[i] = string(c)
	}

	var b strings.Builder
	b.WriteString("You are an AI assistant that classifies customer support tickets into relevant categories.\n")
	b.WriteString("Choose the top 3 categories (from the list below) that best describe the following message.\n\n")
	b.WriteString("Support Message:\n\"")
	b.WriteString(message)
	b.WriteString("\"\n\n")
	b.WriteString("Available Categories:\n")
	b.WriteString(strings.Join(names, ", "))
	b.WriteString("\n\n")
	b.WriteString("Respond with a JSON array of 3 category names only.")
	return b.String()
}
