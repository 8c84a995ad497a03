// Package prompts builds the structured-output prompts sent to the language
// model. The extraction prompt pins the JSON schema and the closed entity and
// relationship enumerations so responses can be validated strictly.
package prompts

import (
	"fmt"
	"strings"

	"github.com/finsight/fingraph/pkg/types"
)

// ExtractionSystemPrompt primes the model to emit JSON and nothing else.
const ExtractionSystemPrompt = "You are a business analyst that extracts structured data " +
	"from financial and business documents. Always respond with valid JSON only, " +
	"no prose and no markdown fences."

// ExtractionUserPrompt renders the per-chunk extraction instruction. The
// schema, entity type list and relationship type list are spelled out in the
// prompt body; anything outside them is rejected downstream.
func ExtractionUserPrompt(chunkText string) string {
	var b strings.Builder

	b.WriteString("Extract business entities and their relationships from the text below.\n")
	b.WriteString("Return ONLY valid JSON with no additional text or explanation.\n\n")

	b.WriteString("Required JSON format:\n")
	b.WriteString(`{
  "entities": [
    {"name": "EntityName", "type": "` + entityTypeAlternatives() + `", "properties": {"key": "value"}}
  ],
  "relationships": [
    {"source": "EntityA", "target": "EntityB", "type": "RELATIONSHIP_TYPE", "properties": {"key": "value"}}
  ]
}`)
	b.WriteString("\n\nEntity types:\n")
	for _, line := range entityTypeDescriptions() {
		fmt.Fprintf(&b, "- %s\n", line)
	}

	b.WriteString("\nAllowed relationship types:\n")
	b.WriteString("- SUPPLIES, PURCHASES, COMPETES_WITH (business operations)\n")
	b.WriteString("- HAS_CEO, EMPLOYS, LOST_EMPLOYEE, HIRED (personnel)\n")
	b.WriteString("- HAS_DEBT, OWNS_ASSET, INVESTS_IN (financial)\n")
	b.WriteString("- LOCATED_IN, OPERATES_IN (geographic)\n")
	b.WriteString("- PRODUCES, MANUFACTURES (production)\n")
	b.WriteString("- RELATED_TO (only when nothing else fits)\n")

	b.WriteString("\nText to analyze:\n")
	b.WriteString(chunkText)
	b.WriteString("\n\nJSON output:")

	return b.String()
}

func entityTypeAlternatives() string {
	names := make([]string, 0, len(types.EntityTypes()))
	for _, t := range types.EntityTypes() {
		names = append(names, strings.ToUpper(string(t)))
	}
	return strings.Join(names, "|")
}

func entityTypeDescriptions() []string {
	return []string{
		"COMPANY: business organizations",
		"PERSON: individuals (CEOs, executives, employees)",
		"PRODUCT: products or services",
		"LOCATION: geographic locations",
		"FINANCIAL_METRIC: revenue, profit, market cap, debt figures",
		"EVENT: acquisitions, layoffs, product launches, filings",
	}
}
