package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractionUserPromptCarriesSchemaAndEnums(t *testing.T) {
	prompt := ExtractionUserPrompt("Samsung competes with Intel.")

	assert.Contains(t, prompt, `"entities"`)
	assert.Contains(t, prompt, `"relationships"`)
	assert.Contains(t, prompt, "COMPANY|PERSON|PRODUCT|LOCATION|FINANCIAL_METRIC|EVENT")
	assert.Contains(t, prompt, "COMPETES_WITH")
	assert.Contains(t, prompt, "RELATED_TO")
	assert.Contains(t, prompt, "Samsung competes with Intel.")
}
