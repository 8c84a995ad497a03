// Package extractor turns text chunks into validated entity/relationship
// extractions by prompting a language model and strictly checking its JSON
// output. Malformed output, timeouts and transport failures all consume the
// same bounded retry budget; a chunk that exhausts it is reported as failed,
// never silently dropped or half-parsed.
package extractor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	jsonrepair "github.com/kaptinlin/jsonrepair"

	"github.com/finsight/fingraph/pkg/nlp"
	"github.com/finsight/fingraph/pkg/prompts"
	"github.com/finsight/fingraph/pkg/types"
)

// Config controls extraction behaviour.
type Config struct {
	// Retry is the attempt budget and backoff schedule per chunk.
	Retry *nlp.RetryConfig
	// Timeout bounds each individual LLM call.
	Timeout time.Duration
}

// Extractor sends chunks to the language model and validates the responses.
type Extractor struct {
	llm     *nlp.RetryClient
	timeout time.Duration
	logger  *slog.Logger
}

// New creates an Extractor on top of the given LLM client.
func New(client nlp.Client, cfg Config, logger *slog.Logger) *Extractor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		llm:     nlp.NewRetryClient(nlp.NewTimeoutClient(client, cfg.Timeout), cfg.Retry),
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Extract runs one chunk through the model. On success the returned result
// carries the attempt count; on failure the error is an
// *types.ExtractionError classifying why the budget was exhausted.
func (e *Extractor) Extract(ctx context.Context, chunk types.Chunk) (*types.ExtractionResult, error) {
	if strings.TrimSpace(chunk.Text) == "" {
		return &types.ExtractionResult{Chunk: chunk, Attempts: 0}, nil
	}

	messages := []types.Message{
		nlp.NewSystemMessage(prompts.ExtractionSystemPrompt),
		nlp.NewUserMessage(prompts.ExtractionUserPrompt(chunk.Text)),
	}

	var parsed *types.ExtractionResult
	resp, attempts, err := e.llm.ChatJSONValidated(ctx, messages, func(resp *types.Response) error {
		result, perr := ParseResponse(resp.Content)
		if perr != nil {
			return perr
		}
		parsed = result
		return nil
	})
	if err != nil {
		reason := classify(err)
		e.logger.Warn("extraction failed",
			"chunk", chunk.Ref(), "attempts", attempts, "reason", string(reason))
		return nil, &types.ExtractionError{Reason: reason, Attempts: attempts, Err: err}
	}

	parsed.Chunk = chunk
	parsed.Attempts = attempts
	e.logger.Debug("extraction succeeded",
		"chunk", chunk.Ref(),
		"attempts", attempts,
		"entities", len(parsed.Entities),
		"relationships", len(parsed.Relationships),
		"model", resp.Model)
	return parsed, nil
}

// classify maps the terminal error of the retry loop onto the extraction
// failure taxonomy.
func classify(err error) types.ExtractionReason {
	if errors.Is(err, &nlp.ValidationError{}) {
		return types.ExtractionMalformedOutput
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return types.ExtractionTimeout
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline") {
		return types.ExtractionTimeout
	}
	return types.ExtractionModelUnavailable
}

// rawExtraction mirrors the JSON shape the prompt demands, before validation.
type rawExtraction struct {
	Entities []struct {
		Name       string         `json:"name"`
		Type       string         `json:"type"`
		Properties map[string]any `json:"properties"`
	} `json:"entities"`
	Relationships []struct {
		Source     string         `json:"source"`
		Target     string         `json:"target"`
		Type       string         `json:"type"`
		Properties map[string]any `json:"properties"`
	} `json:"relationships"`
}

var codeFenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

var thinkTagRe = regexp.MustCompile(`(?s)<think>.*?</think>`)

// ParseResponse parses and validates one LLM response body. Markdown fences
// and reasoning tags are stripped and common JSON damage is repaired before
// unmarshalling; validation after that point is strict. Unknown entity or
// relation types, or entries missing required fields, fail the whole
// response so the retry loop can ask the model again.
func ParseResponse(content string) (*types.ExtractionResult, error) {
	content = strings.TrimSpace(thinkTagRe.ReplaceAllString(content, ""))
	if m := codeFenceRe.FindStringSubmatch(content); m != nil {
		content = m[1]
	}
	if content == "" {
		return nil, fmt.Errorf("empty response body")
	}

	// Small models frequently emit trailing commas or unquoted keys; repair
	// before parsing rather than rejecting outright.
	if repaired, err := jsonrepair.JSONRepair(content); err == nil {
		content = repaired
	}

	var raw rawExtraction
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("response is not valid JSON: %w", err)
	}

	result := &types.ExtractionResult{}
	for i, ent := range raw.Entities {
		name := strings.TrimSpace(ent.Name)
		if name == "" {
			return nil, fmt.Errorf("entity %d: %w", i, types.ErrEmptyName)
		}
		entityType, err := types.ParseEntityType(ent.Type)
		if err != nil {
			return nil, fmt.Errorf("entity %d (%s): %w", i, name, err)
		}
		result.Entities = append(result.Entities, types.ExtractedEntity{
			Name:       name,
			Type:       entityType,
			Properties: ent.Properties,
		})
	}

	for i, rel := range raw.Relationships {
		source := strings.TrimSpace(rel.Source)
		target := strings.TrimSpace(rel.Target)
		if source == "" || target == "" {
			return nil, fmt.Errorf("relationship %d: missing source or target", i)
		}
		relType, err := types.ParseRelationType(rel.Type)
		if err != nil {
			return nil, fmt.Errorf("relationship %d (%s->%s): %w", i, source, target, err)
		}
		result.Relationships = append(result.Relationships, types.ExtractedRelationship{
			SourceName: source,
			TargetName: target,
			Type:       relType,
			Properties: rel.Properties,
		})
	}

	return result, nil
}
