// Package llm provides the Anthropic-backed specialist reviewers.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/joescharf/prd/internal/agents"
	"github.com/joescharf/prd/internal/models"
)

// Client wraps the Anthropic API for specialist reviews.
type Client struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewClient creates an LLM client with the given API key and model.
func NewClient(apiKey, model string) *Client {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	client := anthropic.NewClient(opts...)
	return &Client{
		api:   &client,
		model: anthropic.Model(model),
	}
}

// Specialist returns a reviewer for the given panel definition. Each
// specialist shares the client but prompts from its own perspective.
func (c *Client) Specialist(def agents.Definition) agents.Specialist {
	return &specialist{client: c, def: def}
}

// Registry builds a registry containing a specialist for every catalog
// entry.
func (c *Client) Registry() *agents.Registry {
	reg := agents.NewRegistry()
	for _, def := range agents.Catalog() {
		reg.Register(c.Specialist(def))
	}
	return reg
}

type specialist struct {
	client *Client
	def    agents.Definition
}

func (s *specialist) Key() string { return s.def.Key }

// buildReviewPrompt constructs the system and user prompts for one
// specialist's pass over the document.
func buildReviewPrompt(def agents.Definition, documentText string) (system string, user string) {
	system = fmt.Sprintf(`You are %s reviewing a product requirements document (PRD). Return ONLY a JSON array of issue objects with these fields:
- "severity": one of "High", "Mid", "Low"
- "summary": a one-line title for the issue (under 20 words)
- "comment": the full review comment with your reasoning
- "original_text": the exact text quoted from the PRD that the issue refers to (copy it verbatim, character for character)

Rules:
- Report only issues visible in the PRD text itself; do not invent context
- "original_text" must be copied verbatim from the PRD so it can be located later; leave it empty if the issue concerns the document as a whole
- Report at most 5 issues, most important first
- If the PRD raises no issues from your perspective, return []
- Return valid JSON only, no markdown fencing or explanation`, def.Perspective)

	var sb strings.Builder
	sb.WriteString("Review this PRD:\n\n")
	sb.WriteString(documentText)
	user = sb.String()
	return
}

// ReviewDocument sends the PRD to the LLM and returns the raw issues the
// specialist found.
func (s *specialist) ReviewDocument(ctx context.Context, documentText string) ([]models.RawIssueItem, error) {
	systemPrompt, userPrompt := buildReviewPrompt(s.def, documentText)

	msg, err := s.client.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     s.client.model,
		MaxTokens: 4096,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("anthropic API call: %w", err)
	}

	// Extract text from response
	var text string
	for _, block := range msg.Content {
		if block.Type == "text" {
			text = block.Text
			break
		}
	}

	if text == "" {
		return nil, fmt.Errorf("no text content in API response")
	}

	return parseIssues(text)
}

// parseIssues decodes the model's JSON array, stripping markdown fencing
// if present.
func parseIssues(text string) ([]models.RawIssueItem, error) {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		lines := strings.SplitN(text, "\n", 2)
		if len(lines) > 1 {
			text = lines[1]
		}
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
		text = strings.TrimSpace(text)
	}

	var items []models.RawIssueItem
	if err := json.Unmarshal([]byte(text), &items); err != nil {
		return nil, fmt.Errorf("parse LLM response as JSON: %w\nraw response: %s", err, text)
	}
	return items, nil
}
