package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"modshield/internal/state"
)

const systemPrompt = `Content moderator for Telegram groups. Classify the current message into exactly one category. Context provided when available helps reduce false positives. Do NOT rule on the context. Users may swear or trigger keywords normally. Avoid false positives.

Categories:
- scam: messages attempting to defraud users
- phishing: messages explicitly trying to steal credentials or personal information
- not_suitable_for_work: explicit or sexually provoking content
- unsolicited_promotion: unwanted advertising or promotional content
- other_spam: other annoying messages
- not_spam: legitimate message

Answer with a JSON object: {"label": "<category>"}`

// Config configures the OpenAI-compatible classifier client.
type Config struct {
	APIKey  string
	BaseURL string // empty means the default OpenAI endpoint
	Model   string
	Timeout time.Duration
}

// Client calls an OpenAI-compatible chat completion endpoint in JSON mode.
type Client struct {
	client  *openai.Client
	model   string
	timeout time.Duration
}

func NewClient(cfg Config) *Client {
	conf := openai.DefaultConfig(cfg.APIKey)
	if strings.TrimSpace(cfg.BaseURL) != "" {
		conf.BaseURL = cfg.BaseURL
	}
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		client:  openai.NewClientWithConfig(conf),
		model:   model,
		timeout: timeout,
	}
}

func (c *Client) Classify(ctx context.Context, text string, history []state.Message, authorID int64) (Label, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(text, history, authorID)},
		},
		Temperature: 0.1, // deterministic-ish verdicts
		MaxTokens:   50,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return parseVerdict(resp.Choices[0].Message.Content)
}

// buildPrompt renders the message plus the author's own recent history.
// Other users' messages are dropped so the model rules on one speaker only.
func buildPrompt(text string, history []state.Message, authorID int64) string {
	own := make([]string, 0, len(history))
	for _, m := range history {
		if m.FromID != authorID {
			continue
		}
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		own = append(own, "- "+m.Text)
	}
	if len(own) == 0 {
		return text
	}

	var b strings.Builder
	b.WriteString("History:\n")
	b.WriteString(strings.Join(own, "\n"))
	b.WriteString("\n\nAnalyze:\n")
	b.WriteString(text)
	return b.String()
}

func parseVerdict(raw string) (Label, error) {
	raw = strings.TrimSpace(raw)
	// Some models wrap JSON mode output in code fences anyway.
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")
	raw = strings.TrimSpace(raw)

	var verdict struct {
		Label string `json:"label"`
	}
	if err := json.Unmarshal([]byte(raw), &verdict); err != nil {
		return "", fmt.Errorf("decode verdict %q: %w", raw, err)
	}
	label, err := ParseLabel(verdict.Label)
	if err != nil {
		return "", fmt.Errorf("verdict: %w", err)
	}
	return label, nil
}
