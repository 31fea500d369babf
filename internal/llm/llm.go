package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pavelanni/wrongnote/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// maxBucketsInPrompt limits how many of the weakest types are described.
const maxBucketsInPrompt = 3

type coachReply struct {
	Note string `json:"note"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping lists the models to check the endpoint and the key.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// CoachNote asks the model for a short encouraging study note in language, based
// on a computed summary and its diagnosis.
func (c *Client) CoachNote(ctx context.Context, language string, sum *model.SummaryResponse, diag *model.DiagnosisResult) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildCoachSystemPrompt(language)},
			{Role: openai.ChatMessageRoleUser, Content: buildCoachUserPrompt(sum, diag)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)

	var reply coachReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return "", fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	return strings.TrimSpace(reply.Note), nil
}

func buildCoachSystemPrompt(language string) string {
	if language == "" {
		language = "Korean"
	}
	var sb strings.Builder
	sb.WriteString("You are a reading tutor for secondary school students preparing for a language exam.\n")
	sb.WriteString("You receive a student's wrong-answer statistics and a rule-based diagnosis.\n\n")
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Write 3 to 5 sentences addressed to the student.\n")
	sb.WriteString("- Name the weakest question type and one concrete habit to practice this week.\n")
	sb.WriteString("- Mention the strength so the note ends on an encouraging point.\n")
	sb.WriteString("- Do not invent numbers that are not in the data.\n")
	sb.WriteString(fmt.Sprintf("- Write the note in %s.\n", language))
	sb.WriteString("\nRespond ONLY with a JSON object:\n")
	sb.WriteString(`{"note": "<the note>"}`)
	sb.WriteString("\n")
	return sb.String()
}

func buildCoachUserPrompt(sum *model.SummaryResponse, diag *model.DiagnosisResult) string {
	var sb strings.Builder
	if sum != nil {
		sb.WriteString(fmt.Sprintf("WEEKS: %d-%d\n", sum.FromWeek, sum.ToWeek))
		sb.WriteString(fmt.Sprintf("QUESTIONS: %d, WRONG: %d\n", sum.TotalQuestions, sum.TotalWrong))
		sb.WriteString(fmt.Sprintf("ACCURACY: overall %.1f%%, reading %.1f%%, vocabulary %.1f%%\n",
			sum.Overall.Accuracy, sum.Overall.ReadingAccuracy, sum.Overall.VocabAccuracy))
		if n := min(len(sum.ByQType), maxBucketsInPrompt); n > 0 {
			sb.WriteString("WEAKEST TYPES:\n")
			for _, b := range sum.ByQType[:n] {
				sb.WriteString(fmt.Sprintf("- %s: %d of %d wrong (%.1f%%)\n", b.Name, b.Wrong, b.Total, b.Accuracy))
			}
		}
		lit, non := sum.Comparison.Literature, sum.Comparison.NonLiterature
		if lit.Total > 0 || non.Total > 0 {
			sb.WriteString(fmt.Sprintf("LITERATURE: %.1f%%, NON-LITERATURE: %.1f%%\n", lit.Accuracy, non.Accuracy))
		}
	}
	if diag != nil {
		sb.WriteString(fmt.Sprintf("\nWEAKNESS: %s (score %.1f)\n", diag.Weakness.Name, diag.Weakness.Score))
		if len(diag.Causes) > 0 {
			sb.WriteString("LIKELY CAUSES:\n")
			for _, c := range diag.Causes {
				sb.WriteString("- " + c + "\n")
			}
		}
		sb.WriteString("STRENGTH: " + diag.Strength.Name + "\n")
	}
	return sb.String()
}
