// Package generator produces multiple-choice question banks by driving an
// OpenAI-compatible chat API in fixed-size batches.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/schoolgenius/schoolgenius/internal/model"

	openai "github.com/sashabaranov/go-openai"
)

// batchSize is the number of questions requested per API call. Smaller
// batches keep responses parseable and give callers incremental progress.
const batchSize = 5

// GenerationError reports a failed generation run. Batch is the 1-based
// index of the batch whose request or response failed; questions from
// earlier batches are discarded and never reach the caller.
type GenerationError struct {
	Batch int
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate questions: batch %d: %v", e.Batch, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// completer is the slice of the OpenAI client the generator needs.
// Satisfied by *openai.Client; tests substitute a scripted fake.
type completer interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Client generates question banks through an OpenAI-compatible API.
type Client struct {
	api   completer
	model string
}

// New creates a generator client. baseURL may be empty to use the
// default OpenAI endpoint.
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

// generatedQuestion is the shape each item in the model's JSON response
// must have.
type generatedQuestion struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

// batchResponse is the envelope the prompt asks the model to produce.
type batchResponse struct {
	Questions []generatedQuestion `json:"questions"`
}

// Generate requests total questions for the given subject and grade in
// sequential batches of up to five. After each successfully parsed batch
// onProgress (if non-nil) is called synchronously with the cumulative
// question count, so progress values are strictly increasing and arrive
// in batch order. Any batch failure aborts the whole run with a
// *GenerationError; no partial list is returned.
func (c *Client) Generate(ctx context.Context, subject, grade string, total int, onProgress func(int)) ([]model.Question, error) {
	var all []model.Question

	// The number of batches is fixed up front; per-batch delivery counts
	// are best-effort, so an under-delivering service shortens the final
	// list rather than extending the run.
	batches := (total + batchSize - 1) / batchSize
	for batch := 1; batch <= batches; batch++ {
		currentSize := min(batchSize, total-len(all))
		if currentSize <= 0 {
			break
		}

		parsed, err := c.generateBatch(ctx, subject, grade, currentSize)
		if err != nil {
			return nil, &GenerationError{Batch: batch, Err: err}
		}

		for _, gq := range parsed {
			all = append(all, model.Question{
				ID:            uuid.NewString(),
				Text:          gq.Text,
				Options:       gq.Options,
				CorrectAnswer: gq.CorrectAnswer,
			})
		}

		slog.Debug("generated batch", "batch", batch, "count", len(parsed), "total", len(all))
		if onProgress != nil {
			onProgress(len(all))
		}
	}

	return all, nil
}

func (c *Client) generateBatch(ctx context.Context, subject, grade string, count int) ([]generatedQuestion, error) {
	prompt := buildBatchPrompt(subject, grade, count)

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices returned")
	}

	raw := resp.Choices[0].Message.Content
	var parsed batchResponse
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return nil, fmt.Errorf("parse response: %w (raw: %s)", err, raw)
	}

	for i, gq := range parsed.Questions {
		if strings.TrimSpace(gq.Text) == "" {
			return nil, fmt.Errorf("question %d: empty text", i)
		}
		if len(gq.Options) != model.OptionsPerQuestion {
			return nil, fmt.Errorf("question %d: expected %d options, got %d", i, model.OptionsPerQuestion, len(gq.Options))
		}
		if gq.CorrectAnswer < 0 || gq.CorrectAnswer >= len(gq.Options) {
			return nil, fmt.Errorf("question %d: correct answer index %d out of range", i, gq.CorrectAnswer)
		}
	}

	return parsed.Questions, nil
}

func buildBatchPrompt(subject, grade string, count int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Generate %d unique %s multiple-choice questions for a student in Grade %s.\n", count, subject, grade))
	sb.WriteString("The questions should range in difficulty suitable for that grade level.\n")
	sb.WriteString(fmt.Sprintf("Ensure the questions cover various topics within %s appropriate for the grade.\n", subject))
	sb.WriteString("Provide exactly 4 options for each question.\n\n")
	sb.WriteString("Respond ONLY with a JSON object of this shape:\n")
	sb.WriteString(`{"questions": [{"text": "<question text>", "options": ["<option>", "<option>", "<option>", "<option>"], "correctAnswer": <index 0-3 of the correct option>}]}`)
	sb.WriteString("\n")
	return sb.String()
}
