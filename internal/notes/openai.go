package notes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const chatCompletionsURL = "https://api.openai.com/v1/chat/completions"

const summarizePrompt = `You are an assistant that writes structured notes from a transcript.
Produce concise markdown notes with these sections: Summary, Key Points,
Decisions, Action Items. Keep the original language of the transcript.`

const requirementsPrompt = `You are an assistant that drafts a product requirements document.
From the provided notes, produce a markdown PRD with these sections:
Overview, Goals, User Stories, Functional Requirements,
Non-Functional Requirements, Open Questions.`

// OpenAIGenerator calls the OpenAI chat completions endpoint.
type OpenAIGenerator struct {
	apiKey string
	model  string
	client *http.Client
}

// NewOpenAIGenerator creates a generator. model defaults to gpt-4o-mini.
func NewOpenAIGenerator(apiKey, model string) *OpenAIGenerator {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIGenerator{
		apiKey: apiKey,
		model:  model,
		client: &http.Client{Timeout: 5 * time.Minute},
	}
}

// Summarize turns a raw transcript into structured notes.
func (g *OpenAIGenerator) Summarize(ctx context.Context, transcript string) (string, error) {
	return g.complete(ctx, summarizePrompt, transcript)
}

// DraftRequirements turns notes into a requirements document.
func (g *OpenAIGenerator) DraftRequirements(ctx context.Context, notesText string) (string, error) {
	return g.complete(ctx, requirementsPrompt, notesText)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (g *OpenAIGenerator) complete(ctx context.Context, system, user string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, chatCompletionsURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", &GeneratorError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", &GeneratorError{Status: resp.StatusCode, Message: string(raw)}
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}
	return result.Choices[0].Message.Content, nil
}
