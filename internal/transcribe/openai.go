package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const transcriptionsURL = "https://api.openai.com/v1/audio/transcriptions"

// OpenAIEngine calls the OpenAI audio transcriptions endpoint.
type OpenAIEngine struct {
	apiKey string
	model  string
	client *http.Client
}

// NewOpenAIEngine creates an engine. model defaults to whisper-1.
func NewOpenAIEngine(apiKey, model string) *OpenAIEngine {
	if model == "" {
		model = "whisper-1"
	}
	return &OpenAIEngine{
		apiKey: apiKey,
		model:  model,
		// Long audio chunks take a while to process upstream.
		client: &http.Client{Timeout: 10 * time.Minute},
	}
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads one audio file and returns its text.
func (e *OpenAIEngine) Transcribe(ctx context.Context, audioPath string) (string, error) {
	file, err := os.Open(audioPath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	if info, err := file.Stat(); err == nil && info.Size() > MaxUploadBytes {
		return "", fmt.Errorf("audio file %s exceeds the %d byte upload limit", audioPath, MaxUploadBytes)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("model", e.model); err != nil {
		return "", err
	}
	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, transcriptionsURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.client.Do(req)
	if err != nil {
		return "", &EngineError{Kind: KindTransient, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return "", &EngineError{
			Kind:    classifyStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: string(raw),
		}
	}

	var result transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to decode transcription response: %w", err)
	}
	return result.Text, nil
}
