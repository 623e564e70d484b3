package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const (
	googleBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	DefaultGoogleModel = "gemini-flash-latest"
)

// GoogleService implements VisionService against the Gemini
// generateContent REST API.
type GoogleService struct {
	apiKey     string
	modelName  string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ VisionService = (*GoogleService)(nil)

type googleInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type googlePart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *googleInlineData `json:"inline_data,omitempty"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googleGenerateRequest struct {
	Contents []googleContent `json:"contents"`
}

type googleCandidate struct {
	Content      googleContent `json:"content"`
	FinishReason string        `json:"finishReason"`
}

type googleGenerateResponse struct {
	Candidates []googleCandidate `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func NewGoogleService(apiKey string, modelName string, logger *slog.Logger) *GoogleService {
	if modelName == "" {
		modelName = DefaultGoogleModel
	}
	return &GoogleService{
		apiKey:    apiKey,
		modelName: modelName,
		baseURL:   googleBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		logger: logger,
	}
}

func (g *GoogleService) InitModel(ctx context.Context, modelName string) error {
	if modelName != "" {
		g.modelName = modelName
	}
	return nil
}

func (g *GoogleService) Classify(ctx context.Context, prompt string, frame Frame) (string, error) {
	parts := []googlePart{{Text: prompt}}
	if len(frame.PNG) > 0 {
		parts = append(parts, googlePart{
			InlineData: &googleInlineData{
				MimeType: "image/png",
				Data:     base64.StdEncoding.EncodeToString(frame.PNG),
			},
		})
	}
	if frame.Text != "" {
		parts = append(parts, googlePart{Text: "Current frame:\n" + frame.Text})
	}

	googleReq := googleGenerateRequest{
		Contents: []googleContent{{Role: "user", Parts: parts}},
	}

	reqBody, err := json.Marshal(googleReq)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.modelName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", g.apiKey)
	req.Header.Set("content-type", "application/json")

	resp, err := doWithRetry(ctx, g.httpClient, req)
	if err != nil {
		return "", fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var googleResp googleGenerateResponse
	if err := json.Unmarshal(body, &googleResp); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	if googleResp.Error != nil {
		return "", fmt.Errorf("API error: %s", googleResp.Error.Message)
	}
	if len(googleResp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}

	var responseText string
	for _, part := range googleResp.Candidates[0].Content.Parts {
		responseText += part.Text
	}

	g.logger.Debug("Gemini classification complete",
		"model", g.modelName,
		"finish_reason", googleResp.Candidates[0].FinishReason)

	return responseText, nil
}
