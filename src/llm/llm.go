package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"screen-mcq-llm/src/answer"
)

type Config struct {
	APIKey   string
	Model    string
	Endpoint string // override for tests; defaults to the public API host
}

var config *Config

func Init(cfg *Config) {
	config = cfg
}

// ErrMissingAPIKey short-circuits analysis before any network traffic.
var ErrMissingAPIKey = errors.New("API key is required")

// Gemini generateContent API structures
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

type InlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type Content struct {
	Parts []Part `json:"parts"`
}

type GenerationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

type GenerateRequest struct {
	Contents         []Content        `json:"contents"`
	GenerationConfig GenerationConfig `json:"generationConfig"`
}

type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason"`
}

type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

type GenerateResponse struct {
	Candidates []Candidate `json:"candidates"`
	Error      *APIError   `json:"error,omitempty"`
}

// Result carries the raw model reply and the answer token derived from
// it. Answered is false both for the NO_MCQ sentinel and for a reply
// with no recognizable answer line; the raw text tells them apart.
type Result struct {
	Token        string
	Answered     bool
	Raw          string
	FinishReason string
}

const (
	defaultEndpoint = "https://generativelanguage.googleapis.com"
	apiPath         = "/v1beta/models/%s:generateContent"
	requestTimeout  = 45 * time.Second
	maxOutputTokens = 1024
	temperature     = 0.1
)

const mcqPrompt = "You are looking at a full screenshot of a computer screen.\n" +
	"Scanning top to bottom, find exactly the FIRST complete multiple-choice question.\n" +
	"Normalize its options to exactly four, labeled A) B) C) D) (keep 1) 2) 3) 4) if the\n" +
	"original uses numbers). Then reply with:\n" +
	"- the question on one line\n" +
	"- the four options, one per line, each as 'A) option text'\n" +
	"- one short line of reasoning\n" +
	"- a final line of exactly 'ANSWER: <X>' where <X> is the chosen label\n" +
	"If no multiple-choice question is visible anywhere, reply with exactly 'NO_MCQ'."

// AnalyzeImage sends a screenshot to the vision model and derives the
// answer token from its reply. A single attempt per call: each capture
// session gets exactly one query.
func AnalyzeImage(ctx context.Context, imageData []byte) (*Result, error) {
	if config == nil {
		return nil, fmt.Errorf("LLM client not initialized")
	}
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	request := GenerateRequest{
		Contents: []Content{
			{
				Parts: []Part{
					{Text: mcqPrompt},
					{InlineData: &InlineData{
						MIMEType: "image/png",
						Data:     base64.StdEncoding.EncodeToString(imageData),
					}},
				},
			},
		},
		GenerationConfig: GenerationConfig{
			Temperature:     temperature,
			MaxOutputTokens: maxOutputTokens,
		},
	}

	response, err := makeAPIRequest(ctx, request)
	if err != nil {
		return nil, err
	}

	if len(response.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates in API response")
	}

	cand := response.Candidates[0]
	raw := collectText(cand.Content.Parts)
	if raw == "" {
		return nil, fmt.Errorf("empty reply from model")
	}

	res := &Result{Raw: raw, FinishReason: cand.FinishReason}
	if answer.IsNoMCQ(raw) {
		return res, nil
	}
	res.Token, res.Answered = answer.Extract(raw)
	return res, nil
}

// Ping performs a cheap metadata request to validate the key and model
// at startup.
func Ping(ctx context.Context) error {
	if config == nil {
		return fmt.Errorf("LLM client not initialized")
	}
	if config.APIKey == "" {
		return ErrMissingAPIKey
	}
	if config.Model == "" {
		return fmt.Errorf("model is required")
	}

	u := fmt.Sprintf("%s/v1beta/models/%s?key=%s", endpoint(), url.PathEscape(config.Model), url.QueryEscape(config.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %v", err)
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}
	return nil
}

func endpoint() string {
	if config != nil && config.Endpoint != "" {
		return config.Endpoint
	}
	return defaultEndpoint
}

func makeAPIRequest(ctx context.Context, request GenerateRequest) (*GenerateResponse, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %v", err)
	}

	// The API authenticates via the key query parameter, not a header.
	u := fmt.Sprintf("%s"+apiPath+"?key=%s", endpoint(), url.PathEscape(config.Model), url.QueryEscape(config.APIKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: requestTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %v", err)
	}
	defer resp.Body.Close()

	var response GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode response: %v", err)
	}

	if response.Error != nil {
		return nil, fmt.Errorf("API error: %s (status: %s, code: %d)", response.Error.Message, response.Error.Status, response.Error.Code)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	return &response, nil
}

func collectText(parts []Part) string {
	var buf bytes.Buffer
	for _, p := range parts {
		buf.WriteString(p.Text)
	}
	return buf.String()
}
