package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ticket2ics/internal/config"
	"ticket2ics/internal/models"
)

// Extractor turns a normalized ticket image into structured event
// data. Implementations make exactly one attempt; a failed call is a
// failed task.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (*models.TicketData, error)
}

const (
	requestTimeout = 2 * time.Minute
	maxTokens      = 1000
)

const extractionPrompt = `Analyze this ticket image and return the extracted information as JSON:

{
  "type": "flight|train|concert|theater|generic",
  "title": "event title",
  "start": {
    "datetime": "2025-01-01T10:00:00",
    "timezone": "Asia/Shanghai"
  },
  "end": {
    "datetime": "2025-01-01T12:00:00",
    "timezone": "Asia/Shanghai"
  },
  "location": {
    "name": "venue name",
    "address": "street address"
  },
  "details": {
    "seat": "seat info",
    "gate": "gate or entrance",
    "reference": "booking reference or PNR"
  },
  "confidence": 0.9
}

Rules:
1. Pick the type field from the ticket kind.
2. Datetimes must be ISO 8601 local times; timezone must be an IANA zone name inferred from the location.
3. Set fields you cannot read to null.
4. confidence is your own certainty in [0,1].
5. Return only the JSON object, no other text.`

// Client calls the OpenAI chat-completions vision endpoint directly.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

func NewClient(cfg config.OpenAIConfig) *Client {
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
	}
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Extract sends the image with the extraction prompt and parses the
// model's reply as TicketData. Transport failures, API errors and
// non-conforming replies all surface as a single error; there is no
// retry.
func (c *Client) Extract(ctx context.Context, image []byte) (*models.TicketData, error) {
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, errors.New("openai api key is not configured")
	}

	payload := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: extractionPrompt},
					{Type: "image_url", ImageURL: &imageURL{
						URL: "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(image),
					}},
				},
			},
		},
		MaxTokens: maxTokens,
	}

	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("encode vision payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", buf)
	if err != nil {
		return nil, fmt.Errorf("create vision request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vision request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, c.decodeAPIError(resp)
	}

	var response chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode vision response: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, errors.New("vision response contained no choices")
	}

	return parseTicket(response.Choices[0].Message.Content)
}

// parseTicket decodes the model reply into TicketData, tolerating a
// markdown code fence around the JSON object.
func parseTicket(content string) (*models.TicketData, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var ticket models.TicketData
	if err := json.Unmarshal([]byte(content), &ticket); err != nil {
		return nil, fmt.Errorf("parse ticket data: %w", err)
	}
	if ticket.Title == "" || ticket.Start.DateTime == "" {
		return nil, errors.New("ticket data missing title or start time")
	}
	return &ticket, nil
}

func (c *Client) decodeAPIError(resp *http.Response) error {
	var apiErr struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}

	body, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return fmt.Errorf("openai api error: status %d type %s message %s",
			resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
	}
	return fmt.Errorf("openai api error: status %d body %s", resp.StatusCode, string(body))
}
