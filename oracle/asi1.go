package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vitwit/enspay/types"
)

const (
	defaultBaseURL = "https://api.asi1.ai/v1"
	defaultModel   = "asi1-mini"
	maxRetries     = 3
	initialDelay   = time.Second

	// Confidence assigned when the oracle answers with well-formed JSON
	// but omits its own confidence, and when the marker heuristic had to
	// recover fields from a prose answer. Oracle-derived confidence must
	// stay above the 0.6 pattern-fallback baseline.
	jsonConfidence   = 0.8
	markerConfidence = 0.7
)

var (
	markerAmountRe    = regexp.MustCompile(`amount[:\s]+(\d+(?:\.\d+)?)`)
	markerRecipientRe = regexp.MustCompile(`recipient[:\s]+([a-zA-Z0-9-]+\.eth)`)
)

var _ Oracle = (*ASI1Client)(nil)

// ASI1Client calls the ASI1 chat-completions API.
type ASI1Client struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
	delay   time.Duration
}

type ASI1Option func(*ASI1Client)

func WithBaseURL(url string) ASI1Option {
	return func(c *ASI1Client) { c.baseURL = strings.TrimSuffix(url, "/") }
}

func WithHTTPClient(hc *http.Client) ASI1Option {
	return func(c *ASI1Client) { c.client = hc }
}

func NewASI1Client(apiKey string, opts ...ASI1Option) *ASI1Client {
	c := &ASI1Client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		client:  &http.Client{Timeout: 30 * time.Second},
		delay:   initialDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// intentWire is the JSON shape the system prompt asks the oracle for.
type intentWire struct {
	Success    bool        `json:"success"`
	Amount     json.Number `json:"amount"`
	Recipient  string      `json:"recipient"`
	Token      string      `json:"token"`
	Error      string      `json:"error"`
	Confidence float64     `json:"confidence"`
	Reasoning  string      `json:"reasoning"`
}

func (c *ASI1Client) ParsePaymentIntent(ctx context.Context, prompt string, octx Context) (types.PaymentIntent, error) {
	reply, err := c.chatCompletion(ctx, intentSystemPrompt(octx), prompt, 0.1, 250)
	if err != nil {
		return types.PaymentIntent{}, err
	}
	return parseOracleReply(reply), nil
}

func (c *ASI1Client) ChatResponse(ctx context.Context, message string, octx Context) (string, error) {
	return c.chatCompletion(ctx, chatSystemPrompt(octx), message, 0.7, 300)
}

func (c *ASI1Client) chatCompletion(ctx context.Context, system, user string, temperature float64, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", &types.Error{Code: types.ErrOracleUnavailable, Message: "oracle API key not configured"}
	}

	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.delay << (attempt - 1)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return "", fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("oracle request failed: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read oracle response: %w", err)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("oracle returned status %d", resp.StatusCode)
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return "", &types.Error{
				Code:    types.ErrOracleUnavailable,
				Message: fmt.Sprintf("oracle returned status %d", resp.StatusCode),
			}
		}

		var parsed chatResponse
		if err := json.Unmarshal(respBody, &parsed); err != nil {
			return "", fmt.Errorf("decode oracle response: %w", err)
		}
		if len(parsed.Choices) == 0 {
			return "", &types.Error{Code: types.ErrOracleUnavailable, Message: "oracle returned no choices"}
		}
		return parsed.Choices[0].Message.Content, nil
	}

	return "", &types.Error{Code: types.ErrOracleUnavailable, Message: "oracle unavailable", Err: lastErr}
}

// parseOracleReply turns the oracle's text into a PaymentIntent: JSON when
// the reply is JSON-shaped, otherwise a marker-extraction heuristic before
// declaring the reply unusable.
func parseOracleReply(reply string) types.PaymentIntent {
	trimmed := strings.TrimSpace(reply)
	if strings.HasPrefix(trimmed, "{") {
		var wire intentWire
		if err := json.Unmarshal([]byte(trimmed), &wire); err == nil {
			return intentFromWire(wire)
		}
	}

	lower := strings.ToLower(trimmed)
	amountMatch := markerAmountRe.FindStringSubmatch(lower)
	recipientMatch := markerRecipientRe.FindStringSubmatch(lower)
	if amountMatch != nil && recipientMatch != nil {
		amount, err := decimal.NewFromString(amountMatch[1])
		if err == nil {
			return types.PaymentIntent{
				Success:    true,
				Amount:     amount,
				Recipient:  recipientMatch[1],
				Token:      "USDC",
				Confidence: markerConfidence,
				Method:     types.ParseMethodMarkers,
			}
		}
	}

	return types.PaymentIntent{
		Success: false,
		Error:   "oracle could not parse payment intent",
		Method:  types.ParseMethodOracle,
	}
}

func intentFromWire(wire intentWire) types.PaymentIntent {
	intent := types.PaymentIntent{
		Success:    wire.Success,
		Recipient:  strings.ToLower(wire.Recipient),
		Token:      wire.Token,
		Error:      wire.Error,
		Confidence: wire.Confidence,
		Method:     types.ParseMethodOracle,
	}
	if intent.Token == "" {
		intent.Token = "USDC"
	}
	if intent.Confidence == 0 && wire.Success {
		intent.Confidence = jsonConfidence
	}
	if wire.Amount != "" {
		if amount, err := decimal.NewFromString(wire.Amount.String()); err == nil {
			intent.Amount = amount
		}
	}
	return intent
}

func intentSystemPrompt(octx Context) string {
	var sb strings.Builder
	sb.WriteString(`You are a payment intent parser for an ENS payment agent.

Extract payment information from user messages and return a JSON object with these fields:
- success: boolean (true if payment intent found)
- amount: number (amount to send)
- recipient: string (ENS name like "vitalik.eth")
- token: string (always "USDC")
- error: string (if parsing failed)
- confidence: number (0.0-1.0, parsing confidence)
- reasoning: string (brief explanation of parsing logic)

Examples:
Input: "Send 5 USDC to alice.eth"
Output: {"success": true, "amount": 5, "recipient": "alice.eth", "token": "USDC", "confidence": 0.95, "reasoning": "Clear payment command with valid ENS and amount"}

Input: "Hello there"
Output: {"success": false, "error": "No payment intent found", "confidence": 0.0, "reasoning": "Greeting message, no payment elements detected"}

Validation rules:
- ENS names must end in .eth
- Amounts must be positive numbers
- Be more confident if the recipient is a known ENS name`)

	if len(octx.KnownAliases) > 0 || len(octx.RecentFacts) > 0 {
		sb.WriteString("\n\nKnowledge context:\n")
		if len(octx.KnownAliases) > 0 {
			sb.WriteString(fmt.Sprintf("- Known ENS names: %s\n", strings.Join(octx.KnownAliases, ", ")))
		}
		if len(octx.RecentFacts) > 0 {
			sb.WriteString(fmt.Sprintf("- Recent facts: %s\n", strings.Join(octx.RecentFacts, " ")))
		}
	}
	return sb.String()
}

func chatSystemPrompt(octx Context) string {
	var sb strings.Builder
	sb.WriteString(`You are an ENS payment assistant.

Key capabilities:
- Process payment commands like "Send 5 USDC to alice.eth"
- Check balances and provide helpful information
- Explain ENS names and USDC transactions

Keep responses concise and helpful. Always mention that transactions need wallet approval.`)

	if len(octx.RecentFacts) > 0 {
		sb.WriteString(fmt.Sprintf("\n\nRecent observations: %s", strings.Join(octx.RecentFacts, " ")))
	}
	return sb.String()
}
