package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/yungbote/othello-backend/internal/consent"
	"github.com/yungbote/othello-backend/internal/logger"
	"github.com/yungbote/othello-backend/internal/types"
	"github.com/yungbote/othello-backend/internal/utils"
)

// RawAISuggestion is one suggestion as the model emits it, before gating.
type RawAISuggestion struct {
	Action      string `json:"action"`
	Reasoning   string `json:"reasoning"`
	ConsentTier string `json:"consent_tier"`
}

// AIResult is a completed conversational turn from the provider.
type AIResult struct {
	Response    string
	Suggestions []RawAISuggestion
	RawResponse string
}

type AIClient interface {
	Complete(ctx context.Context, userMessage string, profile *types.UserProfile, history []*types.ConversationMessage, extra map[string]any) (*AIResult, error)
	ExtractSuggestions(ctx context.Context, userMessage, assistantResponse string, profile *types.UserProfile) ([]RawAISuggestion, error)
}

const systemPromptTemplate = `You are Othello, an ethics-first AI chat companion. You provide personalized assistance while respecting ethical boundaries and user autonomy.

Your role:
1. Engage in thoughtful, empathetic conversation with the user.
2. Provide helpful and honest responses to their questions and concerns.
3. Generate actionable suggestions when appropriate, clearly separated from conversational response.
4. Always consider the user's wellbeing, autonomy, and consent preferences.

User Profile Context:
%s

Guidelines:
- Be warm, direct, and respectful.
- Acknowledge emotions before offering solutions.
- When generating suggestions, make them specific and actionable.
- Always explain the reasoning behind suggestions.
- Respect the user's consent tier: %s
  - Passive: Only observe and respond conversationally, minimal suggestions.
  - Suggestive: Offer gentle suggestions the user can easily ignore.
  - Active: Proactively suggest actions and follow up on them.
  - Autonomous: Take initiative in suggesting comprehensive action plans.

IMPORTANT: When you have actionable suggestions, include them in your response in the following JSON block format at the END of your response (after your conversational text):

` + "```suggestions" + `
[
  {
    "action": "Brief description of the suggested action",
    "reasoning": "Why this action is beneficial and ethical",
    "consent_tier": "Passive|Suggestive|Active|Autonomous"
  }
]
` + "```" + `

If you have no suggestions, do not include the suggestions block. Only include suggestions that are genuinely helpful and appropriate for the conversation.`

const extractionPromptTemplate = `Based on the following conversation, extract any actionable suggestions that could help the user. For each suggestion, provide:
1. A clear action description
2. Ethical reasoning for why this is appropriate
3. The minimum consent tier required (Passive/Suggestive/Active/Autonomous)

Respond ONLY with a JSON array. If no suggestions are appropriate, respond with an empty array [].

Conversation:
User: %s
Assistant: %s

User Profile:
%s

Current consent tier: %s`

const suggestionMarker = "```suggestions"

// Prompt context keeps only the tail of the fetched history.
const promptHistoryLimit = 10

type openAIClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client

	maxRetries  int
	backoffBase time.Duration
	backoffMax  time.Duration
}

func NewOpenAIClient(log *logger.Logger) (AIClient, error) {
	clientLog := log.With("service", "OpenAIClient")

	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}

	baseURL := utils.GetEnv("OPENAI_BASE_URL", "https://api.openai.com", clientLog)
	model := utils.GetEnv("OPENAI_MODEL", "gpt-4-turbo-preview", clientLog)

	timeoutSec := utils.GetEnvAsInt("OPENAI_TIMEOUT_SECONDS", 30, clientLog)
	if timeoutSec <= 0 {
		timeoutSec = 30
	}
	maxRetries := utils.GetEnvAsInt("OPENAI_MAX_RETRIES", 3, clientLog)
	if maxRetries < 0 {
		maxRetries = 3
	}

	return &openAIClient{
		log:         clientLog,
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		httpClient:  &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries:  maxRetries,
		backoffBase: 1 * time.Second,
		backoffMax:  10 * time.Second,
	}, nil
}

type openAIHTTPError struct {
	StatusCode int
	Body       string
}

func (e *openAIHTTPError) Error() string {
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func isRetryableHTTP(code int) bool {
	if code == 408 || code == 429 {
		return true
	}
	return code >= 500 && code <= 599
}

func isRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var httpErr *openAIHTTPError
	if errors.As(err, &httpErr) {
		return isRetryableHTTP(httpErr.StatusCode)
	}
	// Connection resets and refused dials surface as *url.Error.
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

func jitterSleep(base time.Duration) time.Duration {
	// +/- 20%
	if base <= 0 {
		return 0
	}
	j := 0.2
	delta := base.Seconds() * j
	low := base.Seconds() - delta
	high := base.Seconds() + delta
	if low < 0 {
		low = 0
	}
	v := low + rand.Float64()*(high-low)
	return time.Duration(v * float64(time.Second))
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	TopP        float64       `json:"top_p"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *openAIClient) doOnce(ctx context.Context, body any) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &openAIHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return raw, nil
}

// call runs one chat completion with bounded retry on transient failures:
// timeouts, connection errors, 429 and 5xx. Terminal errors surface at once.
func (c *openAIClient) call(ctx context.Context, messages []chatMessage) (*chatCompletionResponse, error) {
	request := chatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   1500,
		TopP:        0.9,
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.backoffBase << (attempt - 1)
			if backoff > c.backoffMax {
				backoff = c.backoffMax
			}
			sleep := jitterSleep(backoff)
			c.log.Warn("Retrying OpenAI call", "attempt", attempt, "backoff", sleep.String(), "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(sleep):
			}
		}

		raw, err := c.doOnce(ctx, request)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isRetryableErr(err) {
				continue
			}
			return nil, err
		}

		var parsed chatCompletionResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return nil, fmt.Errorf("decode completion: %w", err)
		}
		if len(parsed.Choices) == 0 {
			return nil, fmt.Errorf("completion returned no choices")
		}
		return &parsed, nil
	}
	return nil, fmt.Errorf("openai call failed after %d retries: %w", c.maxRetries, lastErr)
}

func (c *openAIClient) Complete(ctx context.Context, userMessage string, profile *types.UserProfile, history []*types.ConversationMessage, extra map[string]any) (*AIResult, error) {
	consentTier := consent.TierPassive
	if profile != nil && profile.ConsentTier != "" {
		consentTier = profile.ConsentTier
	}
	systemPrompt := fmt.Sprintf(systemPromptTemplate, formatProfileContext(profile), consentTier)

	messages := []chatMessage{{Role: types.RoleSystem, Content: systemPrompt}}

	if len(history) > promptHistoryLimit {
		history = history[len(history)-promptHistoryLimit:]
	}
	for _, msg := range history {
		if msg.Role == types.RoleUser || msg.Role == types.RoleAssistant {
			messages = append(messages, chatMessage{Role: msg.Role, Content: msg.Content})
		}
	}

	if len(extra) > 0 {
		if note, err := json.Marshal(extra); err == nil {
			messages = append(messages, chatMessage{Role: types.RoleSystem, Content: "Additional context: " + string(note)})
		}
	}

	messages = append(messages, chatMessage{Role: types.RoleUser, Content: userMessage})

	c.log.Info("Generating AI response", "model", c.model, "message_count", len(messages), "consent_tier", consentTier)
	completion, err := c.call(ctx, messages)
	if err != nil {
		return nil, err
	}

	rawResponse := completion.Choices[0].Message.Content
	responseText, suggestions := parseCompletionResponse(rawResponse, c.log)

	c.log.Info("AI response generated",
		"response_length", len(responseText),
		"suggestion_count", len(suggestions),
		"total_tokens", completion.Usage.TotalTokens,
	)

	return &AIResult{
		Response:    strings.TrimSpace(responseText),
		Suggestions: suggestions,
		RawResponse: rawResponse,
	}, nil
}

func (c *openAIClient) ExtractSuggestions(ctx context.Context, userMessage, assistantResponse string, profile *types.UserProfile) ([]RawAISuggestion, error) {
	consentTier := consent.TierPassive
	if profile != nil && profile.ConsentTier != "" {
		consentTier = profile.ConsentTier
	}
	prompt := fmt.Sprintf(extractionPromptTemplate, userMessage, assistantResponse, formatProfileContext(profile), consentTier)

	c.log.Info("Extracting suggestions via separate API call", "model", c.model)
	completion, err := c.call(ctx, []chatMessage{{Role: types.RoleUser, Content: prompt}})
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(completion.Choices[0].Message.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	return parseSuggestionArray(strings.TrimSpace(content), c.log), nil
}

// parseCompletionResponse splits conversational text from a trailing
// ```suggestions fenced JSON block, if present.
func parseCompletionResponse(rawResponse string, log *logger.Logger) (string, []RawAISuggestion) {
	responseText := rawResponse
	var suggestions []RawAISuggestion

	if idx := strings.Index(rawResponse, suggestionMarker); idx >= 0 {
		responseText = strings.TrimSpace(rawResponse[:idx])
		block := rawResponse[idx+len(suggestionMarker):]
		if end := strings.Index(block, "```"); end >= 0 {
			block = block[:end]
		}
		suggestions = parseSuggestionArray(strings.TrimSpace(block), log)
	}
	return responseText, suggestions
}

func parseSuggestionArray(raw string, log *logger.Logger) []RawAISuggestion {
	if raw == "" {
		return nil
	}
	var parsed []RawAISuggestion
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		if log != nil {
			preview := raw
			if len(preview) > 500 {
				preview = preview[:500]
			}
			log.Warn("Failed to parse suggestions from AI response", "error", err, "suggestion_block", preview)
		}
		return nil
	}

	valid := make([]RawAISuggestion, 0, len(parsed))
	for _, suggestion := range parsed {
		if normalized, ok := normalizeSuggestion(suggestion); ok {
			valid = append(valid, normalized)
		}
	}
	return valid
}

func normalizeSuggestion(suggestion RawAISuggestion) (RawAISuggestion, bool) {
	action := strings.TrimSpace(suggestion.Action)
	if action == "" {
		return RawAISuggestion{}, false
	}
	reasoning := strings.TrimSpace(suggestion.Reasoning)
	if reasoning == "" {
		reasoning = "No reasoning provided."
	}
	tier := suggestion.ConsentTier
	if !consent.IsValidTier(tier) {
		tier = consent.TierSuggestive
	}
	return RawAISuggestion{Action: action, Reasoning: reasoning, ConsentTier: tier}, true
}

func formatProfileContext(profile *types.UserProfile) string {
	if profile == nil {
		return "No profile data available yet."
	}

	var parts []string
	if profile.DisplayName != "" {
		parts = append(parts, "Name: "+profile.DisplayName)
	}
	if section := formatJSONMap("Traits", profile.Traits); section != "" {
		parts = append(parts, section)
	}
	if section := formatJSONMap("Preferences", profile.Preferences); section != "" {
		parts = append(parts, section)
	}
	if section := formatJSONMap("Behavioral Patterns", profile.BehavioralPatterns); section != "" {
		parts = append(parts, section)
	}
	if profile.ContextSummary != "" {
		parts = append(parts, "Context: "+profile.ContextSummary)
	}

	if len(parts) == 0 {
		return "No profile data available yet."
	}
	return strings.Join(parts, "\n")
}

func formatJSONMap(label string, raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var values map[string]any
	if err := json.Unmarshal(raw, &values); err != nil || len(values) == 0 {
		return ""
	}
	pairs := make([]string, 0, len(values))
	for key, value := range values {
		pairs = append(pairs, fmt.Sprintf("%s: %v", key, value))
	}
	sort.Strings(pairs)
	return label + ": " + strings.Join(pairs, ", ")
}
