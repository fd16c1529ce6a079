package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/othello-backend/internal/consent"
	"github.com/yungbote/othello-backend/internal/types"
)

func newTestOpenAIClient(baseURL string) *openAIClient {
	return &openAIClient{
		log:         newTestLogger(),
		baseURL:     baseURL,
		apiKey:      "test-key",
		model:       "test-model",
		httpClient:  &http.Client{Timeout: 5 * time.Second},
		maxRetries:  3,
		backoffBase: time.Millisecond,
		backoffMax:  5 * time.Millisecond,
	}
}

func completionBody(content string) string {
	body := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
		"usage": map[string]any{"total_tokens": 42},
	}
	raw, _ := json.Marshal(body)
	return string(raw)
}

func TestParseCompletionResponse(t *testing.T) {
	tests := []struct {
		name            string
		raw             string
		wantResponse    string
		wantSuggestions int
	}{
		{
			name:         "no suggestions block",
			raw:          "Just a friendly reply.",
			wantResponse: "Just a friendly reply.",
		},
		{
			name: "trailing suggestions block",
			raw: "Here is my advice.\n\n```suggestions\n" +
				`[{"action":"Take a walk","reasoning":"Movement helps.","consent_tier":"Suggestive"}]` +
				"\n```",
			wantResponse:    "Here is my advice.",
			wantSuggestions: 1,
		},
		{
			name:         "malformed block yields text only",
			raw:          "Reply.\n```suggestions\nnot json\n```",
			wantResponse: "Reply.",
		},
		{
			name: "unterminated fence still parses",
			raw: "Reply.\n```suggestions\n" +
				`[{"action":"Stretch","reasoning":"Gentle.","consent_tier":"Passive"}]`,
			wantResponse:    "Reply.",
			wantSuggestions: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			response, suggestions := parseCompletionResponse(tt.raw, newTestLogger())
			if response != tt.wantResponse {
				t.Errorf("response = %q, want %q", response, tt.wantResponse)
			}
			if len(suggestions) != tt.wantSuggestions {
				t.Errorf("suggestions = %d, want %d", len(suggestions), tt.wantSuggestions)
			}
		})
	}
}

func TestNormalizeSuggestion(t *testing.T) {
	tests := []struct {
		name     string
		in       RawAISuggestion
		wantOK   bool
		wantTier string
		wantWhy  string
	}{
		{
			name:     "valid passes through",
			in:       RawAISuggestion{Action: "Walk", Reasoning: "Helps.", ConsentTier: consent.TierActive},
			wantOK:   true,
			wantTier: consent.TierActive,
			wantWhy:  "Helps.",
		},
		{
			name:   "empty action dropped",
			in:     RawAISuggestion{Action: "   ", Reasoning: "Helps.", ConsentTier: consent.TierActive},
			wantOK: false,
		},
		{
			name:     "missing reasoning filled",
			in:       RawAISuggestion{Action: "Walk", ConsentTier: consent.TierPassive},
			wantOK:   true,
			wantTier: consent.TierPassive,
			wantWhy:  "No reasoning provided.",
		},
		{
			name:     "invalid tier coerced",
			in:       RawAISuggestion{Action: "Walk", Reasoning: "Helps.", ConsentTier: "Turbo"},
			wantOK:   true,
			wantTier: consent.TierSuggestive,
			wantWhy:  "Helps.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := normalizeSuggestion(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.ConsentTier != tt.wantTier {
				t.Errorf("ConsentTier = %q, want %q", got.ConsentTier, tt.wantTier)
			}
			if got.Reasoning != tt.wantWhy {
				t.Errorf("Reasoning = %q, want %q", got.Reasoning, tt.wantWhy)
			}
		})
	}
}

func TestFormatProfileContext(t *testing.T) {
	if got := formatProfileContext(nil); got != "No profile data available yet." {
		t.Errorf("nil profile = %q", got)
	}

	traits, _ := json.Marshal(map[string]any{"mood": "calm", "energy": "low"})
	profile := &types.UserProfile{
		DisplayName:    "Ada",
		Traits:         datatypes.JSON(traits),
		ContextSummary: "Likes short answers.",
	}
	got := formatProfileContext(profile)
	if !strings.Contains(got, "Name: Ada") {
		t.Errorf("missing name: %q", got)
	}
	if !strings.Contains(got, "Traits: energy: low, mood: calm") {
		t.Errorf("traits not sorted deterministically: %q", got)
	}
	if !strings.Contains(got, "Context: Likes short answers.") {
		t.Errorf("missing context summary: %q", got)
	}
}

func TestCompleteRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("Hello there.")))
	}))
	defer server.Close()

	client := newTestOpenAIClient(server.URL)
	result, err := client.Complete(context.Background(), "hi", nil, nil, nil)
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if result.Response != "Hello there." {
		t.Errorf("Response = %q", result.Response)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("server calls = %d, want 3", got)
	}
}

func TestCompleteTerminalErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer server.Close()

	client := newTestOpenAIClient(server.URL)
	if _, err := client.Complete(context.Background(), "hi", nil, nil, nil); err == nil {
		t.Fatal("Complete() did not surface auth failure")
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("server calls = %d, want 1", got)
	}
}

func TestCompleteExhaustsRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestOpenAIClient(server.URL)
	if _, err := client.Complete(context.Background(), "hi", nil, nil, nil); err == nil {
		t.Fatal("Complete() did not fail after retry budget")
	}
	if got := calls.Load(); got != 4 {
		t.Errorf("server calls = %d, want initial attempt plus 3 retries", got)
	}
}

func TestExtractSuggestionsStripsCodeFence(t *testing.T) {
	content := "```json\n" +
		`[{"action":"Journal tonight","reasoning":"Reflection helps.","consent_tier":"Suggestive"}]` +
		"\n```"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody(content)))
	}))
	defer server.Close()

	client := newTestOpenAIClient(server.URL)
	suggestions, err := client.ExtractSuggestions(context.Background(), "hi", "hello", nil)
	if err != nil {
		t.Fatalf("ExtractSuggestions() error = %v", err)
	}
	if len(suggestions) != 1 {
		t.Fatalf("suggestions = %d, want 1", len(suggestions))
	}
	if suggestions[0].Action != "Journal tonight" {
		t.Errorf("Action = %q", suggestions[0].Action)
	}
}

func TestCompleteSendsHistoryTail(t *testing.T) {
	var captured chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(completionBody("ok")))
	}))
	defer server.Close()

	history := make([]*types.ConversationMessage, 0, promptHistoryLimit+5)
	for i := 0; i < promptHistoryLimit+5; i++ {
		role := types.RoleUser
		if i%2 == 1 {
			role = types.RoleAssistant
		}
		history = append(history, &types.ConversationMessage{Role: role, Content: "turn"})
	}

	client := newTestOpenAIClient(server.URL)
	if _, err := client.Complete(context.Background(), "latest", nil, history, nil); err != nil {
		t.Fatal(err)
	}

	// system prompt + capped history + new user message
	want := 1 + promptHistoryLimit + 1
	if len(captured.Messages) != want {
		t.Errorf("request messages = %d, want %d", len(captured.Messages), want)
	}
	if captured.Messages[len(captured.Messages)-1].Content != "latest" {
		t.Error("new user message is not last")
	}
}
