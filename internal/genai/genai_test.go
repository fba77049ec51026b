package genai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// mockChatService implements chatService for testing.
type mockChatService struct {
	resp       openai.ChatCompletion
	err        error
	lastParams openai.ChatCompletionNewParams
}

func (m *mockChatService) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	m.lastParams = params
	if m.err != nil {
		return nil, m.err
	}
	return &m.resp, nil
}

func TestGenerateWithMessages_Success(t *testing.T) {
	mockResp := openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "Hello World"}},
		},
	}
	mock := &mockChatService{resp: mockResp}
	client := &Client{chat: mock, model: openai.ChatModelGPT4oMini}
	out, err := client.GenerateWithMessages(context.Background(), []openai.ChatCompletionMessageParamUnion{openai.UserMessage("hi")}, 0.7)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != "Hello World" {
		t.Errorf("expected 'Hello World', got '%s'", out)
	}
	if !mock.lastParams.Temperature.Valid() || mock.lastParams.Temperature.Value != 0.7 {
		t.Errorf("expected temperature 0.7 to be forwarded, got %+v", mock.lastParams.Temperature)
	}
}

func TestGenerateWithMessages_ServiceError(t *testing.T) {
	client := &Client{chat: &mockChatService{err: errors.New("service failure")}, model: openai.ChatModelGPT4oMini}
	_, err := client.GenerateWithMessages(context.Background(), nil, 0.1)
	if err == nil || !strings.Contains(err.Error(), "service failure") {
		t.Errorf("expected service failure error, got %v", err)
	}
}

func TestGenerateWithMessages_NoChoices(t *testing.T) {
	client := &Client{chat: &mockChatService{resp: openai.ChatCompletion{}}, model: openai.ChatModelGPT4oMini}
	_, err := client.GenerateWithMessages(context.Background(), nil, 0.1)
	if !errors.Is(err, ErrNoChoicesReturned) {
		t.Errorf("expected no choices returned error, got %v", err)
	}
}

func TestGenerateStructured_SetsSchema(t *testing.T) {
	mockResp := openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: `{"glucose": 120}`}},
		},
	}
	mock := &mockChatService{resp: mockResp}
	client := &Client{chat: mock, model: openai.ChatModelGPT4oMini}
	schema := map[string]any{"type": "object"}
	out, err := client.GenerateStructured(context.Background(), nil, "extracted_facts", schema, 0.1)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if out != `{"glucose": 120}` {
		t.Errorf("unexpected content: %s", out)
	}
	rf := mock.lastParams.ResponseFormat.OfJSONSchema
	if rf == nil {
		t.Fatal("expected JSON schema response format to be set")
	}
	if rf.JSONSchema.Name != "extracted_facts" {
		t.Errorf("expected schema name extracted_facts, got %s", rf.JSONSchema.Name)
	}
}

func TestNewClient_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	_, err := NewClient()
	if !errors.Is(err, ErrAPIKeyMissing) {
		t.Errorf("expected ErrAPIKeyMissing when API key not provided, got %v", err)
	}
}

func TestNewClient_WithKey(t *testing.T) {
	cli, err := NewClient(WithAPIKey("test-key"))
	if err != nil {
		t.Fatalf("expected no error with API key, got %v", err)
	}
	if cli == nil {
		t.Error("expected client instance, got nil")
	}
}
