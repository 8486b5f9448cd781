package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeChatCreator struct {
	mu    sync.Mutex
	calls []chatCallRecord
	queue map[string][]fakeChatResponse
}

type chatCallRecord struct {
	model  string
	config *genai.GenerateContentConfig
	chat   *fakeChat
}

type fakeChatResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeChat struct {
	mu       sync.Mutex
	response fakeChatResponse
	messages []string
}

func (f *fakeChat) SendMessage(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, part := range parts {
		f.messages = append(f.messages, part.Text)
	}
	return f.response.resp, f.response.err
}

func newFakeChatCreator() *fakeChatCreator {
	return &fakeChatCreator{queue: make(map[string][]fakeChatResponse)}
}

func (f *fakeChatCreator) enqueue(model string, resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue[model] = append(f.queue[model], fakeChatResponse{resp: resp, err: err})
}

func (f *fakeChatCreator) Create(_ context.Context, model string, config *genai.GenerateContentConfig, _ []*genai.Content) (chatSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	responses := f.queue[model]
	if len(responses) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := responses[0]
	f.queue[model] = responses[1:]
	chat := &fakeChat{response: res}
	f.calls = append(f.calls, chatCallRecord{model: model, config: config, chat: chat})
	return chat, nil
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, text := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: text})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func newTestGenerator(chats chatCreator, maxRetries int) *Generator {
	return &Generator{chats: chats, model: "gemini-test", maxRetries: maxRetries, logger: zap.NewNop()}
}

func TestGeneratorRetries(t *testing.T) {
	internal := genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"}
	badRequest := genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}
	longQuota := genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	}
	shortQuota := genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry in 0s",
	}

	tests := []struct {
		name       string
		maxRetries int
		errs       []error
		wantCalls  int
		wantErr    bool
	}{
		{name: "server error then success", maxRetries: 2, errs: []error{internal, nil}, wantCalls: 2},
		{name: "retries exhausted", maxRetries: 2, errs: []error{internal, internal}, wantCalls: 2, wantErr: true},
		{name: "long quota delay", maxRetries: 3, errs: []error{longQuota}, wantCalls: 1, wantErr: true},
		{name: "short quota delay", maxRetries: 3, errs: []error{shortQuota, nil}, wantCalls: 2},
		{name: "client error", maxRetries: 3, errs: []error{badRequest}, wantCalls: 1, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chats := newFakeChatCreator()
			for _, err := range tt.errs {
				if err != nil {
					chats.enqueue("gemini-test", nil, err)
					continue
				}
				chats.enqueue("gemini-test", textResponse("fit"), nil)
			}

			output, err := newTestGenerator(chats, tt.maxRetries).GenerateContent(context.Background(), "system", "posting")
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				var apiErr genai.APIError
				if !errors.As(err, &apiErr) {
					t.Fatalf("expected wrapped api error, got %v", err)
				}
			} else {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if output != "fit" {
					t.Fatalf("unexpected output: %q", output)
				}
			}

			if len(chats.calls) != tt.wantCalls {
				t.Fatalf("expected %d calls, got %d", tt.wantCalls, len(chats.calls))
			}
		})
	}
}

func TestGeneratorSendsSystemAndMessage(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-test", textResponse("first", " ", "second"), nil)

	output, err := newTestGenerator(chats, 1).GenerateContent(context.Background(), "be strict", "Go Developer at Acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output != "first\nsecond" {
		t.Fatalf("unexpected output: %q", output)
	}

	call := chats.calls[0]
	if call.model != "gemini-test" {
		t.Fatalf("unexpected model %q", call.model)
	}
	if call.config == nil || call.config.SystemInstruction == nil || call.config.SystemInstruction.Parts[0].Text != "be strict" {
		t.Fatalf("expected system instruction, got %+v", call.config)
	}
	if len(call.chat.messages) != 1 || call.chat.messages[0] != "Go Developer at Acme" {
		t.Fatalf("unexpected chat messages: %+v", call.chat.messages)
	}
}

func TestGeneratorWithoutSystemInstruction(t *testing.T) {
	chats := newFakeChatCreator()
	chats.enqueue("gemini-test", textResponse("ok"), nil)

	if _, err := newTestGenerator(chats, 1).GenerateContent(context.Background(), "", "posting"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg := chats.calls[0].config; cfg != nil && cfg.SystemInstruction != nil {
		t.Fatalf("expected no system instruction for empty system prompt")
	}
}

func TestGeneratorRejectsEmptyMessage(t *testing.T) {
	if _, err := newTestGenerator(newFakeChatCreator(), 1).GenerateContent(context.Background(), "sys", "   "); err == nil {
		t.Fatal("expected error for empty message")
	}
}
