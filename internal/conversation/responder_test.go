package conversation

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/jaspers-market/chatbridge/internal/orders"
	"github.com/jaspers-market/chatbridge/pkg/logging"
)

// stubChatClient returns a fixed completion (or error) and records the
// requests it received.
type stubChatClient struct {
	mu       sync.Mutex
	reply    string
	err      error
	requests []openai.ChatCompletionRequest
}

func (c *stubChatClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()
	if c.err != nil {
		return openai.ChatCompletionResponse{}, c.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: c.reply}},
		},
	}, nil
}

type stubRetriever struct {
	fragment string
	err      error
	queries  []string
}

func (r *stubRetriever) ContextForQuery(_ context.Context, query string) (string, error) {
	r.queries = append(r.queries, query)
	return r.fragment, r.err
}

type recordingAppender struct {
	mu      sync.Mutex
	err     error
	records []orders.Record
}

func (a *recordingAppender) AppendOrder(_ context.Context, rec orders.Record) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	a.records = append(a.records, rec)
	return nil
}

func (a *recordingAppender) appended() []orders.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]orders.Record(nil), a.records...)
}

func testLogger() *logging.Logger {
	return logging.NewWithWriter("error", os.Stderr)
}

const confirmedCompletion = "Parfait Jean, votre commande est confirmée ! 🎉\n" +
	"```json\n" +
	`{"order_confirmed": true, "customer_name": "Jean", "phone_number": "0612345678", "address": "10 rue de la Paix", "items": "2x Yassa poulet", "total": "7000 FCFA"}` +
	"\n```\n" +
	"Nous vous livrons très vite."

func TestReply_ConfirmedOrderIsPersistedOnceAndStripped(t *testing.T) {
	client := &stubChatClient{reply: confirmedCompletion}
	appender := &recordingAppender{}
	responder := NewResponder(client, appender, "", testLogger())

	reply := responder.Reply(context.Background(),
		"Oui c'est bon, je m'appelle Jean, 0612345678, 10 rue de la Paix")

	if strings.Contains(reply, "```") || strings.Contains(reply, "order_confirmed") {
		t.Fatalf("structured block leaked into visible reply: %q", reply)
	}
	if !strings.Contains(reply, "confirmée") {
		t.Fatalf("expected surrounding prose preserved, got %q", reply)
	}

	records := appender.appended()
	if len(records) != 1 {
		t.Fatalf("expected exactly one persisted order, got %d", len(records))
	}
	rec := records[0]
	if rec.CustomerName != "Jean" || rec.PhoneNumber != "0612345678" || rec.Address != "10 rue de la Paix" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.Status != orders.StatusReceived {
		t.Fatalf("expected status %q, got %q", orders.StatusReceived, rec.Status)
	}
}

func TestReply_LLMFailureReturnsFallback(t *testing.T) {
	client := &stubChatClient{err: errors.New("upstream 500")}
	appender := &recordingAppender{}
	responder := NewResponder(client, appender, "", testLogger())

	reply := responder.Reply(context.Background(), "Bonjour")

	if reply != FallbackMessage {
		t.Fatalf("expected fallback message, got %q", reply)
	}
	if len(appender.appended()) != 0 {
		t.Fatal("no order should be persisted on completion failure")
	}
}

func TestReply_NoChoicesReturnsFallback(t *testing.T) {
	client := &emptyChoicesClient{}
	responder := NewResponder(client, &recordingAppender{}, "", testLogger())

	if reply := responder.Reply(context.Background(), "Bonjour"); reply != FallbackMessage {
		t.Fatalf("expected fallback message, got %q", reply)
	}
}

type emptyChoicesClient struct{}

func (emptyChoicesClient) CreateChatCompletion(context.Context, openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return openai.ChatCompletionResponse{}, nil
}

func TestReply_RetrieverFailureReturnsFallbackWithoutLLMCall(t *testing.T) {
	client := &stubChatClient{reply: "jamais atteint"}
	retriever := &stubRetriever{err: errors.New("index unavailable")}
	responder := NewResponder(client, &recordingAppender{}, "", testLogger(), WithRetriever(retriever))

	reply := responder.Reply(context.Background(), "Avez-vous du yassa ?")

	if reply != FallbackMessage {
		t.Fatalf("expected fallback message, got %q", reply)
	}
	if len(client.requests) != 0 {
		t.Fatalf("completion should not run after retrieval failure, got %d calls", len(client.requests))
	}
}

func TestReply_RetrievedFragmentAugmentsSystemPrompt(t *testing.T) {
	client := &stubChatClient{reply: "Nous sommes ouverts jusqu'à 19h."}
	retriever := &stubRetriever{fragment: "INFORMATIONS DU MAGASIN:\n1. Ouvert de 9h à 19h"}
	responder := NewResponder(client, &recordingAppender{}, "", testLogger(), WithRetriever(retriever))

	responder.Reply(context.Background(), "Quels sont vos horaires ?")

	if len(client.requests) != 1 {
		t.Fatalf("expected one completion call, got %d", len(client.requests))
	}
	system := client.requests[0].Messages[0]
	if system.Role != openai.ChatMessageRoleSystem {
		t.Fatalf("first message should be the system prompt, got role %q", system.Role)
	}
	if !strings.Contains(system.Content, "Ouvert de 9h à 19h") {
		t.Fatal("expected retrieved fragment appended to system prompt")
	}
	if !strings.HasPrefix(system.Content, defaultSystemPrompt) {
		t.Fatal("base system prompt must come before the fragment")
	}
}

func TestReply_EmptyFragmentLeavesPromptUntouched(t *testing.T) {
	client := &stubChatClient{reply: "Bonjour !"}
	retriever := &stubRetriever{fragment: ""}
	responder := NewResponder(client, &recordingAppender{}, "", testLogger(), WithRetriever(retriever))

	responder.Reply(context.Background(), "Salut")

	if got := client.requests[0].Messages[0].Content; got != defaultSystemPrompt {
		t.Fatalf("system prompt was modified: %q", got)
	}
}

func TestReply_UnconfirmedBlockNotPersistedButStripped(t *testing.T) {
	client := &stubChatClient{reply: "Je récapitule votre panier.\n```json\n" +
		`{"order_confirmed": false, "customer_name": "", "phone_number": "", "address": "", "items": "1x Mafé", "total": ""}` +
		"\n```"}
	appender := &recordingAppender{}
	responder := NewResponder(client, appender, "", testLogger())

	reply := responder.Reply(context.Background(), "Je voudrais un mafé")

	if len(appender.appended()) != 0 {
		t.Fatal("unconfirmed order must not be persisted")
	}
	if strings.Contains(reply, "```") {
		t.Fatalf("block must be stripped even when discarded: %q", reply)
	}
}

func TestReply_MalformedBlockIsSilentlyDropped(t *testing.T) {
	client := &stubChatClient{reply: "Voici :\n```json\n{broken\n```\nMerci !"}
	appender := &recordingAppender{}
	responder := NewResponder(client, appender, "", testLogger())

	reply := responder.Reply(context.Background(), "ok")

	if len(appender.appended()) != 0 {
		t.Fatal("malformed block must not be persisted")
	}
	if strings.Contains(reply, "{broken") {
		t.Fatalf("malformed block leaked: %q", reply)
	}
	if !strings.Contains(reply, "Merci") {
		t.Fatalf("surrounding text lost: %q", reply)
	}
}

func TestReply_PersistenceFailureStillReturnsVisibleText(t *testing.T) {
	client := &stubChatClient{reply: confirmedCompletion}
	appender := &recordingAppender{err: errors.New("sheets quota exceeded")}
	responder := NewResponder(client, appender, "", testLogger())

	reply := responder.Reply(context.Background(), "oui je confirme")

	if reply == FallbackMessage {
		t.Fatal("persistence failure must not downgrade reply to fallback")
	}
	if !strings.Contains(reply, "confirmée") {
		t.Fatalf("expected visible confirmation, got %q", reply)
	}
}

func TestNewResponder_Defaults(t *testing.T) {
	client := &stubChatClient{reply: "ok"}
	responder := NewResponder(client, nil, "", testLogger())

	responder.Reply(context.Background(), "test")

	req := client.requests[0]
	if req.Model != "llama-3.3-70b-versatile" {
		t.Fatalf("unexpected default model %q", req.Model)
	}
	if req.Temperature != 0.7 {
		t.Fatalf("unexpected default temperature %v", req.Temperature)
	}
	if req.MaxTokens != 800 {
		t.Fatalf("unexpected default max tokens %d", req.MaxTokens)
	}
}

func TestNewResponder_NilClientPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for nil chat client")
		}
	}()
	NewResponder(nil, nil, "", testLogger())
}

func TestReply_SamplingAndPromptOverrides(t *testing.T) {
	client := &stubChatClient{reply: "ok"}
	responder := NewResponder(client, nil, "mixtral-8x7b", testLogger(),
		WithSampling(0.2, 256),
		WithSystemPrompt("Tu es bref."),
	)

	responder.Reply(context.Background(), "test")

	req := client.requests[0]
	if req.Model != "mixtral-8x7b" || req.Temperature != 0.2 || req.MaxTokens != 256 {
		t.Fatalf("overrides not applied: %+v", req)
	}
	if req.Messages[0].Content != "Tu es bref." {
		t.Fatalf("system prompt override not applied: %q", req.Messages[0].Content)
	}
}
