package messenger

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// WebhookHandler handles Meta webhook verification and inbound messages.
type WebhookHandler struct {
	verifyToken string
	onMessage   func(msg ParsedInboundMessage)
}

// NewWebhookHandler creates a new webhook handler.
// onMessage is called for each parsed inbound message or postback.
func NewWebhookHandler(verifyToken string, onMessage func(ParsedInboundMessage)) *WebhookHandler {
	return &WebhookHandler{
		verifyToken: verifyToken,
		onMessage:   onMessage,
	}
}

// HandleVerification handles the GET webhook verification challenge from Meta.
func (h *WebhookHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}

	http.Error(w, "Forbidden", http.StatusForbidden)
}

// HandleInbound handles POST webhook events (incoming messages).
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// Must respond 200 quickly to avoid Meta retries
	w.WriteHeader(http.StatusOK)

	for _, msg := range ParseWebhookEvent(event) {
		if h.onMessage != nil {
			h.onMessage(msg)
		}
	}
}

// ParseWebhookEvent extracts ParsedInboundMessages from a webhook event.
func ParseWebhookEvent(event WebhookEvent) []ParsedInboundMessage {
	var messages []ParsedInboundMessage

	for _, entry := range event.Entry {
		for _, m := range entry.Messaging {
			parsed := ParsedInboundMessage{
				SenderID:    m.Sender.ID,
				RecipientID: m.Recipient.ID,
				Timestamp:   time.UnixMilli(m.Timestamp),
			}

			switch {
			case m.Message != nil && m.Message.QuickReply != nil:
				parsed.Kind = KindQuickReply
				parsed.Text = m.Message.Text
				parsed.MessageID = m.Message.MID
				parsed.PostbackPayload = m.Message.QuickReply.Payload
			case m.Message != nil && m.Message.Text != "":
				parsed.Kind = KindText
				parsed.Text = m.Message.Text
				parsed.MessageID = m.Message.MID
			case m.Message != nil && len(m.Message.Attachments) > 0:
				parsed.Kind = KindMedia
				parsed.MessageID = m.Message.MID
				parsed.AttachmentType = m.Message.Attachments[0].Type
			case m.Postback != nil:
				parsed.Kind = KindPostback
				parsed.Text = m.Postback.Title
				parsed.PostbackPayload = m.Postback.Payload
			default:
				continue
			}

			messages = append(messages, parsed)
		}
	}

	return messages
}
