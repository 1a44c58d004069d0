package messenger

import "time"

// WebhookEvent is the top-level structure received from the Meta webhook.
type WebhookEvent struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry represents a single entry in the webhook payload.
type Entry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Messaging []Messaging `json:"messaging"`
}

// Messaging represents a single messaging event.
type Messaging struct {
	Sender    Sender    `json:"sender"`
	Recipient Recipient `json:"recipient"`
	Timestamp int64     `json:"timestamp"`
	Message   *Message  `json:"message,omitempty"`
	Postback  *Postback `json:"postback,omitempty"`
}

// Sender identifies who sent the message (the PSID).
type Sender struct {
	ID string `json:"id"`
}

// Recipient identifies the page that received the message.
type Recipient struct {
	ID string `json:"id"`
}

// Message contains the message content.
type Message struct {
	MID         string       `json:"mid"`
	Text        string       `json:"text"`
	QuickReply  *QuickReply  `json:"quick_reply,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// QuickReply carries the payload of a tapped quick-reply chip.
type QuickReply struct {
	Payload string `json:"payload"`
}

// Postback represents a postback event (button tap).
type Postback struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// Attachment is an inbound media attachment. Only the type matters here;
// media content is acknowledged, not processed.
type Attachment struct {
	Type string `json:"type"`
}

// SendRequest is the payload sent to the Graph API.
type SendRequest struct {
	Recipient    SendRecipient `json:"recipient"`
	Message      *SendMessage  `json:"message,omitempty"`
	SenderAction string        `json:"sender_action,omitempty"`
}

// SendRecipient identifies who to send the message to.
type SendRecipient struct {
	ID string `json:"id"`
}

// SendMessage is the message content for outbound messages.
type SendMessage struct {
	Text string `json:"text"`
}

// SendResponse is the response from the Graph API after sending a message.
type SendResponse struct {
	RecipientID string     `json:"recipient_id"`
	MessageID   string     `json:"message_id"`
	Error       *SendError `json:"error,omitempty"`
}

// SendError represents an error returned by the Graph API.
type SendError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FBTraceID string `json:"fbtrace_id"`
}

// InboundKind classifies a parsed inbound event.
type InboundKind string

const (
	KindText       InboundKind = "text"
	KindPostback   InboundKind = "postback"
	KindQuickReply InboundKind = "quick_reply"
	KindMedia      InboundKind = "media"
)

// ParsedInboundMessage is the normalized result of parsing a webhook event.
type ParsedInboundMessage struct {
	Kind            InboundKind
	SenderID        string
	RecipientID     string
	Text            string
	Timestamp       time.Time
	PostbackPayload string
	MessageID       string
	AttachmentType  string
}

// EventKey derives the dedup key for this event. Meta retransmits with the
// same mid, so the mid is the natural identity; postbacks have none and
// fall back to sender plus timestamp.
func (m ParsedInboundMessage) EventKey() string {
	if m.MessageID != "" {
		return m.MessageID
	}
	return m.SenderID + ":" + m.Timestamp.UTC().Format(time.RFC3339Nano)
}
