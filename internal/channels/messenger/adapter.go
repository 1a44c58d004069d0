package messenger

import (
	"context"
	"net/http"

	"github.com/jaspers-market/chatbridge/pkg/logging"
)

// Adapter is the Messenger channel adapter. It handles inbound webhooks
// from Meta and sends outbound messages via the Graph API.
type Adapter struct {
	client  *Client
	webhook *WebhookHandler
	logger  *logging.Logger
}

// NewAdapter creates a new Messenger adapter. onMessage receives every
// parsed inbound event.
func NewAdapter(pageAccessToken, pageID, verifyToken string, logger *logging.Logger, onMessage func(ParsedInboundMessage)) *Adapter {
	if logger == nil {
		logger = logging.Default()
	}
	return &Adapter{
		client:  NewClient(pageAccessToken, pageID),
		webhook: NewWebhookHandler(verifyToken, onMessage),
		logger:  logger,
	}
}

// SetGraphAPIBase overrides the Graph API base URL (useful for testing).
func (a *Adapter) SetGraphAPIBase(base string) {
	a.client.SetGraphAPIBase(base)
}

// HandleVerification handles GET /webhook (Meta challenge).
func (a *Adapter) HandleVerification(w http.ResponseWriter, r *http.Request) {
	a.webhook.HandleVerification(w, r)
}

// HandleWebhook handles POST /webhook (inbound messages).
func (a *Adapter) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	a.webhook.HandleInbound(w, r)
}

// SendText delivers a text reply. The read receipt and typing indicator
// are sent first, best-effort: their failure never blocks the message.
func (a *Adapter) SendText(ctx context.Context, recipientID, text string) error {
	if err := a.client.MarkSeen(ctx, recipientID); err != nil {
		a.logger.Warn("messenger: could not mark message as seen",
			"recipient_id", recipientID,
			"error", err,
		)
	}
	if err := a.client.TypingOn(ctx, recipientID); err != nil {
		a.logger.Warn("messenger: could not send typing indicator",
			"recipient_id", recipientID,
			"error", err,
		)
	}

	_, err := a.client.SendTextMessage(ctx, recipientID, text)
	if err != nil {
		a.logger.Error("messenger: failed to send message",
			"recipient_id", recipientID,
			"error", err,
		)
	}
	return err
}
