package conversation

import (
	"context"
	"strings"
	"time"

	"github.com/jaspers-market/chatbridge/internal/channels/messenger"
	"github.com/jaspers-market/chatbridge/internal/dedup"
	"github.com/jaspers-market/chatbridge/internal/observability/metrics"
	"github.com/jaspers-market/chatbridge/pkg/logging"
)

const sendTimeout = 10 * time.Second

// Transport delivers text to a recipient on the messaging platform.
type Transport interface {
	SendText(ctx context.Context, recipientID, text string) error
}

// Bridge connects the webhook channel to the responder: it decides whether
// an event is a duplicate, produces the AI reply, and dispatches delivery.
// Events for the same sender are processed in order; different senders run
// concurrently.
type Bridge struct {
	dedup     *dedup.Cache
	responder *Responder
	transport Transport
	logger    *logging.Logger
	metrics   *metrics.BridgeMetrics

	senders keyedLocks
}

// NewBridge wires the bridge. metrics may be nil.
func NewBridge(cache *dedup.Cache, responder *Responder, transport Transport, logger *logging.Logger, m *metrics.BridgeMetrics) *Bridge {
	if cache == nil {
		panic("conversation: dedup cache cannot be nil")
	}
	if responder == nil {
		panic("conversation: responder cannot be nil")
	}
	if transport == nil {
		panic("conversation: transport cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Bridge{
		dedup:     cache,
		responder: responder,
		transport: transport,
		logger:    logger,
		metrics:   m,
	}
}

// HandleInbound dispatches a parsed webhook event. It is safe to call from
// the webhook goroutine; processing happens inline, so callers that must
// ack quickly should invoke it from their own goroutine.
func (b *Bridge) HandleInbound(ctx context.Context, msg messenger.ParsedInboundMessage) {
	switch msg.Kind {
	case messenger.KindText:
		b.metrics.ObserveInbound("text", "received")
		b.ProcessIncomingText(ctx, msg.EventKey(), msg.SenderID, msg.Text)
	case messenger.KindPostback, messenger.KindQuickReply:
		// Buttons and quick replies carry either a human-readable title
		// or a payload; converse as if the user had typed it.
		text := msg.Text
		if strings.TrimSpace(text) == "" {
			text = msg.PostbackPayload
		}
		b.metrics.ObserveInbound(string(msg.Kind), "received")
		b.ProcessIncomingText(ctx, msg.EventKey(), msg.SenderID, text)
	case messenger.KindMedia:
		b.metrics.ObserveInbound("media", "acknowledged")
		b.deliver(ctx, msg.SenderID, mediaAckMessage)
	default:
		b.metrics.ObserveInbound("unknown", "ignored")
		b.logger.Debug("ignoring inbound event", "sender_id", msg.SenderID)
	}
}

// ProcessIncomingText runs the dedup check, the reply pipeline, and
// delivery for one inbound text event. Duplicate deliveries of the same
// event key within the TTL window are dropped.
func (b *Bridge) ProcessIncomingText(ctx context.Context, eventKey, senderID, text string) {
	if b.dedup.Remove(ctx, eventKey) {
		// Seen before: re-arm the suppression window so further
		// retransmissions stay muted, then drop the event.
		b.dedup.Insert(ctx, eventKey)
		b.metrics.ObserveDedup("duplicate")
		b.logger.Info("duplicate event dropped",
			"event_key", eventKey,
			"sender_id", senderID,
		)
		return
	}
	b.dedup.Insert(ctx, eventKey)
	b.metrics.ObserveDedup("novel")

	unlock := b.senders.lock(senderID)
	defer unlock()

	b.logger.Info("processing inbound message",
		"event_key", eventKey,
		"sender_id", senderID,
	)

	reply := b.responder.Reply(ctx, text)
	if strings.TrimSpace(reply) == "" {
		// A completion that was purely a structured block leaves nothing
		// to show; confirm delivery-side silence rather than send "".
		b.logger.Warn("empty visible reply, nothing to deliver",
			"event_key", eventKey,
			"sender_id", senderID,
		)
		return
	}

	b.deliver(ctx, senderID, reply)
}

// deliver sends text to the recipient, falling back to the apology message
// if the real reply cannot be delivered.
func (b *Bridge) deliver(ctx context.Context, recipientID, text string) {
	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := b.transport.SendText(sendCtx, recipientID, text); err != nil {
		b.metrics.ObserveOutbound("failed")
		b.logger.Error("delivery failed",
			"recipient_id", recipientID,
			"error", err,
		)
		if text != FallbackMessage {
			b.deliver(ctx, recipientID, FallbackMessage)
		}
		return
	}
	b.metrics.ObserveOutbound("sent")
}
