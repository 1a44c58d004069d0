package conversation

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/jaspers-market/chatbridge/internal/orders"
)

// fencedBlockRe matches the first fenced block in a completion. The
// language tag is optional because models are inconsistent about emitting
// it, and the inner content is captured non-greedily so a stray fence later
// in the text cannot widen the match.
var fencedBlockRe = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")

// OrderPayload is the structured block the assistant appends to a reply
// when a customer confirms an order. Field names are part of the wire
// format shared with the prompt; unknown extra fields are ignored.
type OrderPayload struct {
	Confirmed    bool   `json:"order_confirmed"`
	CustomerName string `json:"customer_name"`
	PhoneNumber  string `json:"phone_number"`
	Address      string `json:"address"`
	Items        string `json:"items"`
	Total        string `json:"total"`
}

// Record converts the payload into the normalized persistence record.
func (p OrderPayload) Record() orders.Record {
	return orders.Record{
		CustomerName: strings.TrimSpace(p.CustomerName),
		PhoneNumber:  strings.TrimSpace(p.PhoneNumber),
		Address:      strings.TrimSpace(p.Address),
		Items:        strings.TrimSpace(p.Items),
		Total:        strings.TrimSpace(p.Total),
		Status:       orders.StatusReceived,
	}
}

// ExtractionOutcome tags the result of scanning a completion for an order
// block.
type ExtractionOutcome int

const (
	// OutcomeNoBlock means the completion carried no fenced block.
	OutcomeNoBlock ExtractionOutcome = iota
	// OutcomeInvalid means a block was found but could not be used:
	// malformed JSON, unconfirmed order, or missing required fields. The
	// block is still stripped from the visible text.
	OutcomeInvalid
	// OutcomeValid means a confirmed, complete order was extracted.
	OutcomeValid
)

func (o ExtractionOutcome) String() string {
	switch o {
	case OutcomeNoBlock:
		return "no_block"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeValid:
		return "valid"
	default:
		return "unknown"
	}
}

// Extraction is the result of running a raw completion through the order
// pipeline. VisibleText is always safe to show the user: whatever fenced
// block was matched has been removed, valid or not.
type Extraction struct {
	Outcome     ExtractionOutcome
	VisibleText string
	Payload     *OrderPayload

	// Reason explains an Invalid outcome for logging.
	Reason string
}

// ExtractOrder scans a model completion for an embedded order block,
// validates it, and returns the user-safe text. It is pure: persistence and
// logging are the caller's concern. Only the first fenced block is
// considered; a broken or unconfirmed block is never shown to the user.
func ExtractOrder(raw string) Extraction {
	loc := fencedBlockRe.FindStringSubmatchIndex(raw)
	if loc == nil {
		return Extraction{
			Outcome:     OutcomeNoBlock,
			VisibleText: strings.TrimSpace(raw),
		}
	}

	visible := strings.TrimSpace(raw[:loc[0]] + raw[loc[1]:])
	content := raw[loc[2]:loc[3]]

	var payload OrderPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return Extraction{
			Outcome:     OutcomeInvalid,
			VisibleText: visible,
			Reason:      "malformed block: " + err.Error(),
		}
	}

	if !payload.Confirmed {
		return Extraction{
			Outcome:     OutcomeInvalid,
			VisibleText: visible,
			Reason:      "order not confirmed",
		}
	}
	if missing := missingFields(payload); missing != "" {
		return Extraction{
			Outcome:     OutcomeInvalid,
			VisibleText: visible,
			Reason:      "missing required field: " + missing,
		}
	}

	return Extraction{
		Outcome:     OutcomeValid,
		VisibleText: visible,
		Payload:     &payload,
	}
}

// missingFields reports the first empty required field. Total is exempt:
// the assistant may legitimately answer with a placeholder when the price
// is unknown.
func missingFields(p OrderPayload) string {
	fields := []struct {
		name  string
		value string
	}{
		{"customer_name", p.CustomerName},
		{"phone_number", p.PhoneNumber},
		{"address", p.Address},
		{"items", p.Items},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return f.name
		}
	}
	return ""
}
