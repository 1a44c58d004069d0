package orders

import "context"

// StatusReceived is the status written for every freshly captured order.
// The value is user-facing French, matching the operator spreadsheet.
const StatusReceived = "Reçu"

// Record is a normalized confirmed order ready for persistence.
type Record struct {
	CustomerName string
	PhoneNumber  string
	Address      string
	Items        string
	Total        string
	Status       string
}

// Appender persists captured orders. Implementations must treat a returned
// error as "not durably written"; callers log and continue, they never
// retry on the reply path.
type Appender interface {
	AppendOrder(ctx context.Context, rec Record) error
}
