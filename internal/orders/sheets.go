package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/jaspers-market/chatbridge/pkg/logging"
)

const defaultAppendRange = "Orders!A:G"

// SheetsAppender writes one spreadsheet row per captured order.
type SheetsAppender struct {
	service       *sheets.Service
	spreadsheetID string
	appendRange   string
	logger        *logging.Logger
	now           func() time.Time
}

// NewSheetsAppender builds an appender against the Google Sheets API.
// Extra client options are forwarded to the service constructor so tests
// can point it at a local server.
func NewSheetsAppender(ctx context.Context, spreadsheetID, appendRange string, logger *logging.Logger, opts ...option.ClientOption) (*SheetsAppender, error) {
	if strings.TrimSpace(spreadsheetID) == "" {
		return nil, errors.New("orders: spreadsheet id is required")
	}
	if strings.TrimSpace(appendRange) == "" {
		appendRange = defaultAppendRange
	}
	if logger == nil {
		logger = logging.Default()
	}

	service, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("orders: create sheets service: %w", err)
	}

	return &SheetsAppender{
		service:       service,
		spreadsheetID: spreadsheetID,
		appendRange:   appendRange,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// AppendOrder appends the order as a single row:
// timestamp, customer, phone, address, items, total, status.
func (a *SheetsAppender) AppendOrder(ctx context.Context, rec Record) error {
	row := []interface{}{
		a.now().UTC().Format(time.RFC3339),
		rec.CustomerName,
		rec.PhoneNumber,
		rec.Address,
		rec.Items,
		rec.Total,
		rec.Status,
	}
	values := &sheets.ValueRange{Values: [][]interface{}{row}}

	_, err := a.service.Spreadsheets.Values.
		Append(a.spreadsheetID, a.appendRange, values).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("orders: append row: %w", err)
	}

	a.logger.Info("order appended to sheet",
		"customer", rec.CustomerName,
		"status", rec.Status,
	)
	return nil
}

// LogAppender is used when no spreadsheet is configured: orders are written
// to the log so the reply pipeline keeps working, and operators can recover
// them out of band.
type LogAppender struct {
	logger *logging.Logger
}

// NewLogAppender returns an Appender that only logs.
func NewLogAppender(logger *logging.Logger) *LogAppender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogAppender{logger: logger}
}

func (a *LogAppender) AppendOrder(_ context.Context, rec Record) error {
	a.logger.Warn("no order sink configured, logging order instead",
		"customer", rec.CustomerName,
		"phone", rec.PhoneNumber,
		"address", rec.Address,
		"items", rec.Items,
		"total", rec.Total,
		"status", rec.Status,
	)
	return nil
}
