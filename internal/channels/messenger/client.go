package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultGraphAPIBase = "https://graph.facebook.com/v18.0"
	defaultHTTPTimeout  = 10 * time.Second

	actionMarkSeen = "mark_seen"
	actionTypingOn = "typing_on"
)

// Client sends messages via the Meta Graph API.
type Client struct {
	pageAccessToken string
	pageID          string
	graphAPIBase    string
	httpClient      *http.Client
}

// NewClient creates a new Graph API client for the given page.
func NewClient(pageAccessToken, pageID string) *Client {
	return &Client{
		pageAccessToken: pageAccessToken,
		pageID:          pageID,
		graphAPIBase:    defaultGraphAPIBase,
		httpClient:      &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// SetGraphAPIBase overrides the Graph API base URL (useful for testing).
func (c *Client) SetGraphAPIBase(base string) {
	c.graphAPIBase = base
}

// SendTextMessage sends a plain text message to the given recipient.
func (c *Client) SendTextMessage(ctx context.Context, recipientID, text string) (*SendResponse, error) {
	req := SendRequest{
		Recipient: SendRecipient{ID: recipientID},
		Message:   &SendMessage{Text: text},
	}
	return c.send(ctx, req)
}

// MarkSeen flags the conversation as read for the recipient.
func (c *Client) MarkSeen(ctx context.Context, recipientID string) error {
	return c.senderAction(ctx, recipientID, actionMarkSeen)
}

// TypingOn shows the typing indicator to the recipient.
func (c *Client) TypingOn(ctx context.Context, recipientID string) error {
	return c.senderAction(ctx, recipientID, actionTypingOn)
}

func (c *Client) senderAction(ctx context.Context, recipientID, action string) error {
	req := SendRequest{
		Recipient:    SendRecipient{ID: recipientID},
		SenderAction: action,
	}
	_, err := c.send(ctx, req)
	return err
}

func (c *Client) send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("messenger: marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages?access_token=%s", c.graphAPIBase, c.pageID, c.pageAccessToken)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("messenger: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("messenger: send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("messenger: read response: %w", err)
	}

	var sendResp SendResponse
	if err := json.Unmarshal(respBody, &sendResp); err != nil {
		return nil, fmt.Errorf("messenger: unmarshal response: %w", err)
	}

	if sendResp.Error != nil {
		return &sendResp, fmt.Errorf("messenger: API error %d: %s", sendResp.Error.Code, sendResp.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return &sendResp, fmt.Errorf("messenger: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return &sendResp, nil
}
