// Package whatsapp delivers password-reset codes through a WhatsApp business
// messaging HTTP gateway.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 15 * time.Second

type Client struct {
	baseURL    string
	token      string
	sender     string
	httpClient *http.Client
}

func NewClient(baseURL, token, sender string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:      token,
		sender:     sender,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

type sendMessageRequest struct {
	To       string `json:"to"`
	From     string `json:"from,omitempty"`
	Template string `json:"template"`
	Code     string `json:"code"`
	Name     string `json:"name,omitempty"`
}

// SendPasswordReset posts the reset code to the gateway. phone should be
// digits only, country code included. The code is never logged.
func (c *Client) SendPasswordReset(ctx context.Context, phone, code, displayName string) error {
	if c.baseURL == "" {
		return errors.New("whatsapp: gateway URL not configured")
	}
	if c.token == "" {
		return errors.New("whatsapp: API token not configured")
	}

	payload := sendMessageRequest{
		To:       phone,
		From:     c.sender,
		Template: "password_reset",
		Code:     code,
		Name:     displayName,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("whatsapp: request failed status=%d body=%s", resp.StatusCode, string(body))
	}
	return nil
}
