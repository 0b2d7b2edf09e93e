package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// WhatsAppClient delivers messages through the messaging collaborator using
// per-campaign credentials, so one service instance can send on behalf of
// many WhatsApp business numbers.
type WhatsAppClient struct {
	apiURL string
	client *http.Client
	logger *log.Logger
}

type whatsAppRequest struct {
	PhoneNumberID string `json:"phone_number_id"`
	AccessToken   string `json:"access_token"`
	To            string `json:"to"`
	Message       string `json:"message"`
}

type whatsAppResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func NewWhatsAppClient(apiURL string, timeout time.Duration, logger *log.Logger) *WhatsAppClient {
	return &WhatsAppClient{
		apiURL: apiURL,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// SendMessage delivers one message. Any non-2xx response or success=false
// payload counts as a failed dispatch.
func (wc *WhatsAppClient) SendMessage(ctx context.Context, phoneNumberID, accessToken, to, body string) error {
	payload, err := json.Marshal(whatsAppRequest{
		PhoneNumberID: phoneNumberID,
		AccessToken:   accessToken,
		To:            to,
		Message:       body,
	})
	if err != nil {
		return fmt.Errorf("failed to encode message request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wc.apiURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := wc.client.Do(req)
	if err != nil {
		return fmt.Errorf("messaging service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("messaging service returned status %d", resp.StatusCode)
	}

	var response whatsAppResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to decode message response: %w", err)
	}
	if !response.Success {
		return fmt.Errorf("messaging service rejected dispatch: %s", response.Error)
	}

	wc.logger.Printf("Delivered message to %s", to)
	return nil
}
