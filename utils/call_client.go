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

// CallClient talks to the call-placement collaborator that actually reaches
// a phone through the voice provider.
type CallClient struct {
	baseURL string
	client  *http.Client
	logger  *log.Logger
}

type callRequest struct {
	LeadID     uint   `json:"lead_id"`
	Channel    string `json:"channel"`
	DirectCall bool   `json:"direct_call"`
}

type callResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	VapiCallID string `json:"vapi_call_id,omitempty"`
}

func NewCallClient(baseURL string, timeout time.Duration, logger *log.Logger) *CallClient {
	return &CallClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// PlaceCall asks the collaborator to place one direct call. Any non-2xx
// response or success=false payload counts as a failed dispatch.
func (cc *CallClient) PlaceCall(ctx context.Context, leadID uint) (string, string, error) {
	payload, err := json.Marshal(callRequest{
		LeadID:     leadID,
		Channel:    "call",
		DirectCall: true,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to encode call request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cc.baseURL+"/calls", bytes.NewReader(payload))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := cc.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("call service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", "", fmt.Errorf("call service returned status %d", resp.StatusCode)
	}

	var body callResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", "", fmt.Errorf("failed to decode call response: %w", err)
	}
	if !body.Success {
		return "", "", fmt.Errorf("call service rejected dispatch: %s", body.Message)
	}

	cc.logger.Printf("Placed call for lead %d (call %s)", leadID, body.VapiCallID)
	return body.VapiCallID, body.Message, nil
}
