package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jwebster45206/galgame-engine/internal/engine"
	"github.com/jwebster45206/galgame-engine/internal/handlers"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse mirrors the API's turn payload. Event resolutions
// come back with Outcome set instead of a narrative.
type MessageResponse struct {
	engine.TurnResult
	OfferID   string `json:"offer_id,omitempty"`
	EventName string `json:"event_name,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
}

func sendMessage(client *http.Client, cfg *ConsoleConfig, text string) (*MessageResponse, error) {
	req := handlers.MessageRequest{Text: text}
	req.Scope = cfg.Scope
	req.UserID = cfg.UserID
	return postTurn(client, cfg.APIBaseURL+"/v1/game/message", req)
}

func sendChoice(client *http.Client, cfg *ConsoleConfig, offerID string, optionIndex int) (*MessageResponse, error) {
	req := handlers.ChoiceRequest{OfferID: offerID, OptionIndex: optionIndex}
	req.Scope = cfg.Scope
	req.UserID = cfg.UserID
	return postTurn(client, cfg.APIBaseURL+"/v1/game/choice", req)
}

func postTurn(client *http.Client, url string, req any) (*MessageResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("%s", errorResp.Error)
	}

	var turn MessageResponse
	if err := json.Unmarshal(body, &turn); err != nil {
		return nil, fmt.Errorf("failed to parse turn response: %w", err)
	}
	return &turn, nil
}

func getStatus(client *http.Client, cfg *ConsoleConfig) (*engine.Status, error) {
	url := fmt.Sprintf("%s/v1/game/status?scope=%s&user_id=%s", cfg.APIBaseURL, cfg.Scope, cfg.UserID)
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return nil, fmt.Errorf("%s", errorResp.Error)
	}

	var status engine.Status
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", err)
	}
	return &status, nil
}

func resetSession(client *http.Client, cfg *ConsoleConfig) error {
	req := map[string]string{"scope": cfg.Scope, "user_id": cfg.UserID}
	jsonData, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := client.Post(cfg.APIBaseURL+"/v1/game/reset", "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return fmt.Errorf("API returned status %d", resp.StatusCode)
		}
		return fmt.Errorf("%s", errorResp.Error)
	}
	return nil
}
