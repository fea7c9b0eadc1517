package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sglre6355/station-herald/internal/domain"
)

const maxStatusBodyBytes = 1 << 20

// zonelessLayout accepts timestamps without an offset; they are read as UTC.
const zonelessLayout = "2006-01-02T15:04:05.999999999"

// StatusFetcher reads the game server status endpoint over HTTP.
type StatusFetcher struct {
	url    string
	client *http.Client
}

// NewStatusFetcher returns a fetcher for statusURL. A nil client falls back to http.DefaultClient.
func NewStatusFetcher(statusURL string, client *http.Client) (*StatusFetcher, error) {
	if strings.TrimSpace(statusURL) == "" {
		return nil, fmt.Errorf("status url cannot be empty")
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &StatusFetcher{url: statusURL, client: client}, nil
}

type statusResponse struct {
	Players        *int    `json:"players"`
	SoftMaxPlayers *int    `json:"soft_max_players"`
	Map            *string `json:"map"`
	RoundID        *int64  `json:"round_id"`
	Preset         *string `json:"preset"`
	Name           *string `json:"name"`
	RoundStartTime *string `json:"round_start_time"`
}

// Fetch performs a single GET against the status endpoint and parses the body.
func (f *StatusFetcher) Fetch(ctx context.Context) (*domain.Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request server status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxStatusBodyBytes))
		return nil, fmt.Errorf("status endpoint returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxStatusBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read status body: %w", err)
	}

	return parseStatus(body)
}

func parseStatus(body []byte) (*domain.Snapshot, error) {
	var payload *statusResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode status body: %w", err)
	}
	if payload == nil {
		return nil, fmt.Errorf("decode status body: empty document")
	}
	if payload.Players == nil {
		return nil, fmt.Errorf("decode status body: missing players")
	}

	snap := &domain.Snapshot{
		Players:        payload.Players,
		SoftMaxPlayers: payload.SoftMaxPlayers,
		Map:            payload.Map,
		RoundID:        payload.RoundID,
		Preset:         payload.Preset,
		Name:           payload.Name,
	}

	if payload.RoundStartTime != nil && strings.TrimSpace(*payload.RoundStartTime) != "" {
		started, err := parseRoundStart(strings.TrimSpace(*payload.RoundStartTime))
		if err != nil {
			return nil, err
		}
		snap.RoundStartTime = &started
	}

	return snap, nil
}

func parseRoundStart(value string) (time.Time, error) {
	if started, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return started, nil
	}

	started, err := time.ParseInLocation(zonelessLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse round_start_time %q: %w", value, err)
	}
	return started, nil
}
