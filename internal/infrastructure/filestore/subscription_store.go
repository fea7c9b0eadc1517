package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sglre6355/station-herald/internal/domain"
)

// SubscriptionStore persists subscriptions as a JSON array in a single file.
type SubscriptionStore struct {
	path string
}

// NewSubscriptionStore initialises a SubscriptionStore writing to path.
func NewSubscriptionStore(path string) (*SubscriptionStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path cannot be empty")
	}
	return &SubscriptionStore{path: path}, nil
}

type subscriptionRecord struct {
	ChannelID string `json:"channelId"`
	MessageID string `json:"messageId"`
}

// Load reads every persisted subscription. A missing file is an empty set.
func (s *SubscriptionStore) Load(ctx context.Context) ([]domain.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.Subscription{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read subscriptions file: %w", err)
	}

	var records []subscriptionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode subscriptions file %s: %w", s.path, err)
	}

	subscriptions := make([]domain.Subscription, 0, len(records))
	for _, record := range records {
		subscriptions = append(subscriptions, domain.Subscription{
			ChannelID: record.ChannelID,
			MessageID: record.MessageID,
		})
	}

	return subscriptions, nil
}

// Save atomically replaces the file with subscriptions.
func (s *SubscriptionStore) Save(ctx context.Context, subscriptions []domain.Subscription) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	records := make([]subscriptionRecord, 0, len(subscriptions))
	for _, sub := range subscriptions {
		records = append(records, subscriptionRecord{ChannelID: sub.ChannelID, MessageID: sub.MessageID})
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode subscriptions: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create storage directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(s.path)+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp subscriptions file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("write subscriptions: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("sync subscriptions: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp subscriptions file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("replace subscriptions file %s: %w", s.path, err)
	}

	success = true
	return nil
}
