package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/sglre6355/station-herald/internal/domain"
)

// SubscriptionStore persists subscriptions using GORM.
type SubscriptionStore struct {
	db *gorm.DB
}

// NewSubscriptionStore initialises a SubscriptionStore backed by db.
func NewSubscriptionStore(db *gorm.DB) *SubscriptionStore {
	return &SubscriptionStore{db: db}
}

// AutoMigrate ensures the subscriptions table exists with the expected schema.
func (s *SubscriptionStore) AutoMigrate(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("subscription store not initialised")
	}

	return s.db.WithContext(ctx).AutoMigrate(&subscriptionRecord{})
}

// Load returns every persisted subscription. An empty table is an empty set.
func (s *SubscriptionStore) Load(ctx context.Context) ([]domain.Subscription, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("subscription store not initialised")
	}

	var records []subscriptionRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&records).Error; err != nil {
		return nil, err
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

// Save replaces the stored set inside one transaction, so readers never observe a partial write.
func (s *SubscriptionStore) Save(ctx context.Context, subscriptions []domain.Subscription) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("subscription store not initialised")
	}

	records := make([]subscriptionRecord, 0, len(subscriptions))
	for _, sub := range subscriptions {
		records = append(records, subscriptionRecord{ChannelID: sub.ChannelID, MessageID: sub.MessageID})
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&subscriptionRecord{}).Error; err != nil {
			return fmt.Errorf("clear subscriptions: %w", err)
		}
		if len(records) == 0 {
			return nil
		}
		if err := tx.Create(&records).Error; err != nil {
			return fmt.Errorf("insert subscriptions: %w", err)
		}
		return nil
	})
}

type subscriptionRecord struct {
	ID        uint      `gorm:"primaryKey"`
	ChannelID string    `gorm:"column:channel_id;size:128;not null;index:idx_status_subscriptions_channel"`
	MessageID string    `gorm:"column:message_id;size:128;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (subscriptionRecord) TableName() string {
	return "status_subscriptions"
}
