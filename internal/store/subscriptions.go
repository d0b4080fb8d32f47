package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ccstock-backend/internal/model"
)

// Subscriptions persists web push subscriptions and the machines each follows.
type Subscriptions struct {
	db *gorm.DB
}

func NewSubscriptions(db *gorm.DB) *Subscriptions {
	return &Subscriptions{db: db}
}

// Save upserts sub by endpoint and replaces the machines it follows. Ids that
// name no registered machine are dropped; the ids kept are returned.
func (s *Subscriptions) Save(ctx context.Context, sub *model.PushSubscription, machineIDs []string) ([]string, error) {
	var machines []*model.Machine
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(sub).Error; err != nil {
			return err
		}
		if len(machineIDs) > 0 {
			if err := tx.Where("id IN ?", machineIDs).Order("id").Find(&machines).Error; err != nil {
				return err
			}
		}
		return tx.Model(sub).Association("Machines").Replace(&machines)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}
	return machineIDsOf(machines), nil
}

func (s *Subscriptions) Delete(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Select("Machines").Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return fmt.Errorf("failed to delete subscription: %w", err)
	}
	return nil
}

// Following returns the machines followed from endpoint, or ErrNotFound.
func (s *Subscriptions) Following(ctx context.Context, endpoint string) ([]string, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).Preload("Machines", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load subscription: %w", err)
	}
	return machineIDsOf(sub.Machines), nil
}

func machineIDsOf(machines []*model.Machine) []string {
	ids := make([]string, len(machines))
	for i, m := range machines {
		ids[i] = m.ID
	}
	return ids
}
