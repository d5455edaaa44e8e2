package mysql

import (
	"context"
	"encoding/json"

	"gorm.io/gorm"

	eventDomain "github.com/0xScratch/arcade-protocol/internal/domain/event"
)

type EventRepository struct{ db *gorm.DB }

func NewEventRepository(db *gorm.DB) *EventRepository { return &EventRepository{db: db} }

func (r *EventRepository) Append(ctx context.Context, kind string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(&eventDomain.Event{
		Kind:    kind,
		Payload: string(raw),
	}).Error
}
