package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Eursukkul/event-admission/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PaymentOracle answers whether a participant may enter a paid activity.
type PaymentOracle interface {
	HasAccess(ctx context.Context, badgeID uuid.UUID, activityID uint) (bool, error)
}

// grantPaymentOracle reads Activity Access grants. It never looks at the
// ledger or at cash-register records.
type grantPaymentOracle struct {
	activities repository.ActivityRepository
}

func NewGrantPaymentOracle(activities repository.ActivityRepository) PaymentOracle {
	return &grantPaymentOracle{activities: activities}
}

func (o *grantPaymentOracle) HasAccess(ctx context.Context, badgeID uuid.UUID, activityID uint) (bool, error) {
	grant, err := o.activities.FindAccess(ctx, badgeID, activityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("find activity access: %w", err)
	}
	return grant.HasAccess, nil
}
