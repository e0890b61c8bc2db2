package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Eursukkul/event-admission/internal/authz"
	"github.com/Eursukkul/event-admission/internal/models"
	"github.com/Eursukkul/event-admission/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrForbidden    = errors.New("role is not allowed to perform this operation")
	ErrInvalidRange = errors.New("invalid time range")
)

const badgeHistoryLimit = 200

type Authorizer interface {
	Allowed(role models.Role, obj authz.Object, act authz.Action) bool
}

// LedgerHook runs after an entry is durable. It cannot fail the append.
type LedgerHook interface {
	AfterAppend(ctx context.Context, entry *models.AccessLog)
}

type LedgerStats struct {
	EventID              uint
	From                 time.Time
	To                   time.Time
	ByRoom               []repository.RoomCount
	ByDay                []repository.DayCount
	ByDecision           []repository.DecisionCount
	DistinctParticipants int64
}

// Admissions is the daily admission counter for a room: distinct badges
// granted entry on Day. It is not a live occupancy gauge, since no exit
// scans exist.
type Admissions struct {
	RoomID   uint
	RoomName string
	Capacity int
	Day      time.Time
	Count    int64
}

type LedgerService interface {
	Append(ctx context.Context, entry *models.AccessLog) error
	RecentlyGranted(ctx context.Context, badgeID uuid.UUID, roomID uint, since time.Time) (bool, error)
	Stats(ctx context.Context, sc models.SessionContext, from, to time.Time) (*LedgerStats, error)
	AdmissionsOn(ctx context.Context, sc models.SessionContext, roomID uint, day time.Time) (*Admissions, error)
	BadgeHistory(ctx context.Context, sc models.SessionContext, badgeID uuid.UUID) ([]models.AccessLog, error)
}

type ledgerService struct {
	logs   repository.AccessLogRepository
	rooms  repository.RoomRepository
	authz  Authorizer
	hooks  []LedgerHook
	logger *slog.Logger
}

func NewLedgerService(
	logs repository.AccessLogRepository,
	rooms repository.RoomRepository,
	authorizer Authorizer,
	logger *slog.Logger,
	hooks ...LedgerHook,
) LedgerService {
	return &ledgerService{
		logs:   logs,
		rooms:  rooms,
		authz:  authorizer,
		hooks:  hooks,
		logger: resolveLogger(logger),
	}
}

// Append writes the entry synchronously. Hooks only see entries that were
// stored.
func (s *ledgerService) Append(ctx context.Context, entry *models.AccessLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := s.logs.Create(ctx, entry); err != nil {
		return fmt.Errorf("append access log: %w", err)
	}
	for _, h := range s.hooks {
		h.AfterAppend(ctx, entry)
	}
	return nil
}

func (s *ledgerService) RecentlyGranted(ctx context.Context, badgeID uuid.UUID, roomID uint, since time.Time) (bool, error) {
	return s.logs.ExistsGrantedSince(ctx, badgeID, roomID, since)
}

func (s *ledgerService) Stats(ctx context.Context, sc models.SessionContext, from, to time.Time) (*LedgerStats, error) {
	if !s.authz.Allowed(sc.Role, authz.ObjectLedger, authz.ActionRead) {
		return nil, ErrForbidden
	}
	if !from.IsZero() && !to.IsZero() && !from.Before(to) {
		return nil, ErrInvalidRange
	}

	f := repository.LedgerFilter{EventID: sc.EventID, From: from, To: to}
	stats := &LedgerStats{EventID: sc.EventID, From: from, To: to}

	var err error
	if stats.ByRoom, err = s.logs.CountByRoom(ctx, f); err != nil {
		return nil, fmt.Errorf("count by room: %w", err)
	}
	if stats.ByDay, err = s.logs.CountByDay(ctx, f); err != nil {
		return nil, fmt.Errorf("count by day: %w", err)
	}
	if stats.ByDecision, err = s.logs.CountByDecision(ctx, f); err != nil {
		return nil, fmt.Errorf("count by decision: %w", err)
	}
	if stats.DistinctParticipants, err = s.logs.CountDistinctParticipants(ctx, f); err != nil {
		return nil, fmt.Errorf("count participants: %w", err)
	}
	return stats, nil
}

func (s *ledgerService) AdmissionsOn(ctx context.Context, sc models.SessionContext, roomID uint, day time.Time) (*Admissions, error) {
	if !s.authz.Allowed(sc.Role, authz.ObjectLedger, authz.ActionRead) {
		return nil, ErrForbidden
	}
	rules, err := s.rooms.FindAccessRules(ctx, roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("find room: %w", err)
	}
	if rules.Room.EventID != sc.EventID {
		return nil, ErrRoomOutsideContext
	}

	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	count, err := s.logs.CountGrantedBadges(ctx, roomID, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("count admissions: %w", err)
	}
	return &Admissions{
		RoomID:   roomID,
		RoomName: rules.Room.Name,
		Capacity: rules.Room.Capacity,
		Day:      start,
		Count:    count,
	}, nil
}

func (s *ledgerService) BadgeHistory(ctx context.Context, sc models.SessionContext, badgeID uuid.UUID) ([]models.AccessLog, error) {
	if !s.authz.Allowed(sc.Role, authz.ObjectLedger, authz.ActionRead) {
		return nil, ErrForbidden
	}
	entries, err := s.logs.FindByBadge(ctx, sc.EventID, badgeID, badgeHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("find badge history: %w", err)
	}
	return entries, nil
}
