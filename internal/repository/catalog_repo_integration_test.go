//go:build integration

package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/Eursukkul/event-admission/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedEvents(t *testing.T, events ...models.Event) {
	t.Helper()
	repo := NewEventRepository(testDB)
	for i := range events {
		require.NoError(t, repo.Upsert(context.Background(), &events[i]))
	}
}

func TestRoomRepository_UpsertReplacesAllowList(t *testing.T) {
	cleanTables()
	repo := NewRoomRepository(testDB)
	ctx := context.Background()
	a, b, c := uuid.New(), uuid.New(), uuid.New()

	require.NoError(t, repo.Upsert(ctx, &models.Room{ID: 10, EventID: 1, Name: "VIP", Active: true}, []uuid.UUID{a, b}))
	rules, err := repo.FindAccessRules(ctx, 10)
	require.NoError(t, err)
	assert.True(t, rules.Allows(a))
	assert.False(t, rules.Allows(c))

	require.NoError(t, repo.Upsert(ctx, &models.Room{ID: 10, EventID: 1, Name: "VIP Lounge", Active: true}, []uuid.UUID{c}))
	rules, err = repo.FindAccessRules(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, "VIP Lounge", rules.Room.Name)
	assert.False(t, rules.Allows(a))
	assert.True(t, rules.Allows(c))

	require.NoError(t, repo.Upsert(ctx, &models.Room{ID: 10, EventID: 1, Name: "VIP Lounge", Active: true}, nil))
	rules, err = repo.FindAccessRules(ctx, 10)
	require.NoError(t, err)
	assert.False(t, rules.Restricted())
}

func TestRoomRepository_InactiveRoomNotFound(t *testing.T) {
	cleanTables()
	repo := NewRoomRepository(testDB)
	require.NoError(t, repo.Upsert(context.Background(), &models.Room{ID: 12, EventID: 1, Name: "Closed"}, nil))

	_, err := repo.FindAccessRules(context.Background(), 12)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestMembershipRepository_ActiveEventsOnly(t *testing.T) {
	cleanTables()
	seedEvents(t,
		models.Event{ID: 1, Name: "Salon A", Active: true},
		models.Event{ID: 2, Name: "Salon B", Active: true},
		models.Event{ID: 3, Name: "Salon 2025", Active: false},
	)
	repo := NewMembershipRepository(testDB)
	ctx := context.Background()
	for _, m := range []models.Membership{
		{ID: 1, IdentityID: 7, EventID: 2, Role: models.RoleExhibitor, Active: true},
		{ID: 2, IdentityID: 7, EventID: 1, Role: models.RoleAttendee, Active: true},
		{ID: 3, IdentityID: 7, EventID: 3, Role: models.RoleAttendee, Active: true},
	} {
		require.NoError(t, repo.Upsert(ctx, &m))
	}

	got, err := repo.FindActiveByIdentity(ctx, 7)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint(1), got[0].EventID)
	require.NotNil(t, got[0].Event)
	assert.Equal(t, "Salon A", got[0].Event.Name)

	_, err = repo.FindActive(ctx, 7, 3)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))

	// removal arrives as an inactive upsert on the same (identity, event)
	require.NoError(t, repo.Upsert(ctx, &models.Membership{ID: 2, IdentityID: 7, EventID: 1, Role: models.RoleAttendee}))
	_, err = repo.FindActive(ctx, 7, 1)
	assert.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}

func TestBadgeRepository_NewBadgeSupersedesOld(t *testing.T) {
	cleanTables()
	repo := NewBadgeRepository(testDB)
	ctx := context.Background()
	oldID, newID := uuid.New(), uuid.New()

	require.NoError(t, repo.Upsert(ctx, &models.Badge{ID: oldID, IdentityID: 7, EventID: 1, Payload: "v1.old"}))
	require.NoError(t, repo.Upsert(ctx, &models.Badge{ID: newID, IdentityID: 7, EventID: 1, Payload: "v1.new"}))

	got, err := repo.FindByIdentityAndEvent(ctx, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, newID, got.ID)
	assert.Equal(t, "v1.new", got.Payload)

	// re-delivery only touches check-in state
	require.NoError(t, repo.Upsert(ctx, &models.Badge{ID: newID, IdentityID: 7, EventID: 1, Payload: "v1.other", CheckedIn: true}))
	got, err = repo.FindByIdentityAndEvent(ctx, 7, 1)
	require.NoError(t, err)
	assert.True(t, got.CheckedIn)
	assert.Equal(t, "v1.new", got.Payload)
}

func TestIdentityRepository_EmailIsCaseInsensitive(t *testing.T) {
	cleanTables()
	repo := NewIdentityRepository(testDB)
	ctx := context.Background()
	require.NoError(t, repo.Upsert(ctx, &models.Identity{ID: 7, Email: "Ada@Example.com", DisplayName: "Ada", SecretHash: "x"}))

	got, err := repo.FindByEmail(ctx, "ada@example.COM")
	require.NoError(t, err)
	assert.Equal(t, uint(7), got.ID)

	found, err := repo.FindByIDs(ctx, []uint{7, 8})
	require.NoError(t, err)
	assert.Len(t, found, 1)
}
