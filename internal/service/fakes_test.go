package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Eursukkul/event-admission/internal/authz"
	"github.com/Eursukkul/event-admission/internal/models"
	"github.com/Eursukkul/event-admission/internal/repository"
	"github.com/Eursukkul/event-admission/internal/token"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// --- Clock ---

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestIssuer(t *testing.T, clock *fakeClock) *token.Issuer {
	t.Helper()
	issuer, err := token.NewIssuer(token.IssuerConfig{
		Secret:        []byte(strings.Repeat("t", 32)),
		Issuer:        "admission-test",
		AccessTTL:     15 * time.Minute,
		RenewalTTL:    24 * time.Hour,
		PreContextTTL: 5 * time.Minute,
		Now:           clock.Now,
	})
	require.NoError(t, err)
	return issuer
}

func newTestAuthorizer(t *testing.T) *authz.Enforcer {
	t.Helper()
	e, err := authz.NewEnforcer()
	require.NoError(t, err)
	return e
}

// --- Identities ---

type fakeIdentityRepo struct {
	byID   map[uint]*models.Identity
	findFn func(ctx context.Context, id uint) (*models.Identity, error)
}

func newFakeIdentityRepo(identities ...*models.Identity) *fakeIdentityRepo {
	r := &fakeIdentityRepo{byID: map[uint]*models.Identity{}}
	for _, i := range identities {
		r.byID[i.ID] = i
	}
	return r
}

func (r *fakeIdentityRepo) FindByID(ctx context.Context, id uint) (*models.Identity, error) {
	if r.findFn != nil {
		return r.findFn(ctx, id)
	}
	if i, ok := r.byID[id]; ok {
		return i, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeIdentityRepo) FindByEmail(ctx context.Context, email string) (*models.Identity, error) {
	for _, i := range r.byID {
		if strings.EqualFold(i.Email, email) {
			return i, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeIdentityRepo) FindByIDs(ctx context.Context, ids []uint) ([]models.Identity, error) {
	var out []models.Identity
	for _, id := range ids {
		if i, ok := r.byID[id]; ok {
			out = append(out, *i)
		}
	}
	return out, nil
}

func (r *fakeIdentityRepo) Upsert(ctx context.Context, identity *models.Identity) error {
	r.byID[identity.ID] = identity
	return nil
}

// --- Memberships ---

type fakeMembershipRepo struct {
	mu    sync.Mutex
	rows  []models.Membership
	err   error
	calls int
}

func (r *fakeMembershipRepo) add(identityID uint, event *models.Event, role models.Role) *fakeMembershipRepo {
	r.rows = append(r.rows, models.Membership{
		ID:         uint(len(r.rows) + 1),
		IdentityID: identityID,
		EventID:    event.ID,
		Role:       role,
		Active:     true,
		Event:      event,
	})
	return r
}

func (r *fakeMembershipRepo) deactivate(identityID, eventID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.rows {
		if r.rows[i].IdentityID == identityID && r.rows[i].EventID == eventID {
			r.rows[i].Active = false
		}
	}
}

func (r *fakeMembershipRepo) visible(m models.Membership) bool {
	return m.Active && (m.Event == nil || m.Event.Active)
}

func (r *fakeMembershipRepo) FindActiveByIdentity(ctx context.Context, identityID uint) ([]models.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	var out []models.Membership
	for _, m := range r.rows {
		if m.IdentityID == identityID && r.visible(m) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMembershipRepo) FindActive(ctx context.Context, identityID, eventID uint) (*models.Membership, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	for _, m := range r.rows {
		if m.IdentityID == identityID && m.EventID == eventID && r.visible(m) {
			m := m
			return &m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeMembershipRepo) Upsert(ctx context.Context, membership *models.Membership) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, *membership)
	return nil
}

// --- Badges ---

type badgeKey struct{ identityID, eventID uint }

type fakeBadgeRepo struct {
	byKey map[badgeKey]*models.Badge
}

func newFakeBadgeRepo() *fakeBadgeRepo {
	return &fakeBadgeRepo{byKey: map[badgeKey]*models.Badge{}}
}

func (r *fakeBadgeRepo) FindByIdentityAndEvent(ctx context.Context, identityID, eventID uint) (*models.Badge, error) {
	if b, ok := r.byKey[badgeKey{identityID, eventID}]; ok {
		return b, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeBadgeRepo) Upsert(ctx context.Context, b *models.Badge) error {
	r.byKey[badgeKey{b.IdentityID, b.EventID}] = b
	return nil
}

// --- Rooms ---

type fakeRoomRepo struct {
	rules map[uint]*models.RoomAccessRules
	err   error
}

func newFakeRoomRepo() *fakeRoomRepo {
	return &fakeRoomRepo{rules: map[uint]*models.RoomAccessRules{}}
}

func (r *fakeRoomRepo) addRoom(room models.Room, allow ...uuid.UUID) {
	rules := &models.RoomAccessRules{Room: room, AllowList: map[uuid.UUID]struct{}{}}
	for _, id := range allow {
		rules.AllowList[id] = struct{}{}
	}
	r.rules[room.ID] = rules
}

func (r *fakeRoomRepo) FindAccessRules(ctx context.Context, roomID uint) (*models.RoomAccessRules, error) {
	if r.err != nil {
		return nil, r.err
	}
	if rules, ok := r.rules[roomID]; ok && rules.Room.Active {
		return rules, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRoomRepo) Upsert(ctx context.Context, room *models.Room, allowList []uuid.UUID) error {
	r.addRoom(*room, allowList...)
	return nil
}

// --- Activities ---

type accessKey struct {
	badgeID    uuid.UUID
	activityID uint
}

type fakeActivityRepo struct {
	activities map[uint]*models.Activity
	grants     map[accessKey]*models.ActivityAccess
	accessErr  error
}

func newFakeActivityRepo() *fakeActivityRepo {
	return &fakeActivityRepo{
		activities: map[uint]*models.Activity{},
		grants:     map[accessKey]*models.ActivityAccess{},
	}
}

func (r *fakeActivityRepo) FindByID(ctx context.Context, id uint) (*models.Activity, error) {
	if a, ok := r.activities[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeActivityRepo) FindAccess(ctx context.Context, badgeID uuid.UUID, activityID uint) (*models.ActivityAccess, error) {
	if r.accessErr != nil {
		return nil, r.accessErr
	}
	if g, ok := r.grants[accessKey{badgeID, activityID}]; ok {
		return g, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeActivityRepo) Upsert(ctx context.Context, a *models.Activity) error {
	r.activities[a.ID] = a
	return nil
}

func (r *fakeActivityRepo) UpsertAccess(ctx context.Context, g *models.ActivityAccess) error {
	r.grants[accessKey{g.BadgeID, g.ActivityID}] = g
	return nil
}

// --- Access log ---

type fakeAccessLogRepo struct {
	mu        sync.Mutex
	entries   []models.AccessLog
	createErr error
	filter    repository.LedgerFilter
}

func (r *fakeAccessLogRepo) Create(ctx context.Context, entry *models.AccessLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *fakeAccessLogRepo) all() []models.AccessLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AccessLog(nil), r.entries...)
}

func (r *fakeAccessLogRepo) CountByRoom(ctx context.Context, f repository.LedgerFilter) ([]repository.RoomCount, error) {
	r.filter = f
	counts := map[uint]int64{}
	for _, e := range r.all() {
		if e.EventID == f.EventID {
			counts[e.RoomID]++
		}
	}
	var out []repository.RoomCount
	for room, n := range counts {
		out = append(out, repository.RoomCount{RoomID: room, Count: n})
	}
	return out, nil
}

func (r *fakeAccessLogRepo) CountByDay(ctx context.Context, f repository.LedgerFilter) ([]repository.DayCount, error) {
	return []repository.DayCount{{Day: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Count: int64(len(r.all()))}}, nil
}

func (r *fakeAccessLogRepo) CountByDecision(ctx context.Context, f repository.LedgerFilter) ([]repository.DecisionCount, error) {
	counts := map[models.Decision]int64{}
	for _, e := range r.all() {
		if e.EventID == f.EventID {
			counts[e.Decision]++
		}
	}
	var out []repository.DecisionCount
	for d, n := range counts {
		out = append(out, repository.DecisionCount{Decision: d, Count: n})
	}
	return out, nil
}

func (r *fakeAccessLogRepo) CountDistinctParticipants(ctx context.Context, f repository.LedgerFilter) (int64, error) {
	seen := map[uint]struct{}{}
	for _, e := range r.all() {
		if e.EventID == f.EventID {
			seen[e.IdentityID] = struct{}{}
		}
	}
	return int64(len(seen)), nil
}

func (r *fakeAccessLogRepo) CountGrantedBadges(ctx context.Context, roomID uint, from, to time.Time) (int64, error) {
	seen := map[uuid.UUID]struct{}{}
	for _, e := range r.all() {
		if e.RoomID == roomID && e.Decision == models.DecisionGranted && e.BadgeID != nil &&
			!e.CreatedAt.Before(from) && e.CreatedAt.Before(to) {
			seen[*e.BadgeID] = struct{}{}
		}
	}
	return int64(len(seen)), nil
}

func (r *fakeAccessLogRepo) ExistsGrantedSince(ctx context.Context, badgeID uuid.UUID, roomID uint, since time.Time) (bool, error) {
	for _, e := range r.all() {
		if e.RoomID == roomID && e.Decision == models.DecisionGranted && e.BadgeID != nil &&
			*e.BadgeID == badgeID && !e.CreatedAt.Before(since) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAccessLogRepo) FindByBadge(ctx context.Context, eventID uint, badgeID uuid.UUID, limit int) ([]models.AccessLog, error) {
	var out []models.AccessLog
	for _, e := range r.all() {
		if e.EventID == eventID && e.BadgeID != nil && *e.BadgeID == badgeID {
			out = append(out, e)
		}
	}
	return out, nil
}

// --- Tokens ---

type memTokenRepo struct {
	mu        sync.Mutex
	renewals  map[uuid.UUID]*models.RenewalToken
	revoked   map[string]time.Time
	revokeErr error
	checkErr  error
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{
		renewals: map[uuid.UUID]*models.RenewalToken{},
		revoked:  map[string]time.Time{},
	}
}

func (r *memTokenRepo) CreateRenewal(ctx context.Context, t *models.RenewalToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *t
	r.renewals[t.ID] = &cp
	return nil
}

func (r *memTokenRepo) FindRenewal(ctx context.Context, id uuid.UUID) (*models.RenewalToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.renewals[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	return &cp, nil
}

func (r *memTokenRepo) ConsumeRenewal(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.renewals[id]
	if !ok || t.UsedAt != nil || t.RevokedAt != nil {
		return false, nil
	}
	t.UsedAt = &at
	return true, nil
}

func (r *memTokenRepo) RevokeFamily(ctx context.Context, familyID uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revokeErr != nil {
		return r.revokeErr
	}
	for _, t := range r.renewals {
		if t.FamilyID == familyID && t.RevokedAt == nil {
			t.RevokedAt = &at
		}
	}
	return nil
}

func (r *memTokenRepo) RevokeAccess(ctx context.Context, jti string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.revokeErr != nil {
		return r.revokeErr
	}
	r.revoked[jti] = expiresAt
	return nil
}

func (r *memTokenRepo) IsAccessRevoked(ctx context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.checkErr != nil {
		return false, r.checkErr
	}
	_, ok := r.revoked[jti]
	return ok, nil
}

func (r *memTokenRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for jti, exp := range r.revoked {
		if exp.Before(now) {
			delete(r.revoked, jti)
			n++
		}
	}
	for id, t := range r.renewals {
		if t.ExpiresAt.Before(now) {
			delete(r.renewals, id)
			n++
		}
	}
	return n, nil
}

func (r *memTokenRepo) familyRevoked(family string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.renewals {
		if t.FamilyID.String() == family && t.RevokedAt == nil {
			return false
		}
	}
	return true
}

// --- Publisher ---

type fakePublisher struct {
	mu       sync.Mutex
	keys     []string
	payloads []any
	err      error
}

func (p *fakePublisher) Publish(routingKey string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.keys = append(p.keys, routingKey)
	p.payloads = append(p.payloads, payload)
	return nil
}
