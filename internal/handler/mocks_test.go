package handler

import (
	"context"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/Eursukkul/event-admission/internal/middleware"
	"github.com/Eursukkul/event-admission/internal/models"
	"github.com/Eursukkul/event-admission/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// --- Mock ContextService ---

type mockContextService struct {
	startFn  func(ctx context.Context, email, secret string) (*service.StartResult, error)
	selectFn func(ctx context.Context, preContextToken string, eventID uint) (*service.TokenPair, error)
	switchFn func(ctx context.Context, sc models.SessionContext, eventID uint) (*service.TokenPair, error)
	renewFn  func(ctx context.Context, renewalToken string) (*service.TokenPair, error)
	logoutFn func(ctx context.Context, sc models.SessionContext) error
	listFn   func(ctx context.Context, sc models.SessionContext) ([]service.MembershipView, error)
	authFn   func(ctx context.Context, accessToken string) (models.SessionContext, error)
}

func (m *mockContextService) StartSession(ctx context.Context, email, secret string) (*service.StartResult, error) {
	return m.startFn(ctx, email, secret)
}
func (m *mockContextService) ResolveInitial(ctx context.Context, identityID uint) (*service.StartResult, error) {
	return nil, nil
}
func (m *mockContextService) ResolveSelection(ctx context.Context, preContextToken string, eventID uint) (*service.TokenPair, error) {
	return m.selectFn(ctx, preContextToken, eventID)
}
func (m *mockContextService) Authenticate(ctx context.Context, accessToken string) (models.SessionContext, error) {
	return m.authFn(ctx, accessToken)
}
func (m *mockContextService) Switch(ctx context.Context, sc models.SessionContext, eventID uint) (*service.TokenPair, error) {
	return m.switchFn(ctx, sc, eventID)
}
func (m *mockContextService) Renew(ctx context.Context, renewalToken string) (*service.TokenPair, error) {
	return m.renewFn(ctx, renewalToken)
}
func (m *mockContextService) Logout(ctx context.Context, sc models.SessionContext) error {
	return m.logoutFn(ctx, sc)
}
func (m *mockContextService) ListEvents(ctx context.Context, sc models.SessionContext) ([]service.MembershipView, error) {
	return m.listFn(ctx, sc)
}
func (m *mockContextService) PurgeExpired(ctx context.Context) (int64, error) { return 0, nil }

// --- Mock VerificationService ---

type mockVerificationService struct {
	verifyFn func(ctx context.Context, verifier models.SessionContext, req service.VerifyRequest) (*service.VerifyResult, error)
}

func (m *mockVerificationService) Verify(ctx context.Context, verifier models.SessionContext, req service.VerifyRequest) (*service.VerifyResult, error) {
	return m.verifyFn(ctx, verifier, req)
}

// --- Mock LedgerService ---

type mockLedgerService struct {
	statsFn      func(ctx context.Context, sc models.SessionContext, from, to time.Time) (*service.LedgerStats, error)
	admissionsFn func(ctx context.Context, sc models.SessionContext, roomID uint, day time.Time) (*service.Admissions, error)
	historyFn    func(ctx context.Context, sc models.SessionContext, badgeID uuid.UUID) ([]models.AccessLog, error)
}

func (m *mockLedgerService) Append(ctx context.Context, entry *models.AccessLog) error { return nil }
func (m *mockLedgerService) RecentlyGranted(ctx context.Context, badgeID uuid.UUID, roomID uint, since time.Time) (bool, error) {
	return false, nil
}
func (m *mockLedgerService) Stats(ctx context.Context, sc models.SessionContext, from, to time.Time) (*service.LedgerStats, error) {
	return m.statsFn(ctx, sc, from, to)
}
func (m *mockLedgerService) AdmissionsOn(ctx context.Context, sc models.SessionContext, roomID uint, day time.Time) (*service.Admissions, error) {
	return m.admissionsFn(ctx, sc, roomID, day)
}
func (m *mockLedgerService) BadgeHistory(ctx context.Context, sc models.SessionContext, badgeID uuid.UUID) ([]models.AccessLog, error) {
	return m.historyFn(ctx, sc, badgeID)
}

// --- Helpers ---

var (
	gateSession      = models.SessionContext{IdentityID: 100, EventID: 1, Role: models.RoleBadgeController, TokenID: "jti-1"}
	organizerSession = models.SessionContext{IdentityID: 1, EventID: 1, Role: models.RoleOrganizer, TokenID: "jti-2"}
)

func newJSONContext(method, target, body string, sc *models.SessionContext) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if sc != nil {
		middleware.SetSession(c, *sc)
	}
	return c, rec
}

func samplePair(sc models.SessionContext) *service.TokenPair {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	return &service.TokenPair{
		AccessToken:      "access",
		AccessExpiresAt:  now.Add(15 * time.Minute),
		RenewalToken:     "renewal",
		RenewalExpiresAt: now.Add(7 * 24 * time.Hour),
		Context:          sc,
	}
}
