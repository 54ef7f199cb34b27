package services_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stripe/stripe-go/v76"

	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/models"
	"github.com/Lacherthompson/cash-safari-vault-sub000/internal/realtime"
)

// Ручные моки зависимостей сервисного слоя на testify/mock.

// --- Mock UserRepository --- //

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *models.User) (int64, error) {
	args := m.Called(ctx, user)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, userID int64) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) SetEmailOptOut(ctx context.Context, userID int64, optOut bool) error {
	args := m.Called(ctx, userID, optOut)
	return args.Error(0)
}

func (m *MockUserRepository) ListSignedUpDaysAgo(ctx context.Context, days int) ([]models.User, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

// --- Mock VaultRepository --- //

type MockVaultRepository struct {
	mock.Mock
}

func (m *MockVaultRepository) CreateVault(ctx context.Context, vault *models.Vault) (int64, error) {
	args := m.Called(ctx, vault)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVaultRepository) GetVaultByID(ctx context.Context, vaultID int64) (*models.Vault, error) {
	args := m.Called(ctx, vaultID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vault), args.Error(1)
}

func (m *MockVaultRepository) ListVaultsByUserID(ctx context.Context, userID int64) ([]models.VaultSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.VaultSummary), args.Error(1)
}

func (m *MockVaultRepository) UpdateVault(ctx context.Context, vault *models.Vault) error {
	args := m.Called(ctx, vault)
	return args.Error(0)
}

func (m *MockVaultRepository) UpdateGoal(ctx context.Context, vaultID, goal int64) error {
	args := m.Called(ctx, vaultID, goal)
	return args.Error(0)
}

func (m *MockVaultRepository) UpdateStreak(
	ctx context.Context,
	vaultID int64,
	current, longest int,
	lastActivity *time.Time,
) error {
	args := m.Called(ctx, vaultID, current, longest, lastActivity)
	return args.Error(0)
}

func (m *MockVaultRepository) DeleteVault(ctx context.Context, vaultID int64) error {
	args := m.Called(ctx, vaultID)
	return args.Error(0)
}

func (m *MockVaultRepository) ListNeedingReminder(ctx context.Context) ([]models.Vault, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Vault), args.Error(1)
}

// --- Mock TileRepository --- //

type MockTileRepository struct {
	mock.Mock
}

func (m *MockTileRepository) CreateTiles(ctx context.Context, vaultID, userID int64, amounts []int64) error {
	args := m.Called(ctx, vaultID, userID, amounts)
	return args.Error(0)
}

func (m *MockTileRepository) ListTilesByVault(ctx context.Context, vaultID int64) ([]models.Tile, error) {
	args := m.Called(ctx, vaultID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Tile), args.Error(1)
}

func (m *MockTileRepository) GetTileByID(ctx context.Context, tileID int64) (*models.Tile, error) {
	args := m.Called(ctx, tileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Tile), args.Error(1)
}

func (m *MockTileRepository) SetChecked(ctx context.Context, tileID int64, checked bool) (*time.Time, error) {
	args := m.Called(ctx, tileID, checked)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

func (m *MockTileRepository) UncheckAll(ctx context.Context, vaultID int64) error {
	args := m.Called(ctx, vaultID)
	return args.Error(0)
}

func (m *MockTileRepository) DeleteTilesByMember(ctx context.Context, vaultID, userID int64) error {
	args := m.Called(ctx, vaultID, userID)
	return args.Error(0)
}

func (m *MockTileRepository) DeleteTilesByVault(ctx context.Context, vaultID int64) error {
	args := m.Called(ctx, vaultID)
	return args.Error(0)
}

func (m *MockTileRepository) SavedAmount(ctx context.Context, vaultID int64) (int64, error) {
	args := m.Called(ctx, vaultID)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock MembershipRepository --- //

type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) CreateMembership(ctx context.Context, vaultID, userID int64) (int64, error) {
	args := m.Called(ctx, vaultID, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockMembershipRepository) IsMember(ctx context.Context, vaultID, userID int64) (bool, error) {
	args := m.Called(ctx, vaultID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMembershipRepository) ListMembersByVault(ctx context.Context, vaultID int64) ([]models.Member, error) {
	args := m.Called(ctx, vaultID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Member), args.Error(1)
}

func (m *MockMembershipRepository) DeleteMembership(ctx context.Context, vaultID, userID int64) error {
	args := m.Called(ctx, vaultID, userID)
	return args.Error(0)
}

// --- Mock InvitationRepository --- //

type MockInvitationRepository struct {
	mock.Mock
}

func (m *MockInvitationRepository) CreateInvitation(ctx context.Context, inv *models.Invitation) (int64, error) {
	args := m.Called(ctx, inv)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvitationRepository) GetInvitationByID(
	ctx context.Context,
	invitationID int64,
) (*models.Invitation, error) {
	args := m.Called(ctx, invitationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invitation), args.Error(1)
}

func (m *MockInvitationRepository) ListInvitationsByVault(
	ctx context.Context,
	vaultID int64,
) ([]models.Invitation, error) {
	args := m.Called(ctx, vaultID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Invitation), args.Error(1)
}

func (m *MockInvitationRepository) MarkAccepted(ctx context.Context, invitationID int64) error {
	args := m.Called(ctx, invitationID)
	return args.Error(0)
}

func (m *MockInvitationRepository) DeleteByVaultAndEmail(ctx context.Context, vaultID int64, email string) error {
	args := m.Called(ctx, vaultID, email)
	return args.Error(0)
}

// --- Mock PurchaseRepository --- //

type MockPurchaseRepository struct {
	mock.Mock
}

func (m *MockPurchaseRepository) CreatePurchase(ctx context.Context, purchase *models.Purchase) (int64, error) {
	args := m.Called(ctx, purchase)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPurchaseRepository) GetBySessionID(ctx context.Context, sessionID string) (*models.Purchase, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Purchase), args.Error(1)
}

// --- Mock Mailer --- //

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendInvitation(toEmail, inviterName, vaultName string) error {
	args := m.Called(toEmail, inviterName, vaultName)
	return args.Error(0)
}

func (m *MockMailer) SendStreakReminder(toEmail string, userID int64, vaultName string) error {
	args := m.Called(toEmail, userID, vaultName)
	return args.Error(0)
}

func (m *MockMailer) SendDrip(toEmail string, userID int64, username string, day int) error {
	args := m.Called(toEmail, userID, username, day)
	return args.Error(0)
}

func (m *MockMailer) DripDays() []int {
	args := m.Called()
	return args.Get(0).([]int)
}

// --- Mock CheckoutClient --- //

type MockCheckoutClient struct {
	mock.Mock
}

func (m *MockCheckoutClient) CreateCheckoutSession(userID int64, plan string) (string, error) {
	args := m.Called(userID, plan)
	return args.String(0), args.Error(1)
}

func (m *MockCheckoutClient) ParseWebhookEvent(payload []byte, signature string) (*stripe.Event, error) {
	args := m.Called(payload, signature)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Event), args.Error(1)
}

// --- Публикатор событий, запоминающий публикации --- //

type recordingPublisher struct {
	events []publishedEvent
}

type publishedEvent struct {
	vaultID int64
	event   realtime.Event
}

func (p *recordingPublisher) Publish(vaultID int64, event realtime.Event) {
	p.events = append(p.events, publishedEvent{vaultID: vaultID, event: event})
}
