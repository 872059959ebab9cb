package invitations

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avermeer/teambase-backend/pkg/config"
	"github.com/avermeer/teambase-backend/pkg/db/models"
	"github.com/avermeer/teambase-backend/pkg/enums"
	pkgerrors "github.com/avermeer/teambase-backend/pkg/errors"
	"github.com/avermeer/teambase-backend/pkg/outbox"
)

type stubInvitationsRepo struct {
	invitations map[uuid.UUID]*models.Invitation // keyed by invitation ID
	createErr   error
	deleteGone  bool
	updateGone  bool
}

func newStubInvitationsRepo() *stubInvitationsRepo {
	return &stubInvitationsRepo{
		invitations: make(map[uuid.UUID]*models.Invitation),
	}
}

func (s *stubInvitationsRepo) add(inv *models.Invitation) {
	s.invitations[inv.ID] = inv
}

func (s *stubInvitationsRepo) CreateTx(ctx context.Context, tx *gorm.DB, invitation *models.Invitation) error {
	if s.createErr != nil {
		return s.createErr
	}
	invitation.ID = uuid.New()
	s.add(invitation)
	return nil
}

func (s *stubInvitationsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error) {
	inv, ok := s.invitations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return inv, nil
}

func (s *stubInvitationsRepo) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Invitation, error) {
	var out []models.Invitation
	for _, inv := range s.invitations {
		if inv.AccountID == accountID {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (s *stubInvitationsRepo) UpdateRoleTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, role enums.AccountRole) (int64, error) {
	if s.updateGone {
		return 0, nil
	}
	inv, ok := s.invitations[id]
	if !ok {
		return 0, nil
	}
	inv.Role = role
	return 1, nil
}

func (s *stubInvitationsRepo) DeleteByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (int64, error) {
	if s.deleteGone {
		return 0, nil
	}
	if _, ok := s.invitations[id]; !ok {
		return 0, nil
	}
	delete(s.invitations, id)
	return 1, nil
}

type stubMembershipsRepo struct {
	memberships map[uuid.UUID]*models.AccountMembership // keyed by user ID
	createErr   error
	created     []*models.AccountMembership
}

func (s *stubMembershipsRepo) GetMembership(ctx context.Context, userID, accountID uuid.UUID) (*models.AccountMembership, error) {
	m, ok := s.memberships[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m, nil
}

func (s *stubMembershipsRepo) CreateMembershipTx(ctx context.Context, tx *gorm.DB, accountID, userID uuid.UUID, role enums.AccountRole, invitedBy *uuid.UUID) (*models.AccountMembership, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	m := &models.AccountMembership{
		ID:              uuid.New(),
		AccountID:       accountID,
		UserID:          userID,
		Role:            role,
		InvitedByUserID: invitedBy,
	}
	s.created = append(s.created, m)
	return m, nil
}

type stubUsersRepo struct {
	byEmail map[string]*models.User
	byID    map[uuid.UUID]*models.User
}

func newStubUsersRepo() *stubUsersRepo {
	return &stubUsersRepo{
		byEmail: make(map[string]*models.User),
		byID:    make(map[uuid.UUID]*models.User),
	}
}

func (s *stubUsersRepo) add(u *models.User) {
	s.byEmail[u.Email] = u
	s.byID[u.ID] = u
}

func (s *stubUsersRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, ok := s.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (s *stubUsersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

type stubRunner struct{}

func (stubRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubEmitter struct {
	events []outbox.DomainEvent
}

func (s *stubEmitter) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type fixture struct {
	svc       Service
	invites   *stubInvitationsRepo
	members   *stubMembershipsRepo
	users     *stubUsersRepo
	emitter   *stubEmitter
	accountID uuid.UUID
	adminID   uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	invites := newStubInvitationsRepo()
	members := &stubMembershipsRepo{memberships: make(map[uuid.UUID]*models.AccountMembership)}
	users := newStubUsersRepo()
	emitter := &stubEmitter{}

	accountID := uuid.New()
	adminID := uuid.New()
	members.memberships[adminID] = &models.AccountMembership{
		ID:        uuid.New(),
		AccountID: accountID,
		UserID:    adminID,
		Role:      enums.AccountRoleAdmin,
	}

	svc, err := NewService(invites, members, users, stubRunner{}, emitter, config.InvitationsConfig{TTL: 7 * 24 * time.Hour})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	return &fixture{
		svc:       svc,
		invites:   invites,
		members:   members,
		users:     users,
		emitter:   emitter,
		accountID: accountID,
		adminID:   adminID,
	}
}

func singleInvite(email string, role enums.AccountRole) CreateInvitationsRequest {
	return CreateInvitationsRequest{Invites: []InviteInput{{Email: email, Role: role}}}
}

func pendingInvitation(f *fixture, email string, role enums.AccountRole) *models.Invitation {
	inv := &models.Invitation{
		ID:              uuid.New(),
		AccountID:       f.accountID,
		Email:           email,
		Role:            role,
		InvitedByUserID: f.adminID,
		InviteToken:     "tok-" + uuid.NewString(),
		ExpiresAt:       time.Now().Add(time.Hour),
	}
	f.invites.add(inv)
	return inv
}

func TestCreateInvitationSuccess(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), f.adminID, f.accountID, singleInvite("New.Person@Example.com", enums.AccountRoleMember))
	if err != nil {
		t.Fatalf("create invitation: %v", err)
	}
	if len(created) != 1 {
		t.Fatalf("expected one invitation, got %d", len(created))
	}
	dto := created[0]
	if dto.Email != "new.person@example.com" {
		t.Fatalf("expected normalized email, got %q", dto.Email)
	}
	if dto.InviteToken == "" {
		t.Fatal("expected invite token returned to inviter")
	}
	if dto.ExpiresAt.Before(time.Now().Add(6 * 24 * time.Hour)) {
		t.Fatalf("expected expiry roughly seven days out, got %v", dto.ExpiresAt)
	}
	if len(f.emitter.events) != 1 || f.emitter.events[0].EventType != enums.EventInvitationCreated {
		t.Fatalf("expected invitation_created event, got %v", f.emitter.events)
	}
}

func TestCreateInvitationBatch(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.Create(context.Background(), f.adminID, f.accountID, CreateInvitationsRequest{
		Invites: []InviteInput{
			{Email: "a@x.com", Role: enums.AccountRoleMember},
			{Email: "b@x.com", Role: enums.AccountRoleMember},
		},
	})
	if err != nil {
		t.Fatalf("create invitations: %v", err)
	}
	if len(created) != 2 {
		t.Fatalf("expected two invitations, got %d", len(created))
	}
	if len(f.invites.invitations) != 2 {
		t.Fatalf("expected two pending rows, got %d", len(f.invites.invitations))
	}
	if len(f.emitter.events) != 2 {
		t.Fatalf("expected one event per invitation, got %d", len(f.emitter.events))
	}
}

func TestCreateInvitationRejectsDuplicateInBatch(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.adminID, f.accountID, CreateInvitationsRequest{
		Invites: []InviteInput{
			{Email: "same@x.com", Role: enums.AccountRoleMember},
			{Email: "Same@x.com", Role: enums.AccountRoleAdmin},
		},
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
	if len(f.invites.invitations) != 0 {
		t.Fatal("a rejected batch must insert nothing")
	}
}

func TestCreateInvitationRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	memberID := uuid.New()
	f.members.memberships[memberID] = &models.AccountMembership{
		AccountID: f.accountID,
		UserID:    memberID,
		Role:      enums.AccountRoleMember,
	}

	_, err := f.svc.Create(context.Background(), memberID, f.accountID, singleInvite("someone@example.com", enums.AccountRoleMember))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateInvitationAdminCannotGrantOwner(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.adminID, f.accountID, singleInvite("someone@example.com", enums.AccountRoleOwner))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestCreateInvitationRejectsExistingMember(t *testing.T) {
	f := newFixture(t)
	existing := &models.User{ID: uuid.New(), Email: "member@example.com"}
	f.users.add(existing)
	f.members.memberships[existing.ID] = &models.AccountMembership{
		AccountID: f.accountID,
		UserID:    existing.ID,
		Role:      enums.AccountRoleMember,
	}

	_, err := f.svc.Create(context.Background(), f.adminID, f.accountID, singleInvite("member@example.com", enums.AccountRoleMember))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateInvitationDuplicatePending(t *testing.T) {
	f := newFixture(t)
	f.invites.createErr = errors.New(`duplicate key value violates unique constraint "ux_invitations_account_email"`)

	_, err := f.svc.Create(context.Background(), f.adminID, f.accountID, singleInvite("pending@example.com", enums.AccountRoleMember))
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestUpdateInvitationRole(t *testing.T) {
	f := newFixture(t)
	inv := pendingInvitation(f, "invitee@example.com", enums.AccountRoleMember)

	dto, err := f.svc.Update(context.Background(), f.adminID, inv.ID, enums.AccountRoleAdmin)
	if err != nil {
		t.Fatalf("update invitation: %v", err)
	}
	if dto.Role != enums.AccountRoleAdmin {
		t.Fatalf("expected admin role, got %s", dto.Role)
	}
	if f.invites.invitations[inv.ID].Role != enums.AccountRoleAdmin {
		t.Fatal("expected role persisted")
	}
	if len(f.emitter.events) != 1 || f.emitter.events[0].EventType != enums.EventInvitationUpdated {
		t.Fatalf("expected invitation_updated event, got %v", f.emitter.events)
	}
}

func TestUpdateInvitationRejectsNoOp(t *testing.T) {
	f := newFixture(t)
	inv := pendingInvitation(f, "invitee@example.com", enums.AccountRoleMember)

	_, err := f.svc.Update(context.Background(), f.adminID, inv.ID, enums.AccountRoleMember)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for no-op role change, got %v", err)
	}
}

func TestUpdateInvitationCannotGrantAboveOwnRole(t *testing.T) {
	f := newFixture(t)
	inv := pendingInvitation(f, "invitee@example.com", enums.AccountRoleMember)

	_, err := f.svc.Update(context.Background(), f.adminID, inv.ID, enums.AccountRoleOwner)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateInvitationMissing(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Update(context.Background(), f.adminID, uuid.New(), enums.AccountRoleAdmin)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAcceptInvitationSuccess(t *testing.T) {
	f := newFixture(t)
	invitee := &models.User{ID: uuid.New(), Email: "invitee@example.com"}
	f.users.add(invitee)
	inv := pendingInvitation(f, "invitee@example.com", enums.AccountRoleMember)

	dto, err := f.svc.Accept(context.Background(), invitee.ID, inv.ID)
	if err != nil {
		t.Fatalf("accept invitation: %v", err)
	}
	if dto.AccountID != f.accountID || dto.UserID != invitee.ID {
		t.Fatalf("unexpected membership %+v", dto)
	}
	if dto.Role != enums.AccountRoleMember {
		t.Fatalf("expected member role, got %s", dto.Role)
	}
	if len(f.invites.invitations) != 0 {
		t.Fatal("expected invitation consumed")
	}
	if len(f.emitter.events) != 1 || f.emitter.events[0].EventType != enums.EventInvitationAccepted {
		t.Fatalf("expected invitation_accepted event, got %v", f.emitter.events)
	}
}

func TestAcceptInvitationWrongEmail(t *testing.T) {
	f := newFixture(t)
	other := &models.User{ID: uuid.New(), Email: "other@example.com"}
	f.users.add(other)
	inv := pendingInvitation(f, "invitee@example.com", enums.AccountRoleMember)

	_, err := f.svc.Accept(context.Background(), other.ID, inv.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestAcceptInvitationExpired(t *testing.T) {
	f := newFixture(t)
	invitee := &models.User{ID: uuid.New(), Email: "invitee@example.com"}
	f.users.add(invitee)
	inv := pendingInvitation(f, "invitee@example.com", enums.AccountRoleMember)
	inv.ExpiresAt = time.Now().Add(-time.Minute)

	_, err := f.svc.Accept(context.Background(), invitee.ID, inv.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for expired invitation, got %v", err)
	}
	if len(f.invites.invitations) != 1 {
		t.Fatal("expired invitation should not be consumed on failed accept")
	}
}

func TestAcceptInvitationRaceLoserGetsNotFound(t *testing.T) {
	f := newFixture(t)
	invitee := &models.User{ID: uuid.New(), Email: "invitee@example.com"}
	f.users.add(invitee)
	inv := pendingInvitation(f, "invitee@example.com", enums.AccountRoleMember)
	f.invites.deleteGone = true // another acceptor consumed the row first

	_, err := f.svc.Accept(context.Background(), invitee.ID, inv.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found for race loser, got %v", err)
	}
	if len(f.members.created) != 0 {
		t.Fatal("race loser must not gain a membership")
	}
}

func TestAcceptInvitationExistingMembershipConflict(t *testing.T) {
	f := newFixture(t)
	invitee := &models.User{ID: uuid.New(), Email: "invitee@example.com"}
	f.users.add(invitee)
	inv := pendingInvitation(f, "invitee@example.com", enums.AccountRoleMember)
	f.members.createErr = errors.New(`duplicate key value violates unique constraint "ux_account_memberships_account_user"`)

	_, err := f.svc.Accept(context.Background(), invitee.ID, inv.ID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAcceptInvitationUnknown(t *testing.T) {
	f := newFixture(t)
	invitee := &models.User{ID: uuid.New(), Email: "invitee@example.com"}
	f.users.add(invitee)

	_, err := f.svc.Accept(context.Background(), invitee.ID, uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRevokeInvitation(t *testing.T) {
	f := newFixture(t)
	inv := pendingInvitation(f, "invitee@example.com", enums.AccountRoleMember)

	if err := f.svc.Revoke(context.Background(), f.adminID, inv.ID); err != nil {
		t.Fatalf("revoke invitation: %v", err)
	}
	if len(f.invites.invitations) != 0 {
		t.Fatal("expected invitation deleted")
	}
	if len(f.emitter.events) != 1 || f.emitter.events[0].EventType != enums.EventInvitationRevoked {
		t.Fatalf("expected invitation_revoked event, got %v", f.emitter.events)
	}

	if err := f.svc.Revoke(context.Background(), f.adminID, inv.ID); err == nil {
		t.Fatal("expected not found on second revoke")
	}
}
