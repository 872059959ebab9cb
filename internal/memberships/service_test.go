package memberships

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avermeer/teambase-backend/pkg/db/models"
	"github.com/avermeer/teambase-backend/pkg/enums"
	pkgerrors "github.com/avermeer/teambase-backend/pkg/errors"
	"github.com/avermeer/teambase-backend/pkg/outbox"
)

type stubRepo struct {
	memberships map[uuid.UUID]*models.AccountMembership // keyed by user ID
	ownerCount  int64
	members     []AccountMemberDTO
	accounts    []MembershipWithAccount

	updatedRole *enums.AccountRole
	deletedID   *uuid.UUID
	err         error
}

func (s *stubRepo) ListUserAccounts(ctx context.Context, userID uuid.UUID) ([]MembershipWithAccount, error) {
	return s.accounts, s.err
}

func (s *stubRepo) ListAccountMembers(ctx context.Context, accountID uuid.UUID) ([]AccountMemberDTO, error) {
	return s.members, s.err
}

func (s *stubRepo) GetMembership(ctx context.Context, userID, accountID uuid.UUID) (*models.AccountMembership, error) {
	if s.err != nil {
		return nil, s.err
	}
	m, ok := s.memberships[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m, nil
}

func (s *stubRepo) CountByRole(ctx context.Context, accountID uuid.UUID, role enums.AccountRole) (int64, error) {
	return s.ownerCount, nil
}

func (s *stubRepo) UpdateRoleTx(ctx context.Context, tx *gorm.DB, membershipID uuid.UUID, role enums.AccountRole) error {
	s.updatedRole = &role
	return nil
}

func (s *stubRepo) DeleteTx(ctx context.Context, tx *gorm.DB, membershipID uuid.UUID) error {
	s.deletedID = &membershipID
	return nil
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

func membership(userID, accountID uuid.UUID, role enums.AccountRole) *models.AccountMembership {
	return &models.AccountMembership{
		ID:        uuid.New(),
		AccountID: accountID,
		UserID:    userID,
		Role:      role,
	}
}

func TestNewServiceRequiresDeps(t *testing.T) {
	if _, err := NewService(nil, stubRunner{}, &stubEmitter{}); err == nil {
		t.Fatal("expected error creating service without repo")
	}
	if _, err := NewService(&stubRepo{}, nil, &stubEmitter{}); err == nil {
		t.Fatal("expected error creating service without tx runner")
	}
	if _, err := NewService(&stubRepo{}, stubRunner{}, nil); err == nil {
		t.Fatal("expected error creating service without emitter")
	}
}

func TestUpdateMemberRoleSuccess(t *testing.T) {
	accountID := uuid.New()
	actorID := uuid.New()
	targetID := uuid.New()
	repo := &stubRepo{
		memberships: map[uuid.UUID]*models.AccountMembership{
			actorID:  membership(actorID, accountID, enums.AccountRoleOwner),
			targetID: membership(targetID, accountID, enums.AccountRoleMember),
		},
		ownerCount: 1,
	}
	emitter := &stubEmitter{}
	svc, err := NewService(repo, stubRunner{}, emitter)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	dto, err := svc.UpdateMemberRole(context.Background(), actorID, accountID, targetID, enums.AccountRoleAdmin)
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if dto.Role != enums.AccountRoleAdmin {
		t.Fatalf("expected role admin, got %s", dto.Role)
	}
	if repo.updatedRole == nil || *repo.updatedRole != enums.AccountRoleAdmin {
		t.Fatal("expected role update persisted")
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventMemberRoleChanged {
		t.Fatalf("expected member_role_changed event, got %v", emitter.events)
	}
}

func TestUpdateMemberRoleSameRoleConflict(t *testing.T) {
	accountID := uuid.New()
	actorID := uuid.New()
	targetID := uuid.New()
	repo := &stubRepo{
		memberships: map[uuid.UUID]*models.AccountMembership{
			actorID:  membership(actorID, accountID, enums.AccountRoleOwner),
			targetID: membership(targetID, accountID, enums.AccountRoleMember),
		},
		ownerCount: 1,
	}
	emitter := &stubEmitter{}
	svc, _ := NewService(repo, stubRunner{}, emitter)

	_, err := svc.UpdateMemberRole(context.Background(), actorID, accountID, targetID, enums.AccountRoleMember)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for unchanged role, got %v", err)
	}
	if repo.updatedRole != nil {
		t.Fatal("unchanged role must not be persisted")
	}
	if len(emitter.events) != 0 {
		t.Fatalf("unchanged role must not emit events, got %v", emitter.events)
	}
}

func TestUpdateMemberRoleForbiddenForMembers(t *testing.T) {
	accountID := uuid.New()
	actorID := uuid.New()
	targetID := uuid.New()
	repo := &stubRepo{
		memberships: map[uuid.UUID]*models.AccountMembership{
			actorID:  membership(actorID, accountID, enums.AccountRoleMember),
			targetID: membership(targetID, accountID, enums.AccountRoleMember),
		},
	}
	svc, _ := NewService(repo, stubRunner{}, &stubEmitter{})

	_, err := svc.UpdateMemberRole(context.Background(), actorID, accountID, targetID, enums.AccountRoleAdmin)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateMemberRoleAdminCannotTouchOwner(t *testing.T) {
	accountID := uuid.New()
	actorID := uuid.New()
	targetID := uuid.New()
	repo := &stubRepo{
		memberships: map[uuid.UUID]*models.AccountMembership{
			actorID:  membership(actorID, accountID, enums.AccountRoleAdmin),
			targetID: membership(targetID, accountID, enums.AccountRoleOwner),
		},
		ownerCount: 2,
	}
	svc, _ := NewService(repo, stubRunner{}, &stubEmitter{})

	_, err := svc.UpdateMemberRole(context.Background(), actorID, accountID, targetID, enums.AccountRoleMember)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateMemberRoleAdminCannotGrantOwner(t *testing.T) {
	accountID := uuid.New()
	actorID := uuid.New()
	targetID := uuid.New()
	repo := &stubRepo{
		memberships: map[uuid.UUID]*models.AccountMembership{
			actorID:  membership(actorID, accountID, enums.AccountRoleAdmin),
			targetID: membership(targetID, accountID, enums.AccountRoleMember),
		},
	}
	svc, _ := NewService(repo, stubRunner{}, &stubEmitter{})

	_, err := svc.UpdateMemberRole(context.Background(), actorID, accountID, targetID, enums.AccountRoleOwner)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateMemberRoleLastOwnerFloor(t *testing.T) {
	accountID := uuid.New()
	actorID := uuid.New()
	repo := &stubRepo{
		memberships: map[uuid.UUID]*models.AccountMembership{
			actorID: membership(actorID, accountID, enums.AccountRoleOwner),
		},
		ownerCount: 1,
	}
	svc, _ := NewService(repo, stubRunner{}, &stubEmitter{})

	_, err := svc.UpdateMemberRole(context.Background(), actorID, accountID, actorID, enums.AccountRoleAdmin)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for last owner demotion, got %v", err)
	}
}

func TestRemoveMemberSuccess(t *testing.T) {
	accountID := uuid.New()
	actorID := uuid.New()
	targetID := uuid.New()
	repo := &stubRepo{
		memberships: map[uuid.UUID]*models.AccountMembership{
			actorID:  membership(actorID, accountID, enums.AccountRoleAdmin),
			targetID: membership(targetID, accountID, enums.AccountRoleMember),
		},
	}
	emitter := &stubEmitter{}
	svc, _ := NewService(repo, stubRunner{}, emitter)

	if err := svc.RemoveMember(context.Background(), actorID, accountID, targetID); err != nil {
		t.Fatalf("remove member: %v", err)
	}
	if repo.deletedID == nil {
		t.Fatal("expected membership deleted")
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventMemberRemoved {
		t.Fatalf("expected member_removed event, got %v", emitter.events)
	}
}

func TestRemoveMemberSelfLeaveAllowedForMember(t *testing.T) {
	accountID := uuid.New()
	actorID := uuid.New()
	repo := &stubRepo{
		memberships: map[uuid.UUID]*models.AccountMembership{
			actorID: membership(actorID, accountID, enums.AccountRoleMember),
		},
	}
	svc, _ := NewService(repo, stubRunner{}, &stubEmitter{})

	if err := svc.RemoveMember(context.Background(), actorID, accountID, actorID); err != nil {
		t.Fatalf("self leave: %v", err)
	}
}

func TestRemoveMemberLastOwnerBlocked(t *testing.T) {
	accountID := uuid.New()
	actorID := uuid.New()
	repo := &stubRepo{
		memberships: map[uuid.UUID]*models.AccountMembership{
			actorID: membership(actorID, accountID, enums.AccountRoleOwner),
		},
		ownerCount: 1,
	}
	svc, _ := NewService(repo, stubRunner{}, &stubEmitter{})

	err := svc.RemoveMember(context.Background(), actorID, accountID, actorID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for last owner removal, got %v", err)
	}
}

func TestRemoveMemberNotFound(t *testing.T) {
	accountID := uuid.New()
	actorID := uuid.New()
	repo := &stubRepo{
		memberships: map[uuid.UUID]*models.AccountMembership{
			actorID: membership(actorID, accountID, enums.AccountRoleOwner),
		},
		ownerCount: 2,
	}
	svc, _ := NewService(repo, stubRunner{}, &stubEmitter{})

	err := svc.RemoveMember(context.Background(), actorID, accountID, uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestListMembersRequiresMembership(t *testing.T) {
	repo := &stubRepo{memberships: map[uuid.UUID]*models.AccountMembership{}}
	svc, _ := NewService(repo, stubRunner{}, &stubEmitter{})

	_, err := svc.ListMembers(context.Background(), uuid.New(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestListAccountsDependencyError(t *testing.T) {
	repo := &stubRepo{err: errors.New("boom")}
	svc, _ := NewService(repo, stubRunner{}, &stubEmitter{})

	_, err := svc.ListAccounts(context.Background(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
