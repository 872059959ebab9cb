package accounts

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

type stubAccountsRepo struct {
	account   *models.Account
	createErr error
	findErr   error
	updateErr error
}

func (s *stubAccountsRepo) CreateTx(ctx context.Context, tx *gorm.DB, dto CreateAccountDTO) (*models.Account, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	account := dto.ToModel()
	account.ID = uuid.New()
	s.account = account
	return account, nil
}

func (s *stubAccountsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.account == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.account, nil
}

func (s *stubAccountsRepo) Update(ctx context.Context, account *models.Account) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.account = account
	return nil
}

type stubMembershipsRepo struct {
	membership    *models.AccountMembership
	membershipErr error
	created       []enums.AccountRole
}

func (s *stubMembershipsRepo) GetMembership(ctx context.Context, userID, accountID uuid.UUID) (*models.AccountMembership, error) {
	if s.membershipErr != nil {
		return nil, s.membershipErr
	}
	if s.membership == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.membership, nil
}

func (s *stubMembershipsRepo) CreateMembershipTx(ctx context.Context, tx *gorm.DB, accountID, userID uuid.UUID, role enums.AccountRole, invitedBy *uuid.UUID) (*models.AccountMembership, error) {
	s.created = append(s.created, role)
	return &models.AccountMembership{
		ID:        uuid.New(),
		AccountID: accountID,
		UserID:    userID,
		Role:      role,
	}, nil
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

func TestCreateAccountProvisionsOwnerMembership(t *testing.T) {
	repo := &stubAccountsRepo{}
	members := &stubMembershipsRepo{}
	emitter := &stubEmitter{}
	svc, err := NewService(repo, members, stubRunner{}, emitter)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	creatorID := uuid.New()
	dto, err := svc.Create(context.Background(), creatorID, CreateAccountRequest{Name: "Acme"})
	if err != nil {
		t.Fatalf("create account: %v", err)
	}
	if dto.Type != enums.AccountTypeTeam {
		t.Fatalf("expected team account, got %s", dto.Type)
	}
	if dto.PrimaryOwnerUserID != creatorID {
		t.Fatalf("expected primary owner %s, got %s", creatorID, dto.PrimaryOwnerUserID)
	}
	if len(members.created) != 1 || members.created[0] != enums.AccountRoleOwner {
		t.Fatalf("expected owner membership created, got %v", members.created)
	}
	if len(emitter.events) != 1 || emitter.events[0].EventType != enums.EventAccountCreated {
		t.Fatalf("expected account_created event, got %v", emitter.events)
	}
}

func TestCreateAccountRejectsBlankName(t *testing.T) {
	svc, _ := NewService(&stubAccountsRepo{}, &stubMembershipsRepo{}, stubRunner{}, &stubEmitter{})

	_, err := svc.Create(context.Background(), uuid.New(), CreateAccountRequest{Name: "   "})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateAccountSlugConflict(t *testing.T) {
	repo := &stubAccountsRepo{createErr: errors.New(`duplicate key value violates unique constraint "accounts_slug_key"`)}
	svc, _ := NewService(repo, &stubMembershipsRepo{}, stubRunner{}, &stubEmitter{})

	slug := "acme"
	_, err := svc.Create(context.Background(), uuid.New(), CreateAccountRequest{Name: "Acme", Slug: &slug})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestGetByIDRequiresMembership(t *testing.T) {
	repo := &stubAccountsRepo{account: &models.Account{ID: uuid.New()}}
	svc, _ := NewService(repo, &stubMembershipsRepo{}, stubRunner{}, &stubEmitter{})

	_, err := svc.GetByID(context.Background(), uuid.New(), uuid.New())
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateRequiresAdminRank(t *testing.T) {
	accountID := uuid.New()
	actorID := uuid.New()
	repo := &stubAccountsRepo{account: &models.Account{ID: accountID, Name: "Acme"}}
	members := &stubMembershipsRepo{membership: &models.AccountMembership{
		AccountID: accountID,
		UserID:    actorID,
		Role:      enums.AccountRoleMember,
	}}
	svc, _ := NewService(repo, members, stubRunner{}, &stubEmitter{})

	name := "Renamed"
	_, err := svc.Update(context.Background(), actorID, accountID, UpdateAccountInput{Name: &name})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateSuccess(t *testing.T) {
	accountID := uuid.New()
	actorID := uuid.New()
	repo := &stubAccountsRepo{account: &models.Account{ID: accountID, Name: "Acme"}}
	members := &stubMembershipsRepo{membership: &models.AccountMembership{
		AccountID: accountID,
		UserID:    actorID,
		Role:      enums.AccountRoleAdmin,
	}}
	svc, _ := NewService(repo, members, stubRunner{}, &stubEmitter{})

	name := "Renamed"
	dto, err := svc.Update(context.Background(), actorID, accountID, UpdateAccountInput{Name: &name})
	if err != nil {
		t.Fatalf("update account: %v", err)
	}
	if dto.Name != "Renamed" {
		t.Fatalf("expected renamed account, got %s", dto.Name)
	}
}
