package accounts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/avermeer/teambase-backend/pkg/db"
	"github.com/avermeer/teambase-backend/pkg/db/models"
	"github.com/avermeer/teambase-backend/pkg/enums"
	pkgerrors "github.com/avermeer/teambase-backend/pkg/errors"
	"github.com/avermeer/teambase-backend/pkg/outbox"
)

type accountsRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, dto CreateAccountDTO) (*models.Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
}

type membershipsRepository interface {
	GetMembership(ctx context.Context, userID, accountID uuid.UUID) (*models.AccountMembership, error)
	CreateMembershipTx(ctx context.Context, tx *gorm.DB, accountID, userID uuid.UUID, role enums.AccountRole, invitedBy *uuid.UUID) (*models.AccountMembership, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes account operations.
type Service interface {
	Create(ctx context.Context, creatorID uuid.UUID, req CreateAccountRequest) (*AccountDTO, error)
	GetByID(ctx context.Context, actorID, accountID uuid.UUID) (*AccountDTO, error)
	Update(ctx context.Context, actorID, accountID uuid.UUID, input UpdateAccountInput) (*AccountDTO, error)
}

type service struct {
	repo        accountsRepository
	memberships membershipsRepository
	txRunner    txRunner
	emitter     outboxEmitter
}

// NewService builds an account service with the provided dependencies.
func NewService(repo accountsRepository, memberships membershipsRepository, runner txRunner, emitter outboxEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("accounts repository required")
	}
	if memberships == nil {
		return nil, fmt.Errorf("memberships repository required")
	}
	if runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:        repo,
		memberships: memberships,
		txRunner:    runner,
		emitter:     emitter,
	}, nil
}

// Create provisions a team account and its creator's owner membership atomically.
func (s *service) Create(ctx context.Context, creatorID uuid.UUID, req CreateAccountRequest) (*AccountDTO, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "account name is required")
	}
	var slug *string
	if req.Slug != nil {
		normalized := strings.ToLower(strings.TrimSpace(*req.Slug))
		if normalized == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug cannot be blank")
		}
		slug = &normalized
	}

	var account *models.Account
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.repo.CreateTx(ctx, tx, CreateAccountDTO{
			Type:               enums.AccountTypeTeam,
			Name:               name,
			Slug:               slug,
			PrimaryOwnerUserID: creatorID,
		})
		if err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "slug already in use")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create account")
		}
		account = created

		if _, err := s.memberships.CreateMembershipTx(ctx, tx, created.ID, creatorID, enums.AccountRoleOwner, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create owner membership")
		}

		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAccountCreated,
			AggregateType: enums.AggregateAccount,
			AggregateID:   created.ID,
			Actor:         &outbox.ActorRef{UserID: creatorID, AccountID: &created.ID, Role: enums.AccountRoleOwner.String()},
			Data: map[string]any{
				"account_id": created.ID,
				"name":       created.Name,
				"type":       created.Type,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}
	return FromModel(account), nil
}

func (s *service) GetByID(ctx context.Context, actorID, accountID uuid.UUID) (*AccountDTO, error) {
	if _, err := s.requireMembership(ctx, actorID, accountID); err != nil {
		return nil, err
	}

	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}
	return FromModel(account), nil
}

func (s *service) Update(ctx context.Context, actorID, accountID uuid.UUID, input UpdateAccountInput) (*AccountDTO, error) {
	membership, err := s.requireMembership(ctx, actorID, accountID)
	if err != nil {
		return nil, err
	}
	if !membership.Role.AtLeast(enums.AccountRoleAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient account role")
	}

	account, err := s.repo.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "account not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load account")
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "account name cannot be blank")
		}
		account.Name = name
	}
	if input.Slug != nil {
		normalized := strings.ToLower(strings.TrimSpace(*input.Slug))
		if normalized == "" {
			account.Slug = nil
		} else {
			account.Slug = &normalized
		}
	}

	if err := s.repo.Update(ctx, account); err != nil {
		if dbpkg.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "slug already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update account")
	}
	return FromModel(account), nil
}

func (s *service) requireMembership(ctx context.Context, userID, accountID uuid.UUID) (*models.AccountMembership, error) {
	membership, err := s.memberships.GetMembership(ctx, userID, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this account")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}
	return membership, nil
}
