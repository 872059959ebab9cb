package memberships

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avermeer/teambase-backend/pkg/db/models"
	"github.com/avermeer/teambase-backend/pkg/enums"
	pkgerrors "github.com/avermeer/teambase-backend/pkg/errors"
	"github.com/avermeer/teambase-backend/pkg/outbox"
)

type membershipsRepository interface {
	ListUserAccounts(ctx context.Context, userID uuid.UUID) ([]MembershipWithAccount, error)
	ListAccountMembers(ctx context.Context, accountID uuid.UUID) ([]AccountMemberDTO, error)
	GetMembership(ctx context.Context, userID, accountID uuid.UUID) (*models.AccountMembership, error)
	CountByRole(ctx context.Context, accountID uuid.UUID, role enums.AccountRole) (int64, error)
	UpdateRoleTx(ctx context.Context, tx *gorm.DB, membershipID uuid.UUID, role enums.AccountRole) error
	DeleteTx(ctx context.Context, tx *gorm.DB, membershipID uuid.UUID) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes membership operations.
type Service interface {
	ListAccounts(ctx context.Context, userID uuid.UUID) ([]MembershipWithAccount, error)
	ListMembers(ctx context.Context, actorID, accountID uuid.UUID) ([]AccountMemberDTO, error)
	UpdateMemberRole(ctx context.Context, actorID, accountID, targetUserID uuid.UUID, role enums.AccountRole) (*MembershipDTO, error)
	RemoveMember(ctx context.Context, actorID, accountID, targetUserID uuid.UUID) error
}

type service struct {
	repo     membershipsRepository
	txRunner txRunner
	emitter  outboxEmitter
}

// NewService builds a membership service with the provided dependencies.
func NewService(repo membershipsRepository, runner txRunner, emitter outboxEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("memberships repository required")
	}
	if runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{repo: repo, txRunner: runner, emitter: emitter}, nil
}

func (s *service) ListAccounts(ctx context.Context, userID uuid.UUID) ([]MembershipWithAccount, error) {
	accounts, err := s.repo.ListUserAccounts(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list user accounts")
	}
	return accounts, nil
}

func (s *service) ListMembers(ctx context.Context, actorID, accountID uuid.UUID) ([]AccountMemberDTO, error) {
	if _, err := s.requireMembership(ctx, actorID, accountID); err != nil {
		return nil, err
	}

	members, err := s.repo.ListAccountMembers(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list account members")
	}
	return members, nil
}

func (s *service) UpdateMemberRole(ctx context.Context, actorID, accountID, targetUserID uuid.UUID, role enums.AccountRole) (*MembershipDTO, error) {
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}

	actor, err := s.requireMembership(ctx, actorID, accountID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.AtLeast(enums.AccountRoleAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient account role")
	}

	target, err := s.repo.GetMembership(ctx, targetUserID, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "membership not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load membership")
	}

	// Actors may only manage roles they could grant themselves.
	if !actor.Role.CanGrant(target.Role) || !actor.Role.CanGrant(role) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot manage a role above your own")
	}

	if target.Role == enums.AccountRoleOwner && role != enums.AccountRoleOwner {
		if err := s.requireAnotherOwner(ctx, accountID); err != nil {
			return nil, err
		}
	}

	if target.Role == role {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "member already has this role")
	}

	previous := target.Role
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.UpdateRoleTx(ctx, tx, target.ID, role); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMemberRoleChanged,
			AggregateType: enums.AggregateMembership,
			AggregateID:   target.ID,
			Actor:         &outbox.ActorRef{UserID: actorID, AccountID: &accountID, Role: actor.Role.String()},
			Data: map[string]any{
				"account_id":    accountID,
				"user_id":       targetUserID,
				"previous_role": previous,
				"new_role":      role,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	target.Role = role
	return ToDTO(target), nil
}

func (s *service) RemoveMember(ctx context.Context, actorID, accountID, targetUserID uuid.UUID) error {
	actor, err := s.requireMembership(ctx, actorID, accountID)
	if err != nil {
		return err
	}

	target, err := s.repo.GetMembership(ctx, targetUserID, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "membership not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load membership")
	}

	// Leaving is always allowed below; removing someone else takes admin rank
	// and a role the actor could grant.
	selfRemoval := actorID == targetUserID
	if !selfRemoval {
		if !actor.Role.AtLeast(enums.AccountRoleAdmin) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient account role")
		}
		if !actor.Role.CanGrant(target.Role) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "cannot manage a role above your own")
		}
	}

	if target.Role == enums.AccountRoleOwner {
		if err := s.requireAnotherOwner(ctx, accountID); err != nil {
			return err
		}
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.DeleteTx(ctx, tx, target.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete membership")
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMemberRemoved,
			AggregateType: enums.AggregateMembership,
			AggregateID:   target.ID,
			Actor:         &outbox.ActorRef{UserID: actorID, AccountID: &accountID, Role: actor.Role.String()},
			Data: map[string]any{
				"account_id": accountID,
				"user_id":    targetUserID,
				"role":       target.Role,
				"self":       selfRemoval,
			},
			Version: 1,
		})
	})
}

func (s *service) requireMembership(ctx context.Context, userID, accountID uuid.UUID) (*models.AccountMembership, error) {
	membership, err := s.repo.GetMembership(ctx, userID, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not a member of this account")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}
	return membership, nil
}

func (s *service) requireAnotherOwner(ctx context.Context, accountID uuid.UUID) error {
	count, err := s.repo.CountByRole(ctx, accountID, enums.AccountRoleOwner)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count owners")
	}
	if count <= 1 {
		return pkgerrors.New(pkgerrors.CodeConflict, "cannot remove last owner")
	}
	return nil
}
