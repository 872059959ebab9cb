package invitations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avermeer/teambase-backend/internal/memberships"
	"github.com/avermeer/teambase-backend/pkg/config"
	dbpkg "github.com/avermeer/teambase-backend/pkg/db"
	"github.com/avermeer/teambase-backend/pkg/db/models"
	"github.com/avermeer/teambase-backend/pkg/enums"
	pkgerrors "github.com/avermeer/teambase-backend/pkg/errors"
	"github.com/avermeer/teambase-backend/pkg/outbox"
	"github.com/avermeer/teambase-backend/pkg/security"
)

const inviteTokenBytes = 32

type invitationsRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, invitation *models.Invitation) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Invitation, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]models.Invitation, error)
	UpdateRoleTx(ctx context.Context, tx *gorm.DB, id uuid.UUID, role enums.AccountRole) (int64, error)
	DeleteByIDTx(ctx context.Context, tx *gorm.DB, id uuid.UUID) (int64, error)
}

type membershipsRepository interface {
	GetMembership(ctx context.Context, userID, accountID uuid.UUID) (*models.AccountMembership, error)
	CreateMembershipTx(ctx context.Context, tx *gorm.DB, accountID, userID uuid.UUID, role enums.AccountRole, invitedBy *uuid.UUID) (*models.AccountMembership, error)
}

type usersRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes the invitation lifecycle.
type Service interface {
	Create(ctx context.Context, actorID, accountID uuid.UUID, req CreateInvitationsRequest) ([]CreatedInvitationDTO, error)
	List(ctx context.Context, actorID, accountID uuid.UUID) ([]InvitationDTO, error)
	Update(ctx context.Context, actorID, invitationID uuid.UUID, role enums.AccountRole) (*InvitationDTO, error)
	Revoke(ctx context.Context, actorID, invitationID uuid.UUID) error
	Accept(ctx context.Context, userID, invitationID uuid.UUID) (*memberships.MembershipDTO, error)
}

type service struct {
	repo        invitationsRepository
	memberships membershipsRepository
	users       usersRepository
	txRunner    txRunner
	emitter     outboxEmitter
	ttl         time.Duration
	now         func() time.Time
}

// NewService builds an invitation service with the provided dependencies.
func NewService(repo invitationsRepository, membershipsRepo membershipsRepository, usersRepo usersRepository, runner txRunner, emitter outboxEmitter, cfg config.InvitationsConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("invitations repository required")
	}
	if membershipsRepo == nil {
		return nil, fmt.Errorf("memberships repository required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if runner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if cfg.TTL <= 0 {
		return nil, fmt.Errorf("invitation ttl must be positive")
	}
	return &service{
		repo:        repo,
		memberships: membershipsRepo,
		users:       usersRepo,
		txRunner:    runner,
		emitter:     emitter,
		ttl:         cfg.TTL,
		now:         time.Now,
	}, nil
}

// Create validates the whole batch up front and inserts every invitation in
// one transaction: either all invites land or none do.
func (s *service) Create(ctx context.Context, actorID, accountID uuid.UUID, req CreateInvitationsRequest) ([]CreatedInvitationDTO, error) {
	actor, err := s.requireMembership(ctx, actorID, accountID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.AtLeast(enums.AccountRoleAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient account role")
	}
	if len(req.Invites) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one invite is required")
	}

	seen := make(map[string]struct{}, len(req.Invites))
	rows := make([]*models.Invitation, 0, len(req.Invites))
	for _, invite := range req.Invites {
		email := strings.ToLower(strings.TrimSpace(invite.Email))
		if email == "" || !strings.Contains(email, "@") {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email").WithDetails(map[string]any{"email": invite.Email})
		}
		if !invite.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
		}
		if !actor.Role.CanGrant(invite.Role) {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot grant a role above your own")
		}
		if _, dup := seen[email]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "duplicate email in batch").WithDetails(map[string]any{"email": email})
		}
		seen[email] = struct{}{}

		// Existing members never get invitations; the membership is authoritative.
		if user, err := s.users.FindByEmail(ctx, email); err == nil {
			if _, err := s.memberships.GetMembership(ctx, user.ID, accountID); err == nil {
				return nil, pkgerrors.New(pkgerrors.CodeConflict, "user is already a member").WithDetails(map[string]any{"email": email})
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
		}

		token, err := security.GenerateOpaqueToken(inviteTokenBytes)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate invite token")
		}
		rows = append(rows, &models.Invitation{
			AccountID:       accountID,
			Email:           email,
			Role:            invite.Role,
			InvitedByUserID: actorID,
			InviteToken:     token,
			ExpiresAt:       s.now().Add(s.ttl),
		})
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		for _, invitation := range rows {
			if err := s.repo.CreateTx(ctx, tx, invitation); err != nil {
				if dbpkg.IsUniqueViolation(err, "ux_invitations_account_email") {
					return pkgerrors.New(pkgerrors.CodeConflict, "an invitation for this email is already pending").WithDetails(map[string]any{"email": invitation.Email})
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invitation")
			}
			if err := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventInvitationCreated,
				AggregateType: enums.AggregateInvitation,
				AggregateID:   invitation.ID,
				Actor:         &outbox.ActorRef{UserID: actorID, AccountID: &accountID, Role: actor.Role.String()},
				Data: map[string]any{
					"account_id": accountID,
					"email":      invitation.Email,
					"role":       invitation.Role,
					"expires_at": invitation.ExpiresAt,
				},
				Version: 1,
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	created := make([]CreatedInvitationDTO, 0, len(rows))
	for _, invitation := range rows {
		created = append(created, CreatedInvitationDTO{
			InvitationDTO: *ToDTO(invitation),
			InviteToken:   invitation.InviteToken,
		})
	}
	return created, nil
}

func (s *service) List(ctx context.Context, actorID, accountID uuid.UUID) ([]InvitationDTO, error) {
	actor, err := s.requireMembership(ctx, actorID, accountID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.AtLeast(enums.AccountRoleAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient account role")
	}

	rows, err := s.repo.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invitations")
	}
	return toDTOs(rows), nil
}

// Update rewrites the proposed role on a pending invitation. Setting the
// role it already has is rejected so callers notice stale UI state.
func (s *service) Update(ctx context.Context, actorID, invitationID uuid.UUID, role enums.AccountRole) (*InvitationDTO, error) {
	invitation, err := s.loadInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}

	actor, err := s.requireMembership(ctx, actorID, invitation.AccountID)
	if err != nil {
		return nil, err
	}
	if !actor.Role.AtLeast(enums.AccountRoleAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient account role")
	}
	if !role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role")
	}
	if role == invitation.Role {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "invitation already has this role")
	}
	if !actor.Role.CanGrant(role) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "cannot grant a role above your own")
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.UpdateRoleTx(ctx, tx, invitationID, role)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update invitation role")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "invitation not found")
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvitationUpdated,
			AggregateType: enums.AggregateInvitation,
			AggregateID:   invitationID,
			Actor:         &outbox.ActorRef{UserID: actorID, AccountID: &invitation.AccountID, Role: actor.Role.String()},
			Data: map[string]any{
				"account_id":    invitation.AccountID,
				"email":         invitation.Email,
				"previous_role": invitation.Role,
				"role":          role,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	invitation.Role = role
	return ToDTO(invitation), nil
}

func (s *service) Revoke(ctx context.Context, actorID, invitationID uuid.UUID) error {
	invitation, err := s.loadInvitation(ctx, invitationID)
	if err != nil {
		return err
	}

	actor, err := s.requireMembership(ctx, actorID, invitation.AccountID)
	if err != nil {
		return err
	}
	if !actor.Role.AtLeast(enums.AccountRoleAdmin) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient account role")
	}

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.DeleteByIDTx(ctx, tx, invitationID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete invitation")
		}
		if affected == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "invitation not found")
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvitationRevoked,
			AggregateType: enums.AggregateInvitation,
			AggregateID:   invitationID,
			Actor:         &outbox.ActorRef{UserID: actorID, AccountID: &invitation.AccountID, Role: actor.Role.String()},
			Data: map[string]any{
				"account_id": invitation.AccountID,
			},
			Version: 1,
		})
	})
}

// Accept consumes the invitation and creates the membership atomically. The
// delete-then-insert runs in one transaction so concurrent acceptors of the
// same invitation resolve to exactly one membership; the race loser sees
// NotFound from the zero-row delete.
func (s *service) Accept(ctx context.Context, userID, invitationID uuid.UUID) (*memberships.MembershipDTO, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	invitation, err := s.loadInvitation(ctx, invitationID)
	if err != nil {
		return nil, err
	}

	if !strings.EqualFold(invitation.Email, user.Email) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "invitation was issued to a different email")
	}
	if s.now().After(invitation.ExpiresAt) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "invitation has expired")
	}

	var membership *models.AccountMembership
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		affected, err := s.repo.DeleteByIDTx(ctx, tx, invitation.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume invitation")
		}
		if affected == 0 {
			// Another acceptor won the race.
			return pkgerrors.New(pkgerrors.CodeNotFound, "invitation not found")
		}

		invitedBy := invitation.InvitedByUserID
		created, err := s.memberships.CreateMembershipTx(ctx, tx, invitation.AccountID, userID, invitation.Role, &invitedBy)
		if err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_account_memberships_account_user") {
				return pkgerrors.New(pkgerrors.CodeConflict, "user is already a member")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create membership")
		}
		membership = created

		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvitationAccepted,
			AggregateType: enums.AggregateInvitation,
			AggregateID:   invitation.ID,
			Actor:         &outbox.ActorRef{UserID: userID, AccountID: &invitation.AccountID, Role: invitation.Role.String()},
			Data: map[string]any{
				"account_id":    invitation.AccountID,
				"user_id":       userID,
				"role":          invitation.Role,
				"membership_id": created.ID,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	return memberships.ToDTO(membership), nil
}

func (s *service) loadInvitation(ctx context.Context, invitationID uuid.UUID) (*models.Invitation, error) {
	invitation, err := s.repo.FindByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invitation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invitation")
	}
	return invitation, nil
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
