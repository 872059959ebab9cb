package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/avermeer/teambase-backend/internal/accounts"
	"github.com/avermeer/teambase-backend/internal/users"
	pkgauth "github.com/avermeer/teambase-backend/pkg/auth"
	"github.com/avermeer/teambase-backend/pkg/auth/session"
	"github.com/avermeer/teambase-backend/pkg/config"
	"github.com/avermeer/teambase-backend/pkg/db/models"
	"github.com/avermeer/teambase-backend/pkg/enums"
	pkgerrors "github.com/avermeer/teambase-backend/pkg/errors"
	"github.com/avermeer/teambase-backend/pkg/outbox"
	"github.com/avermeer/teambase-backend/pkg/security"
)

// RegisterRequest contains the payload required to onboard a new user.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=1,max=120"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// RegisterService handles the onboarding transaction.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
}

type registerUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	CreateTx(ctx context.Context, tx *gorm.DB, dto users.CreateUserDTO) (*models.User, error)
}

type registerAccountRepository interface {
	CreateTx(ctx context.Context, tx *gorm.DB, dto accounts.CreateAccountDTO) (*models.Account, error)
}

type registerMembershipRepository interface {
	CreateMembershipTx(ctx context.Context, tx *gorm.DB, accountID, userID uuid.UUID, role enums.AccountRole, invitedBy *uuid.UUID) (*models.AccountMembership, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	UserRepo       registerUserRepository
	AccountRepo    registerAccountRepository
	MembershipRepo registerMembershipRepository
	TxRunner       txRunner
	Emitter        outboxEmitter
	SessionManager sessionManager
	PasswordConfig config.PasswordConfig
	JWTConfig      config.JWTConfig
}

type registerService struct {
	users       registerUserRepository
	accounts    registerAccountRepository
	memberships registerMembershipRepository
	txRunner    txRunner
	emitter     outboxEmitter
	session     sessionManager
	passwordCfg config.PasswordConfig
	jwtCfg      config.JWTConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repository required")
	}
	if params.AccountRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "account repository required")
	}
	if params.MembershipRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "membership repository required")
	}
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Emitter == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox emitter required")
	}
	if params.SessionManager == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "session manager required")
	}
	return &registerService{
		users:       params.UserRepo,
		accounts:    params.AccountRepo,
		memberships: params.MembershipRepo,
		txRunner:    params.TxRunner,
		emitter:     params.Emitter,
		session:     params.SessionManager,
		passwordCfg: params.PasswordConfig,
		jwtCfg:      params.JWTConfig,
	}, nil
}

// Register creates the user, their personal account, and the owner
// membership in one transaction, then logs the user in. The personal
// account shares the user's id.
func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var user *models.User
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.users.CreateTx(ctx, tx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			Name:         name,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}
		user = created

		personalID := created.ID
		account, err := s.accounts.CreateTx(ctx, tx, accounts.CreateAccountDTO{
			ID:                 &personalID,
			Type:               enums.AccountTypePersonal,
			Name:               name,
			PrimaryOwnerUserID: created.ID,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create personal account")
		}

		if _, err := s.memberships.CreateMembershipTx(ctx, tx, account.ID, created.ID, enums.AccountRoleOwner, nil); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create owner membership")
		}

		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventAccountCreated,
			AggregateType: enums.AggregateAccount,
			AggregateID:   account.ID,
			Actor:         &outbox.ActorRef{UserID: created.ID, AccountID: &account.ID, Role: enums.AccountRoleOwner.String()},
			Data: map[string]any{
				"account_id": account.ID,
				"type":       account.Type,
				"name":       account.Name,
			},
			Version: 1,
		})
	})
	if err != nil {
		return nil, err
	}

	accountType := enums.AccountTypePersonal
	accessID := session.NewAccessID()
	accessToken, err := pkgauth.MintAccessToken(s.jwtCfg, time.Now().UTC(), pkgauth.AccessTokenPayload{
		UserID:          user.ID,
		ActiveAccountID: ptrTo(user.ID),
		Role:            enums.AccountRoleOwner,
		AccountType:     &accountType,
		JTI:             accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}
	refreshToken, err := s.session.Generate(ctx, accessID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store refresh token")
	}

	return &RegisterResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         users.FromModel(user),
	}, nil
}

func ptrTo(id uuid.UUID) *uuid.UUID {
	return &id
}
