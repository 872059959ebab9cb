package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avermeer/teambase-backend/api/middleware"
	"github.com/avermeer/teambase-backend/api/responses"
	"github.com/avermeer/teambase-backend/api/validators"
	"github.com/avermeer/teambase-backend/internal/accounts"
	"github.com/avermeer/teambase-backend/internal/memberships"
	pkgerrors "github.com/avermeer/teambase-backend/pkg/errors"
	"github.com/avermeer/teambase-backend/pkg/logger"
)

// AccountList returns every account the caller belongs to, with the
// caller's role on each.
func AccountList(svc memberships.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "membership service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id"))
			return
		}

		list, err := svc.ListAccounts(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"accounts": list})
	}
}

// AccountCreate provisions a fresh account with the caller as its owner.
func AccountCreate(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id"))
			return
		}

		var body accounts.CreateAccountRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		account, err := svc.Create(ctx, userID, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"account": account})
	}
}

// AccountDetail returns a single account; the service enforces that the
// caller is a member.
func AccountDetail(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id"))
			return
		}

		accountID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "accountId")))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}

		account, err := svc.GetByID(ctx, userID, accountID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"account": account})
	}
}

// AccountUpdate renames an account. Admins and owners only.
func AccountUpdate(svc accounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "account service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id"))
			return
		}

		accountID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "accountId")))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid account id"))
			return
		}

		var body accounts.UpdateAccountInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		account, err := svc.Update(ctx, userID, accountID, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"account": account})
	}
}
