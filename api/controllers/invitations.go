package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/avermeer/teambase-backend/api/middleware"
	"github.com/avermeer/teambase-backend/api/responses"
	"github.com/avermeer/teambase-backend/api/validators"
	"github.com/avermeer/teambase-backend/internal/invitations"
	pkgerrors "github.com/avermeer/teambase-backend/pkg/errors"
	"github.com/avermeer/teambase-backend/pkg/logger"
)

// InvitationList returns the pending invitations for an account. Tokens
// are never included here.
func InvitationList(svc invitations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invitation service unavailable"))
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

		list, err := svc.List(ctx, userID, accountID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"invitations": list})
	}
}

// InvitationCreate invites a batch of email addresses to the account. The
// whole batch is validated up front; one bad entry rejects all of them.
func InvitationCreate(svc invitations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invitation service unavailable"))
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

		var body invitations.CreateInvitationsRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		created, err := svc.Create(ctx, userID, accountID, body)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"invitations": created})
	}
}

// InvitationUpdate rewrites the proposed role on a pending invitation.
func InvitationUpdate(svc invitations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invitation service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id"))
			return
		}

		invitationID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "invitationId")))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid invitation id"))
			return
		}

		var body invitations.UpdateInvitationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		invitation, err := svc.Update(ctx, userID, invitationID, body.Role)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"invitation": invitation})
	}
}

// InvitationDelete revokes a pending invitation so its token stops working.
func InvitationDelete(svc invitations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invitation service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id"))
			return
		}

		invitationID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "invitationId")))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid invitation id"))
			return
		}

		if err := svc.Revoke(ctx, userID, invitationID); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, nil)
	}
}

// InvitationAccept consumes an invitation addressed to the caller's email
// and creates the membership.
func InvitationAccept(svc invitations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invitation service unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id"))
			return
		}

		invitationID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "invitationId")))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid invitation id"))
			return
		}

		membership, err := svc.Accept(ctx, userID, invitationID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"membership": membership})
	}
}
