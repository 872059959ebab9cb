package memberships

import (
	"time"

	"github.com/avermeer/teambase-backend/pkg/db/models"
	"github.com/avermeer/teambase-backend/pkg/enums"
)

type membershipWithAccountRow struct {
	models.AccountMembership
	AccountName string            `gorm:"column:account_name"`
	AccountType enums.AccountType `gorm:"column:account_type"`
}

func membershipWithAccountFromRow(row membershipWithAccountRow) MembershipWithAccount {
	return MembershipWithAccount{
		MembershipID:    row.ID,
		AccountID:       row.AccountID,
		UserID:          row.UserID,
		AccountName:     row.AccountName,
		AccountType:     row.AccountType,
		Role:            row.Role,
		InvitedByUserID: copyUUIDPointer(row.InvitedByUserID),
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

func membershipRowsToDTO(rows []membershipWithAccountRow) []MembershipWithAccount {
	out := make([]MembershipWithAccount, 0, len(rows))
	for _, row := range rows {
		out = append(out, membershipWithAccountFromRow(row))
	}
	return out
}

type accountMemberRow struct {
	models.AccountMembership
	Email       string     `gorm:"column:email"`
	Name        string     `gorm:"column:name"`
	LastLoginAt *time.Time `gorm:"column:last_login_at"`
}

func accountMembersFromRows(rows []accountMemberRow) []AccountMemberDTO {
	out := make([]AccountMemberDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, AccountMemberDTO{
			MembershipID: row.ID,
			AccountID:    row.AccountID,
			UserID:       row.UserID,
			Email:        row.Email,
			Name:         row.Name,
			Role:         row.Role,
			CreatedAt:    row.CreatedAt,
			LastLoginAt:  row.LastLoginAt,
		})
	}
	return out
}
