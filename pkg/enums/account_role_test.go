package enums

import "testing"

func TestAccountRoleOrdering(t *testing.T) {
	if !(AccountRoleMember.Rank() < AccountRoleAdmin.Rank()) {
		t.Fatal("member must rank below admin")
	}
	if !(AccountRoleAdmin.Rank() < AccountRoleOwner.Rank()) {
		t.Fatal("admin must rank below owner")
	}
}

func TestAccountRoleCanGrant(t *testing.T) {
	tests := []struct {
		holder AccountRole
		target AccountRole
		want   bool
	}{
		{AccountRoleOwner, AccountRoleOwner, true},
		{AccountRoleOwner, AccountRoleMember, true},
		{AccountRoleAdmin, AccountRoleOwner, false},
		{AccountRoleAdmin, AccountRoleAdmin, true},
		{AccountRoleMember, AccountRoleMember, true},
		{AccountRoleMember, AccountRoleAdmin, false},
		{AccountRole("bogus"), AccountRoleMember, false},
		{AccountRoleOwner, AccountRole("bogus"), false},
	}

	for _, tt := range tests {
		if got := tt.holder.CanGrant(tt.target); got != tt.want {
			t.Fatalf("%s.CanGrant(%s) = %v, want %v", tt.holder, tt.target, got, tt.want)
		}
	}
}

func TestAccountRoleAtLeast(t *testing.T) {
	if !AccountRoleOwner.AtLeast(AccountRoleAdmin) {
		t.Fatal("owner should satisfy admin floor")
	}
	if AccountRoleMember.AtLeast(AccountRoleAdmin) {
		t.Fatal("member should not satisfy admin floor")
	}
	if AccountRole("bogus").AtLeast(AccountRoleMember) {
		t.Fatal("unknown roles never satisfy a floor")
	}
}

func TestParseAccountRole(t *testing.T) {
	role, err := ParseAccountRole("owner")
	if err != nil {
		t.Fatalf("parse owner: %v", err)
	}
	if role != AccountRoleOwner {
		t.Fatalf("expected owner, got %s", role)
	}
	if _, err := ParseAccountRole("OWNER"); err == nil {
		t.Fatal("parse must be case sensitive")
	}
}
