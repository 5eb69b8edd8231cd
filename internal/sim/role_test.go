package sim

import "testing"

func TestRoleAuthority(t *testing.T) {
	cases := []struct {
		role Role
		want bool
	}{
		{RoleSingleplayer, true},
		{RoleServer, true},
		{RoleClient, false},
	}
	for _, tc := range cases {
		if got := tc.role.Authoritative(); got != tc.want {
			t.Fatalf("%s: expected authoritative=%v, got %v", tc.role, tc.want, got)
		}
	}
}

func TestRoleValid(t *testing.T) {
	for _, role := range []Role{RoleSingleplayer, RoleServer, RoleClient} {
		if !role.Valid() {
			t.Fatalf("%s reported invalid", role)
		}
	}
	if Role("observer").Valid() {
		t.Fatalf("unknown role reported valid")
	}
}
