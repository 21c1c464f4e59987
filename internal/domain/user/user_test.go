package user

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "ADMIN", want: RoleAdmin},
		{in: "SALESPERSON", want: RoleSalesperson},
		{in: "admin", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseRole(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseRole(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Fatalf("ParseRole(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestChangesApply_OnlyTouchesSuppliedFields(t *testing.T) {
	enc := "cipher"
	u := User{
		ID:                1,
		Username:          "sp1",
		Email:             "sp1@x.com",
		FirstName:         "A",
		LastName:          "B",
		PasswordHash:      "hash",
		EncryptedPassword: &enc,
		Role:              RoleSalesperson,
	}

	first := "Z"
	got := Changes{FirstName: &first}.Apply(u)

	if got.FirstName != "Z" {
		t.Fatalf("first name not applied: %q", got.FirstName)
	}
	if got.Username != u.Username || got.Email != u.Email || got.LastName != u.LastName {
		t.Fatalf("unexpected mutation: %+v", got)
	}
	if got.PasswordHash != "hash" || *got.EncryptedPassword != "cipher" {
		t.Fatalf("password material changed: %+v", got)
	}
}

func TestChangesApply_CredentialsWrittenTogether(t *testing.T) {
	got := Changes{Credentials: &Credentials{PasswordHash: "h2", EncryptedPassword: "c2"}}.Apply(User{})

	if got.PasswordHash != "h2" || got.EncryptedPassword == nil || *got.EncryptedPassword != "c2" {
		t.Fatalf("credentials not applied together: %+v", got)
	}
}

func TestUserJSONHidesPasswordMaterial(t *testing.T) {
	enc := "cipher"
	b, err := json.Marshal(User{ID: 1, PasswordHash: "hash", EncryptedPassword: &enc})
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), "hash") || strings.Contains(string(b), "cipher") {
		t.Fatalf("password material leaked: %s", b)
	}
}
