package auth

import (
	"context"
	"testing"
)

func TestAuthContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	if _, ok := FromContext(ctx); ok {
		t.Error("empty context reported auth")
	}
	if FamilyID(ctx) != 0 || UserID(ctx) != 0 {
		t.Error("empty context returned nonzero ids")
	}
	if IsAdmin(ctx) {
		t.Error("empty context reported admin")
	}

	ctx = WithAuth(ctx, AuthContext{UserID: 7, FamilyID: 3, Role: "admin", SessionID: 11})

	ac, ok := FromContext(ctx)
	if !ok {
		t.Fatal("auth missing after WithAuth")
	}
	if ac.UserID != 7 || ac.FamilyID != 3 || ac.SessionID != 11 {
		t.Errorf("auth context = %+v", ac)
	}
	if !IsAdmin(ctx) {
		t.Error("admin role not reported")
	}
	if FamilyID(ctx) != 3 || UserID(ctx) != 7 {
		t.Error("accessor mismatch")
	}
}
