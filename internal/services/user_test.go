package services

import (
	"context"
	"net/http"
	"testing"

	"github.com/yungbote/csvshare-backend/internal/data/repos/testutil"
	"github.com/yungbote/csvshare-backend/internal/domain"
)

func TestUserServiceDelete(t *testing.T) {
	f := newFixture(t)
	svc := NewUserService(f.db, f.log, f.users)
	ctx := context.Background()

	admin := testutil.SeedUser(t, f.db, "admin", domain.RoleAdmin)
	bob := testutil.SeedUser(t, f.db, "bob", domain.RoleUser)

	wantStatus(t, svc.Delete(ctx, admin.ID, admin.ID), http.StatusBadRequest)

	if err := svc.Delete(ctx, admin.ID, bob.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	wantStatus(t, svc.Delete(ctx, admin.ID, bob.ID), http.StatusNotFound)

	users, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 1 || users[0].ID != admin.ID {
		t.Fatalf("remaining users: %+v", users)
	}
}
