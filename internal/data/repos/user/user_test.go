package user

import (
	"context"
	"testing"

	"github.com/yungbote/csvshare-backend/internal/data/repos/testutil"
	"github.com/yungbote/csvshare-backend/internal/domain"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	repo := NewUserRepo(db, testutil.Logger(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, nil, &domain.User{Username: "alice", PasswordHash: "h", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == 0 {
		t.Fatalf("Create: expected assigned id")
	}

	got, err := repo.GetByUsername(ctx, nil, "alice")
	if err != nil {
		t.Fatalf("GetByUsername: %v", err)
	}
	if got == nil || got.ID != created.ID {
		t.Fatalf("GetByUsername: unexpected result: %+v", got)
	}

	missing, err := repo.GetByID(ctx, nil, created.ID+100)
	if err != nil {
		t.Fatalf("GetByID (missing): %v", err)
	}
	if missing != nil {
		t.Fatalf("GetByID (missing): want nil got=%+v", missing)
	}

	exists, err := repo.UsernameExists(ctx, nil, "alice")
	if err != nil || !exists {
		t.Fatalf("UsernameExists: want=true got=%v err=%v", exists, err)
	}

	if _, err := repo.Create(ctx, nil, &domain.User{Username: "alice", PasswordHash: "h", Role: domain.RoleUser}); err == nil {
		t.Fatalf("Create duplicate: expected unique violation")
	}

	deleted, err := repo.Delete(ctx, nil, created.ID)
	if err != nil || !deleted {
		t.Fatalf("Delete: want=true got=%v err=%v", deleted, err)
	}
	deleted, err = repo.Delete(ctx, nil, created.ID)
	if err != nil || deleted {
		t.Fatalf("Delete again: want=false got=%v err=%v", deleted, err)
	}
}

func TestUserRepoListOrdersByID(t *testing.T) {
	db := testutil.DB(t)
	repo := NewUserRepo(db, testutil.Logger(t))
	ctx := context.Background()

	testutil.SeedUser(t, db, "admin", domain.RoleAdmin)
	testutil.SeedUser(t, db, "bob", domain.RoleUser)

	users, err := repo.List(ctx, nil)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(users) != 2 || users[0].Username != "admin" || users[1].Username != "bob" {
		t.Fatalf("List: unexpected result: %+v", users)
	}
}
