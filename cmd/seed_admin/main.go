package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yungbote/csvshare-backend/internal/app"
	"github.com/yungbote/csvshare-backend/internal/domain"
	"github.com/yungbote/csvshare-backend/internal/platform/envutil"
)

const adminUsername = "admin"

func main() {
	a, err := app.New()
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	ctx := context.Background()
	existing, err := a.Repos.User.GetByUsername(ctx, nil, adminUsername)
	if err != nil {
		a.Log.Error("lookup admin", "error", err)
		a.Close()
		os.Exit(1)
	}
	if existing != nil {
		a.Log.Info("admin user already exists", "id", existing.ID)
		return
	}

	password := envutil.String("SEED_ADMIN_PASSWORD", "admin123")
	u, err := a.Services.Auth.CreateUser(ctx, adminUsername, password, domain.RoleAdmin)
	if err != nil {
		a.Log.Error("create admin", "error", err)
		a.Close()
		os.Exit(1)
	}
	a.Log.Info("admin user created", "id", u.ID, "username", u.Username)
}
