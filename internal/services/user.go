package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"

	userrepo "github.com/yungbote/csvshare-backend/internal/data/repos/user"
	"github.com/yungbote/csvshare-backend/internal/domain"
	"github.com/yungbote/csvshare-backend/internal/platform/apierr"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
)

type UserService interface {
	List(ctx context.Context) ([]*domain.User, error)
	Delete(ctx context.Context, actorID, userID uint) error
}

type userService struct {
	db       *gorm.DB
	log      *logger.Logger
	userRepo userrepo.UserRepo
}

func NewUserService(db *gorm.DB, log *logger.Logger, userRepo userrepo.UserRepo) UserService {
	return &userService{
		db:       db,
		log:      log.With("service", "UserService"),
		userRepo: userRepo,
	}
}

func (us *userService) List(ctx context.Context) ([]*domain.User, error) {
	users, err := us.userRepo.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// Delete removes a user account. Files the user uploaded are kept.
func (us *userService) Delete(ctx context.Context, actorID, userID uint) error {
	if actorID == userID {
		return apierr.New(http.StatusBadRequest, "cannot_delete_self", errors.New("Cannot delete your own account"))
	}
	deleted, err := us.userRepo.Delete(ctx, nil, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if !deleted {
		return apierr.New(http.StatusNotFound, "user_not_found", errors.New("User not found"))
	}
	us.log.Info("User deleted", "user_id", userID, "actor_id", actorID)
	return nil
}
