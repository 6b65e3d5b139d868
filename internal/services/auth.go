package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	userrepo "github.com/yungbote/csvshare-backend/internal/data/repos/user"
	"github.com/yungbote/csvshare-backend/internal/domain"
	"github.com/yungbote/csvshare-backend/internal/platform/apierr"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 50
	minPasswordLen = 6
)

type AuthService interface {
	Signup(ctx context.Context, username, password string) (*domain.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	// Authenticate resolves a bearer token to a live user.
	Authenticate(ctx context.Context, tokenString string) (*domain.User, error)
	CreateUser(ctx context.Context, username, password string, role domain.Role) (*domain.User, error)
	AccessTTL() time.Duration
}

type JWTClaims struct {
	Role   string `json:"role"`
	UserID uint   `json:"uid"`
	jwt.RegisteredClaims
}

type authService struct {
	db           *gorm.DB
	log          *logger.Logger
	userRepo     userrepo.UserRepo
	jwtSecretKey string
	accessTTL    time.Duration
}

func NewAuthService(db *gorm.DB, log *logger.Logger, userRepo userrepo.UserRepo, jwtSecretKey string, accessTTL time.Duration) AuthService {
	if accessTTL <= 0 {
		accessTTL = 30 * time.Minute
	}
	return &authService{
		db:           db,
		log:          log.With("service", "AuthService"),
		userRepo:     userRepo,
		jwtSecretKey: jwtSecretKey,
		accessTTL:    accessTTL,
	}
}

func (as *authService) Signup(ctx context.Context, username, password string) (*domain.User, error) {
	return as.CreateUser(ctx, username, password, domain.RoleUser)
}

func (as *authService) CreateUser(ctx context.Context, username, password string, role domain.Role) (*domain.User, error) {
	username = strings.TrimSpace(username)
	if err := validateCredentials(username, password); err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, apierr.New(http.StatusBadRequest, "invalid_role", fmt.Errorf("unknown role %q", role))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var created *domain.User
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		exists, err := as.userRepo.UsernameExists(ctx, tx, username)
		if err != nil {
			return fmt.Errorf("check username: %w", err)
		}
		if exists {
			return apierr.New(http.StatusBadRequest, "username_taken", errors.New("Username already registered"))
		}
		created, err = as.userRepo.Create(ctx, tx, &domain.User{
			Username:     username,
			PasswordHash: string(hash),
			Role:         role,
		})
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	as.log.Info("User created", "user_id", created.ID, "username", created.Username, "role", created.Role)
	return created, nil
}

func validateCredentials(username, password string) error {
	if n := len([]rune(username)); n < minUsernameLen || n > maxUsernameLen {
		return apierr.New(http.StatusBadRequest, "invalid_username",
			fmt.Errorf("username must be between %d and %d characters", minUsernameLen, maxUsernameLen))
	}
	if len([]rune(password)) < minPasswordLen {
		return apierr.New(http.StatusBadRequest, "invalid_password",
			fmt.Errorf("password must be at least %d characters", minPasswordLen))
	}
	return nil
}

var errBadCredentials = apierr.New(http.StatusUnauthorized, "invalid_credentials", errors.New("Incorrect username or password"))

func (as *authService) Login(ctx context.Context, username, password string) (string, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", apierr.New(http.StatusBadRequest, "invalid_request", errors.New("username and password are required"))
	}
	user, err := as.userRepo.GetByUsername(ctx, nil, username)
	if err != nil {
		return "", fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return "", errBadCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		as.log.Debug("Login rejected", "username", username)
		return "", errBadCredentials
	}
	return as.generateAccessToken(user)
}

func (as *authService) generateAccessToken(user *domain.User) (string, error) {
	now := time.Now()
	claims := JWTClaims{
		Role:   string(user.Role),
		UserID: user.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(as.jwtSecretKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

var errInvalidToken = apierr.New(http.StatusUnauthorized, "invalid_token", errors.New("Could not validate credentials"))

// Authenticate loads the user named by the token subject, so tokens of deleted
// users stop working immediately. The role comes from the stored user.
func (as *authService) Authenticate(ctx context.Context, tokenString string) (*domain.User, error) {
	tokenString = strings.TrimSpace(tokenString)
	if tokenString == "" {
		return nil, errInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, errInvalidToken
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, errInvalidToken
	}
	user, err := as.userRepo.GetByUsername(ctx, nil, claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, errInvalidToken
	}
	return user, nil
}

func (as *authService) AccessTTL() time.Duration {
	return as.accessTTL
}
