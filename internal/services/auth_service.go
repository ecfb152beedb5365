package services

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/recipe-studio/catalogue/internal/models"
	"github.com/recipe-studio/catalogue/internal/repository"
	appErr "github.com/recipe-studio/catalogue/pkg/errors"
	"github.com/recipe-studio/catalogue/pkg/logger"
	"github.com/recipe-studio/catalogue/pkg/utils"
)

// MinPasswordLength is the shortest password accepted on register and update.
const MinPasswordLength = 5

type AuthService interface {
	Register(ctx context.Context, email, password, name string) (*models.User, error)
	CreateSuperuser(ctx context.Context, email, password, name string) (*models.User, error)
	Login(ctx context.Context, email, password string) (*Token, *models.User, error)
	GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	// ActiveUser loads the user behind an access token; missing and inactive
	// accounts are both unauthorized.
	ActiveUser(ctx context.Context, userID uuid.UUID) (*models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input *UpdateProfileInput) (*models.User, error)
}

// Token is a signed access token.
type Token struct {
	AccessToken string
	ExpiresIn   time.Duration
}

type UpdateProfileInput struct {
	Name     *string
	Password *string
}

type authService struct {
	userRepo   repository.UserRepository
	hmacSecret []byte
	tokenTTL   time.Duration
}

func NewAuthService(userRepo repository.UserRepository, secret []byte, tokenTTL time.Duration) AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &authService{
		userRepo:   userRepo,
		hmacSecret: secret,
		tokenTTL:   tokenTTL,
	}
}

var _ AuthService = (*authService)(nil)

func (s *authService) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	return s.createUser(ctx, email, password, name, false)
}

func (s *authService) CreateSuperuser(ctx context.Context, email, password, name string) (*models.User, error) {
	return s.createUser(ctx, email, password, name, true)
}

func (s *authService) createUser(ctx context.Context, email, password, name string, superuser bool) (*models.User, error) {
	email = utils.NormalizeEmail(email)
	fields := map[string]string{}
	if email == "" {
		fields["email"] = "is required"
	}
	if len(password) < MinPasswordLength {
		fields["password"] = "must be at least 5 characters"
	}
	if len(fields) > 0 {
		return nil, appErr.Validation("invalid user", fields)
	}

	ph, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "hash password failed")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(ph),
		Name:         name,
		IsActive:     true,
		IsStaff:      superuser,
		IsSuperuser:  superuser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if appErr.IsCode(err, appErr.CodeConflict) {
			return nil, appErr.Wrap(err, appErr.CodeConflict, "user with this email already exists").
				WithField("email", "already registered")
		}
		return nil, err
	}

	logger.L().Info("user created", zap.String("user_id", user.ID.String()), zap.Bool("superuser", superuser))
	return user, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*Token, *models.User, error) {
	invalid := appErr.New(appErr.CodeUnauthorized, "invalid credentials")

	var user models.User
	if err := s.userRepo.GetByEmail(ctx, utils.NormalizeEmail(email), &user); err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, nil, invalid
		}
		return nil, nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, invalid
	}
	if !user.IsActive {
		return nil, nil, appErr.New(appErr.CodeUnauthorized, "user account is disabled")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID.String(),
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(s.tokenTTL).Unix(),
	})
	tokenString, err := token.SignedString(s.hmacSecret)
	if err != nil {
		return nil, nil, appErr.Wrap(err, appErr.CodeInternal, "sign token failed")
	}

	logger.L().Info("user logged in", zap.String("user_id", user.ID.String()))
	return &Token{AccessToken: tokenString, ExpiresIn: s.tokenTTL}, &user, nil
}

func (s *authService) GetUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.userRepo.GetByID(ctx, userID, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *authService) ActiveUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		if appErr.IsCode(err, appErr.CodeNotFound) {
			return nil, appErr.New(appErr.CodeUnauthorized, "user no longer exists")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, appErr.New(appErr.CodeUnauthorized, "user account is disabled")
	}
	return user, nil
}

func (s *authService) UpdateProfile(ctx context.Context, userID uuid.UUID, input *UpdateProfileInput) (*models.User, error) {
	logger.L().Info("update profile", zap.String("user_id", userID.String()))

	var passwordHash *string
	if input.Password != nil {
		if len(*input.Password) < MinPasswordLength {
			return nil, appErr.Validation("invalid user", map[string]string{"password": "must be at least 5 characters"})
		}
		ph, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, appErr.Wrap(err, appErr.CodeInternal, "hash password failed")
		}
		h := string(ph)
		passwordHash = &h
	}
	if err := s.userRepo.UpdateProfile(ctx, userID, input.Name, passwordHash); err != nil {
		return nil, err
	}
	return s.GetUser(ctx, userID)
}
