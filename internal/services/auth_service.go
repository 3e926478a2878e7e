// internal/services/auth_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/gvoiceus/gvoiceus-backend/internal/database"
	"github.com/gvoiceus/gvoiceus-backend/internal/models"
	"github.com/gvoiceus/gvoiceus-backend/internal/utils"
)

var (
	ErrEmailTaken         = errors.New("user with this email already exists")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotConfirmed       = errors.New("email address has not been confirmed")
	ErrUserNotFound       = errors.New("user not found")
)

type AuthService struct {
	db     *gorm.DB
	tokens *utils.TokenManager
	mail   *NotificationService
	cart   *CartService
	log    *logrus.Entry
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,strong_password"`
	FullName string `json:"full_name,omitempty" validate:"omitempty,max=255"`
}

type LoginRequest struct {
	// Identifier is a username or an email address.
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type ConfirmEmailRequest struct {
	Token string `json:"token" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"` // in seconds
}

func NewAuthService(db *gorm.DB, tokens *utils.TokenManager, mail *NotificationService, cart *CartService) *AuthService {
	return &AuthService{
		db:     db,
		tokens: tokens,
		mail:   mail,
		cart:   cart,
		log:    logrus.WithField("service", "auth"),
	}
}

// Register creates an inactive account and emails the confirmation
// link. The account only exists if the email went out; a send failure
// rolls the whole registration back.
func (s *AuthService) Register(req *RegisterRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	username := strings.TrimSpace(req.Username)

	var existing models.User
	if err := s.db.Where("email = ? OR username = ?", email, username).First(&existing).Error; err == nil {
		if existing.Email == email {
			return nil, ErrEmailTaken
		}
		return nil, ErrUsernameTaken
	}

	user := &models.User{
		Username: username,
		Email:    email,
		FullName: strings.TrimSpace(req.FullName),
		Role:     models.UserRoleCustomer,
		IsActive: false,
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	err := database.WithTransaction(s.db, func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			if isUniqueViolation(err) {
				return ErrEmailTaken
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		token, err := s.tokens.GenerateEmailConfirmToken(user.ID, user.Email)
		if err != nil {
			return fmt.Errorf("failed to generate confirmation token: %w", err)
		}
		return s.mail.SendEmailConfirmation(user, token)
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User registered, awaiting email confirmation")
	return user, nil
}

// ConfirmEmail activates the account behind a confirmation token and
// logs the user in. Confirming twice is harmless. A guest cart token,
// when present, is folded into the account cart.
func (s *AuthService) ConfirmEmail(token, guestToken string) (*AuthResponse, error) {
	claims, err := s.tokens.Parse(token, utils.TokenPurposeEmailConfirm)
	if err != nil {
		return nil, utils.ErrInvalidToken
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrInvalidToken
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	// The token only confirms the address it was issued for.
	if claims.EmailChecksum != utils.EmailChecksum(user.Email) {
		return nil, utils.ErrInvalidToken
	}

	if !user.IsActive {
		now := time.Now()
		user.IsActive = true
		user.EmailConfirmedAt = &now
		if err := s.db.Model(&user).Updates(map[string]interface{}{
			"is_active":          true,
			"email_confirmed_at": now,
		}).Error; err != nil {
			return nil, fmt.Errorf("failed to activate user: %w", err)
		}
		s.log.WithField("user_id", user.ID).Info("Email confirmed, account activated")
	}

	s.mergeGuestCart(user.ID, guestToken)
	return s.issueTokens(&user)
}

// Login authenticates by username or email. Unconfirmed accounts are
// turned away so the buyer goes looking for the confirmation mail.
func (s *AuthService) Login(req *LoginRequest, guestToken string) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	identifier := strings.TrimSpace(req.Identifier)
	var user models.User
	err := s.db.Where("username = ? OR email = ?", identifier, strings.ToLower(identifier)).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("database error: %w", err)
	}

	if !user.CheckPassword(req.Password) {
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, ErrNotConfirmed
	}

	now := time.Now()
	user.LastLoginAt = &now
	if err := s.db.Model(&user).Update("last_login_at", now).Error; err != nil {
		s.log.WithError(err).Warn("Failed to record login time")
	}

	s.mergeGuestCart(user.ID, guestToken)
	return s.issueTokens(&user)
}

// Refresh exchanges a refresh token for a fresh token pair.
func (s *AuthService) Refresh(req *RefreshRequest) (*AuthResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	claims, err := s.tokens.Parse(req.RefreshToken, utils.TokenPurposeRefresh)
	if err != nil {
		return nil, utils.ErrInvalidToken
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", claims.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrInvalidToken
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	if !user.IsActive {
		return nil, ErrNotConfirmed
	}

	return s.issueTokens(&user)
}

func (s *AuthService) GetUserByID(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

func (s *AuthService) issueTokens(user *models.User) (*AuthResponse, error) {
	accessToken, err := s.tokens.GenerateAccessToken(user.ID, user.Username, string(user.Role))
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}
	refreshToken, err := s.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return &AuthResponse{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(s.tokens.AccessTTL().Seconds()),
	}, nil
}

// mergeGuestCart folds a guest session cart into the user's cart. Cart
// trouble never blocks a login.
func (s *AuthService) mergeGuestCart(userID uuid.UUID, guestToken string) {
	if guestToken == "" || s.cart == nil {
		return
	}
	if err := s.cart.MergeGuestCart(context.Background(), guestToken, userID); err != nil {
		s.log.WithError(err).WithField("user_id", userID).Warn("Failed to merge guest cart")
	}
}
