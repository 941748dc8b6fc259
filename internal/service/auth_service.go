package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/config"
	"copro-smart-go/internal/model"
	"copro-smart-go/internal/repository"
	"copro-smart-go/pkg/hash"
	"copro-smart-go/pkg/log"
	"copro-smart-go/pkg/token"

	"google.golang.org/api/idtoken"
	"gorm.io/gorm"
)

// AuthService handles sign-up, sign-in and the token lifecycle.
type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	// Refresh revokes refreshToken and issues a new pair.
	Refresh(ctx context.Context, refreshToken string) (*AuthResult, error)
	// Logout revokes refreshToken and blacklists the access token described
	// by claims until it expires. claims may be nil.
	Logout(ctx context.Context, refreshToken string, claims *token.CustomClaims) error
	GoogleLogin(ctx context.Context, in GoogleLoginInput) (*AuthResult, error)
	CleanupTokens(ctx context.Context) (int64, error)
}

// SignupInput is the payload of a sign-up request.
type SignupInput struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// GoogleLoginInput is the profile sent by the front end after Google sign-in.
type GoogleLoginInput struct {
	IDToken  string `json:"idToken"`
	GoogleID string `json:"googleId"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Picture  string `json:"picture"`
}

// AuthResult is returned by every successful authentication.
type AuthResult struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	ExpiresIn    int64       `json:"expires_in"`
	User         *model.User `json:"user"`
}

// GoogleTokenValidator verifies a Google ID token for audience.
type GoogleTokenValidator func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

type authService struct {
	userRepo    repository.UserRepository
	refreshRepo repository.RefreshTokenRepository
	blacklist   repository.TokenBlacklist
	jwtManager  *token.JWTManager
	googleCfg   config.GoogleConfig
	validate    GoogleTokenValidator
	now         func() time.Time
}

// NewAuthService creates an AuthService. validate defaults to idtoken.Validate.
func NewAuthService(
	userRepo repository.UserRepository,
	refreshRepo repository.RefreshTokenRepository,
	blacklist repository.TokenBlacklist,
	jwtManager *token.JWTManager,
	googleCfg config.GoogleConfig,
	validate GoogleTokenValidator,
) AuthService {
	if validate == nil {
		validate = idtoken.Validate
	}
	return &authService{
		userRepo:    userRepo,
		refreshRepo: refreshRepo,
		blacklist:   blacklist,
		jwtManager:  jwtManager,
		googleCfg:   googleCfg,
		validate:    validate,
		now:         time.Now,
	}
}

func (s *authService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	if n := len([]rune(in.Username)); n < 4 || n > 20 {
		return nil, apperr.Validation("username must be between 4 and 20 characters")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return nil, apperr.Validation("email is invalid")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	_, err := s.userRepo.FindByEmail(ctx, in.Email)
	if err == nil {
		return nil, apperr.Conflict("email already exists")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	hashed, err := hash.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &model.User{Username: in.Username, Email: in.Email, Password: hashed, Role: model.RoleUser}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	log.Infof("[AuthService] user signed up, id=%s", user.ID)
	return s.issue(ctx, user)
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("invalid credentials")
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	if user.Password == "" || !hash.CheckPasswordHash(password, user.Password) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	return s.issue(ctx, user)
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	if refreshToken == "" {
		return nil, apperr.Validation("refresh token is required")
	}
	stored, err := s.refreshRepo.FindByToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("invalid refresh token")
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	if !stored.Usable(s.now()) {
		return nil, apperr.Unauthorized("refresh token expired or revoked")
	}

	user, err := s.userRepo.FindByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("invalid refresh token")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	accessToken, err := s.jwtManager.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	value, expiresAt := s.jwtManager.GenerateRefreshToken()
	next := &model.RefreshToken{Token: value, UserID: user.ID, ExpiresAt: expiresAt}
	if err := s.refreshRepo.Rotate(ctx, refreshToken, next); err != nil {
		// Lost a race with another refresh or a logout.
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.Unauthorized("refresh token expired or revoked")
		}
		return nil, fmt.Errorf("rotate refresh token: %w", err)
	}
	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: value,
		ExpiresIn:    int64(s.jwtManager.AccessTokenTTL().Seconds()),
		User:         user,
	}, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string, claims *token.CustomClaims) error {
	if refreshToken == "" {
		return apperr.Validation("refresh token is required")
	}
	if err := s.refreshRepo.Revoke(ctx, refreshToken, s.now()); err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("revoke refresh token: %w", err)
	}

	if claims == nil || claims.ID == "" || claims.ExpiresAt == nil {
		return nil
	}
	ttl := claims.ExpiresAt.Time.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.blacklist.Add(ctx, claims.ID, ttl); err != nil {
		return fmt.Errorf("blacklist access token: %w", err)
	}
	return nil
}

func (s *authService) GoogleLogin(ctx context.Context, in GoogleLoginInput) (*AuthResult, error) {
	if !s.googleCfg.SkipTokenAuth {
		if in.IDToken == "" {
			return nil, apperr.Validation("idToken is required")
		}
		payload, err := s.validate(ctx, in.IDToken, s.googleCfg.ClientID)
		if err != nil {
			log.Warnf("[AuthService] google token rejected: %v", err)
			return nil, apperr.Unauthorized("invalid google token")
		}
		in.GoogleID = payload.Subject
		if email, ok := payload.Claims["email"].(string); ok && email != "" {
			in.Email = email
		}
		if name, ok := payload.Claims["name"].(string); ok && in.Name == "" {
			in.Name = name
		}
		if picture, ok := payload.Claims["picture"].(string); ok && in.Picture == "" {
			in.Picture = picture
		}
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.GoogleID == "" || in.Email == "" {
		return nil, apperr.Validation("invalid google authentication data")
	}

	user, err := s.userRepo.FindByGoogleID(ctx, in.GoogleID)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		user, err = s.linkOrCreateGoogleUser(ctx, in)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("find user by google id: %w", err)
	}
	return s.issue(ctx, user)
}

// linkOrCreateGoogleUser attaches the Google account to an existing user
// with the same email, or creates a password-less user.
func (s *authService) linkOrCreateGoogleUser(ctx context.Context, in GoogleLoginInput) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(ctx, in.Email)
	if err == nil {
		user.GoogleID = in.GoogleID
		if user.Picture == "" {
			user.Picture = in.Picture
		}
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("link google account: %w", err)
		}
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	username := in.Name
	if username == "" {
		username = strings.SplitN(in.Email, "@", 2)[0]
	}
	user = &model.User{
		Email:    in.Email,
		Username: username,
		GoogleID: in.GoogleID,
		Picture:  in.Picture,
		Role:     model.RoleUser,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create google user: %w", err)
	}
	log.Infof("[AuthService] created user %s from google sign-in", user.ID)
	return user, nil
}

func (s *authService) CleanupTokens(ctx context.Context) (int64, error) {
	n, err := s.refreshRepo.DeleteStale(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("delete stale refresh tokens: %w", err)
	}
	return n, nil
}

// issue signs an access token and stores a fresh refresh token for user.
func (s *authService) issue(ctx context.Context, user *model.User) (*AuthResult, error) {
	accessToken, err := s.jwtManager.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	value, expiresAt := s.jwtManager.GenerateRefreshToken()
	if err := s.refreshRepo.Create(ctx, &model.RefreshToken{Token: value, UserID: user.ID, ExpiresAt: expiresAt}); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: value,
		ExpiresIn:    int64(s.jwtManager.AccessTokenTTL().Seconds()),
		User:         user,
	}, nil
}

// validatePassword requires 8 to 32 characters with a digit, a lower case
// and an upper case letter.
func validatePassword(p string) error {
	if n := len(p); n < 8 || n > 32 {
		return apperr.Validation("password must be between 8 and 32 characters")
	}
	var digit, lower, upper bool
	for _, r := range p {
		switch {
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		}
	}
	if !digit || !lower || !upper {
		return apperr.Validation("password too weak")
	}
	return nil
}
