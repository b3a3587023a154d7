package service

import (
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/lisensia/lisensia_api/internal/models"
	"github.com/lisensia/lisensia_api/internal/repository"
	"github.com/lisensia/lisensia_api/internal/utils"
)

var (
	hasLetter = regexp.MustCompile(`[A-Za-z]`)
	hasDigit  = regexp.MustCompile(`[0-9]`)
)

// AuthService handles API user registration and login.
type AuthService struct {
	userRepo *repository.UserRepository
}

// NewAuthService constructs an AuthService.
func NewAuthService(userRepo *repository.UserRepository) *AuthService {
	return &AuthService{userRepo: userRepo}
}

// Register creates a user with a bcrypt-hashed password. Passwords must be
// at least 8 characters and contain a letter and a digit. The first account
// becomes the admin; every later account is staff.
func (s *AuthService) Register(username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.New("username is required")
	}
	if len(password) < 8 || !hasLetter.MatchString(password) || !hasDigit.MatchString(password) {
		return nil, errors.New("password must be at least 8 characters with a letter and a digit")
	}

	if _, err := s.userRepo.GetByUsername(username); err == nil {
		return nil, utils.ErrDuplicateUsername
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	existing, err := s.userRepo.Count()
	if err != nil {
		return nil, err
	}
	role := models.RoleStaff
	if existing == 0 {
		role = models.RoleAdmin
	}

	user := models.User{Username: username, PasswordHash: string(hash), Role: role}
	if err := s.userRepo.Create(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login verifies credentials and issues a JWT.
func (s *AuthService) Login(username, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByUsername(strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, utils.ErrInvalidCredential
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", nil, utils.ErrInvalidCredential
	}

	token, err := utils.GenerateJWT(user.ID, user.Username, user.Role)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// Refresh issues a fresh token for a still-valid one.
func (s *AuthService) Refresh(tokenString string) (string, error) {
	claims, err := utils.ValidateJWT(tokenString)
	if err != nil {
		return "", utils.ErrInvalidToken
	}
	user, err := s.userRepo.GetByID(claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", utils.ErrInvalidToken
		}
		return "", err
	}
	// Role is re-read so a demotion takes effect on refresh.
	return utils.GenerateJWT(user.ID, user.Username, user.Role)
}
