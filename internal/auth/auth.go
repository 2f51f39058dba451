package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ukydev/city-traffic/internal/models"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRole        = errors.New("invalid role")
)

// Service issues and validates operator tokens
type Service struct {
	jwtSecret []byte
	tokenExp  time.Duration

	mu        sync.RWMutex
	operators map[string]models.Operator
}

// ErrMissingSecret is returned when no signing secret is configured.
var ErrMissingSecret = errors.New("jwt secret is required")

// NewService creates a new authentication service signing tokens with secret
// that expire after exp. A non-positive exp falls back to 24 hours.
func NewService(secret string, exp time.Duration) (*Service, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	if exp <= 0 {
		exp = 24 * time.Hour
	}

	return &Service{
		jwtSecret: []byte(secret),
		tokenExp:  exp,
		operators: make(map[string]models.Operator),
	}, nil
}

// AddOperator registers an account that may log in.
func (s *Service) AddOperator(op models.Operator) error {
	if !models.IsValidRole(op.Role) {
		return ErrInvalidRole
	}
	if op.Username == "" || op.PasswordHash == "" {
		return ErrInvalidCredentials
	}
	s.mu.Lock()
	s.operators[op.Username] = op
	s.mu.Unlock()
	return nil
}

// Login checks credentials against the registered operators and issues a token
func (s *Service) Login(req models.LoginRequest) (*models.LoginResponse, error) {
	s.mu.RLock()
	op, ok := s.operators[req.Username]
	s.mu.RUnlock()
	if !ok || !s.CheckPassword(req.Password, op.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	expiresAt := time.Now().Add(s.tokenExp)
	token, err := s.generateToken(op, expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		Role:      op.Role,
	}, nil
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword checks if a password matches a hash
func (s *Service) CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateToken generates a JWT token for an operator
func (s *Service) GenerateToken(op models.Operator) (string, error) {
	return s.generateToken(op, time.Now().Add(s.tokenExp))
}

func (s *Service) generateToken(op models.Operator, expiresAt time.Time) (string, error) {
	claims := jwt.MapClaims{
		"username": op.Username,
		"role":     string(op.Role),
		"exp":      expiresAt.Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateToken validates a JWT token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*models.Claims, error) {
	// Remove "Bearer " prefix if present
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}

	username, ok := claims["username"].(string)
	if !ok {
		return nil, ErrInvalidToken
	}

	roleStr, ok := claims["role"].(string)
	if !ok || !models.IsValidRole(models.Role(roleStr)) {
		return nil, ErrInvalidToken
	}

	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, ErrInvalidToken
	}

	return &models.Claims{
		Username: username,
		Role:     models.Role(roleStr),
		Exp:      int64(exp),
	}, nil
}

// ExtractTokenFromHeader extracts token from Authorization header
func (s *Service) ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrInvalidToken
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", ErrInvalidToken
	}

	return parts[1], nil
}
