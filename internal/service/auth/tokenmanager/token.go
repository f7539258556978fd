package tokenmanager

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/avkuzmin/accountd/internal/apperrors"
	"github.com/avkuzmin/accountd/internal/models"
)

const (
	defaultTokenTTL      = 4 * time.Hour
	defaultSigningMethod = "HS256"
	defaultRenewalWindow = time.Hour
)

type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID `json:"uid"`
}

// Token manager with sensible defaults
type Config struct {
	// Secret key to sign session token payload
	// Required to be set
	SecretKey string

	// JWT MAC (Message Authentication Code) algorithm
	// If not set then default is used
	Alg string

	// Session token lifetime
	// If not set then default is used
	TokenTTL time.Duration

	// How close to expiry a token must be to allow a refresh
	// If not set then default is used
	RenewalWindow time.Duration
}

type TokenManager struct {
	// Secret key to sign session token
	key string

	// JWT MAC (Message Authentication Code) algorithm
	alg jwt.SigningMethod

	// Session token lifetime
	tokenTTL time.Duration

	// Refresh is allowed only within this window before expiry
	renewalWindow time.Duration
}

func New(cfg Config) (*TokenManager, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("secret key must not be empty")
	}

	if cfg.Alg == "" {
		cfg.Alg = defaultSigningMethod
	}

	setDefaultDuration := func(field *time.Duration, def time.Duration) {
		if *field == 0 {
			*field = def
		}
	}
	setDefaultDuration(&cfg.TokenTTL, defaultTokenTTL)
	setDefaultDuration(&cfg.RenewalWindow, defaultRenewalWindow)

	return &TokenManager{
		key:           cfg.SecretKey,
		alg:           jwt.GetSigningMethod(cfg.Alg),
		tokenTTL:      cfg.TokenTTL,
		renewalWindow: cfg.RenewalWindow,
	}, nil
}

// Sign issues a session token for the user
func (m *TokenManager) Sign(userID uuid.UUID) (models.IssuedToken, error) {
	now := time.Now().Truncate(time.Second)
	expiresAt := now.Add(m.tokenTTL)

	token := jwt.NewWithClaims(
		m.alg,
		Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(expiresAt),
			},
			UserID: userID,
		},
	)
	signed, err := token.SignedString([]byte(m.key))
	if err != nil {
		return models.IssuedToken{}, fmt.Errorf("error while signing session token. Err: %w", err)
	}

	return models.IssuedToken{Value: signed, ExpiresAt: expiresAt}, nil
}

// Parse validates signature and expiration and returns the claims
func (m *TokenManager) Parse(tokenString string) (Claims, error) {
	claims := Claims{}

	_, err := jwt.ParseWithClaims(
		tokenString,
		&claims,
		func(t *jwt.Token) (any, error) {
			return []byte(m.key), nil
		},
		jwt.WithValidMethods([]string{m.alg.Alg()}),
	)

	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return claims, fmt.Errorf("token error: %w", apperrors.ErrTokenExpired)
	default:
		return claims, fmt.Errorf("token error: %w", errors.Join(apperrors.ErrTokenInvalid, err))
	}
}

// IsNearExpiry reports whether the token is inside the renewal window
func (m *TokenManager) IsNearExpiry(expiresAt time.Time, now time.Time) bool {
	return expiresAt.Sub(now) <= m.renewalWindow
}
