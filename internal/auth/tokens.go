// tokens.go — API-токены: выпуск и проверка JWT RS256.
// Публичный ключ хранится в jwkset.Storage, проверка подписи идёт через keyfunc,
// тот же набор ключей отдаётся на /.well-known/jwks.json.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/bigkaa/intake-portal/internal/domain/role"
)

// ErrInvalidToken — токен не прошёл проверку.
var ErrInvalidToken = errors.New("невалидный или просроченный токен")

// TokenClaims — claims API-токена.
type TokenClaims struct {
	jwt.RegisteredClaims
	// Role — роль на момент выпуска (справочно, права берутся из БД)
	Role string `json:"role"`
}

// TokenService выпускает и проверяет API-токены.
type TokenService struct {
	key     *rsa.PrivateKey
	kid     string
	issuer  string
	ttl     time.Duration
	storage jwkset.Storage
	jwks    keyfunc.Keyfunc
	now     func() time.Time
	logger  *slog.Logger
}

// LoadSigningKey читает RSA-ключ из PEM-файла.
// Пустой путь — генерируется ключ 2048 бит, токены не переживают рестарт.
func LoadSigningKey(path string, logger *slog.Logger) (*rsa.PrivateKey, error) {
	if path == "" {
		logger.Warn("IP_JWT_PRIVATE_KEY_PATH не задан, используется временный ключ")
		return rsa.GenerateKey(rand.Reader, 2048)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение ключа %s: %w", path, err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("разбор ключа %s: %w", path, err)
	}
	return key, nil
}

// NewTokenService создаёт сервис токенов для ключа key.
func NewTokenService(
	ctx context.Context,
	key *rsa.PrivateKey,
	issuer string,
	ttl time.Duration,
	logger *slog.Logger,
) (*TokenService, error) {
	kid := keyID(&key.PublicKey)

	jwk, err := jwkset.NewJWKFromKey(&key.PublicKey, jwkset.JWKOptions{
		Metadata: jwkset.JWKMetadataOptions{
			ALG: jwkset.AlgRS256,
			KID: kid,
			USE: jwkset.UseSig,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWK: %w", err)
	}

	storage := jwkset.NewMemoryStorage()
	if err := storage.KeyWrite(ctx, jwk); err != nil {
		return nil, fmt.Errorf("запись JWK: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return &TokenService{
		key:     key,
		kid:     kid,
		issuer:  issuer,
		ttl:     ttl,
		storage: storage,
		jwks:    k,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "token_service")),
	}, nil
}

// Issue выпускает токен для пользователя. Возвращает токен и время истечения.
func (ts *TokenService) Issue(userID int64, r role.Role) (string, time.Time, error) {
	now := ts.now()
	exp := now.Add(ts.ttl)

	claims := TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Role: r.String(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = ts.kid

	signed, err := token.SignedString(ts.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("подпись токена: %w", err)
	}
	return signed, exp, nil
}

// Verify проверяет подпись, issuer и срок токена. Возвращает ID пользователя.
func (ts *TokenService) Verify(ctx context.Context, tokenString string) (int64, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, ts.jwks.KeyfuncCtx(ctx),
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(ts.issuer),
		jwt.WithTimeFunc(ts.now),
	)
	if err != nil || !token.Valid {
		ts.logger.Debug("JWT валидация не пройдена", slog.Any("error", err))
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return 0, ErrInvalidToken
	}
	return userID, nil
}

// JWKS возвращает публичный набор ключей в формате JWK Set.
func (ts *TokenService) JWKS(ctx context.Context) (json.RawMessage, error) {
	return ts.storage.JSONPublic(ctx)
}

// TTL возвращает срок жизни токена.
func (ts *TokenService) TTL() time.Duration {
	return ts.ttl
}

// keyID — стабильный идентификатор ключа по модулю RSA.
func keyID(pub *rsa.PublicKey) string {
	sum := sha256.Sum256(pub.N.Bytes())
	return base64.RawURLEncoding.EncodeToString(sum[:8])
}
