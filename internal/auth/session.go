// Пакет auth — сессии браузера и API-токены портала.
//
// Сессия целиком живёт в cookie: JSON запечатывается XChaCha20-Poly1305,
// ключ выводится HKDF-SHA256 из IP_SESSION_SECRET. API-токены — JWT RS256,
// публичный ключ отдаётся как JWKS.
package auth

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const SessionCookieName = "intake_session"

// hkdfInfo разделяет ключ сессий и другие ключи, выводимые из того же секрета.
const hkdfInfo = "intake-portal session v1"

var (
	ErrSessionExpired   = errors.New("сессия истекла")
	errSessionMalformed = errors.New("cookie сессии повреждена")
)

// SessionData — полезная нагрузка cookie.
type SessionData struct {
	UserID    int64 `json:"uid"`
	ExpiresAt int64 `json:"exp"`
}

func (s *SessionData) IsExpired(now time.Time) bool {
	return now.Unix() >= s.ExpiresAt
}

// SessionManager выдаёт, читает и стирает cookie сессии.
type SessionManager struct {
	aead   cipher.AEAD
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

// NewSessionManager. Пустой secret — случайный ключ на время жизни процесса:
// после рестарта все пользователи входят заново.
func NewSessionManager(secret string, ttl time.Duration, secure bool) (*SessionManager, error) {
	key, err := sessionKey(secret)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("AEAD сессий: %w", err)
	}
	return &SessionManager{aead: aead, ttl: ttl, secure: secure, now: time.Now}, nil
}

func sessionKey(secret string) ([]byte, error) {
	key := make([]byte, chacha20poly1305.KeySize)
	if secret == "" {
		if _, err := io.ReadFull(rand.Reader, key); err != nil {
			return nil, fmt.Errorf("случайный ключ сессий: %w", err)
		}
		return key, nil
	}
	kdf := hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfInfo))
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("вывод ключа сессий: %w", err)
	}
	return key, nil
}

// Encrypt — base64url(nonce ‖ sealed). Имя cookie входит в associated data,
// так что значение нельзя переставить в другую cookie с тем же ключом.
func (sm *SessionManager) Encrypt(data *SessionData) (string, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("сериализация сессии: %w", err)
	}

	buf := make([]byte, sm.aead.NonceSize(), sm.aead.NonceSize()+len(payload)+sm.aead.Overhead())
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("nonce сессии: %w", err)
	}
	sealed := sm.aead.Seal(buf, buf, payload, []byte(SessionCookieName))
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (sm *SessionManager) Decrypt(value string) (*SessionData, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(raw) < sm.aead.NonceSize()+sm.aead.Overhead() {
		return nil, errSessionMalformed
	}

	nonce, sealed := raw[:sm.aead.NonceSize()], raw[sm.aead.NonceSize():]
	payload, err := sm.aead.Open(nil, nonce, sealed, []byte(SessionCookieName))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errSessionMalformed, err) //nolint:errorlint // намеренный двойной wrap
	}

	var data SessionData
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, fmt.Errorf("%w: %w", errSessionMalformed, err) //nolint:errorlint // намеренный двойной wrap
	}
	return &data, nil
}

func (sm *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Start выдаёт cookie для userID со сроком ttl.
func (sm *SessionManager) Start(w http.ResponseWriter, userID int64) error {
	value, err := sm.Encrypt(&SessionData{UserID: userID, ExpiresAt: sm.now().Add(sm.ttl).Unix()})
	if err != nil {
		return err
	}
	http.SetCookie(w, sm.cookie(value, int(sm.ttl/time.Second)))
	return nil
}

// FromRequest: нет cookie — (nil, nil), истекла — ErrSessionExpired.
func (sm *SessionManager) FromRequest(r *http.Request) (*SessionData, error) {
	c, err := r.Cookie(SessionCookieName)
	if errors.Is(err, http.ErrNoCookie) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	data, err := sm.Decrypt(c.Value)
	if err != nil {
		return nil, err
	}
	if data.IsExpired(sm.now()) {
		return nil, ErrSessionExpired
	}
	return data, nil
}

func (sm *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, sm.cookie("", -1))
}
