package session

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/placemate/placemate/internal/domain"
)

var errBadCookie = errors.New("session: malformed cookie")

// Manager creates, reads, refreshes and destroys sealed session cookies.
// The payload is an HS256-signed JWT encrypted with AES-256-GCM, so the
// cookie is both tamper-evident and opaque to the client.
type Manager struct {
	signKey []byte
	sealKey []byte
	ttl     time.Duration
	secure  bool

	now func() time.Time // test hook
}

// NewManager derives the signing and sealing keys from the configured
// session secret. Secure controls the cookie's Secure attribute and
// should be true everywhere except local development.
func NewManager(secret string, ttl time.Duration, secure bool) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	// Distinct derivation labels so the MAC key and cipher key never
	// coincide even though both come from one secret.
	sign := sha256.Sum256([]byte("placemate.session.sign:" + secret))
	seal := sha256.Sum256([]byte("placemate.session.seal:" + secret))

	return &Manager{
		signKey: sign[:],
		sealKey: seal[:],
		ttl:     ttl,
		secure:  secure,
		now:     time.Now,
	}
}

// Create establishes a session for user and writes the cookie. Any prior
// session is overwritten by the single cookie write.
func (m *Manager) Create(w http.ResponseWriter, user domain.User) (*Session, error) {
	now := m.now().UTC()
	sess := &Session{
		User:      Snapshot(user),
		IsAuth:    true,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	if err := m.write(w, sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Refresh extends the session's expiry without touching the snapshot.
func (m *Manager) Refresh(w http.ResponseWriter, sess *Session) error {
	sess.ExpiresAt = m.now().UTC().Add(m.ttl)
	return m.write(w, sess)
}

// Destroy clears the cookie. Safe to call on an already-empty session.
func (m *Manager) Destroy(w http.ResponseWriter) {
	clearCookie(w, m.secure)
}

// Peek decodes the session without side effects. It returns nil when no
// cookie is present or the cookie fails authentication/decryption; an
// expired-but-authentic session is returned so callers can distinguish
// "expired" from "absent" without mutating anything.
func (m *Manager) Peek(r *http.Request) *Session {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return nil
	}

	sess, err := m.decode(c.Value)
	if err != nil {
		return nil
	}
	return sess
}

// Read returns the embedded user snapshot for a live session. An expired,
// missing, or malformed session yields nil and, when expired, destroys
// the cookie as a side effect (lazy logout). Callers must treat nil as
// "not authenticated" without distinguishing why.
func (m *Manager) Read(w http.ResponseWriter, r *http.Request) *UserSnapshot {
	sess := m.Peek(r)
	if sess == nil {
		return nil
	}
	if sess.Expired(m.now()) {
		m.Destroy(w)
		return nil
	}
	u := sess.User
	return &u
}

func (m *Manager) write(w http.ResponseWriter, sess *Session) error {
	value, err := m.encode(sess)
	if err != nil {
		return err
	}
	setCookie(w, value, sess.ExpiresAt, m.secure)
	return nil
}

func (m *Manager) encode(sess *Session) (string, error) {
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
		User:   sess.User,
		IsAuth: sess.IsAuth,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.signKey)
	if err != nil {
		return "", fmt.Errorf("session: sign: %w", err)
	}

	sealed, err := m.seal([]byte(signed))
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (m *Manager) decode(value string) (*Session, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, errBadCookie
	}

	signed, err := m.open(raw)
	if err != nil {
		return nil, errBadCookie
	}

	var claims sessionClaims
	// Expiry is validated by the callers (Expired/Read), not the parser,
	// so Peek can still surface an expired-but-authentic session.
	_, err = jwt.ParseWithClaims(string(signed), &claims,
		func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("session: unexpected signing method %v", t.Header["alg"])
			}
			return m.signKey, nil
		},
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return nil, errBadCookie
	}

	sess := &Session{
		User:   claims.User,
		IsAuth: claims.IsAuth,
	}
	if claims.IssuedAt != nil {
		sess.CreatedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		sess.ExpiresAt = claims.ExpiresAt.Time
	}
	return sess, nil
}

// seal encrypts with AES-256-GCM; output is [nonce][ciphertext+tag].
func (m *Manager) seal(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(m.sealKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

func (m *Manager) open(sealed []byte) ([]byte, error) {
	block, err := aes.NewCipher(m.sealKey)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	if len(sealed) < gcm.NonceSize() {
		return nil, errBadCookie
	}
	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	return gcm.Open(nil, nonce, ciphertext, nil)
}
