// AngelaMos | 2026
// tokens.go

package stubidp

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v3/jwa"
	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"

	"github.com/civiclens/console-client/internal/identity"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// TokenIssuer signs and verifies access tokens with an ephemeral ES256
// key. The key lives only as long as the process: a stub IdP restart
// invalidates every outstanding token, which is exactly the "server
// already forgot this session" condition the client must recover from.
type TokenIssuer struct {
	privateKey jwk.Key
	publicKey  jwk.Key
	issuer     string
	audience   string
	expire     time.Duration
}

func NewTokenIssuer(issuer, audience string, expire time.Duration) (*TokenIssuer, error) {
	rawKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	privateKey, err := jwk.Import(rawKey)
	if err != nil {
		return nil, fmt.Errorf("import private key: %w", err)
	}

	keyID := uuid.New().String()[:8]
	if setErr := privateKey.Set(jwk.KeyIDKey, keyID); setErr != nil {
		return nil, fmt.Errorf("set key id: %w", setErr)
	}
	if setErr := privateKey.Set(jwk.AlgorithmKey, jwa.ES256()); setErr != nil {
		return nil, fmt.Errorf("set algorithm: %w", setErr)
	}

	publicKey, err := privateKey.PublicKey()
	if err != nil {
		return nil, fmt.Errorf("derive public key: %w", err)
	}

	return &TokenIssuer{
		privateKey: privateKey,
		publicKey:  publicKey,
		issuer:     issuer,
		audience:   audience,
		expire:     expire,
	}, nil
}

// Claims is what the stub IdP binds into each access token.
type Claims struct {
	JTI         string
	UserID      string
	Role        identity.Role
	TenantID    *string
	UserType    string
	Permissions []string
}

func (i *TokenIssuer) Issue(account *Account) (string, string, error) {
	now := time.Now()
	jti := uuid.New().String()

	builder := jwt.NewBuilder().
		JwtID(jti).
		Issuer(i.issuer).
		Audience([]string{i.audience}).
		Subject(account.ID).
		IssuedAt(now).
		Expiration(now.Add(i.expire)).
		NotBefore(now).
		Claim("role", string(account.Role)).
		Claim("user_type", account.UserType).
		Claim("permissions", account.Permissions)

	if account.TenantID != nil {
		builder = builder.Claim("tenant_id", *account.TenantID)
	}

	token, err := builder.Build()
	if err != nil {
		return "", "", fmt.Errorf("build token: %w", err)
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.ES256(), i.privateKey))
	if err != nil {
		return "", "", fmt.Errorf("sign token: %w", err)
	}

	return string(signed), jti, nil
}

func (i *TokenIssuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKey(jwa.ES256(), i.publicKey),
		jwt.WithValidate(true),
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
	)
	if err != nil {
		if isExpiredError(err) {
			return nil, fmt.Errorf("verify token: %w", ErrTokenExpired)
		}
		return nil, fmt.Errorf("verify token: %w", ErrTokenInvalid)
	}

	subject, ok := token.Subject()
	if !ok || subject == "" {
		return nil, fmt.Errorf("verify token: missing subject: %w", ErrTokenInvalid)
	}

	jti, ok := token.JwtID()
	if !ok || jti == "" {
		return nil, fmt.Errorf("verify token: missing jti: %w", ErrTokenInvalid)
	}

	var role string
	if err := token.Get("role", &role); err != nil {
		return nil, fmt.Errorf("verify token: missing role claim: %w", ErrTokenInvalid)
	}

	claims := &Claims{
		JTI:    jti,
		UserID: subject,
		Role:   identity.Role(role),
	}

	//nolint:errcheck // optional claims
	_ = token.Get("user_type", &claims.UserType)

	var tenantID string
	if err := token.Get("tenant_id", &tenantID); err == nil && tenantID != "" {
		claims.TenantID = &tenantID
	}

	var permissions []string
	if err := token.Get("permissions", &permissions); err == nil {
		claims.Permissions = permissions
	}

	return claims, nil
}

// ExtractJTI pulls the token ID without validating the signature or
// expiry. The forced-logout path uses it to revoke tokens the normal
// path already refuses.
func (i *TokenIssuer) ExtractJTI(tokenString string) string {
	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithVerify(false),
		jwt.WithValidate(false),
	)
	if err != nil {
		return ""
	}

	jti, _ := token.JwtID()
	return jti
}

func isExpiredError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "exp") &&
		strings.Contains(errStr, "not satisfied")
}
