package auth_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mautops/property-flow/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testIssuer = "https://sso.example.com/realms/agency"

func signHS256(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func registered(subject string, expiresIn time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    testIssuer,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
	}
}

// TestSharedSecretValidator 测试 HS256 校验
func TestSharedSecretValidator(t *testing.T) {
	validator := auth.NewSharedSecretValidator(testIssuer, "dev-secret")

	claims := &auth.KeycloakClaims{PreferredUsername: "alice", RegisteredClaims: registered("user-1", time.Hour)}
	parsed, err := validator.ValidateToken(signHS256(t, "dev-secret", claims))
	require.NoError(t, err)
	assert.Equal(t, "user-1", parsed.Subject)
	assert.Equal(t, "alice", parsed.PreferredUsername)

	_, err = validator.ValidateToken(signHS256(t, "other-secret", claims))
	assert.Error(t, err)

	expired := &auth.KeycloakClaims{RegisteredClaims: registered("user-1", -time.Minute)}
	_, err = validator.ValidateToken(signHS256(t, "dev-secret", expired))
	assert.Error(t, err)

	noSubject := &auth.KeycloakClaims{RegisteredClaims: registered("", time.Hour)}
	_, err = validator.ValidateToken(signHS256(t, "dev-secret", noSubject))
	assert.Error(t, err)
}

// TestKeycloakTokenValidator_JWKS 测试通过 JWKS 公钥校验 RS256
func TestKeycloakTokenValidator_JWKS(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	var fetches int
	jwks := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"keys": []map[string]string{{
				"kid": "key-1",
				"kty": "RSA",
				"n":   base64.RawURLEncoding.EncodeToString(key.N.Bytes()),
				"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(key.E)).Bytes()),
			}},
		})
	}))
	defer jwks.Close()

	validator := auth.NewKeycloakTokenValidator(testIssuer, jwks.URL)

	sign := func(kid string, claims jwt.Claims) string {
		token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
		token.Header["kid"] = kid
		signed, err := token.SignedString(key)
		require.NoError(t, err)
		return signed
	}

	claims := &auth.KeycloakClaims{RegisteredClaims: registered("user-1", time.Hour)}
	parsed, err := validator.ValidateToken(sign("key-1", claims))
	require.NoError(t, err)
	assert.Equal(t, "user-1", parsed.Subject)

	_, err = validator.ValidateToken(sign("key-1", claims))
	require.NoError(t, err)
	assert.Equal(t, 1, fetches)

	_, err = validator.ValidateToken(sign("key-unknown", claims))
	assert.Error(t, err)

	wrongIssuer := &auth.KeycloakClaims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-1",
		Issuer:    "https://evil.example.com",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	_, err = validator.ValidateToken(sign("key-1", wrongIssuer))
	assert.Error(t, err)

	// 不接受 HS256
	_, err = validator.ValidateToken(signHS256(t, "secret", claims))
	assert.Error(t, err)
}

// TestKeycloakAuthMiddleware 测试认证中间件
func TestKeycloakAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	validator := auth.NewSharedSecretValidator(testIssuer, "dev-secret")

	router := gin.New()
	router.Use(auth.KeycloakAuthMiddleware(validator))
	router.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": auth.UserID(c)})
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "UNAUTHORIZED")

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := signHS256(t, "dev-secret", &auth.KeycloakClaims{RegisteredClaims: registered("user-7", time.Hour)})
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"user-7"}`, w.Body.String())
}
