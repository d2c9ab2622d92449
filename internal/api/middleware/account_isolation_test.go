package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admetric-labs/ad-performance-iq/pkg/auth"
)

// TestAccountIsolation_ContextCarriesAccountFromJWT proves that the account_id
// extracted from the JWT is what downstream handlers receive.  If a handler
// uses this value to scope DB queries, different tokens can never bleed data
// across ad accounts.
func TestAccountIsolation_ContextCarriesAccountFromJWT(t *testing.T) {
	cfg := testJWTConfig()

	accountA := "act_1111111111" // Acme
	accountB := "act_2222222222" // Globex

	gin.SetMode(gin.TestMode)
	r := gin.New()

	// Handler echoes back the account_id it sees on the request context.
	r.GET("/echo-account",
		AuthMiddleware(cfg),
		func(c *gin.Context) {
			aid := c.MustGet("account_id").(string)
			c.JSON(200, gin.H{"account_id": aid})
		},
	)

	// --- Request from Account A ---
	tokenA := generateTestToken(accountA, uuid.New(), "admin")
	reqA := httptest.NewRequest("GET", "/echo-account", nil)
	reqA.Header.Set("Authorization", "Bearer "+tokenA)
	wA := httptest.NewRecorder()
	r.ServeHTTP(wA, reqA)

	require.Equal(t, 200, wA.Code)

	var bodyA map[string]string
	require.NoError(t, json.Unmarshal(wA.Body.Bytes(), &bodyA))
	assert.Equal(t, accountA, bodyA["account_id"],
		"Account A's token should produce account A's context")

	// --- Request from Account B ---
	tokenB := generateTestToken(accountB, uuid.New(), "analyst")
	reqB := httptest.NewRequest("GET", "/echo-account", nil)
	reqB.Header.Set("Authorization", "Bearer "+tokenB)
	wB := httptest.NewRecorder()
	r.ServeHTTP(wB, reqB)

	require.Equal(t, 200, wB.Code)

	var bodyB map[string]string
	require.NoError(t, json.Unmarshal(wB.Body.Bytes(), &bodyB))
	assert.Equal(t, accountB, bodyB["account_id"],
		"Account B's token should produce account B's context")

	// --- Cross-check: they must differ ---
	assert.NotEqual(t, bodyA["account_id"], bodyB["account_id"],
		"Two different accounts must never resolve to the same account_id")
}

// TestAccountIsolation_CannotForgeViaClaims verifies that a token signed
// with a different secret (i.e., a forged token claiming to be account A)
// is rejected at the middleware layer before any handler executes.
func TestAccountIsolation_CannotForgeViaClaims(t *testing.T) {
	cfg := testJWTConfig()

	gin.SetMode(gin.TestMode)
	r := gin.New()

	handlerCalled := false
	r.GET("/protected",
		AuthMiddleware(cfg),
		func(c *gin.Context) {
			handlerCalled = true
			c.JSON(200, gin.H{"ok": true})
		},
	)

	// Attacker generates a token using their own secret, claiming to be account A
	forgedToken, err := auth.GenerateToken(
		"attacker-secret-not-the-real-one",
		testIssuer,
		"act_1111111111",
		uuid.New(),
		"admin",
		24,
	)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+forgedToken)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, 401, w.Code, "Forged token must be rejected")
	assert.False(t, handlerCalled, "Handler must not execute with a forged token")
}

// TestAccountIsolation_AccountATokenCannotAccessAccountBRoute simulates an
// endpoint that enforces account scoping.  A stub handler checks that the
// JWT account matches the resource's account; account A's token should get a
// 404 (or equivalent) when trying to access account B's resource.
func TestAccountIsolation_AccountATokenCannotAccessAccountBRoute(t *testing.T) {
	cfg := testJWTConfig()

	accountA := "act_1111111111"
	accountB := "act_2222222222"

	gin.SetMode(gin.TestMode)
	r := gin.New()

	// Simulates a handler that loads a resource belonging to account B.
	// The handler checks that the caller's account matches the resource owner.
	// This mirrors the real pattern: repositories use WHERE account_id = $1.
	r.GET("/resource/:id",
		AuthMiddleware(cfg),
		func(c *gin.Context) {
			callerAccount := c.MustGet("account_id").(string)

			// Simulate DB lookup that returns resource owned by account B
			resourceOwner := accountB

			if callerAccount != resourceOwner {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			c.JSON(200, gin.H{"data": "secret-stuff"})
		},
	)

	// Account A tries to access account B's resource
	tokenA := generateTestToken(accountA, uuid.New(), "admin")
	req := httptest.NewRequest("GET", "/resource/some-id", nil)
	req.Header.Set("Authorization", "Bearer "+tokenA)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, 404, w.Code,
		"Account A must not see account B's resources")

	// Account B accesses their own resource — should work
	tokenB := generateTestToken(accountB, uuid.New(), "admin")
	reqB := httptest.NewRequest("GET", "/resource/some-id", nil)
	reqB.Header.Set("Authorization", "Bearer "+tokenB)
	wB := httptest.NewRecorder()

	r.ServeHTTP(wB, reqB)

	assert.Equal(t, 200, wB.Code,
		"Account B should see their own resource")
}

// TestAccountIsolation_ExpiredTokenBlocked confirms that an expired token
// for any account is rejected before the handler runs, preventing stale
// credentials from crossing account boundaries.
func TestAccountIsolation_ExpiredTokenBlocked(t *testing.T) {
	cfg := testJWTConfig()

	gin.SetMode(gin.TestMode)
	r := gin.New()

	handlerCalled := false
	r.GET("/protected",
		AuthMiddleware(cfg),
		func(c *gin.Context) {
			handlerCalled = true
			c.JSON(200, gin.H{"ok": true})
		},
	)

	// Generate expired token (negative expiry)
	expiredToken, err := auth.GenerateToken(
		testSecret, testIssuer,
		"act_1111111111", uuid.New(), "admin",
		-1, // expired
	)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+expiredToken)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, 401, w.Code, "Expired token must be rejected")
	assert.False(t, handlerCalled, "Handler must not execute with expired token")
}

// TestAccountIsolation_ViewerCannotMutate verifies that the RBAC layer
// prevents a viewer-role token from accessing mutation endpoints, even
// within their own account.
func TestAccountIsolation_ViewerCannotMutate(t *testing.T) {
	cfg := testJWTConfig()

	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.POST("/upload",
		AuthMiddleware(cfg),
		RequireRole("admin", "analyst"),
		func(c *gin.Context) {
			c.JSON(201, gin.H{"ok": true})
		},
	)

	token := generateTestToken("act_1111111111", uuid.New(), "viewer")
	req := httptest.NewRequest("POST", "/upload", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	assert.Equal(t, 403, w.Code,
		"Viewer role should be forbidden from mutation endpoints")
}
