package auth

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tusach/pkg/database"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))
	return db
}

func testTokens() TokenService {
	return TokenService{
		Secret:   []byte("test-secret"),
		Issuer:   "tusach-test",
		Duration: time.Hour,
	}
}

func TestTokenService_SignParseRoundTrip(t *testing.T) {
	ts := testTokens()
	u := &User{ID: "u1", Username: "linh", Email: "linh@example.com", TokenVersion: 3}

	token, exp, err := ts.Sign(u)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := ts.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "linh", claims.Username)
	assert.Equal(t, "linh@example.com", claims.Email)
	assert.Equal(t, 3, claims.TokenVersion)
	assert.Equal(t, "tusach-test", claims.Issuer)
}

func TestTokenService_RejectsWrongSecret(t *testing.T) {
	token, _, err := testTokens().Sign(&User{ID: "u1"})
	require.NoError(t, err)

	other := TokenService{Secret: []byte("different"), Issuer: "tusach-test", Duration: time.Hour}
	_, err = other.Parse(token)
	assert.Error(t, err)
}

func TestTokenService_RejectsExpired(t *testing.T) {
	ts := testTokens()
	ts.Duration = -time.Minute

	token, _, err := ts.Sign(&User{ID: "u1"})
	require.NoError(t, err)

	_, err = ts.Parse(token)
	assert.Error(t, err)
}

func TestRepo_TokenVersionLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, User{
		ID: "u1", Username: "linh", Email: "linh@example.com", PasswordHash: "x",
	}))

	v, err := repo.GetTokenVersion(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, v)

	require.NoError(t, repo.BumpTokenVersion(ctx, "u1"))
	v, err = repo.GetTokenVersion(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	require.NoError(t, repo.UpdatePassword(ctx, "u1", "y"))
	v, err = repo.GetTokenVersion(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	u, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "y", u.PasswordHash)

	assert.Error(t, repo.BumpTokenVersion(ctx, "nobody"))
}

func TestRepo_GetByEmailCaseInsensitive(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, User{
		ID: "u1", Username: "linh", Email: "linh@example.com", PasswordHash: "x",
	}))

	u, err := repo.GetByEmail(ctx, "LINH@example.com")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u1", u.ID)

	missing, err := repo.GetByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAuthMiddleware_RevokedTokenRejected(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	repo := NewRepo(db)
	ts := testTokens()
	ctx := context.Background()

	require.NoError(t, repo.CreateUser(ctx, User{
		ID: "u1", Username: "linh", Email: "linh@example.com", PasswordHash: "x",
	}))
	u, err := repo.GetByID(ctx, "u1")
	require.NoError(t, err)

	token, _, err := ts.Sign(u)
	require.NoError(t, err)

	router := gin.New()
	router.GET("/secret", AuthMiddleware(ts, repo), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": MustGetClaims(c).UserID})
	})

	do := func(header string) int {
		req := httptest.NewRequest(http.MethodGet, "/secret", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, do("Bearer "+token))
	assert.Equal(t, http.StatusUnauthorized, do(""))
	assert.Equal(t, http.StatusUnauthorized, do("Bearer garbage"))

	// Logout bumps token_version; the old token must stop working.
	require.NoError(t, repo.BumpTokenVersion(ctx, "u1"))
	assert.Equal(t, http.StatusUnauthorized, do("Bearer "+token))
}
