package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/catchycrm/crm_end/models"
	"github.com/catchycrm/crm_end/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.InitLogger()
}

func newAuthedRouter() *gin.Engine {
	router := gin.New()
	router.GET("/protected", AuthMiddleware(), func(c *gin.Context) {
		user := utils.GetUser(c)
		c.JSON(http.StatusOK, gin.H{"email": user.Email})
	})
	return router
}

func TestAuthMiddlewareMissingToken(t *testing.T) {
	router := newAuthedRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_TOKEN")
}

func TestAuthMiddlewareMalformedHeader(t *testing.T) {
	router := newAuthedRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Basic abc123")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthMiddlewareInvalidToken(t *testing.T) {
	router := newAuthedRouter()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	user := &models.User{
		ID:        primitive.NewObjectID(),
		Email:     "agent@example.com",
		FirstName: "Alice",
		Role:      models.UserRoleAGENT,
		CompanyID: "company-1",
	}
	token, err := utils.GenerateToken(user)
	require.NoError(t, err)

	router := newAuthedRouter()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "agent@example.com")
}

func newScopedRouter(user *models.User) (*gin.Engine, string) {
	token, _ := utils.GenerateToken(user)
	router := gin.New()
	router.GET("/scoped", AuthMiddleware(), CompanyRequired(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"companyId": GetCompanyID(c)})
	})
	return router, token
}

func TestCompanyRequiredRegularUser(t *testing.T) {
	router, token := newScopedRouter(&models.User{
		ID:        primitive.NewObjectID(),
		Email:     "admin@example.com",
		Role:      models.UserRoleADMIN,
		CompanyID: "company-1",
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/scoped", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	// 普通用户的请求头被忽略
	req.Header.Set("X-Company-Id", "company-9")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "company-1")
}

func TestCompanyRequiredSuperAdminNeedsHeader(t *testing.T) {
	router, token := newScopedRouter(&models.User{
		ID:    primitive.NewObjectID(),
		Email: "root@example.com",
		Role:  models.UserRoleSUPER_ADMIN,
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/scoped", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/scoped", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Company-Id", "company-7")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "company-7")
}

func TestPermissionMiddleware(t *testing.T) {
	agent := &models.User{
		ID:        primitive.NewObjectID(),
		Email:     "agent@example.com",
		Role:      models.UserRoleAGENT,
		CompanyID: "company-1",
	}
	token, err := utils.GenerateToken(agent)
	require.NoError(t, err)

	router := gin.New()
	router.DELETE("/leads/:id", AuthMiddleware(), PermissionMiddleware("leads", "delete"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/leads", AuthMiddleware(), PermissionMiddleware("leads", "read"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	// 坐席不可删除线索
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/leads/abc", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 坐席可读取线索
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/leads", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRequired(t *testing.T) {
	agent := &models.User{ID: primitive.NewObjectID(), Email: "a@example.com", Role: models.UserRoleAGENT, CompanyID: "c1"}
	admin := &models.User{ID: primitive.NewObjectID(), Email: "b@example.com", Role: models.UserRoleADMIN, CompanyID: "c1"}

	router := gin.New()
	router.GET("/admin-only", AuthMiddleware(), AdminRequired(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	agentToken, _ := utils.GenerateToken(agent)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+agentToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminToken, _ := utils.GenerateToken(admin)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
