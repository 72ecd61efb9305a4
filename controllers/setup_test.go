package controllers_test

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	glogger "gorm.io/gorm/logger"

	"github.com/plumehq/plume/config"
	"github.com/plumehq/plume/models"
	"github.com/plumehq/plume/routes"
	"github.com/plumehq/plume/utils"
)

// newTestServer wires a router against a throwaway sqlite database and a
// miniredis instance standing in for the listing cache.
func newTestServer(t *testing.T) (*gin.Engine, *gorm.DB, *miniredis.Miniredis) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	config.SetForTesting(config.AppConfig{
		JWTSecret:              "test-secret",
		GinMode:                "test",
		GinPath:                filepath.Join(t.TempDir(), "gin.log"),
		RateLimitPerMinute:     100000,
		PostsPerPage:           10,
		ListingCacheTTLSeconds: 20,
		AdminUsernames:         []string{"admin"},
	})

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "app.db")), &gorm.Config{
		Logger: glogger.Default.LogMode(glogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Group{}, &models.Post{}, &models.Comment{},
		&models.Follow{}, &models.PageView{}, &models.UploadedFile{},
	))

	mr := miniredis.RunT(t)
	utils.SetRedisForTesting(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	return routes.SetupRouter(db), db, mr
}

// createUser inserts a user directly and returns a valid bearer token.
func createUser(t *testing.T, db *gorm.DB, username string) (models.User, string) {
	t.Helper()
	user := models.User{Username: username}
	require.NoError(t, db.Create(&user).Error)
	token, err := utils.GenerateToken(user.ID, user.Username, time.Hour)
	require.NoError(t, err)
	return user, token
}

func createPostAt(t *testing.T, db *gorm.DB, author models.User, text string, at time.Time) models.Post {
	t.Helper()
	post := models.Post{UserID: author.ID, Text: text, CreatedAt: at}
	require.NoError(t, db.Create(&post).Error)
	return post
}

// doRequest performs a request against the router, optionally authenticated
// and with a JSON body.
func doRequest(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// decodeData unmarshals the data envelope of a JSON response.
func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp struct {
		Code    int                    `json:"code"`
		Message string                 `json:"message"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func itemTexts(t *testing.T, data map[string]interface{}) []string {
	t.Helper()
	items, _ := data["items"].([]interface{})
	texts := make([]string, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]interface{})
		require.True(t, ok)
		texts = append(texts, m["text"].(string))
	}
	return texts
}
