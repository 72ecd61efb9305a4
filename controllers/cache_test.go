package controllers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListingCacheServesStaleWithinWindow(t *testing.T) {
	r, db, mr := newTestServer(t)

	alice, token := createUser(t, db, "alice")
	createPostAt(t, db, alice, "before the window", time.Now())

	first := doRequest(t, r, http.MethodGet, "/api/v1/posts", "", nil)
	require.Equal(t, http.StatusOK, first.Code)

	w := doRequest(t, r, http.MethodPost, "/api/v1/posts", token, map[string]string{"text": "inside the window"})
	require.Equal(t, http.StatusOK, w.Code)

	// the new post exists but the cached page is served verbatim
	second := doRequest(t, r, http.MethodGet, "/api/v1/posts", "", nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
	assert.NotContains(t, second.Body.String(), "inside the window")

	mr.FastForward(21 * time.Second)

	third := doRequest(t, r, http.MethodGet, "/api/v1/posts", "", nil)
	require.Equal(t, http.StatusOK, third.Code)
	assert.Contains(t, third.Body.String(), "inside the window")
}

func TestListingCacheIgnoresDeletesWithinWindow(t *testing.T) {
	r, db, _ := newTestServer(t)

	alice, token := createUser(t, db, "alice")
	post := createPostAt(t, db, alice, "soon to vanish", time.Now())

	first := doRequest(t, r, http.MethodGet, "/api/v1/posts", "", nil)
	require.Equal(t, http.StatusOK, first.Code)
	require.Contains(t, first.Body.String(), "soon to vanish")

	w := doRequest(t, r, http.MethodDelete, "/api/v1/posts/"+itoa(post.ID), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	second := doRequest(t, r, http.MethodGet, "/api/v1/posts", "", nil)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.Bytes(), second.Body.Bytes())
}

func TestAdminCacheClearTakesEffectImmediately(t *testing.T) {
	r, db, _ := newTestServer(t)

	alice, aliceToken := createUser(t, db, "alice")
	_, adminToken := createUser(t, db, "admin")
	post := createPostAt(t, db, alice, "cached away", time.Now())

	first := doRequest(t, r, http.MethodGet, "/api/v1/posts", "", nil)
	require.Equal(t, http.StatusOK, first.Code)

	w := doRequest(t, r, http.MethodDelete, "/api/v1/posts/"+itoa(post.ID), aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	stale := doRequest(t, r, http.MethodGet, "/api/v1/posts", "", nil)
	require.Contains(t, stale.Body.String(), "cached away")

	w = doRequest(t, r, http.MethodPost, "/api/v1/admin/cache/clear", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	fresh := doRequest(t, r, http.MethodGet, "/api/v1/posts", "", nil)
	require.Equal(t, http.StatusOK, fresh.Code)
	assert.NotContains(t, fresh.Body.String(), "cached away")
}

func TestCacheClearIsAdminOnly(t *testing.T) {
	r, db, _ := newTestServer(t)

	_, token := createUser(t, db, "alice")
	w := doRequest(t, r, http.MethodPost, "/api/v1/admin/cache/clear", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
