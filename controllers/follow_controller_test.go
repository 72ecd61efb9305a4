package controllers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plumehq/plume/models"
)

func TestFollowFeedShowsOnlyFollowedAuthors(t *testing.T) {
	r, db, _ := newTestServer(t)

	_, aliceToken := createUser(t, db, "alice")
	bob, _ := createUser(t, db, "bob")
	carol, _ := createUser(t, db, "carol")
	dave, _ := createUser(t, db, "dave")

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	createPostAt(t, db, bob, "bob early", base)
	createPostAt(t, db, carol, "carol middle", base.Add(time.Hour))
	createPostAt(t, db, bob, "bob late", base.Add(2*time.Hour))
	createPostAt(t, db, dave, "dave noise", base.Add(3*time.Hour))

	w := doRequest(t, r, http.MethodPost, "/api/v1/users/bob/follow", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doRequest(t, r, http.MethodPost, "/api/v1/users/carol/follow", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, r, http.MethodGet, "/api/v1/feed", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	texts := itemTexts(t, decodeData(t, w))
	assert.Equal(t, []string{"bob late", "carol middle", "bob early"}, texts)
	assert.NotContains(t, texts, "dave noise")
}

func TestFollowFeedEmptyWhenFollowingNobody(t *testing.T) {
	r, db, _ := newTestServer(t)

	_, token := createUser(t, db, "loner")
	author, _ := createUser(t, db, "author")
	createPostAt(t, db, author, "unseen", time.Now())

	w := doRequest(t, r, http.MethodGet, "/api/v1/feed", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Empty(t, itemTexts(t, data))
	pg := data["pagination"].(map[string]interface{})
	assert.EqualValues(t, 0, pg["total"])
}

func TestFollowIsIdempotentOverHTTP(t *testing.T) {
	r, db, _ := newTestServer(t)

	_, aliceToken := createUser(t, db, "alice")
	createUser(t, db, "bob")

	for i := 0; i < 3; i++ {
		w := doRequest(t, r, http.MethodPost, "/api/v1/users/bob/follow", aliceToken, nil)
		require.Equal(t, http.StatusOK, w.Code)
	}
	var edges int64
	require.NoError(t, db.Model(&models.Follow{}).Count(&edges).Error)
	assert.Equal(t, int64(1), edges)
}

func TestSelfFollowIsSilentNoOp(t *testing.T) {
	r, db, _ := newTestServer(t)

	_, aliceToken := createUser(t, db, "alice")

	w := doRequest(t, r, http.MethodPost, "/api/v1/users/alice/follow", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, false, data["following"])

	var edges int64
	require.NoError(t, db.Model(&models.Follow{}).Count(&edges).Error)
	assert.Equal(t, int64(0), edges)
}

func TestUnfollowMissingEdgeIsNoOp(t *testing.T) {
	r, db, _ := newTestServer(t)

	_, aliceToken := createUser(t, db, "alice")
	createUser(t, db, "bob")

	w := doRequest(t, r, http.MethodDelete, "/api/v1/users/bob/follow", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, r, http.MethodPost, "/api/v1/users/bob/follow", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doRequest(t, r, http.MethodDelete, "/api/v1/users/bob/follow", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doRequest(t, r, http.MethodDelete, "/api/v1/users/bob/follow", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var edges int64
	require.NoError(t, db.Model(&models.Follow{}).Count(&edges).Error)
	assert.Equal(t, int64(0), edges)
}

func TestFollowStatusCounts(t *testing.T) {
	r, db, _ := newTestServer(t)

	_, aliceToken := createUser(t, db, "alice")
	bob, bobToken := createUser(t, db, "bob")
	carol, _ := createUser(t, db, "carol")

	require.NoError(t, models.CreateFollow(db, carol.ID, bob.ID))
	require.NoError(t, models.CreateFollow(db, bob.ID, carol.ID))

	w := doRequest(t, r, http.MethodPost, "/api/v1/users/bob/follow", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(t, r, http.MethodGet, "/api/v1/users/bob/follow", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, true, data["following"])
	assert.EqualValues(t, 2, data["follower_count"])
	assert.EqualValues(t, 1, data["following_count"])

	// bob does not follow alice back
	w = doRequest(t, r, http.MethodGet, "/api/v1/users/alice/follow", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decodeData(t, w)["following"])
}

func TestFollowUnknownUser(t *testing.T) {
	r, db, _ := newTestServer(t)

	_, token := createUser(t, db, "alice")
	w := doRequest(t, r, http.MethodPost, "/api/v1/users/nobody/follow", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFeedRequiresAuth(t *testing.T) {
	r, _, _ := newTestServer(t)

	w := doRequest(t, r, http.MethodGet, "/api/v1/feed", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
