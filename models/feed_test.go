package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func mustCreatePostAt(t *testing.T, db *gorm.DB, author User, text string, at time.Time) Post {
	t.Helper()
	p := Post{UserID: author.ID, Text: text, CreatedAt: at}
	require.NoError(t, db.Create(&p).Error)
	return p
}

func TestFeedContainsExactlyFollowedAuthorsPosts(t *testing.T) {
	db := newTestDB(t)
	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")
	carol := mustCreateUser(t, db, "carol")
	dave := mustCreateUser(t, db, "dave")

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	mustCreatePostAt(t, db, bob, "bob one", base)
	mustCreatePostAt(t, db, carol, "carol one", base.Add(time.Hour))
	mustCreatePostAt(t, db, bob, "bob two", base.Add(2*time.Hour))
	mustCreatePostAt(t, db, dave, "dave one", base.Add(3*time.Hour))

	require.NoError(t, CreateFollow(db, alice.ID, bob.ID))
	require.NoError(t, CreateFollow(db, alice.ID, carol.ID))

	ids, err := FollowedAuthorIDs(db, alice.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{bob.ID, carol.ID}, ids)

	var posts []Post
	require.NoError(t, FeedQuery(db, ids).Find(&posts).Error)
	require.Len(t, posts, 3)
	// newest first, never a post by an unfollowed author
	assert.Equal(t, "bob two", posts[0].Text)
	assert.Equal(t, "carol one", posts[1].Text)
	assert.Equal(t, "bob one", posts[2].Text)
}

func TestFeedForViewerFollowingNobody(t *testing.T) {
	db := newTestDB(t)
	carol := mustCreateUser(t, db, "carol")
	bob := mustCreateUser(t, db, "bob")
	mustCreatePostAt(t, db, bob, "bob posts", time.Now())

	ids, err := FollowedAuthorIDs(db, carol.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestFeedOrderTiebreakOnEqualTimestamps(t *testing.T) {
	db := newTestDB(t)
	alice := mustCreateUser(t, db, "alice")
	bob := mustCreateUser(t, db, "bob")
	require.NoError(t, CreateFollow(db, alice.ID, bob.ID))

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	first := mustCreatePostAt(t, db, bob, "first", at)
	second := mustCreatePostAt(t, db, bob, "second", at)

	var posts []Post
	require.NoError(t, FeedQuery(db, []uint{bob.ID}).Find(&posts).Error)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)
	assert.Equal(t, first.ID, posts[1].ID)
}
