package models

import "gorm.io/gorm"

// The follow feed is built as an explicit two-step query: resolve the set of
// followed author IDs, then select their posts newest first. Keeping the steps
// separate makes the feed a pure function of the follow edges and the posts
// table, with no reliance on ORM relationship traversal.

// FollowedAuthorIDs returns the IDs of every author the viewer follows.
func FollowedAuthorIDs(db *gorm.DB, viewerID uint) ([]uint, error) {
	var ids []uint
	err := db.Model(&Follow{}).
		Where("follower_id = ?", viewerID).
		Pluck("followed_id", &ids).Error
	return ids, err
}

// FeedQuery returns a query over the posts authored by the given set,
// newest first. An empty author set yields an empty feed, not an error.
func FeedQuery(db *gorm.DB, authorIDs []uint) *gorm.DB {
	return db.Model(&Post{}).
		Where("user_id IN ?", authorIDs).
		Order("created_at DESC, id DESC")
}
