package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Follow is a directed edge: the follower wants the followed author's posts
// in their feed. The (follower, followed) pair is unique and self-edges are
// rejected by a check constraint in addition to the boundary guard.
type Follow struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FollowerID uint      `gorm:"not null;index;uniqueIndex:idx_follows_pair" json:"follower_id"`
	FollowedID uint      `gorm:"not null;index;uniqueIndex:idx_follows_pair;check:chk_follows_no_self,follower_id <> followed_id" json:"followed_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateFollow records that follower wants followed's posts. Self-follows and
// duplicate edges are silently absorbed; calling it twice leaves one edge.
func CreateFollow(db *gorm.DB, followerID, followedID uint) error {
	if followerID == followedID {
		return nil
	}
	return db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&Follow{FollowerID: followerID, FollowedID: followedID}).Error
}

// DeleteFollow removes the edge if present. Removing a missing edge is a no-op.
func DeleteFollow(db *gorm.DB, followerID, followedID uint) error {
	return db.Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&Follow{}).Error
}

// IsFollowing reports whether the follower -> followed edge exists.
func IsFollowing(db *gorm.DB, followerID, followedID uint) (bool, error) {
	var count int64
	err := db.Model(&Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error
	return count > 0, err
}

// FollowCounts returns how many users follow userID and how many userID follows.
func FollowCounts(db *gorm.DB, userID uint) (followers int64, following int64, err error) {
	if err = db.Model(&Follow{}).Where("followed_id = ?", userID).Count(&followers).Error; err != nil {
		return
	}
	err = db.Model(&Follow{}).Where("follower_id = ?", userID).Count(&following).Error
	return
}
