package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/plumehq/plume/models"
	"github.com/plumehq/plume/utils"
)

// FollowController manages follow edges and the follow feed.
type FollowController struct {
	db *gorm.DB
}

// NewFollowController creates a new FollowController instance.
func NewFollowController(db *gorm.DB) *FollowController {
	return &FollowController{db: db}
}

// Follow records that the viewer wants the target author's posts in their
// feed. Self-follows and already-existing edges are absorbed as no-ops; the
// response reports the resulting state either way.
func (f *FollowController) Follow(ctx *gin.Context) {
	viewerID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40130, "unauthorized")
		return
	}

	target, ok := f.targetUser(ctx)
	if !ok {
		return
	}

	if err := models.CreateFollow(f.db, viewerID, target.ID); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50080, "failed to follow user")
		return
	}

	following, err := models.IsFollowing(f.db, viewerID, target.ID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50081, "failed to load follow state")
		return
	}
	utils.Success(ctx, gin.H{"username": target.Username, "following": following})
}

// Unfollow deletes the edge if present. Unfollowing a user the viewer does
// not follow is a no-op, not an error.
func (f *FollowController) Unfollow(ctx *gin.Context) {
	viewerID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40131, "unauthorized")
		return
	}

	target, ok := f.targetUser(ctx)
	if !ok {
		return
	}

	if err := models.DeleteFollow(f.db, viewerID, target.ID); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50082, "failed to unfollow user")
		return
	}

	utils.Success(ctx, gin.H{"username": target.Username, "following": false})
}

// FollowStatus reports whether the viewer follows the target, plus the
// target's follower/following counts for the profile page.
func (f *FollowController) FollowStatus(ctx *gin.Context) {
	viewerID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40132, "unauthorized")
		return
	}

	target, ok := f.targetUser(ctx)
	if !ok {
		return
	}

	following, err := models.IsFollowing(f.db, viewerID, target.ID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50083, "failed to load follow state")
		return
	}
	followers, followingCount, err := models.FollowCounts(f.db, target.ID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50084, "failed to load follow counts")
		return
	}

	utils.Success(ctx, gin.H{
		"username":        target.Username,
		"following":       following,
		"follower_count":  followers,
		"following_count": followingCount,
	})
}

// FollowFeed returns the paginated posts of every author the viewer follows,
// newest first. An empty follow set yields an empty page. The feed is
// per-viewer and therefore never cached.
func (f *FollowController) FollowFeed(ctx *gin.Context) {
	viewerID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40133, "unauthorized")
		return
	}

	page, pageSize := utils.ParsePagination(ctx.Query("page"), ctx.Query("page_size"))

	authorIDs, err := models.FollowedAuthorIDs(f.db, viewerID)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50085, "failed to resolve followed authors")
		return
	}
	if len(authorIDs) == 0 {
		utils.Success(ctx, gin.H{
			"items":      []models.Post{},
			"pagination": utils.NewPagination(page, pageSize, 0),
		})
		return
	}

	var total int64
	if err := models.FeedQuery(f.db, authorIDs).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50086, "failed to count feed posts")
		return
	}

	pg := utils.NewPagination(page, pageSize, total)
	var posts []models.Post
	if err := models.FeedQuery(f.db, authorIDs).
		Preload("User").Preload("Group").
		Offset(pg.Offset()).Limit(pageSize).
		Find(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50087, "failed to list feed posts")
		return
	}

	utils.Success(ctx, gin.H{"items": posts, "pagination": pg})
}

func (f *FollowController) targetUser(ctx *gin.Context) (*models.User, bool) {
	username := strings.TrimSpace(ctx.Param("username"))
	if username == "" {
		utils.Error(ctx, http.StatusBadRequest, 40080, "missing username")
		return nil, false
	}
	var user models.User
	if err := f.db.Where("username = ?", username).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40412, "user not found")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50088, "failed to load user")
		return nil, false
	}
	return &user, true
}
