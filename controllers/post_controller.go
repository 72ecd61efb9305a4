package controllers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plumehq/plume/config"
	"github.com/plumehq/plume/middleware"
	"github.com/plumehq/plume/models"
	"github.com/plumehq/plume/utils"
)

// PostController manages CRUD operations for posts and comments.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

// CreatePost allows authenticated users to publish a post, optionally under
// a group and with an image attachment from the upload endpoint.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Text     string `json:"text" binding:"required"`
		Group    string `json:"group"`
		ImageURL string `json:"image_url"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}

	text := utils.Sanitize(strings.TrimSpace(req.Text))
	if text == "" {
		// validation failure: echo the submitted input back for correction
		utils.Respond(ctx, http.StatusBadRequest, 40021, "text cannot be empty", gin.H{"text": req.Text})
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	var groupID *uint
	if slug := strings.TrimSpace(req.Group); slug != "" {
		var group models.Group
		if err := p.db.Where("slug = ?", slug).First(&group).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				utils.Error(ctx, http.StatusNotFound, 40405, "group not found")
				return
			}
			utils.Error(ctx, http.StatusInternalServerError, 50029, "failed to load group")
			return
		}
		groupID = &group.ID
	}

	post := models.Post{
		UserID:   userID,
		GroupID:  groupID,
		Text:     text,
		ImageURL: strings.TrimSpace(req.ImageURL),
	}

	if err := p.db.Create(&post).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to create post")
		return
	}

	// A referenced upload is no longer an orphan; stop the cleaner from touching it.
	if post.ImageURL != "" {
		_ = p.db.Model(&models.UploadedFile{}).
			Where("url = ?", post.ImageURL).
			Update("expire_at", time.Time{}).Error
	}

	if err := p.db.Preload("User").Preload("Group").First(&post, post.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50021, "failed to load post")
		return
	}

	// Listing caches are not purged here: entries expire by time only.

	utils.Success(ctx, gin.H{"post": post})
}

// ListPosts returns the paginated global listing, newest first. The rendered
// page is cached for the configured window keyed by the canonical URL.
func (p *PostController) ListPosts(ctx *gin.Context) {
	cacheKey := utils.ListingCacheKey(ctx.Request.URL.Path, ctx.Request.URL.RawQuery)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	page, pageSize := utils.ParsePagination(ctx.Query("page"), ctx.Query("page_size"))

	p.renderListing(ctx, cacheKey, func() *gorm.DB {
		return p.db.Model(&models.Post{})
	}, page, pageSize)
}

// ListUserPosts returns the profile feed of a given user (public).
func (p *PostController) ListUserPosts(ctx *gin.Context) {
	username := strings.TrimSpace(ctx.Param("username"))
	var user models.User
	if err := p.db.Where("username = ?", username).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40410, "user not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50060, "failed to load user")
		return
	}

	cacheKey := utils.ListingCacheKey(ctx.Request.URL.Path, ctx.Request.URL.RawQuery)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	page, pageSize := utils.ParsePagination(ctx.Query("page"), ctx.Query("page_size"))
	p.renderListing(ctx, cacheKey, func() *gorm.DB {
		return p.db.Model(&models.Post{}).Where("user_id = ?", user.ID)
	}, page, pageSize)
}

// renderListing runs the count + page query, responds, and populates the
// listing cache. Shared by every cached listing view. newQuery must return a
// fresh query each call; Count mutates the statement it runs on.
func (p *PostController) renderListing(ctx *gin.Context, cacheKey string, newQuery func() *gorm.DB, page, pageSize int) {
	var total int64
	if err := newQuery().Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50022, "failed to count posts")
		return
	}

	pg := utils.NewPagination(page, pageSize, total)
	var posts []models.Post
	if err := newQuery().Preload("User").Preload("Group").
		Order("created_at DESC, id DESC").
		Offset(pg.Offset()).Limit(pageSize).Find(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50023, "failed to list posts")
		return
	}

	payload := gin.H{"items": posts, "pagination": pg}
	utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, utils.ListingTTL())
	utils.Success(ctx, payload)
}

// GetPost returns a single post with its comments, oldest first.
func (p *PostController) GetPost(ctx *gin.Context) {
	postID := ctx.Param("id")

	var post models.Post
	if err := p.db.Preload("User").Preload("Group").First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40401, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50024, "failed to load post")
		return
	}

	var comments []models.Comment
	if err := p.db.Preload("User").
		Where("post_id = ?", post.ID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err == nil {
		post.Comments = comments
	}

	utils.Success(ctx, gin.H{"post": post})
}

// UpdatePost lets the author edit their post. A non-author is redirected to
// the read-only view of the post instead of receiving an error.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	var req struct {
		Text     string `json:"text" binding:"required"`
		Group    string `json:"group"`
		ImageURL string `json:"image_url"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40024, "invalid request payload")
		return
	}

	text := utils.Sanitize(strings.TrimSpace(req.Text))
	if text == "" {
		utils.Respond(ctx, http.StatusBadRequest, 40025, "text cannot be empty", gin.H{"text": req.Text})
		return
	}

	postID := ctx.Param("id")
	var post models.Post
	if err := p.db.First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40403, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50025, "failed to load post")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40111, "unauthorized")
		return
	}

	if post.UserID != userID {
		ctx.Redirect(http.StatusSeeOther, "/api/v1/posts/"+postID)
		return
	}

	var groupID *uint
	if slug := strings.TrimSpace(req.Group); slug != "" {
		var group models.Group
		if err := p.db.Where("slug = ?", slug).First(&group).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				utils.Error(ctx, http.StatusNotFound, 40405, "group not found")
				return
			}
			utils.Error(ctx, http.StatusInternalServerError, 50029, "failed to load group")
			return
		}
		groupID = &group.ID
	}

	post.Text = text
	post.GroupID = groupID
	post.ImageURL = strings.TrimSpace(req.ImageURL)
	if err := p.db.Save(&post).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50026, "failed to update post")
		return
	}

	utils.Success(ctx, gin.H{"post": post})
}

// DeletePost lets the author remove their post. Non-authors are redirected
// to the read-only view, mirroring the edit path.
func (p *PostController) DeletePost(ctx *gin.Context) {
	postID := ctx.Param("id")
	var post models.Post
	if err := p.db.First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40404, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50027, "failed to load post")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40112, "unauthorized")
		return
	}

	if post.UserID != userID {
		ctx.Redirect(http.StatusSeeOther, "/api/v1/posts/"+postID)
		return
	}

	if err := p.db.Delete(&post).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50028, "failed to delete post")
		return
	}

	utils.Success(ctx, gin.H{"message": "post deleted"})
}

// CreateComment allows authenticated users to comment on posts.
func (p *PostController) CreateComment(ctx *gin.Context) {
	var req struct {
		Text string `json:"text" binding:"required"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40022, "invalid request payload")
		return
	}

	text := utils.Sanitize(strings.TrimSpace(req.Text))
	if text == "" {
		utils.Respond(ctx, http.StatusBadRequest, 40023, "text cannot be empty", gin.H{"text": req.Text})
		return
	}

	postID := ctx.Param("id")
	var post models.Post
	if err := p.db.First(&post, postID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40402, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50030, "failed to load post")
		return
	}

	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	comment := models.Comment{
		PostID: post.ID,
		UserID: userID,
		Text:   text,
	}

	if err := p.db.Create(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to create comment")
		return
	}

	if err := p.db.Preload("User").First(&comment, comment.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to load comment")
		return
	}

	utils.Success(ctx, gin.H{"comment": comment})
}

// DeleteComment allows the comment owner or an admin to delete a comment.
func (p *PostController) DeleteComment(ctx *gin.Context) {
	cid := strings.TrimSpace(ctx.Param("commentId"))
	if cid == "" {
		utils.Error(ctx, http.StatusBadRequest, 40070, "missing comment id")
		return
	}
	var cmt models.Comment
	if err := p.db.First(&cmt, cid).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40420, "comment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, 50070, "failed to load comment")
		return
	}

	uid, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40120, "unauthorized")
		return
	}
	if cmt.UserID != uid && !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40320, "you can only delete your own comment")
		return
	}
	if err := p.db.Delete(&cmt).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50071, "failed to delete comment")
		return
	}
	utils.Success(ctx, gin.H{"message": "comment deleted"})
}

// UploadImage stores a post image attachment and records it for the orphan cleaner.
func (p *PostController) UploadImage(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40113, "unauthorized")
		return
	}

	file, header, err := ctx.Request.FormFile("image")
	if err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40030, "no image uploaded")
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
	default:
		utils.Error(ctx, http.StatusBadRequest, 40031, "unsupported image type")
		return
	}

	conf := config.Get()
	maxSize := int64(conf.UploadMaxMB) * 1024 * 1024
	if header.Size > 0 && header.Size > maxSize {
		utils.Error(ctx, http.StatusBadRequest, 40032, fmt.Sprintf("file size exceeds %dMB", conf.UploadMaxMB))
		return
	}

	now := time.Now()
	baseDir := filepath.Join(".", "static", "uploads", now.Format("2006"), now.Format("01"), now.Format("02"))
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50040, "failed to create upload directory")
		return
	}

	safeName := fmt.Sprintf("%d_%s%s", userID, uuid.NewString(), ext)
	dstPath := filepath.Join(baseDir, safeName)

	out, err := os.Create(dstPath)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50041, "failed to save file")
		return
	}
	defer out.Close()

	lr := &io.LimitedReader{R: file, N: maxSize + 1}
	written, err := io.Copy(out, lr)
	if err != nil || written > maxSize {
		_ = out.Close()
		_ = os.Remove(dstPath)
		if err != nil {
			utils.Error(ctx, http.StatusInternalServerError, 50042, "failed to write file")
		} else {
			utils.Error(ctx, http.StatusBadRequest, 40032, fmt.Sprintf("file size exceeds %dMB", conf.UploadMaxMB))
		}
		return
	}

	relURL := fmt.Sprintf("/static/uploads/%s/%s/%s/%s", now.Format("2006"), now.Format("01"), now.Format("02"), safeName)
	absPath, _ := filepath.Abs(dstPath)
	expireAt := now.Add(time.Duration(conf.UploadCleanupMinutes) * time.Minute)
	if err := p.db.Create(&models.UploadedFile{FilePath: absPath, URL: relURL, ExpireAt: expireAt}).Error; err != nil {
		if utils.Sugar != nil {
			utils.Sugar.Warnf("failed to record upload %s: %v", relURL, err)
		}
	}

	utils.Success(ctx, gin.H{"url": relURL})
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

func isAdmin(ctx *gin.Context) bool {
	unameVal, exists := ctx.Get(middleware.ContextUsernameKey)
	if !exists {
		return false
	}
	uname, _ := unameVal.(string)
	if uname == "" {
		return false
	}
	for _, u := range config.Get().AdminUsernames {
		if strings.EqualFold(strings.TrimSpace(u), uname) {
			return true
		}
	}
	return false
}
