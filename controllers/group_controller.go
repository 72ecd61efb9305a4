package controllers

import (
	"net/http"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/plumehq/plume/models"
	"github.com/plumehq/plume/utils"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// GroupController manages topic groups and their post listings.
type GroupController struct {
	db *gorm.DB
}

// NewGroupController creates a new GroupController instance.
func NewGroupController(db *gorm.DB) *GroupController {
	return &GroupController{db: db}
}

// ListGroups returns all groups with their post counts.
func (g *GroupController) ListGroups(ctx *gin.Context) {
	var groups []models.Group
	if err := g.db.Order("slug ASC").Find(&groups).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50090, "failed to list groups")
		return
	}
	utils.Success(ctx, gin.H{"items": groups})
}

// GetGroup returns a single group by slug.
func (g *GroupController) GetGroup(ctx *gin.Context) {
	group, ok := g.bySlug(ctx)
	if !ok {
		return
	}
	var postCount int64
	if err := g.db.Model(&models.Post{}).Where("group_id = ?", group.ID).Count(&postCount).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50091, "failed to count group posts")
		return
	}
	utils.Success(ctx, gin.H{"group": group, "post_count": postCount})
}

// ListGroupPosts returns the group's paginated feed, newest first (cached listing).
func (g *GroupController) ListGroupPosts(ctx *gin.Context) {
	group, ok := g.bySlug(ctx)
	if !ok {
		return
	}

	cacheKey := utils.ListingCacheKey(ctx.Request.URL.Path, ctx.Request.URL.RawQuery)
	if b, cached := utils.CacheGetBytes(cacheKey); cached {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	page, pageSize := utils.ParsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var total int64
	if err := g.db.Model(&models.Post{}).Where("group_id = ?", group.ID).Count(&total).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50092, "failed to count group posts")
		return
	}

	pg := utils.NewPagination(page, pageSize, total)
	var posts []models.Post
	if err := g.db.Model(&models.Post{}).
		Where("group_id = ?", group.ID).
		Preload("User").Preload("Group").
		Order("created_at DESC, id DESC").
		Offset(pg.Offset()).Limit(pageSize).
		Find(&posts).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50093, "failed to list group posts")
		return
	}

	payload := gin.H{"group": group, "items": posts, "pagination": pg}
	utils.CacheSetJSON(cacheKey, utils.JSONResponse{Code: 0, Message: "success", Data: payload}, utils.ListingTTL())
	utils.Success(ctx, payload)
}

// CreateGroup creates a new topic group (admins only).
func (g *GroupController) CreateGroup(ctx *gin.Context) {
	if !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40330, "admin access required")
		return
	}

	var req struct {
		Slug        string `json:"slug" binding:"required"`
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40090, "invalid request payload")
		return
	}

	slug := strings.ToLower(strings.TrimSpace(req.Slug))
	if !slugPattern.MatchString(slug) {
		utils.Error(ctx, http.StatusBadRequest, 40091, "slug must be lowercase letters, digits and dashes")
		return
	}
	title := utils.Sanitize(strings.TrimSpace(req.Title))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40092, "title cannot be empty")
		return
	}

	var existing int64
	if err := g.db.Model(&models.Group{}).Where("slug = ?", slug).Count(&existing).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50094, "failed to check slug")
		return
	}
	if existing > 0 {
		utils.Error(ctx, http.StatusBadRequest, 40093, "slug already in use")
		return
	}

	group := models.Group{
		Slug:        slug,
		Title:       title,
		Description: utils.Sanitize(req.Description),
	}
	if err := g.db.Create(&group).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50095, "failed to create group")
		return
	}
	utils.Success(ctx, gin.H{"group": group})
}

// DeleteGroup removes a group (admins only). Its posts survive with their
// group reference cleared; deletion must never cascade to content.
func (g *GroupController) DeleteGroup(ctx *gin.Context) {
	if !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40331, "admin access required")
		return
	}

	group, ok := g.bySlug(ctx)
	if !ok {
		return
	}

	if err := g.db.Model(&models.Post{}).Where("group_id = ?", group.ID).
		Update("group_id", nil).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50096, "failed to detach group posts")
		return
	}
	if err := g.db.Delete(&models.Group{}, group.ID).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50097, "failed to delete group")
		return
	}
	utils.Success(ctx, gin.H{"message": "group deleted"})
}

func (g *GroupController) bySlug(ctx *gin.Context) (*models.Group, bool) {
	slug := strings.TrimSpace(ctx.Param("slug"))
	if slug == "" {
		utils.Error(ctx, http.StatusBadRequest, 40094, "missing group slug")
		return nil, false
	}
	var group models.Group
	if err := g.db.Where("slug = ?", slug).First(&group).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			utils.Error(ctx, http.StatusNotFound, 40405, "group not found")
			return nil, false
		}
		utils.Error(ctx, http.StatusInternalServerError, 50098, "failed to load group")
		return nil, false
	}
	return &group, true
}
