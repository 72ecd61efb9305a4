package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/plumehq/plume/models"
	"github.com/plumehq/plume/utils"
)

// StatsController provides aggregate platform statistics.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns entity counts and today's listing views.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var userCount, postCount, commentCount, groupCount int64

	// Fall back to 0 instead of failing the whole endpoint
	if err := s.db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		userCount = 0
	}
	if err := s.db.Model(&models.Post{}).Count(&postCount).Error; err != nil {
		postCount = 0
	}
	if err := s.db.Model(&models.Comment{}).Count(&commentCount).Error; err != nil {
		commentCount = 0
	}
	if err := s.db.Model(&models.Group{}).Count(&groupCount).Error; err != nil {
		groupCount = 0
	}

	var listingViews int64
	today := time.Now().In(time.Local).Format("2006-01-02")
	if err := s.db.Model(&models.PageView{}).
		Where("date = ?", today).
		Select("COALESCE(SUM(count),0)").
		Scan(&listingViews).Error; err != nil {
		listingViews = 0
	}

	utils.Success(ctx, gin.H{
		"user_count":          userCount,
		"post_count":          postCount,
		"comment_count":       commentCount,
		"group_count":         groupCount,
		"listing_views_today": listingViews,
	})
}
