package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/plumehq/plume/utils"
)

// AdminController exposes operational escape hatches.
type AdminController struct{}

// NewAdminController creates an AdminController.
func NewAdminController() *AdminController {
	return &AdminController{}
}

// ClearListingCache drops every cached listing page so the next reads hit the
// database. This is the only way a listing cache entry disappears before its
// TTL; normal post writes never purge the cache.
func (a *AdminController) ClearListingCache(ctx *gin.Context) {
	if !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40340, "admin access required")
		return
	}
	utils.ClearListingCache()
	utils.Success(ctx, gin.H{"message": "listing cache cleared"})
}
