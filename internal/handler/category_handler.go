package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/medtrack/internal/service"
)

// ListCategories 返回分类及其下药品数量
func (a *API) ListCategories(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	usages, err := a.categories.List(userID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "获取分类列表失败")
		return
	}

	items := make([]gin.H, 0, len(usages))
	for _, usage := range usages {
		items = append(items, gin.H{"id": usage.ID, "name": usage.Name, "medication_count": usage.Count})
	}

	c.JSON(http.StatusOK, gin.H{"categories": items})
}

// CreateCategory 创建分类
func (a *API) CreateCategory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	var payload struct {
		Name string `json:"name"`
	}
	if !bindJSON(c, &payload, "请求参数不合法") {
		return
	}

	category, err := a.categories.Create(userID, payload.Name)
	if err != nil {
		if errors.Is(err, service.ErrCategoryExists) {
			respondError(c, http.StatusConflict, "分类已存在")
			return
		}
		respondError(c, http.StatusBadRequest, "创建分类失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": gin.H{"id": category.ID, "name": category.Name}})
}

// DeleteCategory 删除分类，仍被药品引用时拒绝
func (a *API) DeleteCategory(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		respondError(c, http.StatusUnauthorized, "请先登录")
		return
	}

	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的分类ID")
		return
	}

	if err := a.categories.Delete(userID, id); err != nil {
		switch {
		case errors.Is(err, service.ErrCategoryNotFound):
			respondError(c, http.StatusNotFound, "分类不存在")
		case errors.Is(err, service.ErrCategoryInUse):
			respondError(c, http.StatusConflict, "分类下仍有药品，无法删除")
		default:
			respondError(c, http.StatusInternalServerError, "删除分类失败")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
