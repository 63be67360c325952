package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/knowshare/internal/service"
)

type categoryRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	Color       *string `json:"color"`
	IsActive    *bool   `json:"isActive"`
	SortOrder   *int    `json:"sortOrder"`
	ParentID    *uint   `json:"parentId"`
	ClearParent bool    `json:"clearParent"`
}

func (r categoryRequest) input() service.CategoryInput {
	return service.CategoryInput{
		Name:        r.Name,
		Description: r.Description,
		Icon:        r.Icon,
		Color:       r.Color,
		IsActive:    r.IsActive,
		SortOrder:   r.SortOrder,
		ParentID:    r.ParentID,
		ClearParent: r.ClearParent,
	}
}

type reorderRequest struct {
	IDs []uint `json:"ids"`
}

// ListCategories 分页返回分类。
func (a *API) ListCategories(c *gin.Context) {
	page, err := a.categories.List(service.CategoryFilter{
		Search:     c.Query("search"),
		Active:     parseBoolQuery(c, "active"),
		Pagination: paginationFromQuery(c),
	})
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CategoryTree returns active categories nested by parent.
func (a *API) CategoryTree(c *gin.Context) {
	tree, err := a.categories.Tree()
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, tree, "")
}

// GetCategory returns one category with its children.
func (a *API) GetCategory(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	category, err := a.categories.Get(id)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, category, "")
}

// GetCategoryBySlug 通过 slug 获取分类。
func (a *API) GetCategoryBySlug(c *gin.Context) {
	category, err := a.categories.GetBySlug(c.Param("slug"))
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, category, "")
}

// ListCategoryArticles returns the published articles of a category found by slug.
func (a *API) ListCategoryArticles(c *gin.Context) {
	category, err := a.categories.GetBySlug(c.Param("slug"))
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	page, err := a.articles.ListPublished(service.ArticleFilter{
		CategoryID: category.ID,
		Pagination: paginationFromQuery(c),
	})
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// CreateCategory 新建分类。
func (a *API) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if !bindJSON(c, &req, "Invalid category payload") {
		return
	}
	category, err := a.categories.Create(req.input())
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusCreated, category, "Category created successfully")
}

// UpdateCategory changes a category.
func (a *API) UpdateCategory(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req categoryRequest
	if !bindJSON(c, &req, "Invalid category payload") {
		return
	}
	category, err := a.categories.Update(id, req.input())
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, category, "Category updated successfully")
}

// DeleteCategory removes an empty category.
func (a *API) DeleteCategory(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := a.categories.Delete(id); err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondMessage(c, "Category deleted successfully")
}

// ReorderCategories 按传入的 id 顺序重写排序值。
func (a *API) ReorderCategories(c *gin.Context) {
	var req reorderRequest
	if !bindJSON(c, &req, "Invalid reorder payload") {
		return
	}
	if err := a.categories.Reorder(req.IDs); err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondMessage(c, "Categories reordered successfully")
}
