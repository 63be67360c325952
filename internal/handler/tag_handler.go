package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/knowshare/internal/service"
)

type tagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// ListTags returns tags with their usage counts.
func (a *API) ListTags(c *gin.Context) {
	page, err := a.tags.List(service.TagFilter{
		Search:     c.Query("search"),
		Pagination: paginationFromQuery(c),
	})
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// PopularTags 返回使用次数最多的标签。
func (a *API) PopularTags(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	tags, err := a.tags.Popular(limit)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, tags, "")
}

func (a *API) GetTag(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	tag, err := a.tags.Get(id)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, tag, "")
}

func (a *API) CreateTag(c *gin.Context) {
	var req tagRequest
	if !bindJSON(c, &req, "Invalid tag payload") {
		return
	}
	tag, err := a.tags.Create(service.TagInput{Name: req.Name, Color: req.Color})
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusCreated, tag, "Tag created successfully")
}

func (a *API) UpdateTag(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req tagRequest
	if !bindJSON(c, &req, "Invalid tag payload") {
		return
	}
	tag, err := a.tags.Update(id, service.TagInput{Name: req.Name, Color: req.Color})
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, tag, "Tag updated successfully")
}

// DeleteTag 删除未被文章使用的标签。
func (a *API) DeleteTag(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	if err := a.tags.Delete(id); err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondMessage(c, "Tag deleted successfully")
}
