package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/knowshare/internal/service"
)

type knowledgeRequest struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Summary     string   `json:"summary"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	Status      string   `json:"status"`
	Visibility  string   `json:"visibility"`
	AccessLevel string   `json:"accessLevel"`
}

type knowledgeUpdateRequest struct {
	Title       *string   `json:"title"`
	Content     *string   `json:"content"`
	Summary     *string   `json:"summary"`
	Category    *string   `json:"category"`
	Tags        *[]string `json:"tags"`
	Status      *string   `json:"status"`
	Visibility  *string   `json:"visibility"`
	AccessLevel *string   `json:"accessLevel"`
	Changes     string    `json:"changes"`
}

// ListKnowledge 分页返回知识文档。
func (a *API) ListKnowledge(c *gin.Context) {
	page, err := a.knowledge.List(service.KnowledgeFilter{
		Category:   c.Query("category"),
		Status:     c.Query("status"),
		Tag:        c.Query("tag"),
		AuthorID:   parseUintQuery(c, "author"),
		Search:     c.Query("search"),
		Pagination: paginationFromQuery(c),
	})
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (a *API) GetKnowledge(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	doc, err := a.knowledge.Get(id)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, doc, "")
}

func (a *API) CreateKnowledge(c *gin.Context) {
	var req knowledgeRequest
	if !bindJSON(c, &req, "Invalid knowledge payload") {
		return
	}
	actor, _ := currentActor(c)

	doc, err := a.knowledge.Create(service.KnowledgeInput{
		Title:       req.Title,
		Content:     req.Content,
		Summary:     req.Summary,
		Category:    req.Category,
		Tags:        req.Tags,
		Status:      req.Status,
		Visibility:  req.Visibility,
		AccessLevel: req.AccessLevel,
	}, actor)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusCreated, doc, "Knowledge document created successfully")
}

// UpdateKnowledge 更新文档，正文变化时递增版本号。
func (a *API) UpdateKnowledge(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req knowledgeUpdateRequest
	if !bindJSON(c, &req, "Invalid knowledge payload") {
		return
	}
	actor, _ := currentActor(c)

	doc, err := a.knowledge.Update(id, service.KnowledgeUpdateInput{
		Title:       req.Title,
		Content:     req.Content,
		Summary:     req.Summary,
		Category:    req.Category,
		Tags:        req.Tags,
		Status:      req.Status,
		Visibility:  req.Visibility,
		AccessLevel: req.AccessLevel,
		Changes:     req.Changes,
	}, actor)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, doc, "Knowledge document updated successfully")
}

func (a *API) DeleteKnowledge(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actor, _ := currentActor(c)
	if err := a.knowledge.Delete(id, actor); err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondMessage(c, "Knowledge document deleted successfully")
}

// KnowledgeHistory returns the revisions of a document.
func (a *API) KnowledgeHistory(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	revisions, err := a.knowledge.History(id)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, revisions, "")
}

func (a *API) LikeKnowledge(c *gin.Context) {
	a.toggleKnowledge(c, a.knowledge.ToggleLike)
}

func (a *API) BookmarkKnowledge(c *gin.Context) {
	a.toggleKnowledge(c, a.knowledge.ToggleBookmark)
}

func (a *API) toggleKnowledge(c *gin.Context, toggle func(id, userID uint) (*service.ToggleResult, error)) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actor, _ := currentActor(c)
	result, err := toggle(id, actor.ID)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, result, "")
}

// ViewKnowledge 累计一次浏览。
func (a *API) ViewKnowledge(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	views, err := a.knowledge.IncrementViews(id)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"views": views}, "")
}
