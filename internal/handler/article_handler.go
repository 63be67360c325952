package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/knowshare/internal/db"
	"github.com/knowshare/internal/service"
)

type articleRequest struct {
	Title        string   `json:"title"`
	Content      string   `json:"content"`
	Excerpt      string   `json:"excerpt"`
	CategoryID   uint     `json:"categoryId"`
	Tags         []string `json:"tags"`
	Status       string   `json:"status"`
	IsPublished  bool     `json:"isPublished"`
	ImageURL     string   `json:"imageUrl"`
	ThumbnailURL string   `json:"thumbnailUrl"`
}

type articleUpdateRequest struct {
	Title         *string   `json:"title"`
	Content       *string   `json:"content"`
	Excerpt       *string   `json:"excerpt"`
	CategoryID    *uint     `json:"categoryId"`
	Tags          *[]string `json:"tags"`
	Status        *string   `json:"status"`
	ImageURL      *string   `json:"imageUrl"`
	ThumbnailURL  *string   `json:"thumbnailUrl"`
	ChangeSummary string    `json:"changeSummary"`
}

func articleFilterFromQuery(c *gin.Context) service.ArticleFilter {
	return service.ArticleFilter{
		Search:     c.Query("search"),
		CategoryID: parseUintQuery(c, "category"),
		TagID:      parseUintQuery(c, "tag"),
		Status:     c.Query("status"),
		AuthorID:   parseUintQuery(c, "author"),
		Pagination: paginationFromQuery(c),
	}
}

// ListArticles 按筛选条件分页返回文章。
func (a *API) ListArticles(c *gin.Context) {
	page, err := a.articles.List(articleFilterFromQuery(c))
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListPublishedArticles returns published articles, newest publication first.
func (a *API) ListPublishedArticles(c *gin.Context) {
	page, err := a.articles.ListPublished(articleFilterFromQuery(c))
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// ListMyArticles returns the caller's own articles in every status.
func (a *API) ListMyArticles(c *gin.Context) {
	actor, _ := currentActor(c)
	page, err := a.articles.ListByAuthor(actor.ID, articleFilterFromQuery(c))
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// PopularArticles 返回热门文章。
func (a *API) PopularArticles(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	articles, err := a.articles.Popular(limit)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, articles, "")
}

// GetArticle 获取文章详情并记录浏览。
func (a *API) GetArticle(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	article, err := a.articles.Read(id, visitorID(c))
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, article, "")
}

// GetArticleBySlug is GetArticle keyed by slug.
func (a *API) GetArticleBySlug(c *gin.Context) {
	article, err := a.articles.ReadBySlug(c.Param("slug"), visitorID(c))
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, article, "")
}

// CreateArticle 创建文章。
func (a *API) CreateArticle(c *gin.Context) {
	var req articleRequest
	if !bindJSON(c, &req, "Invalid article payload") {
		return
	}
	actor, _ := currentActor(c)

	article, err := a.articles.Create(service.ArticleInput{
		Title:        req.Title,
		Content:      req.Content,
		Excerpt:      req.Excerpt,
		CategoryID:   req.CategoryID,
		Tags:         req.Tags,
		Status:       req.Status,
		IsPublished:  req.IsPublished,
		ImageURL:     req.ImageURL,
		ThumbnailURL: req.ThumbnailURL,
	}, actor)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusCreated, article, "Article created successfully")
}

// UpdateArticle 更新文章，标题或正文变化时生成新版本。
func (a *API) UpdateArticle(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req articleUpdateRequest
	if !bindJSON(c, &req, "Invalid article payload") {
		return
	}
	actor, _ := currentActor(c)

	article, err := a.articles.Update(id, service.ArticleUpdateInput{
		Title:         req.Title,
		Content:       req.Content,
		Excerpt:       req.Excerpt,
		CategoryID:    req.CategoryID,
		Tags:          req.Tags,
		Status:        req.Status,
		ImageURL:      req.ImageURL,
		ThumbnailURL:  req.ThumbnailURL,
		ChangeSummary: req.ChangeSummary,
	}, actor)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, article, "Article updated successfully")
}

// PublishArticle marks an article as published.
func (a *API) PublishArticle(c *gin.Context) {
	a.togglePublished(c, true)
}

// UnpublishArticle moves an article back to draft.
func (a *API) UnpublishArticle(c *gin.Context) {
	a.togglePublished(c, false)
}

func (a *API) togglePublished(c *gin.Context, publish bool) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actor, _ := currentActor(c)

	var (
		article *db.Article
		err     error
		message string
	)
	if publish {
		article, err = a.articles.Publish(id, actor)
		message = "Article published successfully"
	} else {
		article, err = a.articles.Unpublish(id, actor)
		message = "Article unpublished successfully"
	}
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, article, message)
}

// DeleteArticle 删除文章及其版本、评论。
func (a *API) DeleteArticle(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actor, _ := currentActor(c)
	if err := a.articles.Delete(id, actor); err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondMessage(c, "Article deleted successfully")
}

// ListArticleVersions returns the version history of an article.
func (a *API) ListArticleVersions(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	versions, err := a.articles.Versions(id)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, versions, "")
}

// GetArticleVersion returns one version of an article.
func (a *API) GetArticleVersion(c *gin.Context) {
	id, number, ok := articleVersionParams(c)
	if !ok {
		return
	}
	version, err := a.articles.Version(id, number)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, version, "")
}

// RestoreArticleVersion 将历史版本恢复为当前内容。
func (a *API) RestoreArticleVersion(c *gin.Context) {
	id, number, ok := articleVersionParams(c)
	if !ok {
		return
	}
	actor, _ := currentActor(c)
	article, err := a.articles.RestoreVersion(id, number, actor)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, article, "Version restored successfully")
}

func articleVersionParams(c *gin.Context) (uint, int, bool) {
	id, ok := uintParam(c, "id")
	if !ok {
		return 0, 0, false
	}
	number, err := strconv.Atoi(strings.TrimSpace(c.Param("version")))
	if err != nil || number <= 0 {
		respondError(c, http.StatusBadRequest, "Invalid version")
		return 0, 0, false
	}
	return id, number, true
}
