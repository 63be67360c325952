package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type commentRequest struct {
	Content  string `json:"content"`
	ParentID *uint  `json:"parentId"`
}

// ListComments returns the comment tree of an article.
func (a *API) ListComments(c *gin.Context) {
	articleID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	comments, err := a.comments.ListByArticle(articleID)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, comments, "")
}

// CreateComment 发表评论或回复。
func (a *API) CreateComment(c *gin.Context) {
	articleID, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if !bindJSON(c, &req, "Invalid comment payload") {
		return
	}
	actor, _ := currentActor(c)

	comment, err := a.comments.Create(articleID, req.Content, req.ParentID, actor)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusCreated, comment, "Comment created successfully")
}

// UpdateComment lets the author edit a comment.
func (a *API) UpdateComment(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	var req commentRequest
	if !bindJSON(c, &req, "Invalid comment payload") {
		return
	}
	actor, _ := currentActor(c)

	comment, err := a.comments.Update(id, req.Content, actor)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, comment, "Comment updated successfully")
}

// DeleteComment 删除评论及其所有回复。
func (a *API) DeleteComment(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actor, _ := currentActor(c)
	if err := a.comments.Delete(id, actor); err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondMessage(c, "Comment deleted successfully")
}
