package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/knowshare/internal/service"
)

// Search runs the global keyword search.
func (a *API) Search(c *gin.Context) {
	resp, err := a.search.Search(service.SearchQuery{
		Query:      c.Query("q"),
		Type:       c.Query("type"),
		Pagination: paginationFromQuery(c),
	})
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SearchSuggestions 返回搜索框的联想词。
func (a *API) SearchSuggestions(c *gin.Context) {
	suggestions, err := a.search.Suggest(c.Query("q"))
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, suggestions, "")
}
