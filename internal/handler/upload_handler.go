package handler

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/knowshare/internal/service"
)

// uploadInput 读取可选的 articleId / knowledgeId 表单字段。
func uploadInput(c *gin.Context) (service.UploadInput, bool) {
	actor, _ := currentActor(c)
	input := service.UploadInput{UploaderID: actor.ID}

	for key, dst := range map[string]**uint{
		"articleId":   &input.ArticleID,
		"knowledgeId": &input.KnowledgeID,
	} {
		raw := strings.TrimSpace(c.PostForm(key))
		if raw == "" {
			continue
		}
		parsed, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || parsed == 0 {
			respondError(c, http.StatusBadRequest, "Invalid "+key)
			return input, false
		}
		id := uint(parsed)
		*dst = &id
	}
	return input, true
}

// UploadFile stores the single file sent in the "file" form field.
func (a *API) UploadFile(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		respondError(c, http.StatusBadRequest, "No file uploaded")
		return
	}
	input, ok := uploadInput(c)
	if !ok {
		return
	}

	attachment, err := a.uploads.Save(file, input)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusCreated, attachment, "File uploaded successfully")
}

// UploadFiles 处理 "files" 字段中的多个文件。
func (a *API) UploadFiles(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		respondError(c, http.StatusBadRequest, "No files uploaded")
		return
	}
	var files []*multipart.FileHeader
	if form != nil && form.File != nil {
		files = form.File["files"]
	}
	if len(files) == 0 {
		respondError(c, http.StatusBadRequest, "No files uploaded")
		return
	}
	input, ok := uploadInput(c)
	if !ok {
		return
	}

	attachments, err := a.uploads.SaveMany(files, input)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusCreated, attachments, "Files uploaded successfully")
}

// ListUploads returns attachments, optionally narrowed to an article or document.
func (a *API) ListUploads(c *gin.Context) {
	page, err := a.uploads.List(service.AttachmentFilter{
		ArticleID:   parseUintQuery(c, "articleId"),
		KnowledgeID: parseUintQuery(c, "knowledgeId"),
		Pagination:  paginationFromQuery(c),
	})
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (a *API) GetUpload(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	attachment, err := a.uploads.Get(id)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, attachment, "")
}

// DownloadUpload 以原始文件名返回附件内容并累计下载次数。
func (a *API) DownloadUpload(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	attachment, err := a.uploads.Download(id)
	if err != nil {
		a.writeServiceError(c, err)
		return
	}
	c.FileAttachment(attachment.Path, attachment.OriginalName)
}

func (a *API) DeleteUpload(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		return
	}
	actor, _ := currentActor(c)
	if err := a.uploads.Delete(id, actor); err != nil {
		a.writeServiceError(c, err)
		return
	}
	respondMessage(c, "File deleted successfully")
}
