package service

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/knowshare/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// multipartFiles 构造一个真实的 multipart 请求并返回解析后的文件头。
func multipartFiles(t *testing.T, field string, files map[string][]byte, contentType string) []*multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, content := range files {
		header := make(map[string][]string)
		header["Content-Disposition"] = []string{`form-data; name="` + field + `"; filename="` + name + `"`}
		header["Content-Type"] = []string{contentType}
		part, err := writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	require.NoError(t, req.ParseMultipartForm(32<<20))
	return req.MultipartForm.File[field]
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestUploadService(t *testing.T, name string, maxBytes int64) (*UploadService, *articleFixture) {
	t.Helper()
	f := newArticleFixture(t, name)
	svc := NewUploadService(f.db, UploadConfig{Dir: t.TempDir(), URLPath: "/files/", MaxBytes: maxBytes}, nil)
	return svc, f
}

func TestUploadSaveRecordsImageMetadata(t *testing.T) {
	svc, f := newTestUploadService(t, "upload-image", 1<<20)
	article := f.create(t, "With Image", nil)

	files := multipartFiles(t, "file", map[string][]byte{"Photo.PNG": pngBytes(t, 12, 7)}, "image/png")
	require.Len(t, files, 1)

	attachment, err := svc.Save(files[0], UploadInput{ArticleID: &article.ID, UploaderID: f.author.ID})
	require.NoError(t, err)

	assert.Equal(t, "Photo.PNG", attachment.OriginalName)
	assert.True(t, strings.HasSuffix(attachment.Filename, ".png"))
	assert.Equal(t, "image/png", attachment.Mimetype)
	assert.Equal(t, 12, attachment.Width)
	assert.Equal(t, 7, attachment.Height)
	assert.Equal(t, "/files/"+attachment.Filename, attachment.URL)
	assert.FileExists(t, filepath.Join(svc.Dir(), attachment.Filename))

	downloaded, err := svc.Download(attachment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), downloaded.DownloadCount)

	listed, err := svc.List(AttachmentFilter{ArticleID: article.ID})
	require.NoError(t, err)
	require.Len(t, listed.Data, 1)
	assert.Equal(t, int64(1), listed.Data[0].DownloadCount)
}

func TestUploadRejectsOversizedAndMissingOwner(t *testing.T) {
	svc, f := newTestUploadService(t, "upload-limits", 8)

	big := multipartFiles(t, "file", map[string][]byte{"big.txt": []byte("more than eight bytes")}, "text/plain")
	_, err := svc.Save(big[0], UploadInput{UploaderID: f.author.ID})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	small := multipartFiles(t, "file", map[string][]byte{"ok.txt": []byte("tiny")}, "text/plain")
	missing := uint(4040)
	_, err = svc.Save(small[0], UploadInput{ArticleID: &missing})
	assert.ErrorIs(t, err, ErrArticleNotFound)

	_, err = svc.Save(nil, UploadInput{})
	assert.ErrorIs(t, err, ErrNoFile)

	entries, err := os.ReadDir(svc.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected uploads leave no files behind")
}

func TestUploadSaveManyLimit(t *testing.T) {
	svc, f := newTestUploadService(t, "upload-many", 1<<20)

	files := map[string][]byte{}
	for i := 0; i < MaxFilesPerUpload+1; i++ {
		files[string(rune('a'+i))+".txt"] = []byte("x")
	}
	headers := multipartFiles(t, "files", files, "text/plain")
	_, err := svc.SaveMany(headers, UploadInput{UploaderID: f.author.ID})
	assert.ErrorIs(t, err, ErrTooManyFiles)

	saved, err := svc.SaveMany(headers[:3], UploadInput{UploaderID: f.author.ID})
	require.NoError(t, err)
	assert.Len(t, saved, 3)
	for _, a := range saved {
		assert.Equal(t, "text/plain", a.Mimetype)
	}
}

func TestUploadDeleteRemovesFile(t *testing.T) {
	svc, f := newTestUploadService(t, "upload-delete", 1<<20)

	files := multipartFiles(t, "file", map[string][]byte{"notes.md": []byte("# notes")}, "text/markdown")
	attachment, err := svc.Save(files[0], UploadInput{UploaderID: f.author.ID})
	require.NoError(t, err)
	path := filepath.Join(svc.Dir(), attachment.Filename)

	assert.ErrorIs(t, svc.Delete(attachment.ID, actorOf(f.other)), ErrForbidden)
	require.NoError(t, svc.Delete(attachment.ID, actorOf(f.author)))
	assert.NoFileExists(t, path)

	_, err = svc.Get(attachment.ID)
	assert.ErrorIs(t, err, ErrAttachmentNotFound)

	// 磁盘文件缺失时删除记录依然成功
	again, err := svc.Save(multipartFiles(t, "file", map[string][]byte{"gone.md": []byte("bye")}, "text/markdown")[0], UploadInput{UploaderID: f.author.ID})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(svc.Dir(), again.Filename)))
	require.NoError(t, svc.Delete(again.ID, actorOf(f.admin)))

	var count int64
	require.NoError(t, f.db.Model(&db.Attachment{}).Count(&count).Error)
	assert.Zero(t, count)
}
