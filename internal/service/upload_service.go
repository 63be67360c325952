package service

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/knowshare/internal/db"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
	"gorm.io/gorm"
)

// MaxFilesPerUpload caps a multi-file upload.
const MaxFilesPerUpload = 10

// UploadConfig 定义上传目录、对外访问路径与单文件大小上限。
type UploadConfig struct {
	Dir      string
	URLPath  string
	MaxBytes int64
}

// UploadService stores uploaded files on disk and tracks them as attachments.
type UploadService struct {
	db     *gorm.DB
	cfg    UploadConfig
	logger *zap.Logger
}

// UploadInput links an upload to an owner record.
type UploadInput struct {
	ArticleID   *uint
	KnowledgeID *uint
	UploaderID  uint
}

// AttachmentFilter describes filters for listing attachments.
type AttachmentFilter struct {
	ArticleID   uint
	KnowledgeID uint
	Pagination
}

// NewUploadService creates an UploadService. logger may be nil.
func NewUploadService(gdb *gorm.DB, cfg UploadConfig, logger *zap.Logger) *UploadService {
	if cfg.Dir == "" {
		cfg.Dir = "uploads"
	}
	if cfg.URLPath == "" {
		cfg.URLPath = "/uploads"
	}
	cfg.URLPath = strings.TrimRight(cfg.URLPath, "/")
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 10 << 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{db: gdb, cfg: cfg, logger: logger}
}

// Dir returns the directory files are written to.
func (s *UploadService) Dir() string {
	return s.cfg.Dir
}

// Save writes one uploaded file to disk and records it.
func (s *UploadService) Save(file *multipart.FileHeader, input UploadInput) (*db.Attachment, error) {
	if file == nil {
		return nil, ErrNoFile
	}
	if file.Size > s.cfg.MaxBytes {
		return nil, ErrFileTooLarge
	}
	if err := s.ensureOwners(input); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(s.cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	filename := uuid.NewString() + ext
	path := filepath.Join(s.cfg.Dir, filename)

	size, err := s.writeFile(file, path)
	if err != nil {
		os.Remove(path)
		return nil, err
	}

	attachment := db.Attachment{
		OriginalName: filepath.Base(file.Filename),
		Filename:     filename,
		Mimetype:     detectMimetype(file, ext),
		Size:         size,
		Path:         path,
		ArticleID:    input.ArticleID,
		KnowledgeID:  input.KnowledgeID,
	}
	if input.UploaderID != 0 {
		uploader := input.UploaderID
		attachment.UploadedByID = &uploader
	}
	if strings.HasPrefix(attachment.Mimetype, "image/") {
		attachment.Width, attachment.Height = imageDimensions(path)
	}

	if err := s.db.Create(&attachment).Error; err != nil {
		if rmErr := os.Remove(path); rmErr != nil {
			s.logger.Warn("remove orphaned upload", zap.String("path", path), zap.Error(rmErr))
		}
		return nil, fmt.Errorf("failed to upload file: %w", err)
	}

	s.withURL(&attachment)
	return &attachment, nil
}

// SaveMany stores up to MaxFilesPerUpload files. Files already written are kept when a
// later one fails.
func (s *UploadService) SaveMany(files []*multipart.FileHeader, input UploadInput) ([]db.Attachment, error) {
	if len(files) == 0 {
		return nil, ErrNoFile
	}
	if len(files) > MaxFilesPerUpload {
		return nil, ErrTooManyFiles
	}
	for _, f := range files {
		if f.Size > s.cfg.MaxBytes {
			return nil, ErrFileTooLarge
		}
	}

	saved := make([]db.Attachment, 0, len(files))
	for _, f := range files {
		attachment, err := s.Save(f, input)
		if err != nil {
			return saved, err
		}
		saved = append(saved, *attachment)
	}
	return saved, nil
}

// List returns attachments, newest first.
func (s *UploadService) List(filter AttachmentFilter) (*Page[db.Attachment], error) {
	p := filter.Pagination.Normalize()

	filtered := func() *gorm.DB {
		query := s.db.Model(&db.Attachment{})
		if filter.ArticleID != 0 {
			query = query.Where("article_id = ?", filter.ArticleID)
		}
		if filter.KnowledgeID != 0 {
			query = query.Where("knowledge_id = ?", filter.KnowledgeID)
		}
		return query
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, err
	}

	var attachments []db.Attachment
	if err := filtered().Preload("UploadedBy").
		Order("created_at desc").Order("id desc").
		Limit(p.Limit).Offset(p.Offset()).
		Find(&attachments).Error; err != nil {
		return nil, err
	}
	for i := range attachments {
		s.withURL(&attachments[i])
	}
	return newPage(attachments, total, p), nil
}

// Get fetches an attachment by id.
func (s *UploadService) Get(id uint) (*db.Attachment, error) {
	var attachment db.Attachment
	if err := s.db.Preload("UploadedBy").First(&attachment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttachmentNotFound
		}
		return nil, err
	}
	s.withURL(&attachment)
	return &attachment, nil
}

// Download increments the download counter and returns the attachment to stream.
func (s *UploadService) Download(id uint) (*db.Attachment, error) {
	attachment, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(attachment.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrAttachmentNotFound
		}
		return nil, err
	}

	if err := s.db.Model(&db.Attachment{}).
		Where("id = ?", id).
		UpdateColumn("download_count", gorm.Expr("download_count + ?", 1)).Error; err != nil {
		return nil, err
	}
	attachment.DownloadCount++
	return attachment, nil
}

// Delete removes the row and then the file. A missing or locked file is only logged.
func (s *UploadService) Delete(id uint, actor Actor) error {
	attachment, err := s.Get(id)
	if err != nil {
		return err
	}
	owner := uint(0)
	if attachment.UploadedByID != nil {
		owner = *attachment.UploadedByID
	}
	if !actor.canModify(owner) {
		return ErrForbidden
	}

	if err := s.db.Delete(&db.Attachment{}, id).Error; err != nil {
		return err
	}
	if err := os.Remove(attachment.Path); err != nil {
		s.logger.Warn("remove upload from disk", zap.Uint("attachment_id", id), zap.String("path", attachment.Path), zap.Error(err))
	}
	return nil
}

// URLFor returns the public URL of a stored file name.
func (s *UploadService) URLFor(filename string) string {
	return s.cfg.URLPath + "/" + filename
}

func (s *UploadService) withURL(attachment *db.Attachment) {
	attachment.URL = s.URLFor(attachment.Filename)
}

func (s *UploadService) writeFile(file *multipart.FileHeader, path string) (int64, error) {
	src, err := file.Open()
	if err != nil {
		return 0, fmt.Errorf("failed to upload file: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to upload file: %w", err)
	}
	defer dst.Close()

	// 多读一个字节，用来识别声明大小与实际内容不符的文件
	written, err := io.Copy(dst, io.LimitReader(src, s.cfg.MaxBytes+1))
	if err != nil {
		return 0, fmt.Errorf("failed to upload file: %w", err)
	}
	if written > s.cfg.MaxBytes {
		return 0, ErrFileTooLarge
	}
	return written, nil
}

func (s *UploadService) ensureOwners(input UploadInput) error {
	if input.ArticleID != nil {
		var count int64
		if err := s.db.Model(&db.Article{}).Where("id = ?", *input.ArticleID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrArticleNotFound
		}
	}
	if input.KnowledgeID != nil {
		var count int64
		if err := s.db.Model(&db.Knowledge{}).Where("id = ?", *input.KnowledgeID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrKnowledgeNotFound
		}
	}
	return nil
}

func detectMimetype(file *multipart.FileHeader, ext string) string {
	if ct := strings.TrimSpace(file.Header.Get("Content-Type")); ct != "" && ct != "application/octet-stream" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
			return mediaType
		}
	}
	if byExt := mime.TypeByExtension(ext); byExt != "" {
		if mediaType, _, err := mime.ParseMediaType(byExt); err == nil {
			return mediaType
		}
	}
	return "application/octet-stream"
}

// imageDimensions 只解析图片头部，不支持的格式返回 0。
func imageDimensions(path string) (int, int) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
