package handler

import (
	"time"

	"github.com/knowshare/internal/auth"
	"github.com/knowshare/internal/events"
	"github.com/knowshare/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db         *gorm.DB
	auth       *service.AuthService
	users      *service.UserService
	articles   *service.ArticleService
	comments   *service.CommentService
	categories *service.CategoryService
	tags       *service.TagService
	uploads    *service.UploadService
	search     *service.SearchService
	knowledge  *service.KnowledgeService
	tokens     *auth.TokenIssuer
	logger     *zap.Logger
	startedAt  time.Time
}

// Options 汇总构造 API 所需的依赖，Ranker 与 Events 可以为空。
type Options struct {
	DB     *gorm.DB
	Tokens *auth.TokenIssuer
	Upload service.UploadConfig
	Ranker service.ViewRanker
	Events events.Publisher
	Logger *zap.Logger
}

// NewAPI constructs a handler set with shared services.
func NewAPI(opts Options) *API {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	publisher := opts.Events
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	publisher = events.NewLogged(publisher, logger)

	users := service.NewUserService(opts.DB)
	views := service.NewViewService(opts.DB, opts.Ranker, logger)

	return &API{
		db:         opts.DB,
		auth:       service.NewAuthService(opts.DB, users, opts.Tokens),
		users:      users,
		articles:   service.NewArticleService(opts.DB, views, publisher),
		comments:   service.NewCommentService(opts.DB),
		categories: service.NewCategoryService(opts.DB),
		tags:       service.NewTagService(opts.DB),
		uploads:    service.NewUploadService(opts.DB, opts.Upload, logger),
		search:     service.NewSearchService(opts.DB),
		knowledge:  service.NewKnowledgeService(opts.DB, publisher),
		tokens:     opts.Tokens,
		logger:     logger,
		startedAt:  time.Now(),
	}
}

// UploadDir exposes the directory uploads are written to, for static serving.
func (a *API) UploadDir() string {
	return a.uploads.Dir()
}
