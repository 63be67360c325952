package router

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/knowshare/internal/db"
	"github.com/knowshare/internal/handler"
	"github.com/knowshare/internal/logging"
	"go.uber.org/zap"
)

// Config 描述路由层需要的外部配置。
type Config struct {
	CORSOrigins   []string
	UploadURLPath string
}

// SetupRouter 配置 Gin 引擎和路由
func SetupRouter(api *handler.API, cfg Config, logger *zap.Logger) *gin.Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(logging.GinMiddleware(logger))
	r.Use(cors.New(corsConfig(cfg.CORSOrigins)))

	uploadPath := strings.TrimRight(strings.TrimSpace(cfg.UploadURLPath), "/")
	if uploadPath == "" {
		uploadPath = "/uploads"
	}
	r.Static(uploadPath, api.UploadDir())

	r.GET("/health", api.Health)
	r.GET("/api", api.Index)

	editors := api.RequireRole(db.RoleEditor, db.RoleAdmin)
	admins := api.RequireRole(db.RoleAdmin)

	apiGroup := r.Group("/api")
	{
		authGroup := apiGroup.Group("/auth")
		{
			authGroup.POST("/register", api.Register)
			authGroup.POST("/login", api.Login)
			authGroup.POST("/refresh", api.Refresh)
			authGroup.GET("/profile", api.RequireAuth(), api.Profile)
			authGroup.POST("/logout", api.RequireAuth(), api.Logout)
		}

		users := apiGroup.Group("/users", api.RequireAuth())
		{
			users.GET("", admins, api.ListUsers)
			users.POST("", admins, api.CreateUser)
			users.GET("/me", api.Me)
			users.GET("/:id", api.GetUser)
			users.PATCH("/:id", api.UpdateUser)
			users.PUT("/:id", api.UpdateUser)
			users.DELETE("/:id", admins, api.DeleteUser)
		}

		articles := apiGroup.Group("/articles")
		{
			articles.GET("", api.ListArticles)
			articles.GET("/published", api.ListPublishedArticles)
			articles.GET("/popular", api.PopularArticles)
			articles.GET("/my-articles", api.RequireAuth(), api.ListMyArticles)
			articles.GET("/slug/:slug", api.OptionalAuth(), api.GetArticleBySlug)
			articles.GET("/:id", api.OptionalAuth(), api.GetArticle)

			articles.POST("", api.RequireAuth(), editors, api.CreateArticle)
			articles.PATCH("/:id", api.RequireAuth(), api.UpdateArticle)
			articles.PUT("/:id", api.RequireAuth(), api.UpdateArticle)
			articles.PATCH("/:id/publish", api.RequireAuth(), api.PublishArticle)
			articles.PATCH("/:id/unpublish", api.RequireAuth(), api.UnpublishArticle)
			articles.DELETE("/:id", api.RequireAuth(), api.DeleteArticle)

			articles.GET("/:id/versions", api.ListArticleVersions)
			articles.GET("/:id/versions/:version", api.GetArticleVersion)
			articles.POST("/:id/versions/:version/restore", api.RequireAuth(), api.RestoreArticleVersion)

			articles.GET("/:id/comments", api.ListComments)
			articles.POST("/:id/comments", api.RequireAuth(), api.CreateComment)
		}

		comments := apiGroup.Group("/comments", api.RequireAuth())
		{
			comments.PUT("/:id", api.UpdateComment)
			comments.DELETE("/:id", api.DeleteComment)
		}

		categories := apiGroup.Group("/categories")
		{
			categories.GET("", api.ListCategories)
			categories.GET("/tree", api.CategoryTree)
			categories.GET("/slug/:slug", api.GetCategoryBySlug)
			categories.GET("/slug/:slug/articles", api.ListCategoryArticles)
			categories.GET("/:id", api.GetCategory)

			categories.POST("", api.RequireAuth(), admins, api.CreateCategory)
			categories.PUT("/reorder", api.RequireAuth(), admins, api.ReorderCategories)
			categories.PATCH("/:id", api.RequireAuth(), admins, api.UpdateCategory)
			categories.PUT("/:id", api.RequireAuth(), admins, api.UpdateCategory)
			categories.DELETE("/:id", api.RequireAuth(), admins, api.DeleteCategory)
		}

		tags := apiGroup.Group("/tags")
		{
			tags.GET("", api.ListTags)
			tags.GET("/popular", api.PopularTags)
			tags.GET("/:id", api.GetTag)

			tags.POST("", api.RequireAuth(), editors, api.CreateTag)
			tags.PUT("/:id", api.RequireAuth(), editors, api.UpdateTag)
			tags.DELETE("/:id", api.RequireAuth(), editors, api.DeleteTag)
		}

		search := apiGroup.Group("/search")
		{
			search.GET("", api.Search)
			search.GET("/suggestions", api.SearchSuggestions)
		}

		uploads := apiGroup.Group("/uploads", api.RequireAuth())
		{
			uploads.POST("", api.UploadFile)
			uploads.POST("/multiple", api.UploadFiles)
			uploads.GET("", api.ListUploads)
			uploads.GET("/:id", api.GetUpload)
			uploads.GET("/:id/download", api.DownloadUpload)
			uploads.DELETE("/:id", api.DeleteUpload)
		}

		knowledge := apiGroup.Group("/knowledge", api.RequireAuth())
		{
			knowledge.GET("", api.ListKnowledge)
			knowledge.POST("", api.CreateKnowledge)
			knowledge.GET("/:id", api.GetKnowledge)
			knowledge.PUT("/:id", api.UpdateKnowledge)
			knowledge.DELETE("/:id", api.DeleteKnowledge)
			knowledge.GET("/:id/history", api.KnowledgeHistory)
			knowledge.POST("/:id/like", api.LikeKnowledge)
			knowledge.POST("/:id/bookmark", api.BookmarkKnowledge)
			knowledge.POST("/:id/view", api.ViewKnowledge)
		}
	}

	r.NoRoute(api.NotFound)

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", logging.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", logging.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	var allowed []string
	for _, origin := range origins {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed = append(allowed, origin)
		}
	}
	if len(allowed) == 0 || (len(allowed) == 1 && allowed[0] == "*") {
		// 通配时不能同时允许携带凭证
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
		return cfg
	}
	cfg.AllowOrigins = allowed
	return cfg
}
