// Package seed fills an empty database with demo content for local development.
package seed

import (
	"errors"
	"fmt"

	"github.com/knowshare/internal/db"
	"github.com/knowshare/internal/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrNoAuthor is returned when the configured author account does not exist.
var ErrNoAuthor = errors.New("seed author not found")

// Result counts what a run created.
type Result struct {
	Categories int
	Articles   int
	Knowledge  int
	Skipped    bool
}

type demoArticle struct {
	title    string
	content  string
	category string
	tags     []string
	publish  bool
}

var demoCategories = []struct {
	name        string
	description string
	color       string
}{
	{"Backend", "Services, storage and APIs", "#2563eb"},
	{"Frontend", "Browsers, components and styling", "#db2777"},
	{"DevOps", "Delivery, monitoring and infrastructure", "#16a34a"},
	{"团队实践", "流程、协作与知识沉淀", "#f59e0b"},
}

var demoArticles = []demoArticle{
	{
		title:    "Designing Pagination That Does Not Lie",
		content:  "## Why totals matter\n\nA page of results is only useful when the client knows how many pages exist.\n\n- Count with the same filters as the query\n- Clamp `limit` to a sane range\n- Report `hasNext` and `hasPrevious`",
		category: "Backend",
		tags:     []string{"api", "go"},
		publish:  true,
	},
	{
		title:    "Soft Deletes and Unique Slugs",
		content:  "Slugs stay unique even after a row is soft deleted. Lookups for collisions therefore run **unscoped**, so a restored record never clashes with a newer one.",
		category: "Backend",
		tags:     []string{"database", "go"},
		publish:  true,
	},
	{
		title:    "Rendering Markdown Safely",
		content:  "User supplied markdown is rendered to HTML and then passed through a sanitizer.\n\n```html\n<script>alert(1)</script>\n```\n\nThe block above is shown as text, never executed.",
		category: "Frontend",
		tags:     []string{"markdown", "security"},
		publish:  true,
	},
	{
		title:    "Shipping With Zero Downtime",
		content:  "Graceful shutdown drains in-flight requests before the process exits. Pair it with health checks so the load balancer stops routing first.",
		category: "DevOps",
		tags:     []string{"deployment"},
		publish:  false,
	},
	{
		title:    "如何写一篇好的技术复盘",
		content:  "复盘不是追责，而是把一次经历变成团队可复用的知识。\n\n1. 先还原时间线\n2. 再区分根因与诱因\n3. 最后落到可执行的改进项",
		category: "团队实践",
		tags:     []string{"retrospective", "teamwork"},
		publish:  true,
	},
}

var demoKnowledge = []service.KnowledgeInput{
	{
		Title:    "On-call handbook",
		Content:  "Escalate after 15 minutes without progress. Record every action in the incident channel.",
		Summary:  "What to do when the pager goes off",
		Category: "operations",
		Tags:     []string{"on-call", "incident"},
		Status:   db.KnowledgePublished,
	},
	{
		Title:    "新人入职清单",
		Content:  "申请代码仓库权限，阅读架构文档，完成第一次代码评审。",
		Summary:  "第一周需要完成的事项",
		Category: "onboarding",
		Tags:     []string{"入职"},
		Status:   db.KnowledgeDraft,
	},
}

// Run creates demo categories, articles and knowledge documents authored by the user named
// author. It does nothing when articles already exist.
func Run(gdb *gorm.DB, author string, logger *zap.Logger) (Result, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var count int64
	if err := gdb.Model(&db.Article{}).Count(&count).Error; err != nil {
		return Result{}, err
	}
	if count > 0 {
		logger.Info("articles already exist, skipping seed", zap.Int64("articles", count))
		return Result{Skipped: true}, nil
	}

	var user db.User
	if err := gdb.Where("username = ?", author).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Result{}, fmt.Errorf("%w: %s", ErrNoAuthor, author)
		}
		return Result{}, err
	}
	actor := service.Actor{ID: user.ID, Role: user.Role}

	var result Result
	categories := service.NewCategoryService(gdb)
	categoryIDs := make(map[string]uint, len(demoCategories))
	for i, c := range demoCategories {
		description, color, order := c.description, c.color, i
		created, err := categories.Create(service.CategoryInput{
			Name:        c.name,
			Description: &description,
			Color:       &color,
			SortOrder:   &order,
		})
		if err != nil {
			return result, fmt.Errorf("create category %q: %w", c.name, err)
		}
		categoryIDs[c.name] = created.ID
		result.Categories++
	}

	articles := service.NewArticleService(gdb, nil, nil)
	for _, a := range demoArticles {
		if _, err := articles.Create(service.ArticleInput{
			Title:       a.title,
			Content:     a.content,
			CategoryID:  categoryIDs[a.category],
			Tags:        a.tags,
			IsPublished: a.publish,
		}, actor); err != nil {
			return result, fmt.Errorf("create article %q: %w", a.title, err)
		}
		result.Articles++
	}

	knowledge := service.NewKnowledgeService(gdb, nil)
	for _, k := range demoKnowledge {
		if _, err := knowledge.Create(k, actor); err != nil {
			return result, fmt.Errorf("create knowledge %q: %w", k.Title, err)
		}
		result.Knowledge++
	}

	logger.Info("seed data created",
		zap.Int("categories", result.Categories),
		zap.Int("articles", result.Articles),
		zap.Int("knowledge", result.Knowledge),
	)
	return result, nil
}
