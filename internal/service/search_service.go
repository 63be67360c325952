package service

import (
	"sort"
	"strings"

	"github.com/knowshare/internal/db"
	"gorm.io/gorm"
)

// Search result types.
const (
	SearchArticles   = "articles"
	SearchCategories = "categories"
	SearchUsers      = "users"
	SearchAll        = "all"
)

const maxSuggestions = 10

// SearchService runs keyword search across articles, categories and users.
type SearchService struct {
	db *gorm.DB
}

// SearchQuery 描述一次全局搜索请求。
type SearchQuery struct {
	Query string
	Type  string
	Pagination
}

// UserSummary is the public part of a user shown in search results.
type UserSummary struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Avatar    string `json:"avatar,omitempty"`
}

// SearchResults groups matches per type.
type SearchResults struct {
	Articles   []db.Article  `json:"articles"`
	Categories []db.Category `json:"categories"`
	Users      []UserSummary `json:"users"`
}

// SearchMeta describes a search response.
type SearchMeta struct {
	Total int64  `json:"total"`
	Query string `json:"query"`
	Type  string `json:"type"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}

// SearchResponse is the search payload with its metadata.
type SearchResponse struct {
	Data SearchResults `json:"data"`
	Meta SearchMeta    `json:"meta"`
}

// NewSearchService creates a SearchService instance.
func NewSearchService(gdb *gorm.DB) *SearchService {
	return &SearchService{db: gdb}
}

// Search matches q against published articles, categories and users. Type narrows the
// search to one kind; an empty type searches all of them.
func (s *SearchService) Search(q SearchQuery) (*SearchResponse, error) {
	term := strings.TrimSpace(q.Query)
	if term == "" {
		return nil, ErrEmptyQuery
	}
	kind := strings.ToLower(strings.TrimSpace(q.Type))
	if kind == "" {
		kind = SearchAll
	}
	switch kind {
	case SearchAll, SearchArticles, SearchCategories, SearchUsers:
	default:
		return nil, invalid("type", "must be one of articles, categories, users, all")
	}

	p := q.Pagination.Normalize()
	like := containsPattern(term)
	resp := &SearchResponse{
		Data: SearchResults{
			Articles:   []db.Article{},
			Categories: []db.Category{},
			Users:      []UserSummary{},
		},
		Meta: SearchMeta{Query: term, Type: kind, Page: p.Page, Limit: p.Limit},
	}

	if kind == SearchAll || kind == SearchArticles {
		articles := func() *gorm.DB {
			cond, args := likeAny(like, "title", "content", "excerpt")
			return s.db.Model(&db.Article{}).
				Where("status = ?", db.ArticlePublished).
				Where(cond, args...)
		}
		var count int64
		if err := articles().Count(&count).Error; err != nil {
			return nil, err
		}
		if err := articles().Preload("Author").Preload("Category").Preload("Tags").
			Order("published_at desc").Order("id desc").
			Limit(p.Limit).Offset(p.Offset()).
			Find(&resp.Data.Articles).Error; err != nil {
			return nil, err
		}
		resp.Meta.Total += count
	}

	if kind == SearchAll || kind == SearchCategories {
		categories := func() *gorm.DB {
			cond, args := likeAny(like, "name", "description")
			return s.db.Model(&db.Category{}).Where(cond, args...)
		}
		var count int64
		if err := categories().Count(&count).Error; err != nil {
			return nil, err
		}
		if err := categories().Order("sort_order asc").Order("name asc").
			Limit(p.Limit).Offset(p.Offset()).
			Find(&resp.Data.Categories).Error; err != nil {
			return nil, err
		}
		resp.Meta.Total += count
	}

	if kind == SearchAll || kind == SearchUsers {
		users := func() *gorm.DB {
			cond, args := likeAny(like, "username", "first_name", "last_name")
			return s.db.Model(&db.User{}).
				Where("is_active = ?", true).
				Where(cond, args...)
		}
		var count int64
		if err := users().Count(&count).Error; err != nil {
			return nil, err
		}
		if err := users().Select("id", "username", "first_name", "last_name", "avatar").
			Order("username asc").
			Limit(p.Limit).Offset(p.Offset()).
			Scan(&resp.Data.Users).Error; err != nil {
			return nil, err
		}
		resp.Meta.Total += count
	}

	return resp, nil
}

// Suggest returns up to ten article titles and tag names matching q. Prefix matches are
// fetched first so heavily viewed titles that merely contain q cannot crowd them out.
func (s *SearchService) Suggest(q string) ([]string, error) {
	term := strings.TrimSpace(q)
	if term == "" {
		return []string{}, nil
	}
	lowered := strings.ToLower(term)

	prefixed, err := s.suggestionCandidates(prefixPattern(lowered), nil, maxSuggestions)
	if err != nil {
		return nil, err
	}
	candidates := rankSuggestions(term, prefixed)

	if remaining := maxSuggestions - len(candidates); remaining > 0 {
		seen := make([]string, 0, len(candidates))
		for _, c := range candidates {
			seen = append(seen, strings.ToLower(c))
		}
		contained, err := s.suggestionCandidates(containsPattern(lowered), seen, remaining)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, contained...)
	}

	return rankSuggestions(term, candidates), nil
}

// suggestionCandidates 查询匹配 pattern 的文章标题与标签名，跳过 exclude 中已有的结果。
func (s *SearchService) suggestionCandidates(pattern string, exclude []string, limit int) ([]string, error) {
	titles := s.db.Model(&db.Article{}).
		Where("status = ?", db.ArticlePublished).
		Where(`LOWER(title) LIKE ? ESCAPE '\'`, pattern)
	tags := s.db.Model(&db.Tag{}).
		Where(`LOWER(name) LIKE ? ESCAPE '\'`, pattern)
	if len(exclude) > 0 {
		titles = titles.Where("LOWER(title) NOT IN ?", exclude)
		tags = tags.Where("LOWER(name) NOT IN ?", exclude)
	}

	var titleMatches []string
	if err := titles.Order("view_count desc").Order("title asc").
		Limit(limit).
		Pluck("title", &titleMatches).Error; err != nil {
		return nil, err
	}

	var tagMatches []string
	if err := tags.Order("name asc").
		Limit(limit).
		Pluck("name", &tagMatches).Error; err != nil {
		return nil, err
	}

	return append(titleMatches, tagMatches...), nil
}

func rankSuggestions(term string, candidates []string) []string {
	lowered := strings.ToLower(term)
	seen := make(map[string]struct{}, len(candidates))
	unique := make([]string, 0, len(candidates))
	for _, c := range candidates {
		key := strings.ToLower(c)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, c)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		pi := strings.HasPrefix(strings.ToLower(unique[i]), lowered)
		pj := strings.HasPrefix(strings.ToLower(unique[j]), lowered)
		return pi && !pj
	})

	if len(unique) > maxSuggestions {
		unique = unique[:maxSuggestions]
	}
	return unique
}
