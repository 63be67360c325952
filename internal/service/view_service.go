package service

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis"
	"github.com/knowshare/internal/db"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultViewDedupWindow = 30 * time.Minute

const viewRankKey = "rank:article:views"

// ViewRanker keeps a popularity ranking of articles.
type ViewRanker interface {
	Record(articleID uint) error
	Top(n int) ([]RankedArticle, error)
	Forget(articleID uint) error
}

// RankedArticle is one entry of the popularity ranking.
type RankedArticle struct {
	ArticleID uint
	Score     int64
}

// ViewService 负责文章浏览量的去重统计。
type ViewService struct {
	db          *gorm.DB
	ranker      ViewRanker
	logger      *zap.Logger
	dedupWindow time.Duration
}

// NewViewService creates a ViewService. ranker and logger may be nil.
func NewViewService(gdb *gorm.DB, ranker ViewRanker, logger *zap.Logger) *ViewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ViewService{db: gdb, ranker: ranker, logger: logger, dedupWindow: defaultViewDedupWindow}
}

// WithDedupWindow 允许在测试或特定场景下调整去重窗口。
func (s *ViewService) WithDedupWindow(d time.Duration) *ViewService {
	if d <= 0 {
		return s
	}
	s.dedupWindow = d
	return s
}

// RecordView counts a view unless the same visitor was counted within the dedupe
// window. It reports whether the view was counted. Ranking failures are logged only.
func (s *ViewService) RecordView(articleID uint, visitorID string, now time.Time) (bool, error) {
	if visitorID == "" || articleID == 0 {
		return false, errors.New("invalid visitor or article id")
	}

	counted := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		visit := db.ArticleView{
			ArticleID:     articleID,
			VisitorID:     visitorID,
			LastViewedAt:  now,
			LastCountedAt: now,
		}
		insert := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "article_id"}, {Name: "visitor_id"}},
			DoNothing: true,
		}).Create(&visit)
		if insert.Error != nil {
			return insert.Error
		}

		if insert.RowsAffected == 1 {
			counted = true
		} else {
			if err := tx.Where("article_id = ? AND visitor_id = ?", articleID, visitorID).First(&visit).Error; err != nil {
				return err
			}
			visit.LastViewedAt = now
			if now.Sub(visit.LastCountedAt) >= s.dedupWindow {
				visit.LastCountedAt = now
				counted = true
			}
			if err := tx.Save(&visit).Error; err != nil {
				return err
			}
		}

		if !counted {
			return nil
		}
		return tx.Model(&db.Article{}).
			Where("id = ?", articleID).
			UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
	})
	if err != nil {
		return false, err
	}

	if counted && s.ranker != nil {
		if err := s.ranker.Record(articleID); err != nil {
			s.logger.Warn("record article ranking", zap.Uint("article_id", articleID), zap.Error(err))
		}
	}
	return counted, nil
}

// Popular returns up to n (at most 100) published articles, ordered by the ranking when one is
// configured and by view_count otherwise.
func (s *ViewService) Popular(n int) ([]db.Article, error) {
	if n <= 0 {
		n = defaultLimit
	}
	if n > maxLimit {
		n = maxLimit
	}

	if s.ranker != nil {
		ranked, err := s.ranker.Top(n)
		if err != nil {
			s.logger.Warn("read article ranking", zap.Error(err))
		} else if len(ranked) > 0 {
			return s.loadRanked(ranked)
		}
	}

	var articles []db.Article
	if err := s.db.Preload("Author").Preload("Category").Preload("Tags").
		Where("status = ?", db.ArticlePublished).
		Order("view_count desc").Order("id desc").
		Limit(n).
		Find(&articles).Error; err != nil {
		return nil, err
	}
	return articles, nil
}

// Forget removes an article from the ranking.
func (s *ViewService) Forget(articleID uint) {
	if s.ranker == nil {
		return
	}
	if err := s.ranker.Forget(articleID); err != nil {
		s.logger.Warn("forget article ranking", zap.Uint("article_id", articleID), zap.Error(err))
	}
}

func (s *ViewService) loadRanked(ranked []RankedArticle) ([]db.Article, error) {
	ids := make([]uint, 0, len(ranked))
	for _, r := range ranked {
		ids = append(ids, r.ArticleID)
	}

	var found []db.Article
	if err := s.db.Preload("Author").Preload("Category").Preload("Tags").
		Where("id IN ? AND status = ?", ids, db.ArticlePublished).
		Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[uint]db.Article, len(found))
	for _, a := range found {
		byID[a.ID] = a
	}
	ordered := make([]db.Article, 0, len(found))
	for _, id := range ids {
		if a, ok := byID[id]; ok {
			ordered = append(ordered, a)
		}
	}
	return ordered, nil
}

// RedisViewRanker 使用 Redis ZSET 维护文章热度排行。
type RedisViewRanker struct {
	client *redis.Client
	key    string
}

// NewRedisViewRanker connects to addr and verifies the connection with PING.
func NewRedisViewRanker(addr, password string, database int) (*RedisViewRanker, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: database})
	if err := client.Ping().Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisViewRanker{client: client, key: viewRankKey}, nil
}

func (r *RedisViewRanker) Record(articleID uint) error {
	return r.client.ZIncrBy(r.key, 1, memberOf(articleID)).Err()
}

func (r *RedisViewRanker) Top(n int) ([]RankedArticle, error) {
	res, err := r.client.ZRevRangeWithScores(r.key, 0, int64(n-1)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	out := make([]RankedArticle, 0, len(res))
	for _, z := range res {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		id, err := strconv.ParseUint(member, 10, 32)
		if err != nil {
			continue
		}
		out = append(out, RankedArticle{ArticleID: uint(id), Score: int64(z.Score)})
	}
	return out, nil
}

func (r *RedisViewRanker) Forget(articleID uint) error {
	return r.client.ZRem(r.key, memberOf(articleID)).Err()
}

// Close releases the redis connection pool.
func (r *RedisViewRanker) Close() error {
	return r.client.Close()
}

func memberOf(articleID uint) string {
	return strconv.FormatUint(uint64(articleID), 10)
}
