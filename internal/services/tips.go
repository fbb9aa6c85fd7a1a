package services

import (
	"EcoWatch/internal/models"
	apperrors "EcoWatch/pkg/errors"
	"EcoWatch/pkg/search"
	"context"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

const maxSearchSize = 50

type TipList struct {
	Tips             []models.EcoTip   `json:"tips"`
	Categories       []models.Category `json:"categories"`
	SelectedCategory string            `json:"selected_category"`
}

type TipSearchResult struct {
	Query      string          `json:"query"`
	Total      uint64          `json:"total"`
	Tips       []models.EcoTip `json:"tips"`
	Categories map[string]int  `json:"categories"`
}

// TipService 小贴士列表与全文检索；index 为空时不提供检索
type TipService struct {
	db    *gorm.DB
	index search.Engine
}

func NewTipService(db *gorm.DB, index search.Engine) *TipService {
	return &TipService{db: db, index: index}
}

func (s *TipService) List(ctx context.Context, category string) (*TipList, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	if category == "" {
		category = models.CategoryAll
	}
	tips, err := models.ListActiveTips(s.db.WithContext(ctx), category)
	if err != nil {
		return nil, err
	}
	return &TipList{Tips: tips, Categories: models.Categories, SelectedCategory: category}, nil
}

func tipDoc(t models.EcoTip) search.Doc {
	return search.Doc{
		ID:   strconv.FormatUint(uint64(t.ID), 10),
		Type: search.TipType,
		Fields: map[string]any{
			"title":    t.Title,
			"content":  t.Content,
			"category": t.Category,
			"active":   t.IsActive,
		},
	}
}

// Reindex 把数据库中的全部小贴士写入索引
func (s *TipService) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	var tips []models.EcoTip
	if err := s.db.WithContext(ctx).Find(&tips).Error; err != nil {
		return 0, err
	}
	docs := make([]search.Doc, 0, len(tips))
	for _, t := range tips {
		docs = append(docs, tipDoc(t))
	}
	if err := s.index.IndexBatch(ctx, docs); err != nil {
		return 0, apperrors.Wrap(err, "index tips failed")
	}
	return len(docs), nil
}

// Search 只检索有效小贴士，结果按相关度排序
func (s *TipService) Search(ctx context.Context, q, category string, size int) (*TipSearchResult, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperrors.Validation("q is required")
	}
	category = strings.ToLower(strings.TrimSpace(category))
	if category == models.CategoryAll {
		category = ""
	}
	if category != "" && !models.ValidCategory(category) {
		return nil, apperrors.Validation("unknown category %q", category)
	}
	if s.index == nil {
		return nil, apperrors.New("tip search is not enabled")
	}
	if size <= 0 || size > maxSearchSize {
		size = 10
	}

	res, err := s.index.Search(ctx, search.SearchRequest{
		Keyword:    q,
		Category:   category,
		ActiveOnly: true,
		Size:       size,
		Facets:     []search.FacetRequest{{Name: "categories", Field: "category", Size: len(models.Categories)}},
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "search tips failed")
	}
	ids := make([]uint, 0, len(res.Hits))
	for _, h := range res.Hits {
		id, err := strconv.ParseUint(h.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, uint(id))
	}
	tips, err := models.TipsByIDs(s.db.WithContext(ctx), ids)
	if err != nil {
		return nil, err
	}
	out := &TipSearchResult{Query: q, Total: res.Total, Tips: tips, Categories: map[string]int{}}
	for _, term := range res.Facets["categories"].Terms {
		out.Categories[term.Term] = term.Count
	}
	return out, nil
}
