package models

import (
	apperrors "EcoWatch/pkg/errors"
	_ "embed"
	"math/rand/v2"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

const CategoryAll = "all"

type Category struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

var Categories = []Category{
	{Key: "energy", Label: "Energy Saving"},
	{Key: "water", Label: "Water Conservation"},
	{Key: "waste", Label: "Waste Reduction"},
	{Key: "transport", Label: "Sustainable Transport"},
	{Key: "food", Label: "Sustainable Food"},
	{Key: "general", Label: "General"},
}

func ValidCategory(key string) bool {
	for _, c := range Categories {
		if c.Key == key {
			return true
		}
	}
	return false
}

type EcoTip struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Title     string    `json:"title" gorm:"size:200"`
	Content   string    `json:"content" gorm:"type:text"`
	Category  string    `json:"category" gorm:"size:20;index"`
	IsActive  bool      `json:"is_active" gorm:"index"`
	CreatedAt time.Time `json:"created_at"`
}

// ListActiveTips category 为空或 all 时返回全部，按创建时间倒序
func ListActiveTips(db *gorm.DB, category string) ([]EcoTip, error) {
	category = strings.ToLower(strings.TrimSpace(category))
	q := db.Where("is_active = ?", true)
	switch {
	case category == "" || category == CategoryAll:
	case ValidCategory(category):
		q = q.Where("category = ?", category)
	default:
		return nil, apperrors.Validation("unknown category %q", category)
	}
	var tips []EcoTip
	err := q.Order("created_at DESC").Order("id DESC").Find(&tips).Error
	return tips, err
}

// RecentTips 最新的 n 条有效小贴士
func RecentTips(db *gorm.DB, n int) ([]EcoTip, error) {
	var tips []EcoTip
	err := db.Where("is_active = ?", true).Order("created_at DESC").Order("id DESC").Limit(n).Find(&tips).Error
	return tips, err
}

// SampleActiveTips 随机抽取至多 n 条，每次结果不同
func SampleActiveTips(db *gorm.DB, n int) ([]EcoTip, error) {
	var ids []uint
	if err := db.Model(&EcoTip{}).Where("is_active = ?", true).Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	if len(ids) > n {
		ids = ids[:n]
	}
	return TipsByIDs(db, ids)
}

// TipsByIDs 按 ids 的顺序返回，不存在的 id 被忽略
func TipsByIDs(db *gorm.DB, ids []uint) ([]EcoTip, error) {
	if len(ids) == 0 {
		return []EcoTip{}, nil
	}
	var found []EcoTip
	if err := db.Where("id IN ?", ids).Find(&found).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]EcoTip, len(found))
	for _, t := range found {
		byID[t.ID] = t
	}
	out := make([]EcoTip, 0, len(found))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

//go:embed seeds/eco_tips.yaml
var tipSeed []byte

type tipSeedEntry struct {
	Title    string `yaml:"title"`
	Content  string `yaml:"content"`
	Category string `yaml:"category"`
	Active   *bool  `yaml:"active"`
}

// SeedTips 表为空时导入内置的小贴士，返回导入条数
func SeedTips(db *gorm.DB) (int, error) {
	var n int64
	if err := db.Model(&EcoTip{}).Count(&n).Error; err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}
	var entries []tipSeedEntry
	if err := yaml.Unmarshal(tipSeed, &entries); err != nil {
		return 0, apperrors.Wrap(err, "parse tip seed failed")
	}
	tips := make([]EcoTip, 0, len(entries))
	for _, e := range entries {
		if !ValidCategory(e.Category) {
			return 0, apperrors.Validation("seed tip %q has unknown category %q", e.Title, e.Category)
		}
		active := true
		if e.Active != nil {
			active = *e.Active
		}
		tips = append(tips, EcoTip{Title: e.Title, Content: e.Content, Category: e.Category, IsActive: active})
	}
	if err := db.Create(&tips).Error; err != nil {
		return 0, err
	}
	return len(tips), nil
}
