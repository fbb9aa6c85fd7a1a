package models

import (
	"time"

	"gorm.io/gorm"
)

// 社区模块只读：数据由管理后台维护，这里只提供查询

type CommunityReport struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"index"`
	Title       string    `json:"title" gorm:"size:200"`
	Description string    `json:"description" gorm:"type:text"`
	ReportType  string    `json:"report_type" gorm:"size:30"`
	City        string    `json:"city" gorm:"size:100"`
	CityKey     string    `json:"-" gorm:"size:100;index:idx_report_city_created,priority:1"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	Status      string    `json:"status" gorm:"size:20"`
	CreatedAt   time.Time `json:"created_at" gorm:"index:idx_report_city_created,priority:2"`
}

func (r *CommunityReport) BeforeSave(tx *gorm.DB) error {
	r.CityKey = NormalizeCity(r.City)
	return nil
}

type ReportVote struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ReportID  uint      `json:"report_id" gorm:"uniqueIndex:idx_vote_report_user,priority:1"`
	UserID    uint      `json:"user_id" gorm:"uniqueIndex:idx_vote_report_user,priority:2"`
	VoteType  string    `json:"vote_type" gorm:"size:10"`
	CreatedAt time.Time `json:"created_at"`
}

type ReportComment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ReportID  uint      `json:"report_id" gorm:"index"`
	UserID    uint      `json:"user_id"`
	Content   string    `json:"content" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at"`
}

type CommunityChallenge struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"size:200"`
	Description string    `json:"description" gorm:"type:text"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

type ChallengeParticipation struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	ChallengeID uint      `json:"challenge_id" gorm:"uniqueIndex:idx_participation,priority:1"`
	UserID      uint      `json:"user_id" gorm:"uniqueIndex:idx_participation,priority:2"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
}

// RecentReports 城市内 since 之后（含）创建的报告，最新在前
func RecentReports(db *gorm.DB, cityKey string, since time.Time, limit int) ([]CommunityReport, error) {
	var out []CommunityReport
	q := db.Where("city_key = ? AND created_at >= ?", cityKey, since).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, err
}

func CountReportsSince(db *gorm.DB, since time.Time) (int64, error) {
	var n int64
	err := db.Model(&CommunityReport{}).Where("created_at >= ?", since).Count(&n).Error
	return n, err
}
