package models

import (
	"EcoWatch/pkg/middleware"

	"gorm.io/gorm"
)

func AllModels() []any {
	return []any{
		&User{},
		&Profile{},
		&WeatherData{},
		&AirQualityData{},
		&WaterLevel{},
		&EcoTip{},
		&UserAlert{},
		&CommunityReport{},
		&ReportVote{},
		&ReportComment{},
		&CommunityChallenge{},
		&ChallengeParticipation{},
		&middleware.ActivityLog{},
	}
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
