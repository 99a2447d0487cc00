package db

import "time"

type GoogleIntegrationModel struct {
	UserID       string `gorm:"type:uuid;primaryKey"`
	Email        string `gorm:"not null;default:''"`
	AccessToken  string `gorm:"not null;default:''"`
	RefreshToken string `gorm:"not null;default:''"`
	TokenType    string `gorm:"not null;default:''"`
	Expiry       *time.Time
	Scopes       string    `gorm:"not null;default:''"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null;index"`
}

func (GoogleIntegrationModel) TableName() string {
	return "google_integrations"
}
