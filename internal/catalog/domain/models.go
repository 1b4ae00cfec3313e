package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type CertificationStatus string

const (
	StatusDraft     CertificationStatus = "draft"
	StatusPublished CertificationStatus = "published"
)

type Certification struct {
	ID            snowflake.ID        `gorm:"primaryKey" json:"id"`
	Slug          string              `gorm:"type:text;not null;uniqueIndex" json:"slug"`
	Title         string              `gorm:"type:text;not null" json:"title"`
	Description   string              `gorm:"type:text" json:"description"`
	Price         decimal.Decimal     `gorm:"type:numeric(12,2);not null" json:"price"`
	Level         string              `gorm:"type:text" json:"level"`
	DurationLabel string              `gorm:"column:duration_label;type:text" json:"duration_label"`
	Status        CertificationStatus `gorm:"type:text;not null" json:"status"`
	CreatedAt     time.Time           `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"not null" json:"updated_at"`
}

func (Certification) TableName() string { return "certifications" }

func (c Certification) IsPublished() bool { return c.Status == StatusPublished }

type Module struct {
	ID              snowflake.ID `gorm:"primaryKey" json:"id"`
	CertificationID snowflake.ID `gorm:"column:certification_id;not null" json:"certification_id"`
	Title           string       `gorm:"type:text;not null" json:"title"`
	Sequence        int          `gorm:"not null" json:"sequence"`
	CreatedAt       time.Time    `gorm:"not null" json:"created_at"`
}

func (Module) TableName() string { return "modules" }
