package db

import "time"

// AlertRecord maps newsalert.alerts.
type AlertRecord struct {
	AlertID         string    `gorm:"column:alert_id;type:uuid;primaryKey"`
	Title           string    `gorm:"column:title;type:text;not null"`
	NormalizedTitle string    `gorm:"column:normalized_title;type:text;not null"`
	Description     string    `gorm:"column:description;type:text;not null"`
	Location        string    `gorm:"column:location;type:text;not null"`
	PublishedAt     time.Time `gorm:"column:published_at;type:timestamptz;not null"`
	Source          string    `gorm:"column:source;type:text;not null"`
	Link            string    `gorm:"column:link;type:text;not null;uniqueIndex:alerts_link_key"`
	IsSecurityEvent bool      `gorm:"column:is_security_event;type:boolean;not null;default:false"`
	ImageURL        *string   `gorm:"column:image_url;type:text"`
	Language        *string   `gorm:"column:language;type:text"`
	ClassifiedBy    string    `gorm:"column:classified_by;type:text;not null"`
	CreatedAt       time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (AlertRecord) TableName() string { return "newsalert.alerts" }

// UserProfile maps newsalert.user_profiles.
type UserProfile struct {
	UserID    string    `gorm:"column:user_id;type:text;primaryKey"`
	Location  string    `gorm:"column:location;type:text;not null"`
	PushToken *string   `gorm:"column:push_token;type:text"`
	CreatedAt time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz;not null;default:now()"`
}

func (UserProfile) TableName() string { return "newsalert.user_profiles" }

// NotificationRecord maps newsalert.notifications. One row per delivery attempt.
type NotificationRecord struct {
	NotificationID int64     `gorm:"column:notification_id;primaryKey;autoIncrement"`
	AlertID        string    `gorm:"column:alert_id;type:uuid;not null"`
	UserID         string    `gorm:"column:user_id;type:text;not null"`
	Status         string    `gorm:"column:status;type:text;not null"`
	Rule           string    `gorm:"column:rule;type:text;not null"`
	ErrorMessage   *string   `gorm:"column:error_message;type:text"`
	CreatedAt      time.Time `gorm:"column:created_at;type:timestamptz;not null;default:now()"`
}

func (NotificationRecord) TableName() string { return "newsalert.notifications" }

func autoMigrateModels() []any {
	return []any{
		&AlertRecord{},
		&UserProfile{},
		&NotificationRecord{},
	}
}
