package models

import "time"

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeAudio MediaType = "audio"
	MediaTypeVideo MediaType = "video"
)

// Media is a downloadable item stored in object storage under S3Key.
type Media struct {
	ID          string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Title       string    `gorm:"column:title;type:varchar(255);not null" json:"title"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	CategoryID  *string   `gorm:"column:category_id;type:uuid;index" json:"category_id"`
	UploaderID  string    `gorm:"column:uploader_id;type:uuid;not null;index" json:"uploader_id"`
	MediaType   MediaType `gorm:"column:media_type;type:varchar(16);not null;index" json:"media_type"`

	FileName    string `gorm:"column:file_name;type:varchar(255);not null" json:"file_name"`
	FileSize    int64  `gorm:"column:file_size;type:bigint;not null" json:"file_size"`
	ContentType string `gorm:"column:content_type;type:varchar(100);not null" json:"content_type"`
	S3Key       string `gorm:"column:s3_key;type:varchar(512);not null" json:"s3_key"`

	DownloadCount int64 `gorm:"column:download_count;not null;default:0" json:"download_count"`
	IsActive      bool  `gorm:"column:is_active;not null;default:true;index" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Media) TableName() string {
	return "media"
}

// Category groups media for browsing.
type Category struct {
	ID          string    `gorm:"column:id;type:uuid;primary_key" json:"id"`
	Name        string    `gorm:"column:name;type:varchar(100);not null;uniqueIndex" json:"name"`
	Slug        string    `gorm:"column:slug;type:varchar(100);not null;uniqueIndex" json:"slug"`
	Description string    `gorm:"column:description;type:text" json:"description"`
	IsActive    bool      `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Category) TableName() string {
	return "categories"
}
