package domain

import (
	"time"

	"gorm.io/datatypes"
)

type CSVFile struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	Filename   string         `gorm:"not null" json:"filename"`
	StorageKey string         `gorm:"uniqueIndex;not null" json:"filepath"`
	Size       int64          `gorm:"not null" json:"size"`
	UploaderID uint           `gorm:"index;not null" json:"uploader_id"`
	UploadDate time.Time      `gorm:"index;not null" json:"upload_date"`
	Columns    datatypes.JSON `json:"columns,omitempty"`
	RowCount   int            `json:"row_count"`
}

func (CSVFile) TableName() string {
	return "csv_files"
}
