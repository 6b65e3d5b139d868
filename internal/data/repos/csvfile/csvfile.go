package csvfile

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/yungbote/csvshare-backend/internal/domain"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
)

type CSVFileRepo interface {
	Create(ctx context.Context, tx *gorm.DB, file *domain.CSVFile) (*domain.CSVFile, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*domain.CSVFile, error)
	List(ctx context.Context, tx *gorm.DB) ([]*domain.CSVFile, error)
	Delete(ctx context.Context, tx *gorm.DB, id uint) (bool, error)
}

type csvFileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCSVFileRepo(db *gorm.DB, baseLog *logger.Logger) CSVFileRepo {
	return &csvFileRepo{db: db, log: baseLog.With("repo", "CSVFileRepo")}
}

func (r *csvFileRepo) conn(tx *gorm.DB) *gorm.DB {
	if tx == nil {
		return r.db
	}
	return tx
}

func (r *csvFileRepo) Create(ctx context.Context, tx *gorm.DB, file *domain.CSVFile) (*domain.CSVFile, error) {
	if err := r.conn(tx).WithContext(ctx).Create(file).Error; err != nil {
		return nil, err
	}
	return file, nil
}

// GetByID returns nil, nil when the file does not exist.
func (r *csvFileRepo) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*domain.CSVFile, error) {
	var f domain.CSVFile
	err := r.conn(tx).WithContext(ctx).Where("id = ?", id).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// List returns all files, newest upload first.
func (r *csvFileRepo) List(ctx context.Context, tx *gorm.DB) ([]*domain.CSVFile, error) {
	var results []*domain.CSVFile
	if err := r.conn(tx).WithContext(ctx).
		Order("upload_date DESC").
		Order("id DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (r *csvFileRepo) Delete(ctx context.Context, tx *gorm.DB, id uint) (bool, error) {
	res := r.conn(tx).WithContext(ctx).Where("id = ?", id).Delete(&domain.CSVFile{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
