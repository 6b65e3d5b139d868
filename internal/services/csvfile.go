package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	csvrepo "github.com/yungbote/csvshare-backend/internal/data/repos/csvfile"
	"github.com/yungbote/csvshare-backend/internal/domain"
	"github.com/yungbote/csvshare-backend/internal/platform/apierr"
	"github.com/yungbote/csvshare-backend/internal/platform/cache"
	"github.com/yungbote/csvshare-backend/internal/platform/logger"
	"github.com/yungbote/csvshare-backend/internal/platform/storage"
	"github.com/yungbote/csvshare-backend/internal/realtime"
)

const DefaultMaxUploadBytes int64 = 50 << 20

type CSVService interface {
	Upload(ctx context.Context, uploaderID uint, filename string, r io.Reader) (*domain.CSVFile, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context) ([]*domain.CSVFile, error)
	Get(ctx context.Context, id uint) (*domain.CSVFile, error)
	Content(ctx context.Context, id uint) (*cache.CSVContent, error)
	// Open returns the stored bytes. The caller closes the reader.
	Open(ctx context.Context, id uint) (*domain.CSVFile, io.ReadCloser, error)
}

type csvService struct {
	db             *gorm.DB
	log            *logger.Logger
	csvRepo        csvrepo.CSVFileRepo
	store          storage.FileStore
	cache          cache.CSVCache
	notifier       Notifier
	maxUploadBytes int64
}

func NewCSVService(
	db *gorm.DB,
	log *logger.Logger,
	csvRepo csvrepo.CSVFileRepo,
	store storage.FileStore,
	contentCache cache.CSVCache,
	notifier Notifier,
	maxUploadBytes int64,
) CSVService {
	if contentCache == nil {
		contentCache = cache.Noop()
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &csvService{
		db:             db,
		log:            log.With("service", "CSVService"),
		csvRepo:        csvRepo,
		store:          store,
		cache:          contentCache,
		notifier:       notifier,
		maxUploadBytes: maxUploadBytes,
	}
}

var (
	errFileNotFound   = apierr.New(http.StatusNotFound, "file_not_found", errors.New("File not found"))
	errObjectNotFound = apierr.New(http.StatusNotFound, "file_missing_on_disk", errors.New("File not found on disk"))
)

func (cs *csvService) Upload(ctx context.Context, uploaderID uint, filename string, r io.Reader) (*domain.CSVFile, error) {
	filename = filepath.Base(strings.TrimSpace(filename))
	if !strings.HasSuffix(strings.ToLower(filename), ".csv") {
		return nil, apierr.New(http.StatusBadRequest, "invalid_file_type", errors.New("Only CSV files are allowed"))
	}

	raw, err := io.ReadAll(io.LimitReader(r, cs.maxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(raw)) > cs.maxUploadBytes {
		return nil, apierr.New(http.StatusRequestEntityTooLarge, "file_too_large",
			fmt.Errorf("file exceeds %d bytes", cs.maxUploadBytes))
	}

	record := &domain.CSVFile{
		Filename:   filename,
		StorageKey: uuid.New().String() + ".csv",
		Size:       int64(len(raw)),
		UploaderID: uploaderID,
		UploadDate: time.Now().UTC(),
	}
	// Column metadata is informational; unparseable files are still stored.
	if parsed, perr := ParseCSV(filename, bytes.NewReader(raw)); perr == nil {
		if cols, jerr := json.Marshal(parsed.Columns); jerr == nil {
			record.Columns = datatypes.JSON(cols)
		}
		record.RowCount = parsed.RowCount
	} else {
		cs.log.Warn("Uploaded file is not valid CSV", "filename", filename, "error", perr)
	}

	if _, err := cs.store.Put(ctx, record.StorageKey, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := cs.csvRepo.Create(ctx, tx, record)
		return err
	})
	if err != nil {
		if derr := cs.store.Delete(context.WithoutCancel(ctx), record.StorageKey); derr != nil {
			cs.log.Error("Failed to remove orphaned upload", "storage_key", record.StorageKey, "error", derr)
		}
		return nil, fmt.Errorf("Failed to upload file: %w", err)
	}

	cs.log.Info("CSV uploaded",
		"csv_id", record.ID,
		"filename", record.Filename,
		"size", record.Size,
		"uploader_id", uploaderID,
	)
	cs.notifier.Publish(realtime.NewUploadEvent(
		realtime.NewFileSummary(record.ID, record.Filename, record.Size, record.UploadDate),
	))
	return record, nil
}

// Delete removes the record first so the file disappears from listings even if
// the stored object cannot be removed.
func (cs *csvService) Delete(ctx context.Context, id uint) error {
	var record *domain.CSVFile
	err := cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := cs.csvRepo.GetByID(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("load csv file: %w", err)
		}
		if found == nil {
			return errFileNotFound
		}
		deleted, err := cs.csvRepo.Delete(ctx, tx, id)
		if err != nil {
			return fmt.Errorf("delete csv file: %w", err)
		}
		if !deleted {
			return errFileNotFound
		}
		record = found
		return nil
	})
	if err != nil {
		return err
	}

	cleanupCtx := context.WithoutCancel(ctx)
	if err := cs.store.Delete(cleanupCtx, record.StorageKey); err != nil {
		cs.log.Warn("Failed to delete stored csv", "csv_id", id, "storage_key", record.StorageKey, "error", err)
	}
	cs.cache.Invalidate(cleanupCtx, id)

	cs.log.Info("CSV deleted", "csv_id", id, "filename", record.Filename)
	cs.notifier.Publish(realtime.NewDeleteEvent(id))
	return nil
}

func (cs *csvService) List(ctx context.Context) ([]*domain.CSVFile, error) {
	files, err := cs.csvRepo.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list csv files: %w", err)
	}
	return files, nil
}

func (cs *csvService) Get(ctx context.Context, id uint) (*domain.CSVFile, error) {
	record, err := cs.csvRepo.GetByID(ctx, nil, id)
	if err != nil {
		return nil, fmt.Errorf("load csv file: %w", err)
	}
	if record == nil {
		return nil, errFileNotFound
	}
	return record, nil
}

func (cs *csvService) Open(ctx context.Context, id uint) (*domain.CSVFile, io.ReadCloser, error) {
	record, err := cs.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := cs.store.Open(ctx, record.StorageKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return nil, nil, errObjectNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open stored csv: %w", err)
	}
	return record, rc, nil
}

func (cs *csvService) Content(ctx context.Context, id uint) (*cache.CSVContent, error) {
	if hit, ok := cs.cache.Get(ctx, id); ok {
		return hit, nil
	}
	record, rc, err := cs.Open(ctx, id)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	content, err := ParseCSV(record.Filename, rc)
	if err != nil {
		return nil, apierr.New(http.StatusInternalServerError, "csv_read_failed",
			fmt.Errorf("Failed to read CSV file: %w", err))
	}
	cs.cache.Set(ctx, id, content)
	return content, nil
}
