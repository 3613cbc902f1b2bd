// Package backup snapshots the SQLite database with VACUUM INTO and
// optionally ships the snapshot to an S3 bucket. Snapshots are whole-file:
// SQLite is the unit of consistency here, not individual tables.
package backup

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/mfalkner/kinfolk/internal/model"
	"github.com/mfalkner/kinfolk/internal/store"
)

// s3API is the slice of the S3 client the service uses.
type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type Service struct {
	db      *sql.DB
	backups *store.BackupStore
	logger  *slog.Logger
	dir     string
	bucket  string
	s3      s3API
	now     func() time.Time
}

type Option func(*Service)

// WithS3 enables uploads to the named bucket after each snapshot.
func WithS3(client s3API, bucket string) Option {
	return func(s *Service) {
		s.s3 = client
		s.bucket = bucket
	}
}

// NewService creates a backup service writing snapshots under dir.
func NewService(db *sql.DB, backupStore *store.BackupStore, dir string, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		db:      db,
		backups: backupStore,
		logger:  logger.With("component", "backup"),
		dir:     dir,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run takes one snapshot and returns its record. The snapshot file stays on
// disk; when S3 is configured it is uploaded under backups/<filename>.
func (s *Service) Run(ctx context.Context) (*model.Backup, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}

	filename := fmt.Sprintf("kinfolk-%s.db", s.now().UTC().Format("20060102-150405"))
	path := filepath.Join(s.dir, filename)

	// VACUUM INTO writes a consistent copy without blocking readers.
	if _, err := s.db.ExecContext(ctx, `VACUUM INTO ?`, path); err != nil {
		return nil, fmt.Errorf("vacuum into: %w", err)
	}

	size, sum, err := digest(path)
	if err != nil {
		return nil, err
	}

	destination := "local"
	if s.s3 != nil {
		if err := s.upload(ctx, path, filename); err != nil {
			return nil, err
		}
		destination = "s3://" + s.bucket
	}

	rec, err := s.backups.Record(model.Backup{
		Filename:    filename,
		SizeBytes:   size,
		SHA256:      sum,
		Destination: destination,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("snapshot complete", "file", filename, "bytes", size, "destination", destination)
	return rec, nil
}

func (s *Service) upload(ctx context.Context, path, filename string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	key := "backups/" + filename
	_, err = s.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}
	return nil
}

func digest(path string) (int64, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, "", fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return 0, "", fmt.Errorf("hash snapshot: %w", err)
	}
	return size, hex.EncodeToString(h.Sum(nil)), nil
}
