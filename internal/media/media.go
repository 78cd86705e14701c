// Package media uploads recipe images to the family's Drive folder and
// hands back stable public links.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
)

// Store wraps the Drive file API for image uploads.
type Store struct {
	drive          *drive.Service
	rootFolderID   string
	onUnauthorized func()
	log            *zap.Logger

	now func() time.Time
}

// NewStore creates a Store rooted at the app's Drive folder.
func NewStore(driveSvc *drive.Service, rootFolderID string, onUnauthorized func(), log *zap.Logger) *Store {
	return &Store{
		drive:          driveSvc,
		rootFolderID:   rootFolderID,
		onUnauthorized: onUnauthorized,
		log:            log,
		now:            time.Now,
	}
}

// UploadImage stores the file in the app folder, grants public read
// and returns a thumbnail view URL. The public grant is required: the
// UI displays images through Drive's thumbnail endpoint, which serves
// broken images for private files.
func (s *Store) UploadImage(ctx context.Context, name, mimeType string, data io.Reader) (string, error) {
	meta := &drive.File{
		Name:     fmt.Sprintf("recipe_%d_%s", s.now().UnixMilli(), name),
		MimeType: mimeType,
		Parents:  []string{s.rootFolderID},
	}

	file, err := s.drive.Files.Create(meta).
		Media(data, googleapi.ContentType(mimeType)).
		Fields("id").
		Context(ctx).Do()
	if err != nil {
		return "", s.check(fmt.Errorf("failed to upload image: %w", err))
	}

	_, err = s.drive.Permissions.Create(file.Id, &drive.Permission{
		Role: "reader",
		Type: "anyone",
	}).Context(ctx).Do()
	if err != nil {
		return "", s.check(fmt.Errorf("failed to make image public: %w", err))
	}

	s.log.Info("image uploaded", zap.String("file_id", file.Id))
	return fmt.Sprintf("https://drive.google.com/thumbnail?id=%s&sz=w800", file.Id), nil
}

func (s *Store) check(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == 401 && s.onUnauthorized != nil {
		s.onUnauthorized()
	}
	return err
}
