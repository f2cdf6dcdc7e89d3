package service

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/storage"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// MaxUploadBytes is the size ceiling for a single attachment.
const MaxUploadBytes int64 = 16 * 1024 * 1024

const (
	defaultContentType = "application/octet-stream"
	// Widths of ticket_files.original_name and ticket_files.content_type.
	maxOriginalName = 255
	maxContentType  = 100
)

var allowedExtensions = map[string]struct{}{
	"txt": {}, "pdf": {}, "png": {}, "jpg": {}, "jpeg": {}, "gif": {},
	"doc": {}, "docx": {}, "xls": {}, "xlsx": {}, "zip": {}, "rar": {},
}

// FileUpload is an attachment received from a client.
type FileUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// AttachmentService validates, stores and serves ticket attachments.
type AttachmentService struct {
	store    repository.Store
	blobs    storage.BlobStore
	logger   *zap.Logger
	now      Clock
	maxBytes int64
	events   publisher
}

// AttachmentDependencies bundles collaborators for the attachment service.
type AttachmentDependencies struct {
	Store      repository.Store
	Blobs      storage.BlobStore
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
	Clock      Clock
	MaxBytes   int64
}

// NewAttachmentService creates the service.
func NewAttachmentService(deps AttachmentDependencies) *AttachmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	maxBytes := deps.MaxBytes
	if maxBytes <= 0 || maxBytes > MaxUploadBytes {
		maxBytes = MaxUploadBytes
	}
	now := deps.Clock.orDefault()
	return &AttachmentService{
		store:    deps.Store,
		blobs:    deps.Blobs,
		logger:   logger,
		now:      now,
		maxBytes: maxBytes,
		events:   publisher{dispatcher: deps.Dispatcher, logger: logger, now: now},
	}
}

// Validate checks the extension allow-list and the declared size. It returns
// the lower-cased extension.
func (s *AttachmentService) Validate(file FileUpload) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(file.Filename), "."))
	if ext == "" {
		return "", apperrors.NewValidationError("file has no extension", map[string]any{
			"rule": "extension_missing", "filename": file.Filename,
		})
	}
	if _, ok := allowedExtensions[ext]; !ok {
		return "", apperrors.NewValidationError("file type not allowed", map[string]any{
			"rule": "extension_not_allowed", "filename": file.Filename, "extension": ext,
		})
	}
	if file.Size > s.maxBytes {
		return "", apperrors.NewValidationError("file too large", map[string]any{
			"rule": "size_exceeded", "filename": file.Filename, "max_bytes": s.maxBytes,
		})
	}
	return ext, nil
}

func (s *AttachmentService) validateAll(files []FileUpload) error {
	for _, file := range files {
		if _, err := s.Validate(file); err != nil {
			return err
		}
	}
	return nil
}

// storeTx writes the bytes and the metadata row inside the caller's
// transaction. Names of written blobs are appended to written so the caller
// can remove them if the transaction fails.
func (s *AttachmentService) storeTx(ctx context.Context, repos repository.Repositories, ticketID, uploaderID int64, file FileUpload, written *[]string) (*domain.TicketFile, error) {
	ext, err := s.Validate(file)
	if err != nil {
		return nil, err
	}
	if file.Open == nil {
		return nil, apperrors.NewValidationError("file content missing", map[string]any{"filename": file.Filename})
	}

	rc, err := file.Open()
	if err != nil {
		return nil, apperrors.NewStorageFailure("could not read uploaded file", err)
	}
	defer rc.Close()

	name := uuid.NewString() + "." + ext
	size, err := s.blobs.Save(ctx, name, rc, s.maxBytes)
	if err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return nil, apperrors.NewValidationError("file too large", map[string]any{
				"rule": "size_exceeded", "filename": file.Filename, "max_bytes": s.maxBytes,
			})
		}
		return nil, apperrors.NewStorageFailure("could not store file", err)
	}
	*written = append(*written, name)

	record := &domain.TicketFile{
		TicketID:     ticketID,
		StoredName:   name,
		OriginalName: originalName(file.Filename, ext),
		StoragePath:  s.blobs.Path(name),
		SizeBytes:    size,
		ContentType:  contentTypeOf(file),
		UploadedBy:   uploaderID,
		UploadedAt:   s.now(),
	}

	if err := repos.Files.Create(ctx, record); err != nil {
		return nil, repoError(err, "file", 0)
	}
	return record, nil
}

// originalName sanitizes the client's filename and shortens the stem so the
// result, extension included, fits maxOriginalName characters.
func originalName(filename, ext string) string {
	name := SanitizeFilename(filename)
	if name == "" || !strings.Contains(name, ".") {
		return "file." + ext
	}
	if len(name) <= maxOriginalName {
		return name
	}
	suffix := name[strings.LastIndex(name, "."):]
	stem := strings.TrimRight(name[:maxOriginalName-len(suffix)], "._")
	if stem == "" {
		stem = "file"
	}
	return stem + suffix
}

// contentTypeOf falls back to application/octet-stream for a missing or
// oversized client content type.
func contentTypeOf(file FileUpload) string {
	contentType := strings.TrimSpace(file.ContentType)
	if contentType == "" || len(contentType) > maxContentType {
		return defaultContentType
	}
	return contentType
}

// discard removes blobs left behind by a failed transaction or a deleted record.
func (s *AttachmentService) discard(names []string) {
	for _, name := range names {
		if err := s.blobs.Remove(name); err != nil {
			s.logger.Warn("failed to remove stored file", zap.String("stored_name", name), zap.Error(err))
		}
	}
}

// Upload attaches files to an existing ticket.
func (s *AttachmentService) Upload(ctx context.Context, actor *domain.User, ticketID int64, files []FileUpload) ([]domain.TicketFile, error) {
	perms, err := permissionsFor(actor)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, apperrors.NewValidationError("no files provided", nil)
	}
	if err := s.validateAll(files); err != nil {
		return nil, err
	}

	var (
		written []string
		stored  []domain.TicketFile
	)
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err := loadVisibleTicket(ctx, repos.Tickets, perms, ticketID, true)
		if err != nil {
			return err
		}
		for _, file := range files {
			record, err := s.storeTx(ctx, repos, ticket.ID, actor.ID, file, &written)
			if err != nil {
				return err
			}
			stored = append(stored, *record)
		}
		ticket.UpdatedAt = s.now()
		return repoError(repos.Tickets.Update(ctx, ticket), "ticket", ticket.ID)
	})
	if err != nil {
		s.discard(written)
		return nil, apperrors.MapError(err)
	}

	ids := make([]int64, 0, len(stored))
	for _, f := range stored {
		ids = append(ids, f.ID)
	}
	s.events.publish(ctx, actor, events.EventTicketFilesUploaded, ticketID, events.TicketFilesUploadedPayload{FileIDs: ids})
	return stored, nil
}

// Download returns the file metadata and an open reader for its bytes. The
// caller must close the reader.
func (s *AttachmentService) Download(ctx context.Context, actor *domain.User, ticketID, fileID int64) (*domain.TicketFile, io.ReadCloser, error) {
	perms, err := permissionsFor(actor)
	if err != nil {
		return nil, nil, err
	}
	repos := s.store.Repositories()

	ticket, err := repos.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, nil, repoError(err, "ticket", ticketID)
	}
	file, err := repos.Files.GetByID(ctx, fileID)
	if err != nil {
		return nil, nil, repoError(err, "file", fileID)
	}
	if file.TicketID != ticket.ID {
		return nil, nil, apperrors.NewValidationError("file does not belong to this ticket", map[string]any{
			"ticket_id": ticketID, "file_id": fileID,
		})
	}
	if !perms.CanView(ticket) {
		return nil, nil, apperrors.NewPermissionDenied("you do not have access to this ticket")
	}

	rc, err := s.blobs.Open(file.StoredName)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			s.logger.Warn("file metadata without stored bytes", zap.Int64("file_id", file.ID), zap.String("stored_name", file.StoredName))
			return nil, nil, apperrors.NewNotFound("file content", map[string]any{"file_id": fileID})
		}
		return nil, nil, apperrors.NewStorageFailure("could not read file", err)
	}
	return file, rc, nil
}

// Delete removes one attachment. Staff and the uploader may delete; the stored
// bytes are removed after the metadata commit and a failure there is only logged.
func (s *AttachmentService) Delete(ctx context.Context, actor *domain.User, ticketID, fileID int64) error {
	perms, err := permissionsFor(actor)
	if err != nil {
		return err
	}

	var removed *domain.TicketFile
	err = s.store.WithinTx(ctx, func(repos repository.Repositories) error {
		ticket, err := repos.Tickets.GetForUpdate(ctx, ticketID)
		if err != nil {
			return repoError(err, "ticket", ticketID)
		}
		file, err := repos.Files.GetByID(ctx, fileID)
		if err != nil {
			return repoError(err, "file", fileID)
		}
		if file.TicketID != ticket.ID {
			return apperrors.NewValidationError("file does not belong to this ticket", map[string]any{
				"ticket_id": ticketID, "file_id": fileID,
			})
		}
		if !perms.CanView(ticket) {
			return apperrors.NewPermissionDenied("you do not have access to this ticket")
		}
		if !perms.IsTechnician && file.UploadedBy != perms.UserID {
			return apperrors.NewPermissionDenied("only staff or the uploader may delete this file")
		}
		if err := repos.Files.Delete(ctx, file.ID); err != nil {
			return repoError(err, "file", file.ID)
		}
		ticket.UpdatedAt = s.now()
		if err := repos.Tickets.Update(ctx, ticket); err != nil {
			return repoError(err, "ticket", ticket.ID)
		}
		removed = file
		return nil
	})
	if err != nil {
		return apperrors.MapError(err)
	}

	s.discard([]string{removed.StoredName})
	return nil
}
