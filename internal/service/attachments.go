// attachments.go — работа с вложениями анкет поверх файлового хранилища.
// Ошибки хранилища переводятся в ErrStorageUnavailable, отсутствующий файл — в ErrNotFound.
package service

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/bigkaa/intake-portal/internal/storage/filestore"
)

// AttachmentStore — файловое хранилище вложений.
// Реализуется *filestore.FileStore.
type AttachmentStore interface {
	Save(r io.Reader, ext string) (*filestore.SaveResult, error)
	Open(path string) (*os.File, fs.FileInfo, error)
	Delete(path string) error
}

// Attachment — открытое вложение для скачивания. Content закрывает вызывающий.
type Attachment struct {
	Content     io.ReadSeekCloser
	Name        string
	ContentType string
	Size        int64
	ModTime     time.Time
}

// attachments — обёртка над AttachmentStore с единым маппингом ошибок.
type attachments struct {
	store  AttachmentStore
	logger *slog.Logger
}

// save записывает файл и возвращает путь в хранилище.
func (a *attachments) save(f *sniffedFile) (string, error) {
	res, err := a.store.Save(bytes.NewReader(f.data), f.ext)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorageUnavailable, err) //nolint:errorlint // намеренный двойной wrap
	}
	return res.Path, nil
}

// remove удаляет файл. Отсутствующий файл — не ошибка.
func (a *attachments) remove(path string) error {
	if err := a.store.Delete(path); err != nil {
		return fmt.Errorf("%w: %w", ErrStorageUnavailable, err) //nolint:errorlint // намеренный двойной wrap
	}
	return nil
}

// discard удаляет файл, который не удалось связать с записью.
// Ошибка только логируется: вызывающий уже возвращает исходную ошибку.
func (a *attachments) discard(path string) {
	if err := a.store.Delete(path); err != nil {
		a.logger.Warn("Не удалось удалить осиротевшее вложение",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

// open открывает вложение.
func (a *attachments) open(path string) (*os.File, fs.FileInfo, error) {
	f, info, err := a.store.Open(path)
	if err != nil {
		if errors.Is(err, filestore.ErrFileNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("%w: %w", ErrStorageUnavailable, err) //nolint:errorlint // намеренный двойной wrap
	}
	return f, info, nil
}
