// Пакет filestore — хранение вложений анкет на локальном диске.
// Запись через temp файл → fsync → atomic rename, чтение, удаление.
// Пути вложений относительные: cvs/<uuid><ext>.
package filestore

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// CVDir — подкаталог для резюме кандидатов.
const CVDir = "cvs"

var (
	// ErrFileNotFound — файл отсутствует на диске.
	ErrFileNotFound = errors.New("файл не найден")
	// ErrInvalidPath — путь выходит за пределы корня хранилища.
	ErrInvalidPath = errors.New("недопустимый путь файла")
)

// FileStore — управление файлами вложений на диске.
type FileStore struct {
	// root — корневая директория хранилища (IP_STORAGE_DIR)
	root string
}

// SaveResult — результат сохранения файла.
type SaveResult struct {
	// Path — относительный путь в хранилище (значение cv_path)
	Path string
	// Size — размер записанных данных в байтах
	Size int64
}

// New создаёт FileStore и при необходимости каталог cvs.
func New(root string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Join(root, CVDir), 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию хранилища %s: %w", root, err)
	}
	return &FileStore{root: root}, nil
}

// Save записывает данные из reader в новый файл cvs/<uuid><ext>.
// ext — расширение с точкой (".pdf"), определяется вызывающим по содержимому.
// При любой ошибке временный файл удаляется.
func (s *FileStore) Save(reader io.Reader, ext string) (*SaveResult, error) {
	rel := filepath.ToSlash(filepath.Join(CVDir, uuid.NewString()+ext))
	fullPath := filepath.Join(s.root, filepath.FromSlash(rel))
	tmpPath := fullPath + ".tmp"

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o640)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	size, err := io.Copy(f, reader)
	if err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return &SaveResult{Path: rel, Size: size}, nil
}

// Open открывает файл для чтения. Вызывающий код обязан закрыть файл.
// Отсутствующий файл — ErrFileNotFound.
func (s *FileStore) Open(path string) (*os.File, fs.FileInfo, error) {
	fullPath, err := s.resolve(path)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return nil, nil, fmt.Errorf("ошибка открытия файла %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("ошибка получения информации о файле %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}

	return f, info, nil
}

// Delete удаляет файл. Отсутствующий файл — не ошибка.
func (s *FileStore) Delete(path string) error {
	fullPath, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.Remove(fullPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("ошибка удаления файла %s: %w", path, err)
	}
	return nil
}

// Exists проверяет существование файла.
func (s *FileStore) Exists(path string) bool {
	fullPath, err := s.resolve(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(fullPath)
	return err == nil && !info.IsDir()
}

// CheckReady проверяет, что каталог cvs доступен на запись.
func (s *FileStore) CheckReady() (status string, message string) {
	probe, err := os.CreateTemp(filepath.Join(s.root, CVDir), ".ready-*")
	if err != nil {
		return "fail", fmt.Sprintf("каталог вложений недоступен на запись: %v", err)
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return "ok", "каталог вложений доступен"
}

// Root возвращает корневую директорию хранилища.
func (s *FileStore) Root() string {
	return s.root
}

// resolve переводит относительный путь в абсолютный внутри корня.
func (s *FileStore) resolve(path string) (string, error) {
	if path == "" || filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return filepath.Join(s.root, clean), nil
}
