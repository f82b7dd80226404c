// filestore.go — хранилище выписок в локальной директории.
// Ключ объекта — путь относительно корня с разделителем "/".
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// FileStore — объекты как файлы в директории на диске.
type FileStore struct {
	// dataDir — корневая директория (SQ_STORAGE_DIR)
	dataDir string
}

// NewFileStore создаёт FileStore. Создаёт директорию, если она не существует.
func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать директорию хранилища %s: %w", dataDir, err)
	}
	return &FileStore{dataDir: dataDir}, nil
}

// DataDir возвращает путь к корневой директории.
func (s *FileStore) DataDir() string {
	return s.dataDir
}

// List возвращает объекты с ключами, начинающимися с prefix, в лексикографическом порядке.
// Токен — ключ последнего объекта предыдущей страницы.
func (s *FileStore) List(ctx context.Context, prefix string, pageSize int, token string) (*Page, error) {
	if pageSize <= 0 {
		pageSize = 1
	}

	// Обход только поддиректории префикса: outbound/FFC_... → outbound
	root := s.dataDir
	if dir := path.Dir(prefix); dir != "." {
		root = filepath.Join(s.dataDir, filepath.FromSlash(dir))
	}

	var keys []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if errors.Is(walkErr, fs.ErrNotExist) {
				return nil
			}
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.dataDir, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) && key > token {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("листинг %q: %w", prefix, err)
	}

	sort.Strings(keys)

	page := &Page{}
	if len(keys) > pageSize {
		keys = keys[:pageSize]
		page.NextToken = keys[len(keys)-1]
	}

	page.Objects = make([]ObjectInfo, 0, len(keys))
	for _, key := range keys {
		info, err := s.stat(key)
		if err != nil {
			// Файл удалён между обходом и stat
			if errors.Is(err, ErrNotFound) {
				continue
			}
			return nil, err
		}
		page.Objects = append(page.Objects, *info)
	}

	return page, nil
}

// Properties возвращает свойства файла.
func (s *FileStore) Properties(_ context.Context, name string) (*ObjectInfo, error) {
	return s.stat(name)
}

// Open открывает файл для чтения.
func (s *FileStore) Open(_ context.Context, name string) (io.ReadCloser, *ObjectInfo, error) {
	fullPath, err := s.fullPath(name)
	if err != nil {
		return nil, nil, err
	}

	f, err := os.Open(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, nil, fmt.Errorf("ошибка открытия файла %s: %w", name, err)
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("ошибка получения информации о файле %s: %w", name, err)
	}
	if st.IsDir() {
		f.Close()
		return nil, nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return f, fileInfo(name, st), nil
}

// Ping проверяет, что корневая директория доступна.
func (s *FileStore) Ping(_ context.Context) error {
	st, err := os.Stat(s.dataDir)
	if err != nil {
		return fmt.Errorf("директория хранилища недоступна: %w", err)
	}
	if !st.IsDir() {
		return fmt.Errorf("%s не является директорией", s.dataDir)
	}
	return nil
}

func (s *FileStore) stat(name string) (*ObjectInfo, error) {
	fullPath, err := s.fullPath(name)
	if err != nil {
		return nil, err
	}

	st, err := os.Stat(fullPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("ошибка получения информации о файле %s: %w", name, err)
	}
	if st.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return fileInfo(name, st), nil
}

// fullPath преобразует ключ в путь на диске. Ключи за пределами корня отклоняются.
func (s *FileStore) fullPath(name string) (string, error) {
	clean := path.Clean("/" + name)
	if clean == "/" || clean != "/"+name {
		return "", fmt.Errorf("%w: недопустимый ключ %q", ErrNotFound, name)
	}
	return filepath.Join(s.dataDir, filepath.FromSlash(clean[1:])), nil
}

func fileInfo(name string, st os.FileInfo) *ObjectInfo {
	info := &ObjectInfo{
		Name:         name,
		Size:         st.Size(),
		LastModified: st.ModTime().UTC(),
	}
	if strings.HasSuffix(name, ".pdf") {
		info.ContentType = "application/pdf"
	}
	return info
}
