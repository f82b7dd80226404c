// Пакет objectstore — объектное хранилище выписок.
// Операции: постраничный листинг по префиксу, свойства объекта, чтение объекта.
// Реализации: S3-совместимый bucket (S3Store) и локальная директория (FileStore).
package objectstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound — объект отсутствует в хранилище.
var ErrNotFound = errors.New("объект не найден в хранилище")

// ObjectInfo — свойства объекта хранилища.
type ObjectInfo struct {
	// Name — полный путь объекта (ключ), например outbound/FFC_....pdf
	Name string
	// Size — размер в байтах
	Size int64
	// LastModified — время последнего изменения
	LastModified time.Time
	// ContentType — MIME-тип (если известен хранилищу)
	ContentType string
}

// Page — страница листинга.
type Page struct {
	Objects []ObjectInfo
	// NextToken — ключ последнего объекта страницы, если страницы не кончились
	// (пустая строка — страниц больше нет)
	NextToken string
}

// Store — возможности хранилища, используемые поиском и скачиванием.
type Store interface {
	// List возвращает до pageSize объектов с ключами, начинающимися с prefix,
	// в лексикографическом порядке строго после ключа token (пустая строка — с начала).
	// Любой ключ годится как token: листинг можно продолжить с середины страницы.
	List(ctx context.Context, prefix string, pageSize int, token string) (*Page, error)
	// Properties возвращает свойства объекта или ErrNotFound.
	Properties(ctx context.Context, name string) (*ObjectInfo, error)
	// Open открывает объект на чтение. Вызывающий код обязан закрыть ReadCloser.
	Open(ctx context.Context, name string) (io.ReadCloser, *ObjectInfo, error)
	// Ping проверяет доступность хранилища (для readiness).
	Ping(ctx context.Context) error
}
