package service

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/ffcpay/statement-query/internal/objectstore"
	"github.com/ffcpay/statement-query/internal/scheme"
	"github.com/ffcpay/statement-query/internal/statementapi"
)

// --- Mock хранилища ---

// mockStore — мок objectstore.Store с подсчётом вызовов.
type mockStore struct {
	mu         sync.Mutex
	listCalls  int
	propsCalls int
	openCalls  int

	listFn  func(ctx context.Context, prefix string, pageSize int, token string) (*objectstore.Page, error)
	propsFn func(ctx context.Context, name string) (*objectstore.ObjectInfo, error)
	openFn  func(ctx context.Context, name string) (io.ReadCloser, *objectstore.ObjectInfo, error)
}

func (m *mockStore) List(ctx context.Context, prefix string, pageSize int, token string) (*objectstore.Page, error) {
	m.mu.Lock()
	m.listCalls++
	m.mu.Unlock()
	if m.listFn != nil {
		return m.listFn(ctx, prefix, pageSize, token)
	}
	return &objectstore.Page{}, nil
}

func (m *mockStore) Properties(ctx context.Context, name string) (*objectstore.ObjectInfo, error) {
	m.mu.Lock()
	m.propsCalls++
	m.mu.Unlock()
	if m.propsFn != nil {
		return m.propsFn(ctx, name)
	}
	return nil, objectstore.ErrNotFound
}

func (m *mockStore) Open(ctx context.Context, name string) (io.ReadCloser, *objectstore.ObjectInfo, error) {
	m.mu.Lock()
	m.openCalls++
	m.mu.Unlock()
	if m.openFn != nil {
		return m.openFn(ctx, name)
	}
	return nil, nil, objectstore.ErrNotFound
}

func (m *mockStore) Ping(_ context.Context) error { return nil }

func (m *mockStore) counts() (list, props, open int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls, m.propsCalls, m.openCalls
}

// --- Mock API выписок ---

// mockLookup — мок StatementLookup с подсчётом вызовов.
type mockLookup struct {
	mu          sync.Mutex
	lookupCalls int
	searchCalls int

	lookupFn func(ctx context.Context, name string) (*statementapi.Row, error)
	searchFn func(ctx context.Context, q statementapi.Query) (*statementapi.Page, error)
}

func (m *mockLookup) LookupByFilename(ctx context.Context, name string) (*statementapi.Row, error) {
	m.mu.Lock()
	m.lookupCalls++
	m.mu.Unlock()
	if m.lookupFn != nil {
		return m.lookupFn(ctx, name)
	}
	return nil, nil
}

func (m *mockLookup) Search(ctx context.Context, q statementapi.Query) (*statementapi.Page, error) {
	m.mu.Lock()
	m.searchCalls++
	m.mu.Unlock()
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &statementapi.Page{}, nil
}

func (m *mockLookup) counts() (lookup, search int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookupCalls, m.searchCalls
}

// testSchemes возвращает справочник схем со встроенными значениями (1 → SFI).
func testSchemes() *scheme.Registry {
	return scheme.NewRegistry(nil, slog.Default())
}
