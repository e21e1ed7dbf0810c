// Package backup предоставляет архивирование и восстановление состояния
// компонентов в tar.gz-снимках.
package backup

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/akriventsev/agentapi/framework/core"
)

const (
	archivePrefix = "agentapi_backup_"
	archiveSuffix = ".tar.gz"
	metadataFile  = "metadata.json"

	timestampLayout = "20060102_150405.000000000"
)

// metadata описание архива
type metadata struct {
	CreatedAt  time.Time `json:"created_at"`
	Version    string    `json:"version"`
	Components []string  `json:"components"`
}

// Manager создает и восстанавливает архивы состояния. Каждый источник
// выгружается в отдельную запись архива под своим именем.
type Manager struct {
	dir       string
	retention int

	mu      sync.Mutex
	sources map[string]core.Snapshotter
	order   []string
}

// NewManager создает менеджер архивов в каталоге dir. retention
// ограничивает число хранимых архивов; ноль отключает очистку.
func NewManager(dir string, retention int) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create backup directory %s: %w", dir, err)
	}
	return &Manager{
		dir:       dir,
		retention: retention,
		sources:   make(map[string]core.Snapshotter),
	}, nil
}

// AddSource добавляет источник состояния под именем name
func (m *Manager) AddSource(name string, source core.Snapshotter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sources[name]; exists {
		return core.NewErrorf(core.ErrAlreadyExists, "backup source %s already registered", name)
	}
	m.sources[name] = source
	m.order = append(m.order, name)
	return nil
}

// Create выгружает все источники в новый tar.gz-архив и возвращает имя
// архива. После создания удаляются архивы сверх retention.
func (m *Manager) Create(ctx context.Context) (string, error) {
	m.mu.Lock()
	sources := make(map[string]core.Snapshotter, len(m.sources))
	order := append([]string(nil), m.order...)
	for name, source := range m.sources {
		sources[name] = source
	}
	m.mu.Unlock()

	now := time.Now()
	name := archivePrefix + now.Format(timestampLayout) + archiveSuffix
	path := filepath.Join(m.dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create archive %s: %w", path, err)
	}
	defer file.Close()

	gz := gzip.NewWriter(file)
	tw := tar.NewWriter(gz)

	meta, err := json.Marshal(metadata{
		CreatedAt:  now,
		Version:    "1.0.0",
		Components: order,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	if err := writeEntry(tw, metadataFile, meta, now); err != nil {
		return "", err
	}

	for _, sourceName := range order {
		data, err := sources[sourceName].Snapshot(ctx)
		if err != nil {
			_ = os.Remove(path)
			return "", fmt.Errorf("failed to snapshot %s: %w", sourceName, err)
		}
		if err := writeEntry(tw, sourceName+".json", data, now); err != nil {
			_ = os.Remove(path)
			return "", err
		}
	}

	if err := tw.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}
	if err := gz.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}

	if err := m.cleanup(); err != nil {
		return "", err
	}
	return name, nil
}

func writeEntry(tw *tar.Writer, name string, data []byte, modTime time.Time) error {
	header := &tar.Header{
		Name:    name,
		Mode:    0o644,
		Size:    int64(len(data)),
		ModTime: modTime,
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write archive entry %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to write archive entry %s: %w", name, err)
	}
	return nil
}

// List возвращает имена архивов от новых к старым
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if !entry.IsDir() && strings.HasPrefix(name, archivePrefix) && strings.HasSuffix(name, archiveSuffix) {
			names = append(names, name)
		}
	}
	// Имена несут отметку времени, лексикографический порядок совпадает
	// с хронологическим
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Restore восстанавливает источники из архива name. Записи архива без
// зарегистрированного источника пропускаются.
func (m *Manager) Restore(ctx context.Context, name string) error {
	path := filepath.Join(m.dir, filepath.Base(name))
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return core.NewErrorf(core.ErrComponentNotFound, "backup %s not found", name)
		}
		return fmt.Errorf("failed to open archive %s: %w", name, err)
	}
	defer file.Close()

	gz, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("failed to read archive %s: %w", name, err)
	}
	defer gz.Close()

	m.mu.Lock()
	sources := make(map[string]core.Snapshotter, len(m.sources))
	for sourceName, source := range m.sources {
		sources[sourceName] = source
	}
	m.mu.Unlock()

	tr := tar.NewReader(gz)
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read archive %s: %w", name, err)
		}

		entryName := strings.TrimSuffix(header.Name, ".json")
		source, ok := sources[entryName]
		if !ok {
			continue
		}

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tr); err != nil {
			return fmt.Errorf("failed to read archive entry %s: %w", header.Name, err)
		}
		if err := source.Restore(ctx, buf.Bytes()); err != nil {
			return fmt.Errorf("failed to restore %s: %w", entryName, err)
		}
	}
	return nil
}

// cleanup удаляет архивы сверх retention, начиная с самых старых
func (m *Manager) cleanup() error {
	if m.retention <= 0 {
		return nil
	}

	names, err := m.List()
	if err != nil {
		return err
	}
	for _, name := range names[min(m.retention, len(names)):] {
		if err := os.Remove(filepath.Join(m.dir, name)); err != nil {
			return fmt.Errorf("failed to remove old backup %s: %w", name, err)
		}
	}
	return nil
}
