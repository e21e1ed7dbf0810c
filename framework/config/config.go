// Package config описывает конфигурационные записи компонентов.
// Рантайм потребляет уже разобранное отображение как есть; разбор
// файла - обязанность этого пакета, а не ядра.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Component конфигурационная запись одного компонента
type Component struct {
	Type         string                 `yaml:"type"`
	Enabled      *bool                  `yaml:"enabled"`
	Dependencies []string               `yaml:"dependencies"`
	Settings     map[string]interface{} `yaml:",inline"`
}

// IsEnabled возвращает признак включенности. Отсутствие поля enabled
// трактуется как включено.
func (c Component) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// String возвращает строковую настройку или значение по умолчанию
func (c Component) String(key, def string) string {
	if val, ok := c.Settings[key]; ok {
		if s, ok := val.(string); ok {
			return s
		}
	}
	return def
}

// Int возвращает целочисленную настройку или значение по умолчанию
func (c Component) Int(key string, def int) int {
	if val, ok := c.Settings[key]; ok {
		switch v := val.(type) {
		case int:
			return v
		case int64:
			return int(v)
		case float64:
			return int(v)
		}
	}
	return def
}

// Bool возвращает булеву настройку или значение по умолчанию
func (c Component) Bool(key string, def bool) bool {
	if val, ok := c.Settings[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return def
}

// Duration возвращает настройку-длительность ("30s", "5m") или
// значение по умолчанию
func (c Component) Duration(key string, def time.Duration) time.Duration {
	if val, ok := c.Settings[key]; ok {
		switch v := val.(type) {
		case string:
			if d, err := time.ParseDuration(v); err == nil {
				return d
			}
		case int:
			return time.Duration(v) * time.Second
		}
	}
	return def
}

// Config отображение имени компонента на его конфигурационную запись
type Config map[string]Component

// file корневая структура конфигурационного файла
type file struct {
	Components Config `yaml:"components"`
}

// Parse разбирает конфигурацию из YAML
func Parse(data []byte) (Config, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if f.Components == nil {
		f.Components = make(Config)
	}
	return f.Components, nil
}

// Load загружает конфигурацию из файла
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}
