package models

import (
	"path"
	"strconv"
	"strings"
	"time"
)

// FileType classifies a theme file by extension.
type FileType string

const (
	FileTypeLiquid FileType = "liquid"
	FileTypeJSON   FileType = "json"
	FileTypeCSS    FileType = "css"
	FileTypeJS     FileType = "js"
	FileTypeImage  FileType = "image"
	FileTypeFont   FileType = "font"
	FileTypeOther  FileType = "other"
)

// Path conventions inside a theme.
const (
	DirLayout    = "layout/"
	DirTemplates = "templates/"
	DirSections  = "sections/"
	DirSnippets  = "snippets/"
	DirAssets    = "assets/"
	DirConfig    = "config/"

	LayoutPath         = "layout/theme.liquid"
	SettingsSchemaPath = "config/settings_schema.json"
	SettingsDataPath   = "config/settings_data.json"
)

// ClassifyFile returns the file type for a theme path.
func ClassifyFile(p string) FileType {
	switch strings.ToLower(path.Ext(p)) {
	case ".liquid":
		return FileTypeLiquid
	case ".json":
		return FileTypeJSON
	case ".css", ".scss":
		return FileTypeCSS
	case ".js", ".mjs":
		return FileTypeJS
	case ".png", ".jpg", ".jpeg", ".gif", ".svg", ".webp", ".ico", ".avif":
		return FileTypeImage
	case ".woff", ".woff2", ".ttf", ".otf", ".eot":
		return FileTypeFont
	default:
		return FileTypeOther
	}
}

// ThemeFile is one file of a store theme. Content is only populated for the config
// files; templates are read on demand through the loader.
type ThemeFile struct {
	Path         string    `json:"path"`
	Content      string    `json:"content,omitempty"`
	Type         FileType  `json:"type"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
}

// ThemeInfo is the theme_info block of the settings schema.
type ThemeInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Author  string `json:"author,omitempty"`
}

// Settings are theme setting values keyed by setting id.
type Settings map[string]any

const (
	SettingSearchProductsLimit    = "search_products_limit"
	SettingSearchCollectionsLimit = "search_collections_limit"
)

// DefaultSettings is used when a theme ships no usable settings schema.
func DefaultSettings() Settings {
	return Settings{
		SettingSearchProductsLimit:    20,
		SettingSearchCollectionsLimit: 10,
		"products_per_page":           12,
		"currency_code_enabled":       false,
	}
}

// Int reads a numeric setting, accepting JSON numbers and numeric strings.
func (s Settings) Int(key string, def int) int {
	switch v := s[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return def
		}
		return n
	default:
		return def
	}
}

// Liquid converts the settings to template bindings.
func (s Settings) Liquid() map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ProcessedTheme is a store theme grouped by path convention.
type ProcessedTheme struct {
	StoreID   string      `json:"storeId"`
	Info      ThemeInfo   `json:"info"`
	Files     []ThemeFile `json:"files"`
	Assets    []string    `json:"assets"`
	Sections  []string    `json:"sections"`
	Templates []string    `json:"templates"`
	Snippets  []string    `json:"snippets"`
	Layouts   []string    `json:"layouts"`
	Settings  Settings    `json:"settings"`
	TotalSize int64       `json:"totalSize"`
}

// Has reports whether the theme contains a file at p.
func (t *ProcessedTheme) Has(p string) bool {
	for _, f := range t.Files {
		if f.Path == p {
			return true
		}
	}
	return false
}

// SectionConfig is one entry of a JSON page template's sections map.
type SectionConfig struct {
	Type     string           `json:"type"`
	Settings map[string]any   `json:"settings,omitempty"`
	Blocks   []map[string]any `json:"blocks,omitempty"`
	Disabled bool             `json:"disabled,omitempty"`
}

// PageTemplate is a resolved page template: either a JSON section list or a Liquid file.
type PageTemplate struct {
	Type     string                   `json:"type"`
	Path     string                   `json:"path"`
	Layout   string                   `json:"layout,omitempty"`
	Sections map[string]SectionConfig `json:"sections,omitempty"`
	Order    []string                 `json:"order,omitempty"`
	Source   string                   `json:"source,omitempty"`
}

// IsJSON reports whether the page is assembled from sections.
func (p *PageTemplate) IsJSON() bool {
	return strings.HasSuffix(p.Path, ".json")
}

// OrderedSections returns the enabled sections in render order. Ids missing from the
// sections map are skipped.
func (p *PageTemplate) OrderedSections() []OrderedSection {
	out := make([]OrderedSection, 0, len(p.Order))
	for _, id := range p.Order {
		cfg, ok := p.Sections[id]
		if !ok || cfg.Disabled || cfg.Type == "" {
			continue
		}
		out = append(out, OrderedSection{ID: id, Config: cfg})
	}
	return out
}

// OrderedSection pairs a section id with its configuration.
type OrderedSection struct {
	ID     string
	Config SectionConfig
}
