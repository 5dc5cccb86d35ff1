// Package theme loads store themes from object storage, classifies their files and
// compiles templates, caching each file under its own key.
package theme

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/osteele/liquid"
	"golang.org/x/sync/singleflight"

	"storefront/internal/cache"
	"storefront/internal/theme/models"
	"storefront/internal/theme/ports"
	dErrors "storefront/pkg/domain-errors"
	"storefront/pkg/platform/sentinel"
)

// Compiler parses template source. The engine adapter implements it.
type Compiler interface {
	Compile(path string, source []byte) (*liquid.Template, error)
}

// Section is a compiled section with the setting defaults from its schema block.
type Section struct {
	Name     string
	Path     string
	Template *liquid.Template
	Defaults map[string]any
}

var errNotSerializable = errors.New("compiled templates are process local")

// compiledEntry is the cache value for a compiled template. It refuses JSON encoding
// so serializing cache backends skip it.
type compiledEntry struct {
	tpl      *liquid.Template
	defaults map[string]any
}

func (*compiledEntry) MarshalJSON() ([]byte, error) {
	return nil, errNotSerializable
}

// Loader reads theme files through the cache.
type Loader struct {
	storage  ports.ObjectStorage
	compiler Compiler
	cache    cache.Store
	ttls     cache.TTLs
	group    singleflight.Group
	logger   *slog.Logger
}

type Option func(*Loader)

func WithLogger(logger *slog.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

func WithTTLs(ttls cache.TTLs) Option {
	return func(l *Loader) {
		l.ttls = ttls
	}
}

func New(storage ports.ObjectStorage, compiler Compiler, c cache.Store, opts ...Option) *Loader {
	l := &Loader{
		storage:  storage,
		compiler: compiler,
		cache:    c,
		ttls:     cache.DefaultTTLs(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ResolvePath maps a template name to a theme path. Names with a directory keep it
// and default to .liquid; bare names are sections.
func ResolvePath(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if strings.Contains(name, "/") {
		switch path.Ext(name) {
		case ".liquid", ".json":
			return name
		}
		return name + ".liquid"
	}
	return SectionPath(name)
}

func SectionPath(name string) string {
	return models.DirSections + strings.TrimSuffix(name, ".liquid") + ".liquid"
}

func SnippetPath(name string) string {
	return models.DirSnippets + strings.TrimSuffix(name, ".liquid") + ".liquid"
}

// LoadTheme lists and classifies the store's theme and parses its settings.
func (l *Loader) LoadTheme(ctx context.Context, storeID string) (*models.ProcessedTheme, error) {
	key := cache.ProcessedThemeKey(storeID)
	if t, ok := cache.Get[*models.ProcessedTheme](ctx, l.cache, key); ok {
		return t, nil
	}
	v, err, _ := l.group.Do("theme:"+storeID, func() (any, error) {
		t, err := l.process(ctx, storeID)
		if err != nil {
			return nil, err
		}
		l.cache.Set(ctx, key, t, l.ttls.Template)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*models.ProcessedTheme), nil
}

func (l *Loader) process(ctx context.Context, storeID string) (*models.ProcessedTheme, error) {
	files, err := l.storage.ListFiles(ctx, storeID)
	if err != nil {
		return nil, storageError(err, "theme for store "+storeID)
	}
	if len(files) == 0 {
		return nil, dErrors.New(dErrors.CodeTemplateNotFound, "theme for store "+storeID+" not found")
	}
	t := &models.ProcessedTheme{StoreID: storeID, Files: make([]models.ThemeFile, 0, len(files))}
	for _, fi := range files {
		f := models.ThemeFile{
			Path:         fi.Path,
			Type:         models.ClassifyFile(fi.Path),
			Size:         fi.Size,
			LastModified: fi.LastModified,
		}
		t.TotalSize += fi.Size
		switch {
		case strings.HasPrefix(f.Path, models.DirLayout):
			t.Layouts = append(t.Layouts, f.Path)
		case strings.HasPrefix(f.Path, models.DirTemplates):
			t.Templates = append(t.Templates, f.Path)
		case strings.HasPrefix(f.Path, models.DirSections):
			t.Sections = append(t.Sections, f.Path)
		case strings.HasPrefix(f.Path, models.DirSnippets):
			t.Snippets = append(t.Snippets, f.Path)
		case strings.HasPrefix(f.Path, models.DirAssets), f.Type == models.FileTypeImage, f.Type == models.FileTypeFont:
			t.Assets = append(t.Assets, f.Path)
		}
		t.Files = append(t.Files, f)
	}
	sort.Slice(t.Files, func(i, j int) bool { return t.Files[i].Path < t.Files[j].Path })

	t.Info, t.Settings = l.settings(ctx, storeID, t)
	return t, nil
}

// settings parses the settings schema, overlays settings_data values and falls back
// to the built-in defaults when the schema is missing or invalid.
func (l *Loader) settings(ctx context.Context, storeID string, t *models.ProcessedTheme) (models.ThemeInfo, models.Settings) {
	info := models.ThemeInfo{Name: "Untitled Theme", Version: "1.0.0"}
	settings := models.DefaultSettings()
	if !t.Has(models.SettingsSchemaPath) {
		l.logger.WarnContext(ctx, "theme has no settings schema, using defaults", "store_id", storeID)
		return info, settings
	}
	raw, err := l.storage.ReadFile(ctx, storeID, models.SettingsSchemaPath)
	if err != nil {
		l.logger.WarnContext(ctx, "settings schema unreadable, using defaults", "store_id", storeID, "error", err)
		return info, settings
	}
	parsedInfo, defaults, err := ParseSettingsSchema(raw)
	if err != nil {
		l.logger.WarnContext(ctx, "settings schema invalid, using defaults", "store_id", storeID, "error", err)
		return info, settings
	}
	l.attachContent(t, models.SettingsSchemaPath, raw)
	if parsedInfo.Name != "" {
		info.Name = parsedInfo.Name
	}
	if parsedInfo.Version != "" {
		info.Version = parsedInfo.Version
	}
	info.Author = parsedInfo.Author
	for k, v := range defaults {
		settings[k] = v
	}

	if t.Has(models.SettingsDataPath) {
		raw, err := l.storage.ReadFile(ctx, storeID, models.SettingsDataPath)
		if err == nil {
			var current map[string]any
			current, err = ParseSettingsData(raw)
			for k, v := range current {
				settings[k] = v
			}
			l.attachContent(t, models.SettingsDataPath, raw)
		}
		if err != nil {
			l.logger.WarnContext(ctx, "settings data ignored", "store_id", storeID, "error", err)
		}
	}
	return info, settings
}

func (l *Loader) attachContent(t *models.ProcessedTheme, p string, raw []byte) {
	for i := range t.Files {
		if t.Files[i].Path == p {
			t.Files[i].Content = string(raw)
			return
		}
	}
}

// LoadTemplate returns the source of one theme file.
func (l *Loader) LoadTemplate(ctx context.Context, storeID, p string) (string, error) {
	key := cache.TemplateKey(storeID, p)
	if src, ok := cache.Get[string](ctx, l.cache, key); ok {
		return src, nil
	}
	v, err, _ := l.group.Do("source:"+storeID+":"+p, func() (any, error) {
		raw, err := l.storage.ReadFile(ctx, storeID, p)
		if err != nil {
			return nil, storageError(err, "template "+p)
		}
		src := string(raw)
		l.cache.Set(ctx, key, src, l.ttls.Template)
		return src, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// LoadCompiled returns the compiled template at p.
func (l *Loader) LoadCompiled(ctx context.Context, storeID, p string) (*liquid.Template, error) {
	entry, err := l.compiled(ctx, storeID, p)
	if err != nil {
		return nil, err
	}
	return entry.tpl, nil
}

// LoadSection compiles a section by name and extracts its schema defaults.
func (l *Loader) LoadSection(ctx context.Context, storeID, name string) (*Section, error) {
	p := ResolvePath(name)
	entry, err := l.compiled(ctx, storeID, p)
	if err != nil {
		return nil, err
	}
	return &Section{Name: strings.TrimSuffix(path.Base(p), ".liquid"), Path: p, Template: entry.tpl, Defaults: entry.defaults}, nil
}

func (l *Loader) compiled(ctx context.Context, storeID, p string) (*compiledEntry, error) {
	key := cache.CompiledTemplateKey(storeID, p)
	if e, ok := cache.Get[*compiledEntry](ctx, l.cache, key); ok && e != nil && e.tpl != nil {
		return e, nil
	}
	v, err, _ := l.group.Do("compiled:"+storeID+":"+p, func() (any, error) {
		src, err := l.LoadTemplate(ctx, storeID, p)
		if err != nil {
			return nil, err
		}
		tpl, err := l.compiler.Compile(p, []byte(src))
		if err != nil {
			return nil, err
		}
		defaults, err := SchemaDefaults(src)
		if err != nil {
			l.logger.WarnContext(ctx, "section schema invalid, ignoring defaults", "store_id", storeID, "path", p, "error", err)
		}
		e := &compiledEntry{tpl: tpl, defaults: defaults}
		l.cache.Set(ctx, key, e, l.ttls.Template)
		return e, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*compiledEntry), nil
}

// PageTemplate resolves templates/{type}.json, falling back to templates/{type}.liquid.
func (l *Loader) PageTemplate(ctx context.Context, storeID, templateType string) (*models.PageTemplate, error) {
	jsonPath := models.DirTemplates + templateType + ".json"
	src, err := l.LoadTemplate(ctx, storeID, jsonPath)
	if err == nil {
		pt, err := ParsePageTemplate(templateType, jsonPath, []byte(src))
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeTemplateRender, "invalid page template "+jsonPath)
		}
		return pt, nil
	}
	if !dErrors.HasCode(err, dErrors.CodeTemplateNotFound) {
		return nil, err
	}
	liquidPath := models.DirTemplates + templateType + ".liquid"
	src, err = l.LoadTemplate(ctx, storeID, liquidPath)
	if err != nil {
		return nil, err
	}
	return &models.PageTemplate{Type: templateType, Path: liquidPath, Layout: models.LayoutPath, Source: src}, nil
}

func storageError(err error, what string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeTemplateNotFound, what+" not found")
	}
	return dErrors.Wrap(err, dErrors.CodeUnavailable, fmt.Sprintf("failed to read %s", what))
}

// ParsePageTemplate decodes a JSON page template. "layout": false renders without a
// layout; a layout name selects layout/{name}.liquid.
func ParsePageTemplate(templateType, p string, raw []byte) (*models.PageTemplate, error) {
	var doc struct {
		Layout   json.RawMessage                 `json:"layout"`
		Sections map[string]models.SectionConfig `json:"sections"`
		Order    []string                        `json:"order"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	pt := &models.PageTemplate{
		Type:     templateType,
		Path:     p,
		Layout:   models.LayoutPath,
		Sections: doc.Sections,
		Order:    doc.Order,
	}
	if len(pt.Order) == 0 && len(pt.Sections) > 0 {
		for id := range pt.Sections {
			pt.Order = append(pt.Order, id)
		}
		sort.Strings(pt.Order)
	}
	if len(doc.Layout) > 0 {
		var name string
		if err := json.Unmarshal(doc.Layout, &name); err == nil {
			pt.Layout = models.DirLayout + strings.TrimSuffix(name, ".liquid") + ".liquid"
		} else if string(doc.Layout) == "false" {
			pt.Layout = ""
		}
	}
	return pt, nil
}

// ParseSettingsSchema reads theme info and setting defaults from settings_schema.json,
// an array of groups where the theme_info group carries the theme identity.
func ParseSettingsSchema(raw []byte) (models.ThemeInfo, map[string]any, error) {
	var groups []map[string]any
	if err := json.Unmarshal(raw, &groups); err != nil {
		return models.ThemeInfo{}, nil, fmt.Errorf("decode settings schema: %w", err)
	}
	var info models.ThemeInfo
	defaults := map[string]any{}
	for _, g := range groups {
		if name, _ := g["name"].(string); name == "theme_info" {
			info.Name, _ = g["theme_name"].(string)
			info.Version, _ = g["theme_version"].(string)
			info.Author, _ = g["theme_author"].(string)
			continue
		}
		collectDefaults(g["settings"], defaults)
	}
	return info, defaults, nil
}

// ParseSettingsData returns the current values of settings_data.json. A string
// "current" names a preset.
func ParseSettingsData(raw []byte) (map[string]any, error) {
	var doc struct {
		Current any                       `json:"current"`
		Presets map[string]map[string]any `json:"presets"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode settings data: %w", err)
	}
	switch c := doc.Current.(type) {
	case map[string]any:
		return c, nil
	case string:
		return doc.Presets[c], nil
	default:
		return nil, nil
	}
}

var schemaBlock = regexp.MustCompile(`(?s)\{%-?\s*schema\s*-?%\}(.*?)\{%-?\s*endschema\s*-?%\}`)

// SchemaDefaults extracts setting defaults from a section's schema block. Sources
// without a schema yield an empty map.
func SchemaDefaults(source string) (map[string]any, error) {
	defaults := map[string]any{}
	m := schemaBlock.FindStringSubmatch(source)
	if m == nil {
		return defaults, nil
	}
	var schema map[string]any
	if err := json.Unmarshal([]byte(m[1]), &schema); err != nil {
		return defaults, fmt.Errorf("decode section schema: %w", err)
	}
	collectDefaults(schema["settings"], defaults)
	return defaults, nil
}

func collectDefaults(settings any, into map[string]any) {
	list, _ := settings.([]any)
	for _, item := range list {
		s, ok := item.(map[string]any)
		if !ok {
			continue
		}
		id, _ := s["id"].(string)
		def, has := s["default"]
		if id == "" || !has {
			continue
		}
		into[id] = def
	}
}
