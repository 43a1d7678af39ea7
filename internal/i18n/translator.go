// Package i18n provides the translation and number formatting used on printed
// documents.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var builtin embed.FS

// Translator looks up print labels for one locale.
type Translator interface {
	T(key string) string
}

// Bundle holds every loaded catalogue and picks the best match for a locale.
type Bundle struct {
	fallback language.Tag
	tags     []language.Tag
	ordered  []language.Tag
	catalogs map[language.Tag]map[string]string
	matcher  language.Matcher
}

// NewBundle loads the embedded catalogues and, when dir is not empty, any
// `<locale>.yaml` files found there. Files in dir override embedded keys.
func NewBundle(fallback string, dir string) (*Bundle, error) {
	b := &Bundle{catalogs: map[language.Tag]map[string]string{}}
	if err := b.loadFS(builtin, "locales"); err != nil {
		return nil, err
	}
	if strings.TrimSpace(dir) != "" {
		if err := b.loadFS(os.DirFS(dir), "."); err != nil {
			return nil, err
		}
	}
	if len(b.catalogs) == 0 {
		return nil, fmt.Errorf("i18n: no catalogues loaded")
	}

	tag, err := language.Parse(normaliseLocale(fallback))
	if err != nil {
		tag = language.English
	}
	b.tags = make([]language.Tag, 0, len(b.catalogs))
	for t := range b.catalogs {
		b.tags = append(b.tags, t)
	}
	sort.Slice(b.tags, func(i, j int) bool { return b.tags[i].String() < b.tags[j].String() })
	// The matcher prefers its first entry when nothing else fits.
	ordered := append([]language.Tag{}, b.tags...)
	for i, t := range ordered {
		if t == tag {
			ordered[0], ordered[i] = ordered[i], ordered[0]
			break
		}
	}
	b.fallback = ordered[0]
	b.ordered = ordered
	b.matcher = language.NewMatcher(ordered)
	return b, nil
}

func (b *Bundle) loadFS(fsys fs.FS, root string) error {
	entries, err := fs.ReadDir(fsys, root)
	if err != nil {
		return fmt.Errorf("i18n: read %s: %w", root, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		raw, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(root, entry.Name())))
		if err != nil {
			return fmt.Errorf("i18n: read %s: %w", entry.Name(), err)
		}
		var messages map[string]string
		if err := yaml.Unmarshal(raw, &messages); err != nil {
			return fmt.Errorf("i18n: parse %s: %w", entry.Name(), err)
		}
		tag, err := language.Parse(normaliseLocale(strings.TrimSuffix(entry.Name(), ".yaml")))
		if err != nil {
			return fmt.Errorf("i18n: locale %s: %w", entry.Name(), err)
		}
		catalog := b.catalogs[tag]
		if catalog == nil {
			catalog = map[string]string{}
			b.catalogs[tag] = catalog
		}
		for k, v := range messages {
			catalog[k] = v
		}
	}
	return nil
}

// Locales lists the loaded locales.
func (b *Bundle) Locales() []language.Tag {
	return append([]language.Tag{}, b.tags...)
}

// Match resolves a requested locale (e.g. "es_ES", "en-GB, es;q=0.8") to a
// loaded one.
func (b *Bundle) Match(locale string) language.Tag {
	if strings.TrimSpace(locale) == "" {
		return b.fallback
	}
	prefs, _, err := language.ParseAcceptLanguage(normaliseLocale(locale))
	if err != nil || len(prefs) == 0 {
		return b.fallback
	}
	_, idx, conf := b.matcher.Match(prefs...)
	if conf == language.No {
		return b.fallback
	}
	return b.tagAt(idx)
}

func (b *Bundle) tagAt(idx int) language.Tag {
	if idx < 0 || idx >= len(b.ordered) {
		return b.fallback
	}
	return b.ordered[idx]
}

// For returns the translator of the best matching locale.
func (b *Bundle) For(locale string) Translator {
	tag := b.Match(locale)
	return catalogTranslator{messages: b.catalogs[tag]}
}

type catalogTranslator struct {
	messages map[string]string
}

// T returns the label for key, or key itself when the catalogue lacks it.
func (c catalogTranslator) T(key string) string {
	if v, ok := c.messages[key]; ok && v != "" {
		return v
	}
	return key
}

// MapTranslator is a fixed catalogue, handy for tests and callers that already
// hold their labels.
type MapTranslator map[string]string

// T implements Translator.
func (m MapTranslator) T(key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return key
}

func normaliseLocale(locale string) string {
	return strings.ReplaceAll(strings.TrimSpace(locale), "_", "-")
}
