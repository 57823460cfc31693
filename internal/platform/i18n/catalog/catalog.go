// Package catalog loads localized message catalogs and registers them with
// golang.org/x/text/message.
//
// Catalog files live at locales/<locale>/<namespace>.yaml. Each file carries
// plain messages and plural messages keyed by CLDR category ("one", "other")
// or exact value ("=0").
package catalog

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	xcatalog "golang.org/x/text/message/catalog"
	"gopkg.in/yaml.v3"
)

const (
	// BaseLocale is the canonical source locale for catalogs.
	BaseLocale = "en-US"
)

type catalogFile struct {
	Locale    string                       `yaml:"locale"`
	Namespace string                       `yaml:"namespace"`
	Messages  map[string]string            `yaml:"messages"`
	Plurals   map[string]map[string]string `yaml:"plurals"`
}

// LocaleCatalog stores all messages for one locale.
type LocaleCatalog struct {
	Locale     string
	Namespaces []string
	Messages   map[string]string
	Plurals    map[string]map[string]string
}

// Bundle contains all locale catalogs loaded from disk.
type Bundle struct {
	locales map[string]*LocaleCatalog
}

//go:embed locales/*/*.yaml
var embeddedCatalogFS embed.FS

var defaultBundle = mustLoadAndRegisterEmbedded()

// Default returns the process-wide embedded catalog bundle.
func Default() *Bundle {
	return defaultBundle
}

// LoadEmbedded loads catalog files embedded in this package.
func LoadEmbedded() (*Bundle, error) {
	return LoadFromFS(embeddedCatalogFS)
}

// LoadFromFS loads catalog files from the provided filesystem.
func LoadFromFS(catalogFS fs.FS) (*Bundle, error) {
	paths, err := fs.Glob(catalogFS, "locales/*/*.yaml")
	if err != nil {
		return nil, fmt.Errorf("glob locale catalogs: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no catalog files found")
	}
	sort.Strings(paths)

	bundle := &Bundle{locales: map[string]*LocaleCatalog{}}
	for _, filePath := range paths {
		data, err := fs.ReadFile(catalogFS, filePath)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", filePath, err)
		}
		var parsed catalogFile
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("parse catalog %s: %w", filePath, err)
		}
		if err := bundle.addFile(filePath, parsed); err != nil {
			return nil, err
		}
	}

	if !bundle.HasLocale(BaseLocale) {
		return nil, fmt.Errorf("base locale %s is not defined in catalogs", BaseLocale)
	}
	return bundle, nil
}

func (b *Bundle) addFile(filePath string, file catalogFile) error {
	localeFromPath := path.Base(path.Dir(filePath))
	namespaceFromPath := strings.TrimSuffix(path.Base(filePath), path.Ext(filePath))

	locale := strings.TrimSpace(file.Locale)
	if locale == "" {
		return fmt.Errorf("catalog %s: locale is required", filePath)
	}
	if locale != localeFromPath {
		return fmt.Errorf("catalog %s: locale %q must match path locale %q", filePath, locale, localeFromPath)
	}
	namespace := strings.TrimSpace(file.Namespace)
	if namespace != namespaceFromPath {
		return fmt.Errorf("catalog %s: namespace %q must match filename namespace %q", filePath, namespace, namespaceFromPath)
	}
	if len(file.Messages) == 0 && len(file.Plurals) == 0 {
		return fmt.Errorf("catalog %s: messages are required", filePath)
	}

	localeCatalog, ok := b.locales[locale]
	if !ok {
		localeCatalog = &LocaleCatalog{
			Locale:   locale,
			Messages: map[string]string{},
			Plurals:  map[string]map[string]string{},
		}
		b.locales[locale] = localeCatalog
	}
	localeCatalog.Namespaces = append(localeCatalog.Namespaces, namespace)

	seen := func(key string) bool {
		_, isMessage := localeCatalog.Messages[key]
		_, isPlural := localeCatalog.Plurals[key]
		return isMessage || isPlural
	}
	for key, value := range file.Messages {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("catalog %s: message key cannot be blank", filePath)
		}
		if seen(key) {
			return fmt.Errorf("catalog %s: duplicate key %q in locale %q", filePath, key, locale)
		}
		localeCatalog.Messages[key] = value
	}
	for key, forms := range file.Plurals {
		key = strings.TrimSpace(key)
		if key == "" {
			return fmt.Errorf("catalog %s: plural key cannot be blank", filePath)
		}
		if seen(key) {
			return fmt.Errorf("catalog %s: duplicate key %q in locale %q", filePath, key, locale)
		}
		if _, ok := forms["other"]; !ok {
			return fmt.Errorf("catalog %s: plural %q requires an \"other\" form", filePath, key)
		}
		localeCatalog.Plurals[key] = copyMap(forms)
	}
	return nil
}

// Register registers every catalog message with x/text/message, under the
// locale tag and its base language.
func (b *Bundle) Register() error {
	if b == nil {
		return nil
	}
	for _, locale := range b.Locales() {
		tag, err := language.Parse(locale)
		if err != nil {
			return fmt.Errorf("parse locale tag %q: %w", locale, err)
		}
		tags := []language.Tag{tag}
		if base, _ := tag.Base(); base.String() != "und" {
			if baseTag, err := language.Parse(base.String()); err == nil && baseTag != tag {
				tags = append(tags, baseTag)
			}
		}

		catalog := b.locales[locale]
		for _, key := range sortedKeys(catalog.Messages) {
			for _, registerTag := range tags {
				if err := message.SetString(registerTag, key, catalog.Messages[key]); err != nil {
					return fmt.Errorf("register %s %s: %w", locale, key, err)
				}
			}
		}
		for _, key := range sortedKeys(catalog.Plurals) {
			selector := pluralSelector(catalog.Plurals[key])
			for _, registerTag := range tags {
				if err := message.Set(registerTag, key, selector); err != nil {
					return fmt.Errorf("register plural %s %s: %w", locale, key, err)
				}
			}
		}
	}
	return nil
}

// pluralSelector orders exact-value cases first and "other" last, as
// plural.Selectf matches cases in order.
func pluralSelector(forms map[string]string) xcatalog.Message {
	cases := make([]any, 0, len(forms)*2)
	keys := sortedKeys(forms)
	for _, key := range keys {
		if strings.HasPrefix(key, "=") {
			cases = append(cases, key, forms[key])
		}
	}
	for _, key := range keys {
		if !strings.HasPrefix(key, "=") && key != "other" {
			cases = append(cases, key, forms[key])
		}
	}
	cases = append(cases, "other", forms["other"])
	return plural.Selectf(1, "%d", cases...)
}

// HasLocale reports whether the locale exists in this bundle.
func (b *Bundle) HasLocale(locale string) bool {
	if b == nil {
		return false
	}
	_, ok := b.locales[strings.TrimSpace(locale)]
	return ok
}

// Locales returns all available locale identifiers.
func (b *Bundle) Locales() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.locales))
	for locale := range b.locales {
		out = append(out, locale)
	}
	sort.Strings(out)
	return out
}

// Tags returns the parsed language tags of every locale, base locale first.
func (b *Bundle) Tags() []language.Tag {
	tags := []language.Tag{language.MustParse(BaseLocale)}
	for _, locale := range b.Locales() {
		if locale == BaseLocale {
			continue
		}
		if tag, err := language.Parse(locale); err == nil {
			tags = append(tags, tag)
		}
	}
	return tags
}

// LocaleMessages returns a copy of the plain messages of one locale.
func (b *Bundle) LocaleMessages(locale string) map[string]string {
	if b == nil {
		return map[string]string{}
	}
	catalog, ok := b.locales[strings.TrimSpace(locale)]
	if !ok {
		return map[string]string{}
	}
	return copyMap(catalog.Messages)
}

// Keys returns every message and plural key of one locale, sorted.
func (b *Bundle) Keys(locale string) []string {
	if b == nil {
		return nil
	}
	catalog, ok := b.locales[strings.TrimSpace(locale)]
	if !ok {
		return nil
	}
	keys := append(sortedKeys(catalog.Messages), sortedKeys(catalog.Plurals)...)
	sort.Strings(keys)
	return keys
}

// Message returns one plain message with base-locale fallback.
func (b *Bundle) Message(locale string, key string) (string, bool) {
	if b == nil {
		return "", false
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false
	}
	for _, candidate := range []string{strings.TrimSpace(locale), BaseLocale} {
		if catalog, ok := b.locales[candidate]; ok {
			if value, exists := catalog.Messages[key]; exists {
				return value, true
			}
		}
	}
	return "", false
}

func sortedKeys[V any](source map[string]V) []string {
	keys := make([]string, 0, len(source))
	for key := range source {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func copyMap(source map[string]string) map[string]string {
	out := make(map[string]string, len(source))
	for key, value := range source {
		out[key] = value
	}
	return out
}

func mustLoadAndRegisterEmbedded() *Bundle {
	bundle, err := LoadEmbedded()
	if err != nil {
		panic(err)
	}
	if err := bundle.Register(); err != nil {
		panic(err)
	}
	return bundle
}
