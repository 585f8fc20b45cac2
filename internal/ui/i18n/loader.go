package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
)

//go:embed locales/*.json
var localeFS embed.FS

// Load собирает Bundle из встроенных каталогов locales/<lang>.json.
func Load(defaultLang string, logger *slog.Logger) (*Bundle, error) {
	return LoadFS(localeFS, defaultLang, logger)
}

// LoadFS читает каталог каждого поддерживаемого языка из fsys.
// Ключи, которых нет в одном из каталогов, попадают в WARN: при
// переводе они откатятся на язык по умолчанию.
func LoadFS(fsys fs.FS, defaultLang string, logger *slog.Logger) (*Bundle, error) {
	b := NewBundle(defaultLang, logger)
	for _, lang := range []string{LangPT, LangEN} {
		name := "locales/" + lang + ".json"
		data, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("i18n: каталог %s: %w", name, err)
		}
		if err := b.LoadMessages(lang, data); err != nil {
			return nil, err
		}
	}

	for lang, keys := range b.missingKeys() {
		logger.Warn("i18n: в каталоге нет ключей",
			slog.String("lang", lang),
			slog.Any("keys", keys),
		)
	}
	return b, nil
}

// missingKeys — для каждого языка ключи, известные другим каталогам, но не ему.
func (b *Bundle) missingKeys() map[string][]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	all := make(map[string]struct{})
	for _, catalog := range b.catalogs {
		for k := range catalog {
			all[k] = struct{}{}
		}
	}

	missing := make(map[string][]string)
	for lang, catalog := range b.catalogs {
		for k := range all {
			if _, ok := catalog[k]; !ok {
				missing[lang] = append(missing[lang], k)
			}
		}
		sort.Strings(missing[lang])
	}
	for lang, keys := range missing {
		if len(keys) == 0 {
			delete(missing, lang)
		}
	}
	return missing
}
