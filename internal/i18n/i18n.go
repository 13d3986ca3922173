// Copyright (c) 2025 Groundwork Team
// Groundwork - server environment bootstrapper
// This source code is licensed under the MIT license found in the LICENSE file.

// Package i18n translates user-facing strings. Locale catalogs are
// embedded YAML files under locales/; English is the fallback for
// anything a catalog does not cover.
package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localeFS embed.FS

var (
	bundle      *i18n.Bundle
	localizer   *i18n.Localizer
	currentLang string
)

// Init loads every embedded catalog and activates lang. Catalogs that
// fail to read or parse are skipped so one bad file cannot take out
// the rest.
func Init(lang string) {
	b := i18n.NewBundle(language.English)
	b.RegisterUnmarshalFunc("yaml", yaml.Unmarshal)

	names, _ := fs.Glob(localeFS, "locales/*.yaml")
	for _, name := range names {
		data, err := localeFS.ReadFile(name)
		if err != nil {
			continue
		}
		_, _ = b.ParseMessageFileBytes(data, path.Base(name))
	}

	bundle = b
	localizer = i18n.NewLocalizer(b, lang)
	currentLang = lang
}

// SetLang switches the active language without reloading the catalogs.
func SetLang(lang string) {
	if bundle == nil {
		Init(lang)
		return
	}
	localizer = i18n.NewLocalizer(bundle, lang)
	currentLang = lang
}

// GetLang reports the active language code.
func GetLang() string {
	if currentLang == "" {
		return "en"
	}
	return currentLang
}

// T looks up messageID in the active catalog. Unknown IDs come back
// verbatim, which keeps missing translations greppable instead of
// rendering as empty strings. Extra args are applied fmt.Sprintf style
// to the translated text.
func T(messageID string, args ...interface{}) string {
	if localizer == nil {
		Init("en")
	}
	msg, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: messageID})
	if err != nil {
		return messageID
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

// GetAvailableLocales maps each embedded locale code to its display
// name. A catalog names itself through the language_name key; catalogs
// without one show up under their bare code.
func GetAvailableLocales() map[string]string {
	names, _ := fs.Glob(localeFS, "locales/*.yaml")
	locales := make(map[string]string, len(names))
	for _, name := range names {
		code := localeCode(path.Base(name))
		if code == "" {
			continue
		}
		locales[code] = code
		data, err := localeFS.ReadFile(name)
		if err != nil {
			continue
		}
		var doc struct {
			LanguageName string `yaml:"language_name"`
		}
		if yaml.Unmarshal(data, &doc) == nil && doc.LanguageName != "" {
			locales[code] = doc.LanguageName
		}
	}
	return locales
}

// localeCode derives the language code from a catalog filename such as
// "active.de.yaml". Filenames matching neither the prefix nor the
// suffix yield "".
func localeCode(name string) string {
	code := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".yaml")
	if code == name {
		return ""
	}
	return code
}
