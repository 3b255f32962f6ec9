package i18n

import (
	"net/http"
	"strings"
)

const DefaultLocale = "en"

var supportedLocales = map[string]struct{}{
	"en": {},
	"fr": {},
	"ar": {},
}

// The web client labels Tunisian Arabic as "tn".
var localeAliases = map[string]string{
	"tn": "ar",
}

func LocaleFromRequest(r *http.Request) string {
	if r == nil {
		return DefaultLocale
	}
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return NormalizeLocale(lang)
	}
	return NormalizeLocale(r.Header.Get("Accept-Language"))
}

// NormalizeLocale returns the first supported language of an
// Accept-Language style header, ignoring quality weights and regions.
func NormalizeLocale(header string) string {
	for _, part := range strings.Split(header, ",") {
		lang, _, _ := strings.Cut(part, ";")
		lang = strings.ToLower(strings.TrimSpace(lang))
		lang, _, _ = strings.Cut(lang, "-")
		lang, _, _ = strings.Cut(lang, "_")
		if alias, ok := localeAliases[lang]; ok {
			lang = alias
		}
		if _, ok := supportedLocales[lang]; ok {
			return lang
		}
	}
	return DefaultLocale
}
