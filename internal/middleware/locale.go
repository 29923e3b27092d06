package middleware

import (
	"context"
	"net/http"

	"github.com/soaringjerry/FootPulse/internal/utils"
)

type ctxKey int

const localeKey ctxKey = 1

// LocaleMiddleware picks the response locale from the lang query parameter
// or Accept-Language, stores it in the request context and echoes it in
// Content-Language.
func LocaleMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		qLang := r.URL.Query().Get("lang")
		aLang := r.Header.Get("Accept-Language")
		locale := utils.DetermineLocale(qLang, aLang, SupportedLocales, "en")
		w.Header().Set("Content-Language", locale)
		ctx := context.WithValue(r.Context(), localeKey, locale)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// LocaleFromContext retrieves the locale stored by LocaleMiddleware.
func LocaleFromContext(ctx context.Context) string {
	if v := ctx.Value(localeKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return "en"
}

// SupportedLocales lists the languages templates carry text for.
var SupportedLocales = []string{"en", "ar"}
