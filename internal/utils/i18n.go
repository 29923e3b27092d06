package utils

// Server-side strings for the few messages the API produces itself.
// Questionnaire text lives on the templates.

var translations = map[string]map[string]string{
	"en": {
		"health.ok":          "ok",
		"error.forbidden":    "You do not have access to this resource",
		"error.not_found":    "Not found",
		"error.conflict":     "Already exists",
		"error.internal":     "Internal server error",
		"error.invalid":      "Invalid input",
		"error.unauthorized": "Sign in required",
	},
	"ar": {
		"health.ok":          "حسنا",
		"error.forbidden":    "ليس لديك صلاحية الوصول إلى هذا المورد",
		"error.not_found":    "غير موجود",
		"error.conflict":     "موجود مسبقا",
		"error.internal":     "خطأ داخلي في الخادم",
		"error.invalid":      "مدخلات غير صالحة",
		"error.unauthorized": "يجب تسجيل الدخول",
	},
}

// T returns the translated string for key in locale; falls back to English.
func T(locale, key string) string {
	if m, ok := translations[locale]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if v, ok := translations["en"][key]; ok {
		return v
	}
	return key
}
