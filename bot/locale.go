package bot

import (
	"golang.org/x/text/language"

	"moviemate/models"
)

// localeFor reduces a Telegram language_code (which can be a full BCP 47 tag such as
// "pt-br") to its base language, falling back to the default locale.
func localeFor(code string) string {
	if code == "" {
		return models.DefaultLocale
	}

	tag, err := language.Parse(code)
	if err != nil {
		return models.DefaultLocale
	}

	base, conf := tag.Base()
	if conf == language.No {
		return models.DefaultLocale
	}
	return base.String()
}
