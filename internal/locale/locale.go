// Package locale renders user-facing strings from the embedded translation files.
package locale

import (
	"embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"github.com/tartampluch/go-attendance/internal/config"
	"github.com/tartampluch/go-attendance/internal/dates"
	"golang.org/x/text/language"
)

//go:embed locales/*.json
var localeFS embed.FS

// Translator localizes messages into one language, falling back to the
// config.Fallback* formats when a message is missing.
type Translator struct {
	bundle    *i18n.Bundle
	localizer *i18n.Localizer
	languages []string
	lang      string
}

// New loads every embedded locale and selects lang.
func New(lang string) *Translator {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	t := &Translator{bundle: bundle}

	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		slog.Error(config.ErrLocalesAccess,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyError, err,
		)
	}

	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasPrefix(name, "active.") || !strings.HasSuffix(name, ".json") {
			slog.Debug(config.MsgLocaleSkip,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		langCode := strings.TrimSuffix(strings.TrimPrefix(name, "active."), ".json")
		if langCode == "" {
			slog.Warn(config.MsgLocaleBadName,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
			)
			continue
		}

		if _, err := bundle.LoadMessageFileFS(localeFS, "locales/"+name); err != nil {
			slog.Error(config.ErrLocaleLoad,
				config.LogKeyComponent, config.CompI18n,
				config.LogKeyFile, name,
				config.LogKeyError, err,
			)
			continue
		}
		t.languages = append(t.languages, langCode)
		slog.Debug(config.MsgLocaleLoaded,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyLang, langCode,
			config.LogKeyFile, name,
		)
	}
	sort.Strings(t.languages)

	t.SetLanguage(lang)
	return t
}

// Languages lists the loaded language codes.
func (t *Translator) Languages() []string {
	return append([]string(nil), t.languages...)
}

// Language returns the selected language code.
func (t *Translator) Language() string {
	return t.lang
}

// SetLanguage selects lang, reduced to its base language ("fr-CA" becomes
// "fr"). Unknown or empty tags select config.DefaultLanguage.
func (t *Translator) SetLanguage(lang string) {
	code := config.DefaultLanguage
	if tag, err := language.Parse(lang); err == nil {
		base, _ := tag.Base()
		code = base.String()
	}
	t.lang = code
	t.localizer = i18n.NewLocalizer(t.bundle, code, config.DefaultLanguage)
}

// Msg translates a message without arguments, returning key when missing.
func (t *Translator) Msg(key string) string {
	msg, ok := t.localize(&i18n.LocalizeConfig{MessageID: key})
	if !ok {
		return key
	}
	return msg
}

// Summary is the event summary of a schedule.
func (t *Translator) Summary(name string) string {
	msg, ok := t.localize(&i18n.LocalizeConfig{
		MessageID:    config.TKeyEvtSummary,
		TemplateData: map[string]interface{}{"Name": name},
	})
	if !ok {
		return fmt.Sprintf(config.FallbackSummary, name)
	}
	return msg
}

// Age renders an age.
func (t *Translator) Age(a dates.Age) string {
	msg, ok := t.localize(&i18n.LocalizeConfig{
		MessageID:    config.TKeyAge,
		TemplateData: map[string]interface{}{"Years": a.Years, "Months": a.Months, "Days": a.Days},
	})
	if !ok {
		return a.String()
	}
	return msg
}

// Birthday renders a birth date followed by the age it represents.
func (t *Translator) Birthday(b dates.Birthday) string {
	date := b.Date().Format(config.DateFormatFullDash)
	age := t.Age(b.Age())
	msg, ok := t.localize(&i18n.LocalizeConfig{
		MessageID:    config.TKeyBirthday,
		TemplateData: map[string]interface{}{"Date": date, "Age": age},
	})
	if !ok {
		return fmt.Sprintf(config.FallbackBirthday, date, age)
	}
	return msg
}

// Upcoming announces the age turned on the next anniversary.
func (t *Translator) Upcoming(name string, age int, date time.Time) string {
	day := date.Format(config.DateFormatFullDash)
	msg, ok := t.localize(&i18n.LocalizeConfig{
		MessageID:    config.TKeyUpcoming,
		TemplateData: map[string]interface{}{"Name": name, "Age": age, "Date": day},
	})
	if !ok {
		return fmt.Sprintf(config.FallbackUpcoming, name, age, day)
	}
	return msg
}

// DueToday summarizes how many schedules are due today.
func (t *Translator) DueToday(count int) string {
	if count == 0 {
		if msg, ok := t.localize(&i18n.LocalizeConfig{MessageID: config.TKeyDueTodayZero}); ok {
			return msg
		}
		return fmt.Sprintf(config.FallbackDueToday, 0)
	}
	msg, ok := t.localize(&i18n.LocalizeConfig{
		MessageID:    config.TKeyDueToday,
		TemplateData: map[string]interface{}{"Count": count},
		PluralCount:  count,
	})
	if !ok {
		return fmt.Sprintf(config.FallbackDueToday, count)
	}
	return msg
}

// Attendance summarizes the days attended in a month ("2006-01").
func (t *Translator) Attendance(count int, month string) string {
	msg, ok := t.localize(&i18n.LocalizeConfig{
		MessageID:    config.TKeyAttendance,
		TemplateData: map[string]interface{}{"Count": count, "Month": month},
		PluralCount:  count,
	})
	if !ok {
		return fmt.Sprintf(config.FallbackAttendance, count, month)
	}
	return msg
}

// NoBirthdays is shown for a vCard file without usable birth dates.
func (t *Translator) NoBirthdays() string {
	if msg, ok := t.localize(&i18n.LocalizeConfig{MessageID: config.TKeyNoBirthdays}); ok {
		return msg
	}
	return config.FallbackNoBirthdays
}

func (t *Translator) localize(lc *i18n.LocalizeConfig) (string, bool) {
	if t == nil || t.localizer == nil {
		slog.Debug(config.ErrLocNotInit, config.LogKeyComponent, config.CompI18n)
		return "", false
	}
	msg, err := t.localizer.Localize(lc)
	if err != nil || msg == "" {
		slog.Debug(config.MsgTransMissing,
			config.LogKeyComponent, config.CompI18n,
			config.LogKeyKey, lc.MessageID,
			config.LogKeyError, err,
		)
		return "", false
	}
	return msg, true
}
