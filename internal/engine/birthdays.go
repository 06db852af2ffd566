package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/tartampluch/go-attendance/internal/apperr"
	"github.com/tartampluch/go-attendance/internal/config"
	"github.com/tartampluch/go-attendance/internal/dates"
)

// LoadBirthdays decodes a vCard stream and measures every birth date against
// today. Cards without a usable BDAY are skipped. The result is sorted by
// upcoming anniversary, then by name.
func LoadBirthdays(ctx context.Context, r io.Reader, today time.Time) ([]BirthdayEntry, error) {
	log := slog.With(config.LogKeyComponent, config.CompEngine)
	today = dates.DateOnly(today)

	decoder := vcard.NewDecoder(r)
	var out []BirthdayEntry

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Warn(config.MsgSkippedCard, config.LogKeyError, err)
			// A decoder error leaves the stream in an unknown state.
			if len(out) == 0 {
				return nil, apperr.Wrap(err, apperr.KindInvalidArgument, config.ErrVCardParse)
			}
			break
		}

		bday := card.Get(vcard.FieldBirthday)
		if bday == nil || bday.Value == "" {
			continue
		}
		birth, yearKnown, err := parseDate(bday.Value)
		if err != nil {
			log.Debug(config.MsgSkippedDate, config.LogKeyValue, bday.Value)
			continue
		}

		name := cardName(card)
		current, err := dates.NewBirthday(birth, today)
		if err != nil {
			log.Debug(config.MsgSkippedBirthday,
				config.LogKeyName, name,
				config.LogKeyDOB, birth.Format(config.DateFormatFullDash))
			continue
		}
		upcoming, err := dates.UpcomingBirthday(birth, today)
		if err != nil {
			log.Debug(config.MsgSkippedBirthday,
				config.LogKeyName, name,
				config.LogKeyError, err)
			continue
		}

		out = append(out, BirthdayEntry{
			UID:       stableUID(name, birth.Format(config.DateFormatFullDash)),
			Name:      name,
			YearKnown: yearKnown,
			Birthday:  current,
			Upcoming:  upcoming,
			Next:      dates.AddYearsClamped(birth, upcoming.Age().Years),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Next.Equal(out[j].Next) {
			return out[i].Next.Before(out[j].Next)
		}
		return out[i].Name < out[j].Name
	})

	log.Info(config.MsgBirthdaysLoaded, config.LogKeyCount, len(out))
	return out, nil
}

// cardName prefers FN, then N, then a fallback.
func cardName(card vcard.Card) string {
	if fn := card.PreferredValue(vcard.FieldFormattedName); fn != "" {
		return fn
	}
	if n := card.Name(); n != nil {
		if name := strings.TrimSpace(n.GivenName + " " + n.FamilyName); name != "" {
			return name
		}
	}
	return config.FallbackName
}

// parseDate handles the vCard date forms seen in the wild. Truncated dates
// (--MM-DD) are placed in config.DefaultLeapYear so Feb 29 survives.
func parseDate(value string) (time.Time, bool, error) {
	formatsWithYear := []string{
		config.DateFormatFullDash,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
		config.DateFormatFullT,
	}
	for _, f := range formatsWithYear {
		if t, err := time.Parse(f, value); err == nil {
			return dates.DateOnly(t), true, nil
		}
	}

	for _, f := range []string{config.DateFormatNoYearD, config.DateFormatNoYearB} {
		if t, err := time.Parse(f, value); err == nil {
			return dates.New(config.DefaultLeapYear, t.Month(), t.Day()), false, nil
		}
	}

	return time.Time{}, false, errors.New(config.ErrDateParse)
}
