package engine

import (
	"fmt"

	"github.com/tartampluch/go-attendance/internal/config"
)

// ReminderTrigger renders an alarm offset as an ISO8601 duration.
// Unknown units fall back to days; any direction other than before is after.
func ReminderTrigger(value int, unit, direction string) string {
	if value < 0 {
		value = -value
	}

	sign := config.ISOPeriodPrefix
	if direction == config.DirBefore {
		sign = config.ISONegativePrefix
	}

	switch unit {
	case config.UnitHours:
		return fmt.Sprintf("%s%s%d%s", sign, config.ISOTimePrefix, value, config.ISOHour)
	case config.UnitMinutes:
		return fmt.Sprintf("%s%s%d%s", sign, config.ISOTimePrefix, value, config.ISOMinute)
	default:
		return fmt.Sprintf("%s%d%s", sign, value, config.ISODay)
	}
}
