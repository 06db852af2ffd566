package engine

import (
	"log/slog"

	"github.com/tartampluch/go-attendance/internal/config"
	"github.com/zalando/go-keyring"
)

// LookupPassword reads the password stored for user in the OS keyring.
// A missing entry yields an empty password; the failure is only logged.
func LookupPassword(user string) string {
	if user == "" {
		return ""
	}
	pass, err := keyring.Get(config.KeyringService, user)
	if err != nil {
		slog.Debug(config.MsgPassFail,
			config.LogKeyComponent, config.CompEngine,
			config.LogKeyUser, user,
			config.LogKeyError, err)
		return ""
	}
	return pass
}

// StorePassword saves the password for user in the OS keyring.
func StorePassword(user, pass string) error {
	return keyring.Set(config.KeyringService, user, pass)
}
