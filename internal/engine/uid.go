package engine

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/tartampluch/go-attendance/internal/config"
)

var uidSpace = uuid.NewSHA1(uuid.NameSpaceOID, []byte(config.UIDNamespace))

// stableUID derives a name-based UUID so events keep their identity across refreshes.
func stableUID(parts ...string) string {
	key := strings.Join(parts, config.UIDSeparator)
	return fmt.Sprintf(config.FormatUID, uuid.NewSHA1(uidSpace, []byte(key)).String(), config.ICalDomain)
}
