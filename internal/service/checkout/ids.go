package checkout

import (
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// maxIdentifierLen is the processor limit for buy_order and session_id.
const maxIdentifierLen = 26

// newIdentifiers mints a buy order (a ULID, exactly 26 characters) and a session id
// (26 hex characters of a random UUID).
func newIdentifiers() (buyOrder, sessionID string) {
	buyOrder = ulid.Make().String()
	sessionID = strings.ReplaceAll(uuid.NewString(), "-", "")[:maxIdentifierLen]
	return buyOrder, sessionID
}
