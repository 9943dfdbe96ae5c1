package shared

import (
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Transaction code prefixes carried over from the legacy system. One code is
// generated per logical operation and shared by every ledger entry it
// produces.
const (
	CodePrefixStockIn  = "MSK"
	CodePrefixStockOut = "PJL"
	CodePrefixAudit    = "AUD"
	CodePrefixService  = "SRV"
	CodePrefixCharge   = "CHG"
)

// NewCode builds a transaction code: <PREFIX>-<unix-ms>-<6 hex chars>.
// Uniqueness is probabilistic, not enforced against stored rows.
func NewCode(prefix string) string {
	id := uuid.New()
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixMilli(), hex.EncodeToString(id[:3]))
}
