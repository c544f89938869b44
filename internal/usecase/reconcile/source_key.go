package reconcile

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/LavaJover/shvark-rebate-service/internal/domain"
)

// SourceKey fingerprints a commission record. The same row fetched twice
// yields the same key, which the ledger uses to skip re-appends.
func SourceKey(exchange domain.Exchange, record domain.CommissionRecord) string {
	parts := []string{
		string(exchange),
		record.AccountID,
		record.ExternalRef,
		strconv.FormatInt(record.OccurredAt.UnixMilli(), 10),
		record.Amount.String(),
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
