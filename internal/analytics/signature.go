package analytics

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"github.com/aidosgk/kaspi-orders-backend/internal/businessday"
)

// Signature derives a stable cache key from everything that can change an
// aggregate: the query itself plus the business-day rule in force. Equivalent
// queries (same filters in a different order) produce the same signature.
func Signature(q Query, rule businessday.Rule, mode businessday.Mode) string {
	states := make([]string, 0, len(q.States))
	for _, state := range q.States {
		states = append(states, state.String())
	}
	sort.Strings(states)

	timezone := "UTC"
	if rule.Location != nil {
		timezone = rule.Location.String()
	}

	parts := []string{
		"start=" + q.Start.Format(businessday.DateLayout),
		"end=" + q.End.Format(businessday.DateLayout),
		"field=" + q.DateField.String(),
		"states=" + strings.Join(states, ","),
		fmt.Sprintf("exclude_cancelled=%t", q.ExcludeCancelled),
		fmt.Sprintf("with_prev=%t", q.WithPrev),
		"cutoff=" + rule.Cutoff.String(),
		fmt.Sprintf("lookback=%d", rule.LookbackDays),
		"tz=" + timezone,
		"mode=" + string(mode),
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
