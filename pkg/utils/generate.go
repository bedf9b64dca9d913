package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ParseInt converts string to int with default value
func ParseInt(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}

	result, err := strconv.Atoi(value)
	if err != nil || result < 1 {
		return defaultValue
	}

	return result
}

// GenerateOrderID creates the provider-facing order id, which doubles as the idempotency key.
// Format: SCRIM-YYYYMMDD-<12 hex>
func GenerateOrderID(now time.Time) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	return fmt.Sprintf("SCRIM-%s-%s", now.UTC().Format("20060102"), strings.ToUpper(random))
}
