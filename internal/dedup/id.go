package dedup

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces corpus record identifiers.
type IDGenerator func() string

// UUIDv7 returns time-sortable RFC 9562 identifiers.
func UUIDv7() IDGenerator {
	return func() string {
		return uuid.Must(uuid.NewV7()).String()
	}
}

// Sequential returns prefix+"1", prefix+"2" and so on, for reproducible output.
func Sequential(prefix string) IDGenerator {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s%d", prefix, n.Add(1))
	}
}
