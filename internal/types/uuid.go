package types

import (
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	UUID_PREFIX_PLAN       = "plan"
	UUID_PREFIX_MEMBERSHIP = "memb"
	UUID_PREFIX_SERVICE    = "serv"
	UUID_PREFIX_INVOICE    = "inv"
	UUID_PREFIX_LINE_ITEM  = "item"
	UUID_PREFIX_STATUS_LOG = "slog"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
)

// GenerateUUID returns a lowercase ULID.
func GenerateUUID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return strings.ToLower(ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String())
}

// GenerateUUIDWithPrefix returns a lowercase ULID with the given prefix,
// e.g. "serv_01hx...".
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return prefix + "_" + GenerateUUID()
}
