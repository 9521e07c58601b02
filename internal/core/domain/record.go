package domain

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"math/big"
	"strconv"
	"sync"
	"time"
)

// DefaultCollection is the record collection the publisher writes to.
const DefaultCollection = "xyz.ffxiv.resonance.character"

// Record key suffix bounds.
const (
	minKeySuffix = 1000
	maxKeySuffix = 9999
)

// PublishRequest is the body of a com.atproto.repo.putRecord call.
type PublishRequest struct {
	Collection string          `json:"collection"`
	Repo       string          `json:"repo"`
	RKey       string          `json:"rkey"`
	Record     json.RawMessage `json:"record"`
}

// IsJSONObject reports whether raw holds a JSON object.
func IsJSONObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false
	}
	return json.Valid(trimmed)
}

// RecordKeyGenerator produces record keys of the form "<unix-ms>-<suffix>".
//
// Keys from one generator never repeat: when the clock has not moved past
// the millisecond of the previous key, that millisecond is reused and the
// suffix is bumped, spilling into the next millisecond after 9999.
type RecordKeyGenerator struct {
	mu     sync.Mutex
	now    func() time.Time
	lastMS int64
	suffix int64
}

// NewRecordKeyGenerator creates a generator using the wall clock.
func NewRecordKeyGenerator() *RecordKeyGenerator {
	return &RecordKeyGenerator{now: time.Now}
}

// Next returns the next record key.
func (g *RecordKeyGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms > g.lastMS {
		g.lastMS = ms
		g.suffix = randomSuffix()
	} else {
		g.suffix++
		if g.suffix > maxKeySuffix {
			g.lastMS++
			g.suffix = minKeySuffix
		}
	}

	return strconv.FormatInt(g.lastMS, 10) + "-" + strconv.FormatInt(g.suffix, 10)
}

func randomSuffix() int64 {
	n, err := rand.Int(rand.Reader, big.NewInt(maxKeySuffix-minKeySuffix+1))
	if err != nil {
		return minKeySuffix
	}
	return minKeySuffix + n.Int64()
}

var defaultKeys = NewRecordKeyGenerator()

// NewRecordKey returns a key from the package-level generator.
func NewRecordKey() string {
	return defaultKeys.Next()
}
