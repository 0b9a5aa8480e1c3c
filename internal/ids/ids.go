// Package ids generates sortable unique identifiers (ULIDs) made of a
// millisecond timestamp followed by random bits.
package ids

import (
	"io"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropy     io.Reader
	entropyOnce sync.Once

	genMu     sync.RWMutex
	generator = defaultGenerator
)

func defaultEntropy() io.Reader {
	entropyOnce.Do(func() {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		entropy = &ulid.LockedMonotonicReader{
			MonotonicReader: ulid.Monotonic(rng, 0),
		}
	})
	return entropy
}

func defaultGenerator() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), defaultEntropy()).String()
}

// New returns a fresh identifier.
func New() string {
	genMu.RLock()
	g := generator
	genMu.RUnlock()
	return g()
}

// Valid reports whether id is a well-formed ULID.
func Valid(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}

// SetGenerator replaces the generator, mainly for tests. It returns a func
// restoring the previous one.
func SetGenerator(fn func() string) (restore func()) {
	genMu.Lock()
	prev := generator
	generator = fn
	genMu.Unlock()
	return func() {
		genMu.Lock()
		generator = prev
		genMu.Unlock()
	}
}

// Sequence returns a deterministic generator yielding prefix-1, prefix-2, ...
func Sequence(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return prefix + "-" + strconv.Itoa(n)
	}
}
