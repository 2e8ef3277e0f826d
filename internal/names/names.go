// Package names derives deterministic, collision-free SQL identifiers from
// JSON keys and nesting paths. Allocator state is scoped to a single
// extraction run.
package names

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	// ID is the surrogate key column added to every table. The leading
	// underscores keep it out of the namespace of sanitized JSON keys,
	// which are suffixed if they ever land on it.
	ID = "__id"

	// ParentID references the surrogate key of the parent row in child
	// tables.
	ParentID = "__parent_id"

	// DefaultMaxLength matches the PostgreSQL identifier limit, the
	// strictest of the supported backends by default.
	DefaultMaxLength = 63

	hashSuffixLen = 9 // "_" + 8 hex chars

	// minLength leaves at least one byte of name next to a hash suffix;
	// no real backend limits identifiers this tightly.
	minLength = hashSuffixLen + 1

	maxSuffixAttempts = 1000
)

// CollisionError indicates two independently allocated identifiers collided
// even after deterministic suffixing. This is an allocator defect, not a
// user-facing condition.
type CollisionError struct {
	Name string
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("identifier collision could not be resolved for %q", e.Name)
}

// Allocator assigns table and column names for one extraction run.
type Allocator struct {
	maxLen      int
	tables      map[string]string            // path key -> table name
	tablesTaken map[string]string            // table name -> path key
	columns     map[string]map[string]string // table -> json key -> column name
	colsTaken   map[string]map[string]string // table -> column name -> json key
}

// New returns an allocator that caps identifiers at maxLen bytes. A
// non-positive maxLen selects DefaultMaxLength.
func New(maxLen int) *Allocator {
	if maxLen <= 0 {
		maxLen = DefaultMaxLength
	}
	if maxLen < minLength {
		maxLen = minLength
	}
	return &Allocator{
		maxLen:      maxLen,
		tables:      make(map[string]string),
		tablesTaken: make(map[string]string),
		columns:     make(map[string]map[string]string),
		colsTaken:   make(map[string]map[string]string),
	}
}

// Table returns the name for the table at the given nesting path under the
// caller-supplied root label. The same path always yields the same name
// within a run.
func (a *Allocator) Table(root string, path []string) (string, error) {
	key := root + "\x00" + strings.Join(path, "\x00")
	if name, ok := a.tables[key]; ok {
		return name, nil
	}
	base := sanitize(root)
	for _, seg := range path {
		base += "_" + sanitize(seg)
	}
	name, err := a.claim(a.tablesTaken, key, base)
	if err != nil {
		return "", err
	}
	a.tables[key] = name
	return name, nil
}

// Column returns the column name for a JSON key within a table. Keys that
// collide after sanitization, including with the reserved surrogate-key
// columns, are disambiguated with numeric suffixes in first-seen order.
func (a *Allocator) Column(table string, key string) (string, error) {
	cols := a.columns[table]
	if cols == nil {
		cols = make(map[string]string)
		a.columns[table] = cols
		a.colsTaken[table] = map[string]string{
			ID:       "\x00" + ID,
			ParentID: "\x00" + ParentID,
		}
	}
	if name, ok := cols[key]; ok {
		return name, nil
	}
	name, err := a.claim(a.colsTaken[table], key, sanitize(key))
	if err != nil {
		return "", err
	}
	cols[key] = name
	return name, nil
}

// claim finds the first free fitted name for base, walking numeric suffixes
// deterministically. taken maps allocated names back to their owner key.
func (a *Allocator) claim(taken map[string]string, key, base string) (string, error) {
	candidate := base
	for i := 2; i < maxSuffixAttempts; i++ {
		name := a.fit(candidate)
		owner, ok := taken[name]
		if !ok {
			taken[name] = key
			return name, nil
		}
		if owner == key {
			return name, nil
		}
		candidate = fmt.Sprintf("%s_%d", base, i)
	}
	return "", &CollisionError{Name: base}
}

// fit truncates a name to the configured limit, replacing the tail with a
// hash of the full name so truncated paths stay distinct.
func (a *Allocator) fit(name string) string {
	if len(name) <= a.maxLen {
		return name
	}
	h := xxhash.Sum64String(name)
	return fmt.Sprintf("%s_%08x", name[:a.maxLen-hashSuffixLen], uint32(h))
}

// sanitize lower-cases a JSON key and replaces anything outside
// [a-z0-9_] with an underscore. Names starting with a digit get a leading
// underscore so they remain valid identifiers unquoted.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := b.String()
	if out == "" {
		return "_"
	}
	if out[0] >= '0' && out[0] <= '9' {
		return "_" + out
	}
	return out
}
