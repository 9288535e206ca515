package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// BuildEntityID creates a deterministic entity ID from the repo-relative
// file path, the entity kind, and the declared name. Identical input
// trees therefore yield identical IDs across runs, which is what makes
// diffing two analysis outputs meaningful.
func BuildEntityID(file string, kind EntityKind, name string) string {
	file = filepath.ToSlash(strings.TrimSpace(file))
	if file == "" {
		file = "_"
	}

	k := strings.TrimSpace(string(kind))
	if k == "" {
		k = "entity"
	}

	name = strings.TrimSpace(name)
	if name == "" {
		name = "_"
	}

	fingerprint := strings.Join([]string{file, k, name}, "|")
	sum := sha256.Sum256([]byte(fingerprint))
	short := hex.EncodeToString(sum[:4])
	return fmt.Sprintf("python/%s:%s:%s:%s", file, k, name, short)
}

// BuildStructureHash fingerprints a model's shape: sorted name:type field
// pairs plus sorted bases. Location changes do not affect it, so two runs
// can tell whether a model actually changed.
func BuildStructureHash(fields []Field, bases []string) string {
	parts := make([]string, 0, len(fields)+len(bases))
	for _, f := range fields {
		parts = append(parts, f.Name+":"+f.Type)
	}
	sort.Strings(parts)

	sortedBases := append([]string(nil), bases...)
	sort.Strings(sortedBases)
	parts = append(parts, sortedBases...)

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:4])
}
