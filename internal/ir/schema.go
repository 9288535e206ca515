package ir

import "time"

// EntityKind classifies an extracted entity.
type EntityKind string

const (
	KindModel    EntityKind = "model"
	KindFunction EntityKind = "function"
	KindEndpoint EntityKind = "endpoint"
)

// ReferenceKind classifies a directed edge between two entities.
type ReferenceKind string

const (
	RefEmbeds         ReferenceKind = "embeds"
	RefCalls          ReferenceKind = "calls"
	RefReturns        ReferenceKind = "returns"
	RefReferencesByID ReferenceKind = "references_by_id"
)

// DiagnosticKind classifies a non-fatal issue recorded during a run.
type DiagnosticKind string

const (
	DiagAccessError        DiagnosticKind = "access_error"
	DiagFileParseError     DiagnosticKind = "file_parse_error"
	DiagParseWarning       DiagnosticKind = "parse_warning"
	DiagAmbiguousReference DiagnosticKind = "ambiguous_reference"
	DiagDuplicateEntity    DiagnosticKind = "duplicate_entity"
	DiagDanglingReference  DiagnosticKind = "dangling_reference"
	DiagHistoryUnavailable DiagnosticKind = "history_unavailable"
	DiagFileTimeout        DiagnosticKind = "file_timeout"
)

// RouteDynamic marks an endpoint whose path pattern could not be
// determined statically.
const RouteDynamic = "dynamic"

// Field is one declared model field or callable parameter.
type Field struct {
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
	Default  string `json:"default,omitempty" yaml:"default,omitempty"`
	Optional bool   `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// Entity is one extracted structural unit: a model, a function, or an
// endpoint. Entities are immutable once extracted; a new run produces a
// wholly new set.
type Entity struct {
	ID            string     `json:"id" yaml:"id"`
	Kind          EntityKind `json:"kind" yaml:"kind"`
	Name          string     `json:"name" yaml:"name"`
	File          string     `json:"file" yaml:"file"`
	StartLine     int        `json:"start_line" yaml:"start_line"`
	EndLine       int        `json:"end_line" yaml:"end_line"`
	Doc           string     `json:"doc,omitempty" yaml:"doc,omitempty"`
	Fields        []Field    `json:"fields,omitempty" yaml:"fields,omitempty"`
	Params        []Field    `json:"params,omitempty" yaml:"params,omitempty"`
	Returns       string     `json:"returns,omitempty" yaml:"returns,omitempty"`
	Bases         []string   `json:"bases,omitempty" yaml:"bases,omitempty"`
	Decorators    []string   `json:"decorators,omitempty" yaml:"decorators,omitempty"`
	Async         bool       `json:"async,omitempty" yaml:"async,omitempty"`
	HTTPMethod    string     `json:"http_method,omitempty" yaml:"http_method,omitempty"`
	Route         string     `json:"route,omitempty" yaml:"route,omitempty"`
	StructureHash string     `json:"structure_hash,omitempty" yaml:"structure_hash,omitempty"`

	// Collision marks an entity whose ID is declared in more than one
	// place. Both occurrences are retained so renderers can surface the
	// conflict instead of hiding it.
	Collision bool `json:"collision,omitempty" yaml:"collision,omitempty"`
}

// Reference is a directed relationship between two entity IDs. The same
// pair may carry several reference kinds.
type Reference struct {
	From       string        `json:"from" yaml:"from"`
	To         string        `json:"to" yaml:"to"`
	Kind       ReferenceKind `json:"kind" yaml:"kind"`
	Ambiguous  bool          `json:"ambiguous,omitempty" yaml:"ambiguous,omitempty"`
	Confidence float64       `json:"confidence" yaml:"confidence"`
}

// Diagnostic is a non-fatal issue accumulated during a run.
type Diagnostic struct {
	Kind   DiagnosticKind `json:"kind" yaml:"kind"`
	Path   string         `json:"path,omitempty" yaml:"path,omitempty"`
	Detail string         `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// HistoryInfo is per-file version-control provenance, aggregated to every
// entity declared in that file.
type HistoryInfo struct {
	Commits      int       `json:"commits" yaml:"commits"`
	LastModified time.Time `json:"last_modified" yaml:"last_modified"`
	Authors      []string  `json:"authors" yaml:"authors"`
}

// RepoInfo describes the repository state at analysis time. The zero
// value means the root is not a repository.
type RepoInfo struct {
	CommitHash string `json:"commit_hash,omitempty" yaml:"commit_hash,omitempty"`
	Branch     string `json:"branch,omitempty" yaml:"branch,omitempty"`
	Dirty      bool   `json:"dirty,omitempty" yaml:"dirty,omitempty"`
}

// Summary aggregates counts per kind. Every count must reconcile exactly
// with the set it summarizes.
type Summary struct {
	Models      int                    `json:"models" yaml:"models"`
	Functions   int                    `json:"functions" yaml:"functions"`
	Endpoints   int                    `json:"endpoints" yaml:"endpoints"`
	References  map[ReferenceKind]int  `json:"references" yaml:"references"`
	Diagnostics map[DiagnosticKind]int `json:"diagnostics" yaml:"diagnostics"`
}

// AnalysisResult is the canonical aggregate of one analysis run. It is
// assembled once by the report builder and read-only afterwards; renderers
// share it without copying.
type AnalysisResult struct {
	Root        string                  `json:"root" yaml:"root"`
	GeneratedAt time.Time               `json:"generated_at" yaml:"generated_at"`
	ToolVersion string                  `json:"tool_version" yaml:"tool_version"`
	Repo        RepoInfo                `json:"repo" yaml:"repo"`
	Entities    []*Entity               `json:"entities" yaml:"entities"`
	References  []Reference             `json:"references" yaml:"references"`
	History     map[string]*HistoryInfo `json:"history,omitempty" yaml:"history,omitempty"`
	Diagnostics []Diagnostic            `json:"diagnostics" yaml:"diagnostics"`
	Summary     Summary                 `json:"summary" yaml:"summary"`
}

// EntitiesOfKind returns the entities of one kind in result order.
func (r *AnalysisResult) EntitiesOfKind(kind EntityKind) []*Entity {
	var out []*Entity
	for _, e := range r.Entities {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// FileHistory returns the history for a file, or nil when history is
// absent or the file is unknown. Absent history means "unknown", not zero.
func (r *AnalysisResult) FileHistory(path string) *HistoryInfo {
	if r.History == nil {
		return nil
	}
	return r.History[path]
}
