package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelmap/internal/extractor"
	"modelmap/internal/ir"
)

func model(file, name string, fields ...ir.Field) extractor.Extraction {
	return extractor.Extraction{Entity: &ir.Entity{
		ID:     ir.BuildEntityID(file, ir.KindModel, name),
		Kind:   ir.KindModel,
		Name:   name,
		File:   file,
		Fields: fields,
	}}
}

func function(file, name, returns string, calls ...string) extractor.Extraction {
	return extractor.Extraction{
		Entity: &ir.Entity{
			ID:      ir.BuildEntityID(file, ir.KindFunction, name),
			Kind:    ir.KindFunction,
			Name:    name,
			File:    file,
			Returns: returns,
		},
		Calls: calls,
	}
}

func TestResolve_Returns(t *testing.T) {
	// Customer model + get_customer() -> Customer.
	extractions := []extractor.Extraction{
		model("models.py", "Customer",
			ir.Field{Name: "id", Type: "int"},
			ir.Field{Name: "name", Type: "str"}),
		function("service.py", "get_customer", "Customer"),
	}

	refs, diags := New(DefaultOptions()).Resolve(extractions)
	require.Empty(t, diags)
	require.Len(t, refs, 1)
	assert.Equal(t, ir.RefReturns, refs[0].Kind)
	assert.Equal(t, extractions[1].Entity.ID, refs[0].From)
	assert.Equal(t, extractions[0].Entity.ID, refs[0].To)
	assert.False(t, refs[0].Ambiguous)
}

func TestResolve_Embeds(t *testing.T) {
	extractions := []extractor.Extraction{
		model("models.py", "Address",
			ir.Field{Name: "street", Type: "str"}),
		model("models.py", "Customer",
			ir.Field{Name: "address", Type: "Address"},
			ir.Field{Name: "addresses", Type: "list[Address]"}),
	}

	refs, diags := New(DefaultOptions()).Resolve(extractions)
	require.Empty(t, diags)
	// Two fields, one deduplicated edge.
	require.Len(t, refs, 1)
	assert.Equal(t, ir.RefEmbeds, refs[0].Kind)
}

func TestResolve_ReferencesByID(t *testing.T) {
	extractions := []extractor.Extraction{
		model("models.py", "Customer", ir.Field{Name: "id", Type: "int"}),
		model("models.py", "Order",
			ir.Field{Name: "customer_id", Type: "int"},
			ir.Field{Name: "total", Type: "float"}),
	}

	refs, diags := New(DefaultOptions()).Resolve(extractions)
	require.Empty(t, diags)
	require.Len(t, refs, 1)
	assert.Equal(t, ir.RefReferencesByID, refs[0].Kind)
	assert.Equal(t, "Order", findName(t, extractions, refs[0].From))
	assert.Equal(t, "Customer", findName(t, extractions, refs[0].To))

	t.Run("Suffix without id type is not a reference", func(t *testing.T) {
		extractions := []extractor.Extraction{
			model("models.py", "Customer", ir.Field{Name: "id", Type: "int"}),
			model("models.py", "Order", ir.Field{Name: "customer_id", Type: "dict"}),
		}
		refs, _ := New(DefaultOptions()).Resolve(extractions)
		assert.Empty(t, refs)
	})
}

func TestResolve_Calls(t *testing.T) {
	extractions := []extractor.Extraction{
		model("models.py", "Customer", ir.Field{Name: "id", Type: "int"}),
		function("repo.py", "fetch_record", "dict"),
		function("service.py", "get_customer", "", "fetch_record", "Customer", "unknown_helper"),
	}

	refs, diags := New(DefaultOptions()).Resolve(extractions)
	require.Empty(t, diags)
	require.Len(t, refs, 2, "unknown_helper must not produce an edge")
	assert.Equal(t, ir.RefCalls, refs[0].Kind)
	assert.Equal(t, ir.RefCalls, refs[1].Kind)
}

func TestResolve_AmbiguousAcrossFiles(t *testing.T) {
	// Two files declare Item; a third references it with no same-directory
	// candidate. Both must be linked and one diagnostic recorded.
	extractions := []extractor.Extraction{
		model("a/models.py", "Item", ir.Field{Name: "id", Type: "int"}),
		model("b/models.py", "Item", ir.Field{Name: "id", Type: "int"}),
		function("c/service.py", "get_item", "Item"),
	}

	refs, diags := New(DefaultOptions()).Resolve(extractions)
	require.Len(t, diags, 1)
	assert.Equal(t, ir.DiagAmbiguousReference, diags[0].Kind)

	require.Len(t, refs, 2)
	for _, r := range refs {
		assert.True(t, r.Ambiguous)
		assert.Equal(t, ir.RefReturns, r.Kind)
	}
	assert.NotEqual(t, refs[0].To, refs[1].To)
}

func TestResolve_SameDirectoryPreference(t *testing.T) {
	extractions := []extractor.Extraction{
		model("a/models.py", "Item", ir.Field{Name: "id", Type: "int"}),
		model("b/models.py", "Item", ir.Field{Name: "id", Type: "int"}),
		function("a/service.py", "get_item", "Item"),
	}

	refs, diags := New(DefaultOptions()).Resolve(extractions)
	require.Empty(t, diags, "same-directory match disambiguates")
	require.Len(t, refs, 1)
	assert.False(t, refs[0].Ambiguous)
	assert.Equal(t, extractions[0].Entity.ID, refs[0].To)
}

func TestResolve_Confidence(t *testing.T) {
	extractions := []extractor.Extraction{
		model("models.py", "Address", ir.Field{Name: "street", Type: "str"}),
		model("models.py", "Customer", ir.Field{Name: "address", Type: "Address"}),
		function("service.py", "get_customer", "Customer"),
	}

	refs, _ := New(DefaultOptions()).Resolve(extractions)
	byKind := make(map[ir.ReferenceKind]float64)
	for _, r := range refs {
		byKind[r.Kind] = r.Confidence
	}
	assert.Greater(t, byKind[ir.RefEmbeds], byKind[ir.RefReturns],
		"a field type is stronger evidence than a return hint")
	for _, r := range refs {
		assert.GreaterOrEqual(t, r.Confidence, 0.1)
		assert.LessOrEqual(t, r.Confidence, 0.99)
	}
}

func TestResolve_NoSelfLoops(t *testing.T) {
	extractions := []extractor.Extraction{
		model("models.py", "Node", ir.Field{Name: "parent", Type: "Optional[Node]"}),
	}

	refs, _ := New(DefaultOptions()).Resolve(extractions)
	assert.Empty(t, refs)
}

func findName(t *testing.T, extractions []extractor.Extraction, id string) string {
	t.Helper()
	for _, ex := range extractions {
		if ex.Entity.ID == id {
			return ex.Entity.Name
		}
	}
	t.Fatalf("entity %s not found", id)
	return ""
}
