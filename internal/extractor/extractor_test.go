package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelmap/internal/ir"
)

func TestExtractor_ExtractFile(t *testing.T) {
	ext := New()

	res, err := ext.ExtractFile(context.Background(), "testdata", "sample.py")
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	byName := make(map[string]Extraction)
	for _, ex := range res.Extractions {
		byName[ex.Entity.Name] = ex
	}

	t.Run("Overall count", func(t *testing.T) {
		assert.Len(t, res.Extractions, 10,
			"3 models, 4 functions, 3 endpoints")
	})

	t.Run("Pydantic model", func(t *testing.T) {
		ex, ok := byName["Customer"]
		require.True(t, ok)
		e := ex.Entity
		assert.Equal(t, ir.KindModel, e.Kind)
		assert.Equal(t, "sample.py", e.File)
		assert.Equal(t, []string{"BaseModel"}, e.Bases)
		assert.Equal(t, "A registered customer.", e.Doc)
		require.Len(t, e.Fields, 3)
		assert.Equal(t, ir.Field{Name: "id", Type: "int"}, e.Fields[0])
		assert.Equal(t, ir.Field{Name: "name", Type: "str"}, e.Fields[1])
		assert.Equal(t, "email", e.Fields[2].Name)
		assert.Equal(t, "Optional[str]", e.Fields[2].Type)
		assert.Equal(t, "None", e.Fields[2].Default)
		assert.True(t, e.Fields[2].Optional)
		assert.NotEmpty(t, e.StructureHash)
	})

	t.Run("Dataclass model", func(t *testing.T) {
		ex, ok := byName["AuditEntry"]
		require.True(t, ok)
		assert.Equal(t, ir.KindModel, ex.Entity.Kind)
		assert.Equal(t, []string{"dataclass"}, ex.Entity.Decorators)
		assert.Len(t, ex.Entity.Fields, 2)
	})

	t.Run("Plain class is not a model", func(t *testing.T) {
		_, ok := byName["Pricing"]
		assert.False(t, ok)
	})

	t.Run("Method is qualified", func(t *testing.T) {
		ex, ok := byName["Order.grand_total"]
		require.True(t, ok)
		e := ex.Entity
		assert.Equal(t, ir.KindFunction, e.Kind)
		assert.Equal(t, "float", e.Returns)
		require.Len(t, e.Params, 2)
		assert.Equal(t, "self", e.Params[0].Name)
		assert.Equal(t, ir.Field{Name: "tax", Type: "float", Default: "0.0", Optional: true}, e.Params[1])
	})

	t.Run("Function with calls", func(t *testing.T) {
		ex, ok := byName["get_customer"]
		require.True(t, ok)
		e := ex.Entity
		assert.Equal(t, ir.KindFunction, e.Kind)
		assert.Equal(t, "Customer", e.Returns)
		assert.Equal(t, "Load one customer by primary key.", e.Doc)
		assert.Equal(t, []string{"fetch_record", "Customer"}, ex.Calls)
	})

	t.Run("GET endpoint", func(t *testing.T) {
		ex, ok := byName["read_customer"]
		require.True(t, ok)
		e := ex.Entity
		assert.Equal(t, ir.KindEndpoint, e.Kind)
		assert.Equal(t, "GET", e.HTTPMethod)
		assert.Equal(t, "/customers/{customer_id}", e.Route)
		assert.True(t, e.Async)
		assert.Equal(t, []string{"get_customer"}, ex.Calls)
	})

	t.Run("POST endpoint", func(t *testing.T) {
		ex, ok := byName["create_order"]
		require.True(t, ok)
		e := ex.Entity
		assert.Equal(t, "POST", e.HTTPMethod)
		assert.Equal(t, "/orders", e.Route)
		assert.Equal(t, []string{"db.save"}, ex.Calls)
	})

	t.Run("Dynamic route", func(t *testing.T) {
		ex, ok := byName["purge_orders"]
		require.True(t, ok)
		assert.Equal(t, "DELETE", ex.Entity.HTTPMethod)
		assert.Equal(t, ir.RouteDynamic, ex.Entity.Route)
	})

	t.Run("Source order preserved", func(t *testing.T) {
		var names []string
		for _, ex := range res.Extractions {
			names = append(names, ex.Entity.Name)
		}
		assert.Equal(t, []string{
			"Customer",
			"Order", "Order.grand_total",
			"AuditEntry",
			"Pricing.apply_discount",
			"get_customer", "fetch_record",
			"read_customer", "create_order", "purge_orders",
		}, names)
	})
}

func TestExtractor_Determinism(t *testing.T) {
	ext := New()

	first, err := ext.ExtractFile(context.Background(), "testdata", "sample.py")
	require.NoError(t, err)
	second, err := ext.ExtractFile(context.Background(), "testdata", "sample.py")
	require.NoError(t, err)

	require.Equal(t, len(first.Extractions), len(second.Extractions))
	for i := range first.Extractions {
		assert.Equal(t, first.Extractions[i].Entity, second.Extractions[i].Entity)
		assert.Equal(t, first.Extractions[i].Calls, second.Extractions[i].Calls)
	}
}

func TestExtractor_SyntaxError(t *testing.T) {
	ext := New()

	_, err := ext.ExtractSource(context.Background(), []byte("def broken(:\n"), "broken.py")
	assert.Error(t, err)
}

func TestExtractor_EmptyFile(t *testing.T) {
	ext := New()

	res, err := ext.ExtractSource(context.Background(), nil, "empty.py")
	require.NoError(t, err)
	assert.Empty(t, res.Extractions)
}
