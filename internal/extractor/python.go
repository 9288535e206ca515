package extractor

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"modelmap/internal/ir"
)

// routeVerbs are the decorator attribute names recognized as HTTP route
// registrations (FastAPI/Flask style, e.g. @app.get("/x") or
// @router.post(...)).
var routeVerbs = map[string]string{
	"get":    "GET",
	"post":   "POST",
	"put":    "PUT",
	"patch":  "PATCH",
	"delete": "DELETE",
}

// modelBase is the base-class marker for schema classes. Matched as a
// dotted suffix so pydantic.BaseModel qualifies too.
const modelBase = "BaseModel"

type decorator struct {
	name string // dotted name without arguments, e.g. "app.get"
	node *sitter.Node
}

func decoratorsOf(decorated *sitter.Node, source []byte) []decorator {
	var out []decorator
	for i := 0; i < int(decorated.NamedChildCount()); i++ {
		child := decorated.NamedChild(i)
		if child.Type() != "decorator" {
			continue
		}
		expr := child.NamedChild(0)
		if expr == nil {
			continue
		}
		out = append(out, decorator{name: decoratorName(expr, source), node: expr})
	}
	return out
}

// decoratorName reduces a decorator expression to its dotted name:
// @get -> "get", @app.get("/x") -> "app.get", @dataclass(frozen=True) -> "dataclass".
func decoratorName(expr *sitter.Node, source []byte) string {
	switch expr.Type() {
	case "identifier", "attribute":
		return nodeText(expr, source)
	case "call":
		if fn := expr.ChildByFieldName("function"); fn != nil {
			return nodeText(fn, source)
		}
	}
	return nodeText(expr, source)
}

func decoratorNames(decorators []decorator) []string {
	if len(decorators) == 0 {
		return nil
	}
	out := make([]string, 0, len(decorators))
	for _, d := range decorators {
		out = append(out, d.name)
	}
	return out
}

func extractClass(def *sitter.Node, source []byte, rel string, decorators []decorator, res *FileResult) {
	nameNode := def.ChildByFieldName("name")
	body := def.ChildByFieldName("body")
	if nameNode == nil || body == nil {
		res.Warnings = append(res.Warnings, ir.Diagnostic{
			Kind:   ir.DiagParseWarning,
			Path:   rel,
			Detail: "class definition without name or body",
		})
		return
	}
	name := nodeText(nameNode, source)

	var bases []string
	if sup := def.ChildByFieldName("superclasses"); sup != nil {
		for i := 0; i < int(sup.NamedChildCount()); i++ {
			bases = append(bases, nodeText(sup.NamedChild(i), source))
		}
	}

	if isModelClass(bases, decorators) {
		fields := classFields(body, source)
		entity := &ir.Entity{
			ID:            ir.BuildEntityID(rel, ir.KindModel, name),
			Kind:          ir.KindModel,
			Name:          name,
			File:          rel,
			StartLine:     int(def.StartPoint().Row) + 1,
			EndLine:       int(def.EndPoint().Row) + 1,
			Doc:           docstring(body, source),
			Fields:        fields,
			Bases:         bases,
			Decorators:    decoratorNames(decorators),
			StructureHash: ir.BuildStructureHash(fields, bases),
		}
		res.Extractions = append(res.Extractions, Extraction{Entity: entity})
	}

	// Methods are extracted for every class, model or not.
	walkStatements(body, source, rel, name, res)
}

func isModelClass(bases []string, decorators []decorator) bool {
	for _, b := range bases {
		if b == modelBase || strings.HasSuffix(b, "."+modelBase) {
			return true
		}
	}
	for _, d := range decorators {
		if d.name == "dataclass" || strings.HasSuffix(d.name, ".dataclass") {
			return true
		}
	}
	return false
}

// classFields lifts class-level annotated assignments (x: int = 0) into
// ordered field records.
func classFields(body *sitter.Node, source []byte) []ir.Field {
	var fields []ir.Field
	for i := 0; i < int(body.NamedChildCount()); i++ {
		stmt := body.NamedChild(i)
		if stmt.Type() != "expression_statement" {
			continue
		}
		assign := stmt.NamedChild(0)
		if assign == nil || assign.Type() != "assignment" {
			continue
		}
		left := assign.ChildByFieldName("left")
		typ := assign.ChildByFieldName("type")
		if left == nil || typ == nil || left.Type() != "identifier" {
			continue
		}

		field := ir.Field{
			Name: nodeText(left, source),
			Type: collapse(nodeText(typ, source)),
		}
		if right := assign.ChildByFieldName("right"); right != nil {
			field.Default = collapse(nodeText(right, source))
		}
		field.Optional = field.Default != "" || isOptionalType(field.Type)
		fields = append(fields, field)
	}
	return fields
}

func isOptionalType(t string) bool {
	return strings.Contains(t, "Optional[") ||
		strings.Contains(t, "| None") ||
		strings.Contains(t, "None |")
}

func extractCallable(def *sitter.Node, source []byte, rel, className string, decorators []decorator, res *FileResult) {
	nameNode := def.ChildByFieldName("name")
	if nameNode == nil {
		res.Warnings = append(res.Warnings, ir.Diagnostic{
			Kind:   ir.DiagParseWarning,
			Path:   rel,
			Detail: "function definition without a name",
		})
		return
	}
	name := nodeText(nameNode, source)
	if className != "" {
		name = className + "." + name
	}

	kind := ir.KindFunction
	method, route := routeFromDecorators(decorators, source)
	if method != "" {
		kind = ir.KindEndpoint
	}

	entity := &ir.Entity{
		ID:         ir.BuildEntityID(rel, kind, name),
		Kind:       kind,
		Name:       name,
		File:       rel,
		StartLine:  int(def.StartPoint().Row) + 1,
		EndLine:    int(def.EndPoint().Row) + 1,
		Params:     callableParams(def, source),
		Decorators: decoratorNames(decorators),
		Async:      isAsync(def),
		HTTPMethod: method,
		Route:      route,
	}
	if ret := def.ChildByFieldName("return_type"); ret != nil {
		entity.Returns = collapse(nodeText(ret, source))
	}

	var calls []string
	if body := def.ChildByFieldName("body"); body != nil {
		entity.Doc = docstring(body, source)
		calls = collectCalls(body, source)
	}

	res.Extractions = append(res.Extractions, Extraction{Entity: entity, Calls: calls})
}

// routeFromDecorators returns the HTTP verb and the path pattern when a
// routing decorator is present. A non-literal path argument classifies
// the route as dynamic rather than failing the extraction.
func routeFromDecorators(decorators []decorator, source []byte) (method, route string) {
	for _, d := range decorators {
		verb := d.name
		if idx := strings.LastIndex(verb, "."); idx >= 0 {
			verb = verb[idx+1:]
		}
		m, ok := routeVerbs[verb]
		if !ok {
			continue
		}

		route = ir.RouteDynamic
		if d.node.Type() == "call" {
			if args := d.node.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
				if first := args.NamedChild(0); first.Type() == "string" {
					route = stripQuotes(nodeText(first, source))
				}
			}
		}
		return m, route
	}
	return "", ""
}

func callableParams(def *sitter.Node, source []byte) []ir.Field {
	params := def.ChildByFieldName("parameters")
	if params == nil {
		return nil
	}

	var out []ir.Field
	for i := 0; i < int(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		switch p.Type() {
		case "identifier":
			out = append(out, ir.Field{Name: nodeText(p, source)})
		case "typed_parameter":
			f := ir.Field{}
			if n := p.NamedChild(0); n != nil {
				f.Name = nodeText(n, source)
			}
			if t := p.ChildByFieldName("type"); t != nil {
				f.Type = collapse(nodeText(t, source))
			}
			f.Optional = isOptionalType(f.Type)
			out = append(out, f)
		case "default_parameter", "typed_default_parameter":
			f := ir.Field{Optional: true}
			if n := p.ChildByFieldName("name"); n != nil {
				f.Name = nodeText(n, source)
			}
			if t := p.ChildByFieldName("type"); t != nil {
				f.Type = collapse(nodeText(t, source))
			}
			if v := p.ChildByFieldName("value"); v != nil {
				f.Default = collapse(nodeText(v, source))
			}
			out = append(out, f)
		case "list_splat_pattern", "dictionary_splat_pattern":
			out = append(out, ir.Field{Name: nodeText(p, source)})
		}
	}
	return out
}

func isAsync(def *sitter.Node) bool {
	for i := 0; i < int(def.ChildCount()); i++ {
		if def.Child(i).Type() == "async" {
			return true
		}
	}
	return false
}

// collectCalls gathers call-target names from a body in source order:
// plain identifiers ("save") and dotted attributes ("db.commit").
func collectCalls(node *sitter.Node, source []byte) []string {
	var calls []string
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "call" {
			if fn := n.ChildByFieldName("function"); fn != nil {
				switch fn.Type() {
				case "identifier", "attribute":
					calls = append(calls, nodeText(fn, source))
				}
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(node)
	return calls
}

// docstring returns the leading string literal of a block, unquoted.
func docstring(body *sitter.Node, source []byte) string {
	first := body.NamedChild(0)
	if first == nil || first.Type() != "expression_statement" {
		return ""
	}
	str := first.NamedChild(0)
	if str == nil || str.Type() != "string" {
		return ""
	}
	return strings.TrimSpace(stripQuotes(nodeText(str, source)))
}

func stripQuotes(s string) string {
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(s, q) && strings.HasSuffix(s, q) && len(s) >= 2*len(q) {
			return s[len(q) : len(s)-len(q)]
		}
	}
	return s
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
