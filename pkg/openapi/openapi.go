// Package openapi implements the OpenAPI 3.x translator (C5): it turns
// one OpenAPI document into a raw-AST category fragment that
// pkg/importer inlines exactly like a native `.rqc` import.
package openapi

import (
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/moonrailgun/reqcraft/internal/id"
	"github.com/moonrailgun/reqcraft/pkg/ast"
)

// Translate parses an OpenAPI 3.x document (JSON or YAML — kin-openapi's
// loader accepts either) and produces the category fragment described in
// the spec's C5 section: one root category per source document, with
// tagged operations grouped into nested per-tag categories and untagged
// operations placed directly under the root.
func Translate(sourceLocation string, data []byte) (*ast.Category, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("parsing OpenAPI document: %w", err)
	}

	root := &ast.Category{
		Name:     "openapi",
		DispName: docTitle(doc),
		ForcedID: id.OpenAPICategoryID(sourceLocation),
	}
	tagCats := map[string]*ast.Category{}

	paths := doc.Paths
	if paths == nil {
		return root, nil
	}

	pathKeys := make([]string, 0, paths.Len())
	for p := range paths.Map() {
		pathKeys = append(pathKeys, p)
	}
	sort.Strings(pathKeys)

	for _, path := range pathKeys {
		item := paths.Value(path)
		if item == nil {
			continue
		}
		for _, entry := range []struct {
			verb ast.Verb
			op   *openapi3.Operation
		}{
			{ast.VerbGet, item.Get},
			{ast.VerbPost, item.Post},
			{ast.VerbPut, item.Put},
			{ast.VerbPatch, item.Patch},
			{ast.VerbDelete, item.Delete},
		} {
			if entry.op == nil {
				continue
			}
			method, err := translateOperation(entry.verb, path, entry.op, item.Parameters)
			if err != nil {
				return nil, fmt.Errorf("operation %s %s: %w", entry.verb, path, err)
			}
			api := &ast.Api{Path: path, Doc: opDoc(entry.op), Methods: []ast.HTTPMethod{*method}}
			placeOperation(root, tagCats, entry.op.Tags, api)
		}
	}

	return root, nil
}

func docTitle(doc *openapi3.T) string {
	if doc.Info != nil {
		return doc.Info.Title
	}
	return ""
}

// placeOperation appends api as a standalone api{} item, either directly
// under root (no tags) or as a child of the category for its first tag —
// the spec's "union of tags -> shared placement under the first tag"
// rule. If an api already exists in the target category for the same
// path, its methods are merged instead of creating a duplicate api item.
func placeOperation(root *ast.Category, tagCats map[string]*ast.Category, tags []string, api *ast.Api) {
	target := root
	if len(tags) > 0 {
		tag := tags[0]
		cat, ok := tagCats[tag]
		if !ok {
			cat = &ast.Category{Name: tag, DispName: tag}
			tagCats[tag] = cat
			root.Children = append(root.Children, ast.Item{Category: cat})
		}
		target = cat
	}

	for i := range target.Children {
		existing := target.Children[i].Api
		if existing != nil && existing.Path == api.Path {
			existing.Methods = append(existing.Methods, api.Methods...)
			return
		}
	}
	target.Children = append(target.Children, ast.Item{Api: api})
}

func opDoc(op *openapi3.Operation) string {
	if op.Description != "" {
		return op.Description
	}
	return op.Summary
}

func translateOperation(verb ast.Verb, path string, op *openapi3.Operation, shared openapi3.Parameters) (*ast.HTTPMethod, error) {
	m := &ast.HTTPMethod{Verb: verb, Name: op.OperationID, Doc: opDoc(op)}

	params := append(append(openapi3.Parameters{}, shared...), op.Parameters...)
	var requestFields []ast.Field
	for _, pref := range params {
		p := pref.Value
		if p == nil {
			continue
		}
		switch p.In {
		case "query", "header":
			requestFields = append(requestFields, ast.Field{
				Name:        p.Name,
				TypeName:    paramTypeName(p.Schema),
				Optional:    !p.Required,
				Doc:         p.Description,
				Annotations: []ast.Annotation{{Kind: ast.AnnParams}},
			})
		case "path":
			// left as a {name} placeholder in the path itself; no field emitted
		}
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		if mt := op.RequestBody.Value.Content.Get("application/json"); mt != nil && mt.Schema != nil {
			bodyFields, err := schemaToFields(mt.Schema, map[string]bool{})
			if err != nil {
				return nil, err
			}
			requestFields = append(requestFields, bodyFields...)
		}
	}
	if len(requestFields) > 0 {
		m.Request = &ast.Schema{Fields: requestFields}
	}

	if resp, status := pickResponse(op.Responses); resp != nil {
		if mt := resp.Content.Get("application/json"); mt != nil && mt.Schema != nil {
			fields, err := schemaToFields(mt.Schema, map[string]bool{})
			if err != nil {
				return nil, err
			}
			m.Response = &ast.Schema{Fields: fields}
		}
		_ = status
	}

	return m, nil
}

func paramTypeName(sref *openapi3.SchemaRef) string {
	if sref == nil || sref.Value == nil {
		return "Any"
	}
	switch primitiveType(sref.Value) {
	case "string":
		return "String"
	case "number", "integer":
		return "Number"
	case "boolean":
		return "Boolean"
	default:
		return "Any"
	}
}

// pickResponse selects responses["200"], then "201", then the first
// declared 2xx, per the spec's C5 rule.
func pickResponse(responses *openapi3.Responses) (*openapi3.Response, string) {
	if responses == nil {
		return nil, ""
	}
	for _, code := range []string{"200", "201"} {
		if ref := responses.Value(code); ref != nil && ref.Value != nil {
			return ref.Value, code
		}
	}
	codes := make([]string, 0)
	for code := range responses.Map() {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		if len(code) == 3 && code[0] == '2' {
			if ref := responses.Value(code); ref != nil && ref.Value != nil {
				return ref.Value, code
			}
		}
	}
	return nil, ""
}

func primitiveType(s *openapi3.Schema) string {
	if s.Type == nil {
		if len(s.Properties) > 0 {
			return "object"
		}
		return ""
	}
	for _, t := range []string{"object", "array", "string", "integer", "number", "boolean"} {
		if s.Type.Is(t) {
			return t
		}
	}
	return ""
}

// schemaToFields translates an object schema's properties into Fields.
// visited guards against $ref cycles (tracked by ref string); a cycle or
// an unresolved external $ref degrades the offending field to Any,
// per the spec.
func schemaToFields(sref *openapi3.SchemaRef, visited map[string]bool) ([]ast.Field, error) {
	if sref == nil {
		return nil, nil
	}
	if sref.Ref != "" {
		if visited[sref.Ref] {
			return nil, nil // cycle: field-level callers check visited first and emit Any
		}
		visited[sref.Ref] = true
	}
	if sref.Value == nil {
		return nil, nil // unresolved external $ref
	}

	s := sref.Value
	names := make([]string, 0, len(s.Properties))
	for name := range s.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	required := map[string]bool{}
	for _, r := range s.Required {
		required[r] = true
	}

	fields := make([]ast.Field, 0, len(names))
	for _, name := range names {
		f, err := schemaRefToField(name, s.Properties[name], !required[name], visited)
		if err != nil {
			return nil, err
		}
		fields = append(fields, *f)
	}
	return fields, nil
}

func schemaRefToField(name string, sref *openapi3.SchemaRef, optional bool, visited map[string]bool) (*ast.Field, error) {
	f := &ast.Field{Name: name, Optional: optional}

	if sref == nil || sref.Value == nil {
		f.TypeName = "Any"
		return f, nil
	}
	if sref.Ref != "" && visited[sref.Ref] {
		f.TypeName = "Any" // $ref cycle: the schema is already being expanded
		return f, nil
	}

	if sref.Value.Description != "" {
		f.Doc = sref.Value.Description
	}
	if sref.Value.Example != nil {
		if lit, ok := toLiteral(sref.Value.Example); ok {
			f.Annotations = append(f.Annotations, ast.Annotation{Kind: ast.AnnExample, Literal: lit})
		}
	}

	t := primitiveType(sref.Value)
	switch t {
	case "object":
		nested, err := schemaToFields(sref, cloneVisited(visited))
		if err != nil {
			return nil, err
		}
		f.Nested = &ast.Schema{Fields: nested}
	case "array":
		elemFields, err := elementFields(sref.Value.Items, visited)
		if err != nil {
			return nil, err
		}
		f.IsArray = true
		f.Nested = &ast.Schema{Fields: elemFields}
	case "string":
		f.TypeName = "String"
	case "integer", "number":
		f.TypeName = "Number"
	case "boolean":
		f.TypeName = "Boolean"
	default:
		// allOf/oneOf unions without a discriminator, or an
		// unrecognized/absent type, degrade to Any per the spec.
		f.TypeName = "Any"
	}

	return f, nil
}

func elementFields(items *openapi3.SchemaRef, visited map[string]bool) ([]ast.Field, error) {
	if items == nil || items.Value == nil {
		return nil, nil
	}
	if primitiveType(items.Value) == "object" && !visited[items.Ref] {
		return schemaToFields(items, cloneVisited(visited))
	}
	// a non-object array element (e.g. array<string>) is represented as
	// a single synthetic field carrying the element's own type.
	elem, err := schemaRefToField("value", items, false, visited)
	if err != nil {
		return nil, err
	}
	return []ast.Field{*elem}, nil
}

func cloneVisited(v map[string]bool) map[string]bool {
	out := make(map[string]bool, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

func toLiteral(v interface{}) (ast.Literal, bool) {
	switch val := v.(type) {
	case string:
		return ast.String(val), true
	case bool:
		return ast.Bool(val), true
	case float64:
		return ast.Number(val, val == float64(int64(val))), true
	case int:
		return ast.Number(float64(val), true), true
	default:
		return ast.Literal{}, false
	}
}
