// Package resolver implements the resolve pass (C4): it turns a merged
// raw AST into the normalized API Model that pkg/serve, pkg/mockgen, and
// the browser client all consume.
package resolver

import (
	"strings"

	"github.com/moonrailgun/reqcraft/internal/id"
	"github.com/moonrailgun/reqcraft/pkg/ast"
	"github.com/moonrailgun/reqcraft/pkg/model"
	"github.com/moonrailgun/reqcraft/pkg/token"
)

// Resolver holds accumulated non-fatal diagnostics across a Resolve
// call. The only warning emitted is for a variable redeclared with a
// different default (the last declaration still wins); warnings are
// kept here rather than in the Resolve return values.
type Resolver struct {
	warnings []string
}

// New creates a Resolver.
func New() *Resolver { return &Resolver{} }

// Warnings returns any non-fatal notices accumulated by the most recent
// Resolve call.
func (r *Resolver) Warnings() []string { return r.warnings }

type varAccum struct {
	def      model.VarDef
	hasValue bool
	order    int
}

type headerAccum struct {
	def   model.HeaderDef
	order int
}

// Resolve normalizes sf into an ApiModel. The returned error slice holds
// DuplicateEndpoint diagnostics (id collisions); resolve otherwise never
// fails outright — a model with zero endpoints is valid.
func (r *Resolver) Resolve(sf *ast.SourceFile) (*model.ApiModel, []*Error) {
	r.warnings = nil

	m := &model.ApiModel{}
	vars := map[string]*varAccum{}
	var varOrder []string
	headers := map[string]*headerAccum{}
	var headerOrder []string

	r.collectConfig(sf.Items, m, vars, &varOrder, headers, &headerOrder)

	for _, name := range varOrder {
		m.Variables = append(m.Variables, vars[name].def)
	}
	for _, name := range headerOrder {
		m.Headers = append(m.Headers, headers[name].def)
	}

	seen := map[string]token.Span{}
	var errs []*Error
	var topLevelEpIDs []string
	m.Categories = r.walkItems(sf.Items, "", m, seen, &errs, "", &topLevelEpIDs)

	return m, errs
}

func (r *Resolver) collectConfig(
	items []ast.Item, m *model.ApiModel,
	vars map[string]*varAccum, varOrder *[]string,
	headers map[string]*headerAccum, headerOrder *[]string,
) {
	for _, item := range items {
		switch {
		case item.Config != nil:
			for _, entry := range item.Config.Entries {
				switch {
				case entry.BaseUrl != nil:
					m.BaseUrls = append(m.BaseUrls, entry.BaseUrl...)
				case entry.Variable != nil:
					r.mergeVariable(entry.Variable, vars, varOrder)
				case entry.Header != nil:
					r.mergeHeader(entry.Header, headers, headerOrder)
				case entry.IsMock:
					m.Mock = entry.MockVal
				case entry.IsCors:
					m.Cors = entry.CorsVal
				}
			}
		case item.Category != nil:
			r.collectConfig(item.Category.Children, m, vars, varOrder, headers, headerOrder)
		}
	}
}

func (r *Resolver) mergeVariable(v *ast.VariableDecl, vars map[string]*varAccum, order *[]string) {
	existing, ok := vars[v.Name]
	value := ""
	if v.Default != nil {
		value = *v.Default
	}
	if !ok {
		vars[v.Name] = &varAccum{
			def: model.VarDef{Name: v.Name, Type: v.Type, Default: v.Default, Value: value},
		}
		*order = append(*order, v.Name)
		return
	}
	// Union-by-name: last declaration wins on value, first wins on
	// source position (i.e. keep its place in *order).
	if v.Default != nil {
		if existing.def.Default != nil && *existing.def.Default != *v.Default {
			r.warnings = append(r.warnings, "variable '"+v.Name+"' redeclared with a different default")
		}
		existing.def.Default = v.Default
		existing.def.Value = value
	}
	if v.Type != "" {
		existing.def.Type = v.Type
	}
}

func (r *Resolver) mergeHeader(h *ast.HeaderDecl, headers map[string]*headerAccum, order *[]string) {
	existing, ok := headers[h.Name]
	if !ok {
		headers[h.Name] = &headerAccum{def: model.HeaderDef{Name: h.Name, Default: h.Default}}
		*order = append(*order, h.Name)
		return
	}
	if h.Default != nil {
		existing.def.Default = h.Default
	}
}

// walkItems builds the category tree for one level of items, emitting
// every endpoint it finds into m.Endpoints and accumulating prefixChain
// for path resolution. epIDs collects the ids of endpoints declared
// directly at this level, for the enclosing Category.Endpoints (the
// top-level call passes a throwaway slice since there is no enclosing
// category to attach them to).
func (r *Resolver) walkItems(
	items []ast.Item, prefixChain string, m *model.ApiModel,
	seen map[string]token.Span, errs *[]*Error, categoryID string, epIDs *[]string,
) []model.Category {
	var cats []model.Category

	for _, item := range items {
		switch {
		case item.Category != nil:
			c := item.Category
			childPrefix := joinPath(prefixChain, c.Prefix)
			cid := c.ForcedID
			if cid == "" {
				cid = categoryIDFor(childPrefix, c.Name)
			}
			out := model.Category{
				ID:          cid,
				Name:        c.Name,
				DisplayName: c.DispName,
				Description: c.Desc,
				Prefix:      c.Prefix,
			}
			var childEpIDs []string
			out.Children = r.walkItems(c.Children, childPrefix, m, seen, errs, cid, &childEpIDs)
			out.Endpoints = childEpIDs
			cats = append(cats, out)

		case item.Api != nil:
			*epIDs = append(*epIDs, r.emitAPIEndpoint(item.Api, prefixChain, m, seen, errs, categoryID)...)

		case item.Ws != nil:
			eid := r.emitWsEndpoint(model.KindWebSocket, item.Ws.URL, item.Ws.Doc, item.Ws.Events, item.Span, m, seen, errs, categoryID)
			if eid != "" {
				*epIDs = append(*epIDs, eid)
			}

		case item.Socketio != nil:
			if eid := r.emitSocketioEndpoint(item.Socketio, m, seen, errs, categoryID); eid != "" {
				*epIDs = append(*epIDs, eid)
			}

		case item.Sse != nil:
			if eid := r.emitSseEndpoint(item.Sse, prefixChain, m, seen, errs, categoryID); eid != "" {
				*epIDs = append(*epIDs, eid)
			}
		}
	}

	return cats
}

func categoryIDFor(prefix, name string) string {
	return id.OpenAPICategoryID("category:" + prefix + ":" + name)[:16]
}

func joinPath(a, b string) string {
	if a == "" {
		return b
	}
	if b == "" {
		return a
	}
	return strings.TrimSuffix(a, "/") + "/" + strings.TrimPrefix(b, "/")
}

func isAbsoluteURL(s string) bool { return strings.Contains(s, "://") }

// record registers an endpoint's id, appending a DuplicateEndpoint error
// (with both spans) if it collides with one already seen.
func record(eid string, span token.Span, seen map[string]token.Span, errs *[]*Error) bool {
	if other, ok := seen[eid]; ok {
		*errs = append(*errs, &Error{
			Kind:      DuplicateEndpoint,
			Msg:       "duplicate endpoint (same id)",
			Span:      span,
			OtherSpan: other,
		})
		return false
	}
	seen[eid] = span
	return true
}

func (r *Resolver) emitAPIEndpoint(
	a *ast.Api, prefixChain string, m *model.ApiModel,
	seen map[string]token.Span, errs *[]*Error, categoryID string,
) []string {
	path, fullURL := resolvePath(a.Path, prefixChain)
	var ids []string
	for _, method := range a.Methods {
		verb := model.HTTPVerb(strings.ToUpper(string(method.Verb)))
		eid := id.EndpointID(string(model.KindHTTP), locationFor(path, fullURL), string(verb))
		if !record(eid, method.Span, seen, errs) {
			continue
		}
		ep := model.Endpoint{
			ID:          eid,
			Kind:        model.KindHTTP,
			Path:        path,
			FullURL:     fullURL,
			Method:      verb,
			Name:        method.Name,
			Description: method.Doc,
			CategoryID:  categoryID,
			Request:     normalizeSchema(method.Request),
			Response:    normalizeSchema(method.Response),
		}
		m.Endpoints = append(m.Endpoints, ep)
		ids = append(ids, eid)
	}
	return ids
}

func (r *Resolver) emitWsEndpoint(
	kind model.EndpointKind, url, doc string, astEvents []ast.WsEvent, span token.Span,
	m *model.ApiModel, seen map[string]token.Span, errs *[]*Error, categoryID string,
) string {
	eid := id.EndpointID(string(kind), url, "")
	if !record(eid, span, seen, errs) {
		return ""
	}
	ep := model.Endpoint{
		ID:          eid,
		Kind:        kind,
		Path:        url,
		Description: doc,
		CategoryID:  categoryID,
		Events:      normalizeEvents(astEvents),
	}
	m.Endpoints = append(m.Endpoints, ep)
	return eid
}

func (r *Resolver) emitSocketioEndpoint(
	s *ast.Socketio, m *model.ApiModel, seen map[string]token.Span, errs *[]*Error, categoryID string,
) string {
	eid := id.EndpointID(string(model.KindSocketio), s.URL, "")
	if !record(eid, s.Span, seen, errs) {
		return ""
	}
	ep := model.Endpoint{
		ID:             eid,
		Kind:           model.KindSocketio,
		Path:           s.URL,
		Description:    s.Doc,
		CategoryID:     categoryID,
		Events:         normalizeEvents(s.Events),
		Auth:           normalizeSchema(s.Auth),
		ConnectHeaders: normalizeSchema(s.Headers),
	}
	m.Endpoints = append(m.Endpoints, ep)
	return eid
}

func (r *Resolver) emitSseEndpoint(
	s *ast.Sse, prefixChain string, m *model.ApiModel,
	seen map[string]token.Span, errs *[]*Error, categoryID string,
) string {
	path, fullURL := resolvePath(s.Path, prefixChain)
	eid := id.EndpointID(string(model.KindSse), locationFor(path, fullURL), string(model.MethodGet))
	if !record(eid, s.Span, seen, errs) {
		return ""
	}
	var events []model.WsEvent
	for _, ev := range s.Events {
		events = append(events, model.WsEvent{
			Name:     ev.Name,
			Response: &model.Schema{Fields: normalizeFields(ev.Fields)},
		})
	}
	ep := model.Endpoint{
		ID:          eid,
		Kind:        model.KindSse,
		Path:        path,
		FullURL:     fullURL,
		Method:      model.MethodGet,
		Name:        s.Name,
		Description: s.Doc,
		CategoryID:  categoryID,
		Request:     normalizeSchema(s.Request),
		Events:      events,
	}
	m.Endpoints = append(m.Endpoints, ep)
	return eid
}

// resolvePath applies invariant 2/4: an absolute URL is left untouched
// and never prefix-joined; otherwise the prefix chain is concatenated
// with the declared path.
func resolvePath(declared, prefixChain string) (path string, fullURL string) {
	if isAbsoluteURL(declared) {
		return declared, declared
	}
	return joinPath(prefixChain, declared), ""
}

// locationFor is the value hashed into an endpoint's id: the full URL
// when set, otherwise the resolved path.
func locationFor(path, fullURL string) string {
	if fullURL != "" {
		return fullURL
	}
	return path
}

func normalizeEvents(events []ast.WsEvent) []model.WsEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]model.WsEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, model.WsEvent{
			Name:     ev.Name,
			Request:  normalizeSchema(ev.Request),
			Response: normalizeSchema(ev.Response),
		})
	}
	return out
}

func normalizeSchema(s *ast.Schema) *model.Schema {
	if s == nil {
		return nil
	}
	return &model.Schema{Fields: normalizeFields(s.Fields)}
}

func normalizeFields(fields []ast.Field) []model.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]model.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, normalizeField(f))
	}
	return out
}

func normalizeField(f ast.Field) model.Field {
	mf := model.Field{
		Name:     f.Name,
		Optional: f.Optional,
		Comment:  f.Doc,
	}

	switch {
	case f.IsArray:
		mf.Type = model.TypeArray
		mf.Nested = normalizeSchema(f.Nested)
	case f.Nested != nil:
		mf.Type = model.TypeObject
		mf.Nested = normalizeSchema(f.Nested)
	default:
		mf.Type = primitiveFieldType(f.TypeName)
	}

	for _, ann := range f.Annotations {
		switch ann.Kind {
		case ast.AnnParams:
			mf.IsParams = true
		case ast.AnnMock:
			lit := normalizeLiteral(ann.Literal)
			mf.Mock = &lit
		case ast.AnnExample:
			lit := normalizeLiteral(ann.Literal)
			mf.Example = &lit
		}
	}

	return mf
}

func primitiveFieldType(typeName string) model.FieldType {
	switch typeName {
	case "String":
		return model.TypeString
	case "Number":
		return model.TypeNumber
	case "Boolean":
		return model.TypeBoolean
	default:
		return model.TypeAny
	}
}

func normalizeLiteral(l ast.Literal) model.Literal {
	switch l.Kind {
	case ast.LitString:
		return model.Literal{Kind: model.LitString, Str: l.Str}
	case ast.LitNumber:
		return model.Literal{Kind: model.LitNumber, Num: l.Num, NumberIsInt: l.NumberIsInt}
	case ast.LitBool:
		return model.Literal{Kind: model.LitBool, Bool: l.Bool}
	default:
		return model.Literal{}
	}
}
