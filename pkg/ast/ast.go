// Package ast defines the raw AST produced by pkg/parser: the verbatim
// tree of a .rqc source file (or a merged tree after pkg/importer has
// inlined its imports), before pkg/resolver normalizes it into an API
// Model.
package ast

import "github.com/moonrailgun/reqcraft/pkg/token"

// LiteralKind tags the shape of a Literal value.
type LiteralKind int

// Literal kinds.
const (
	LitString LiteralKind = iota
	LitNumber
	LitBool
)

// Literal is a tagged variant over the three value shapes the grammar
// allows inside annotations and config defaults. NumberIsInt preserves the
// integer/float discriminant of the source text so that mock synthesis
// reproduces the written form (e.g. `@mock(1)` stays `1`, not `1.0`).
type Literal struct {
	Kind        LiteralKind
	Str         string
	Num         float64
	NumberIsInt bool
	Bool        bool
}

func String(s string) Literal { return Literal{Kind: LitString, Str: s} }
func Number(n float64, isInt bool) Literal {
	return Literal{Kind: LitNumber, Num: n, NumberIsInt: isInt}
}
func Bool(b bool) Literal { return Literal{Kind: LitBool, Bool: b} }

// Verb is an HTTP method verb.
type Verb string

// Supported verbs.
const (
	VerbGet    Verb = "get"
	VerbPost   Verb = "post"
	VerbPut    Verb = "put"
	VerbDelete Verb = "delete"
	VerbPatch  Verb = "patch"
)

// SourceFile is the root of one parsed .rqc file: an ordered list of
// top-level items. After import inlining, a SourceFile may contain items
// originally declared in other files; each item retains its own Span.
type SourceFile struct {
	Path  string
	Items []Item
}

// Item is any top-level (or category-nested) declaration.
type Item struct {
	Span     token.Span
	Import   *Import
	Config   *ConfigBlock
	Category *Category
	Api      *Api
	Ws       *Ws
	Socketio *Socketio
	Sse      *Sse
}

// Import is a raw `import "..."` statement, resolved by pkg/importer.
type Import struct {
	Span token.Span
	Path string
}

// ConfigBlock is an ordered sequence of config entries.
type ConfigBlock struct {
	Span    token.Span
	Entries []ConfigEntry
}

// ConfigEntry is one of BaseUrl/Variable/Header/Mock/Cors.
type ConfigEntry struct {
	Span    token.Span
	BaseUrl []string // present iff this entry is a `baseUrl` declaration

	Variable *VariableDecl
	Header   *HeaderDecl

	// Mock/Cors flags: IsMock/IsCors tell which scalar this entry sets,
	// since a ConfigEntry's zero value can't otherwise distinguish
	// "mock false" from "not a mock entry".
	IsMock  bool
	MockVal bool
	IsCors  bool
	CorsVal bool
}

// VariableDecl is a `variable NAME [Type] [default("...")]` entry.
type VariableDecl struct {
	Span    token.Span
	Name    string
	Type    string // "" if unspecified
	Default *string
}

// HeaderDecl is a `header NAME [@default("...")]` entry.
type HeaderDecl struct {
	Span    token.Span
	Name    string
	Default *string
}

// Category groups endpoints and optionally contributes a URL prefix to
// its descendants.
type Category struct {
	Span     token.Span
	Name     string
	DispName string // from `name "..."`, may be empty
	Desc     string // from `desc "..."`, may be empty
	Prefix   string // from `prefix "..."`, may be empty
	Doc      string // attached leading doc comment
	Children []Item

	// ForcedID overrides the resolver's normal name-derived category ID.
	// Only set by pkg/openapi, which must produce the deterministic
	// "openapi-<hash>" id named in the spec's C5 section regardless of
	// what tag name the category was grouped under.
	ForcedID string
}

// HTTPMethod is one verb block inside an `api` declaration.
type HTTPMethod struct {
	Span     token.Span
	Verb     Verb
	Doc      string
	Name     string
	Request  *Schema
	Response *Schema
}

// Api is an `api path { ... }` declaration with one or more HTTP methods.
type Api struct {
	Span    token.Span
	Path    string
	Doc     string
	Methods []HTTPMethod
}

// WsEvent is an `event NAME { request? response? }` block.
type WsEvent struct {
	Span     token.Span
	Name     string
	Doc      string
	Request  *Schema
	Response *Schema
}

// Ws is a `ws URL { event* }` declaration.
type Ws struct {
	Span   token.Span
	URL    string
	Doc    string
	Events []WsEvent
}

// Socketio is a `socketio URL { auth? headers? event* }` declaration.
type Socketio struct {
	Span    token.Span
	URL     string
	Doc     string
	Auth    *Schema
	Headers *Schema
	Events  []WsEvent
}

// SseEvent is one `event NAME { field* }` block inside an sse response.
type SseEvent struct {
	Span   token.Span
	Name   string
	Fields []Field
}

// Sse is an `sse path { name? request? response { event* } }` declaration.
type Sse struct {
	Span     token.Span
	Path     string
	Doc      string
	Name     string
	Request  *Schema
	Events   []SseEvent
}

// Schema is an ordered sequence of fields; Optional marks a trailing `?`
// on the enclosing block.
type Schema struct {
	Span     token.Span
	Fields   []Field
	Optional bool
}

// AnnotationKind tags which annotation was attached to a field.
type AnnotationKind int

// Annotation kinds.
const (
	AnnMock AnnotationKind = iota
	AnnExample
	AnnParams
)

// Annotation is `@mock(lit)`, `@example(lit)`, or `@params`.
type Annotation struct {
	Span    token.Span
	Kind    AnnotationKind
	Literal Literal // zero value for AnnParams
}

// Field is one entry inside a Schema: either a primitive/Any typed field
// or one carrying a Nested schema (object or array element).
type Field struct {
	Span        token.Span
	Name        string
	TypeName    string // "String" | "Number" | "Boolean" | "Any" | "" (nested)
	Nested      *Schema
	IsArray     bool // true for an array-shaped nested schema; only the OpenAPI translator sets it
	Optional    bool
	Doc         string
	Annotations []Annotation
}
