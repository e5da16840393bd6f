// Package model defines the API Model: the resolved, normalized view of
// an API surface produced by pkg/resolver (C4) from a raw AST. It is the
// shape every downstream component (pkg/serve, pkg/mockgen, the browser
// client) actually consumes — the raw AST never leaves the
// parse/resolve pipeline.
package model

// FieldType is the normalized set of field types. Unlike the raw AST's
// Field, which distinguishes a primitive type name from a nested schema,
// every Field here carries an explicit FieldType.
type FieldType string

// Field types.
const (
	TypeString  FieldType = "String"
	TypeNumber  FieldType = "Number"
	TypeBoolean FieldType = "Boolean"
	TypeArray   FieldType = "Array"
	TypeObject  FieldType = "Object"
	TypeAny     FieldType = "Any"
)

// EndpointKind distinguishes the four endpoint shapes the model supports.
type EndpointKind string

// Endpoint kinds.
const (
	KindHTTP      EndpointKind = "Http"
	KindWebSocket EndpointKind = "WebSocket"
	KindSocketio  EndpointKind = "Socketio"
	KindSse       EndpointKind = "Sse"
)

// LiteralKind tags the shape of a Literal value.
type LiteralKind string

// Literal kinds.
const (
	LitString LiteralKind = "string"
	LitNumber LiteralKind = "number"
	LitBool   LiteralKind = "bool"
)

// Literal is a resolved annotation value (`@mock(...)` / `@example(...)`)
// or a config default, serialized with a discriminant so clients can
// decode it without guessing from JSON's own number/string/bool shapes.
type Literal struct {
	Kind        LiteralKind `json:"kind" yaml:"kind"`
	Str         string      `json:"str,omitempty" yaml:"str,omitempty"`
	Num         float64     `json:"num,omitempty" yaml:"num,omitempty"`
	NumberIsInt bool        `json:"numberIsInt,omitempty" yaml:"numberIsInt,omitempty"`
	Bool        bool        `json:"bool,omitempty" yaml:"bool,omitempty"`
}

// Field is one normalized schema field.
type Field struct {
	// Name is the field's key within its enclosing schema.
	Name string `json:"name" yaml:"name"`
	// Type is the normalized field type.
	Type FieldType `json:"type" yaml:"type"`
	// Optional marks the field as not required to appear in a payload.
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty"`
	// IsParams marks a request field that is synthesized as a query/path
	// parameter rather than a JSON body member (from `@params`).
	IsParams bool `json:"isParams,omitempty" yaml:"isParams,omitempty"`
	// Example holds a `@example(...)` literal, if declared.
	Example *Literal `json:"example,omitempty" yaml:"example,omitempty"`
	// Mock holds a `@mock(...)` literal, if declared.
	Mock *Literal `json:"mock,omitempty" yaml:"mock,omitempty"`
	// Comment is the field's attached doc comment, if any.
	Comment string `json:"comment,omitempty" yaml:"comment,omitempty"`
	// Nested is required when Type is Array (the element schema) or
	// Object (the object's own fields); nil otherwise.
	Nested *Schema `json:"nested,omitempty" yaml:"nested,omitempty"`
}

// Schema is an ordered list of fields.
type Schema struct {
	Fields []Field `json:"fields" yaml:"fields"`
}

// WsEvent is one named event exchanged over a WebSocket or Socket.IO
// connection.
type WsEvent struct {
	Name     string  `json:"name" yaml:"name"`
	Request  *Schema `json:"request,omitempty" yaml:"request,omitempty"`
	Response *Schema `json:"response,omitempty" yaml:"response,omitempty"`
}

// HTTPVerb is the set of HTTP methods a model endpoint may declare.
type HTTPVerb string

// Supported verbs.
const (
	MethodGet    HTTPVerb = "GET"
	MethodPost   HTTPVerb = "POST"
	MethodPut    HTTPVerb = "PUT"
	MethodPatch  HTTPVerb = "PATCH"
	MethodDelete HTTPVerb = "DELETE"
)

// Endpoint is one resolved, addressable surface: an HTTP route, a
// WebSocket or Socket.IO connection point (with its own event catalog),
// or an SSE stream.
type Endpoint struct {
	// ID is deterministic: sha256(kind, resolved path/url, method),
	// stable across reorderings and reformatting of the source. See
	// internal/id.EndpointID.
	ID   string       `json:"id" yaml:"id"`
	Kind EndpointKind `json:"kind" yaml:"kind"`
	// Path is the resolved path (prefix-joined) for Http/Sse, or the
	// verbatim URL for WebSocket/Socketio.
	Path string `json:"path" yaml:"path"`
	// FullURL is set when the endpoint was declared with an absolute
	// URL (contains "://"); Path is then left as the original literal
	// and no base-URL joining occurs.
	FullURL string `json:"fullUrl,omitempty" yaml:"fullUrl,omitempty"`
	// Method is present only for Http and Sse endpoints (always GET for Sse).
	Method      HTTPVerb `json:"method,omitempty" yaml:"method,omitempty"`
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	// CategoryID is the ID of the nearest enclosing category, if any.
	CategoryID string `json:"categoryId,omitempty" yaml:"categoryId,omitempty"`

	Request  *Schema `json:"request,omitempty" yaml:"request,omitempty"`
	Response *Schema `json:"response,omitempty" yaml:"response,omitempty"`

	// Events is populated for WebSocket/Socketio/Sse endpoints.
	Events []WsEvent `json:"events,omitempty" yaml:"events,omitempty"`
	// Auth/ConnectHeaders are populated for Socketio endpoints.
	Auth           *Schema `json:"auth,omitempty" yaml:"auth,omitempty"`
	ConnectHeaders *Schema `json:"connectHeaders,omitempty" yaml:"connectHeaders,omitempty"`
}

// VarDef is one resolved `variable` declaration.
type VarDef struct {
	Name    string  `json:"name" yaml:"name"`
	Type    string  `json:"type,omitempty" yaml:"type,omitempty"`
	Default *string `json:"default,omitempty" yaml:"default,omitempty"`
	// Value is the effective value: Default if set, else empty. No CLI
	// flag or environment variable overrides it.
	Value string `json:"value" yaml:"value"`
}

// HeaderDef is one resolved `header` declaration.
type HeaderDef struct {
	Name    string  `json:"name" yaml:"name"`
	Default *string `json:"default,omitempty" yaml:"default,omitempty"`
}

// Category is one node in the category tree; Endpoints lists only the
// endpoints declared directly inside it (not descendants).
type Category struct {
	ID          string     `json:"id" yaml:"id"`
	Name        string     `json:"name" yaml:"name"`
	DisplayName string     `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Prefix      string     `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Endpoints   []string   `json:"endpoints,omitempty" yaml:"endpoints,omitempty"`
	Children    []Category `json:"children,omitempty" yaml:"children,omitempty"`
}

// ApiModel is the root of the resolved view: everything pkg/serve needs
// to answer control-plane, mock-plane, and proxy-plane requests. It is
// rebuilt wholesale on every reload (pkg/watcher) and swapped in
// atomically so no handler ever observes a half-built model.
type ApiModel struct {
	BaseUrls   []string    `json:"baseUrls" yaml:"baseUrls"`
	Variables  []VarDef    `json:"variables" yaml:"variables"`
	Headers    []HeaderDef `json:"headers" yaml:"headers"`
	Mock       bool        `json:"mock" yaml:"mock"`
	Cors       bool        `json:"cors" yaml:"cors"`
	Categories []Category  `json:"categories" yaml:"categories"`
	Endpoints  []Endpoint  `json:"endpoints" yaml:"endpoints"`
}
