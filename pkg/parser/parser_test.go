package parser

import (
	"testing"

	"github.com/moonrailgun/reqcraft/pkg/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMinimalApi(t *testing.T) {
	src := `
api /users/{id} {
  get {
    name "getUser"
    response {
      id Number
      name String
    }
  }
}
`
	sf, errs := Parse("t.rqc", []byte(src))
	require.Empty(t, errs)
	require.Len(t, sf.Items, 1)
	a := sf.Items[0].Api
	require.NotNil(t, a)
	assert.Equal(t, "/users/{id}", a.Path)
	require.Len(t, a.Methods, 1)
	m := a.Methods[0]
	assert.Equal(t, ast.VerbGet, m.Verb)
	assert.Equal(t, "getUser", m.Name)
	require.NotNil(t, m.Response)
	require.Len(t, m.Response.Fields, 2)
	assert.Equal(t, "id", m.Response.Fields[0].Name)
	assert.Equal(t, "Number", m.Response.Fields[0].TypeName)
}

func TestParseCategoryWithPrefix(t *testing.T) {
	src := `
category users {
  prefix "/users"

  api /{id} {
    get {
      response { id Number }
    }
  }
}
`
	sf, errs := Parse("t.rqc", []byte(src))
	require.Empty(t, errs)
	cat := sf.Items[0].Category
	require.NotNil(t, cat)
	assert.Equal(t, "users", cat.Name)
	assert.Equal(t, "/users", cat.Prefix)
	require.Len(t, cat.Children, 1)
	assert.NotNil(t, cat.Children[0].Api)
}

func TestParseDocCommentAttachesToApi(t *testing.T) {
	src := `
// Fetches a single user by id.
api /users/{id} {
  get {
    response { id Number }
  }
}
`
	sf, errs := Parse("t.rqc", []byte(src))
	require.Empty(t, errs)
	assert.Equal(t, "Fetches a single user by id.", sf.Items[0].Api.Doc)
}

func TestParseDocCommentBlankLineBreaksAttachment(t *testing.T) {
	src := `
// Stale comment, not attached.

api /users/{id} {
  get {
    response { id Number }
  }
}
`
	sf, errs := Parse("t.rqc", []byte(src))
	require.Empty(t, errs)
	assert.Equal(t, "", sf.Items[0].Api.Doc)
}

func TestParseConfigBlock(t *testing.T) {
	src := `
config {
  baseUrl "https://api.example.com"
  variable token String default("abc123")
  header X-Trace-Id @default("none")
  mock true
  cors false
}
`
	sf, errs := Parse("t.rqc", []byte(src))
	require.Empty(t, errs)
	cfg := sf.Items[0].Config
	require.NotNil(t, cfg)
	require.Len(t, cfg.Entries, 5)

	assert.Equal(t, []string{"https://api.example.com"}, cfg.Entries[0].BaseUrl)

	v := cfg.Entries[1].Variable
	require.NotNil(t, v)
	assert.Equal(t, "token", v.Name)
	assert.Equal(t, "String", v.Type)
	require.NotNil(t, v.Default)
	assert.Equal(t, "abc123", *v.Default)

	h := cfg.Entries[2].Header
	require.NotNil(t, h)
	assert.Equal(t, "X-Trace-Id", h.Name)
	require.NotNil(t, h.Default)
	assert.Equal(t, "none", *h.Default)

	assert.True(t, cfg.Entries[3].IsMock)
	assert.True(t, cfg.Entries[3].MockVal)
	assert.True(t, cfg.Entries[4].IsCors)
	assert.False(t, cfg.Entries[4].CorsVal)
}

func TestParseFieldAnnotations(t *testing.T) {
	src := `
api /users {
  post {
    request {
      name String @params
      age Number @mock(21)
      nick String @example("bob")
    }
    response { ok Boolean }
  }
}
`
	sf, errs := Parse("t.rqc", []byte(src))
	require.Empty(t, errs)
	fields := sf.Items[0].Api.Methods[0].Request.Fields
	require.Len(t, fields, 3)
	assert.Equal(t, ast.AnnParams, fields[0].Annotations[0].Kind)
	assert.Equal(t, ast.AnnMock, fields[1].Annotations[0].Kind)
	assert.Equal(t, float64(21), fields[1].Annotations[0].Literal.Num)
	assert.Equal(t, ast.AnnExample, fields[2].Annotations[0].Kind)
	assert.Equal(t, "bob", fields[2].Annotations[0].Literal.Str)
}

func TestParseNestedOptionalSchema(t *testing.T) {
	src := `
api /users {
  get {
    response {
      profile {
        bio String
      }?
    }
  }
}
`
	sf, errs := Parse("t.rqc", []byte(src))
	require.Empty(t, errs)
	f := sf.Items[0].Api.Methods[0].Response.Fields[0]
	assert.Equal(t, "profile", f.Name)
	assert.True(t, f.Optional)
	require.NotNil(t, f.Nested)
	assert.Len(t, f.Nested.Fields, 1)
}

func TestParseWsAndEvents(t *testing.T) {
	src := `
ws /realtime {
  event join {
    request { room String }
  }
  event message {
    response { text String }
  }
}
`
	sf, errs := Parse("t.rqc", []byte(src))
	require.Empty(t, errs)
	w := sf.Items[0].Ws
	require.NotNil(t, w)
	require.Len(t, w.Events, 2)
	assert.Equal(t, "join", w.Events[0].Name)
	assert.Equal(t, "message", w.Events[1].Name)
}

func TestParseSocketioWithAuth(t *testing.T) {
	src := `
socketio /socket.io {
  auth {
    token String
  }
  event ping {
    response { pong Boolean }
  }
}
`
	sf, errs := Parse("t.rqc", []byte(src))
	require.Empty(t, errs)
	s := sf.Items[0].Socketio
	require.NotNil(t, s)
	require.NotNil(t, s.Auth)
	assert.Equal(t, "token", s.Auth.Fields[0].Name)
	require.Len(t, s.Events, 1)
}

func TestParseSse(t *testing.T) {
	src := `
sse /events {
  name "events"
  response {
    event tick {
      seq Number
    }
  }
}
`
	sf, errs := Parse("t.rqc", []byte(src))
	require.Empty(t, errs)
	s := sf.Items[0].Sse
	require.NotNil(t, s)
	assert.Equal(t, "events", s.Name)
	require.Len(t, s.Events, 1)
	assert.Equal(t, "tick", s.Events[0].Name)
	assert.Equal(t, "seq", s.Events[0].Fields[0].Name)
}

func TestParseImport(t *testing.T) {
	src := `import "./common.rqc"`
	sf, errs := Parse("t.rqc", []byte(src))
	require.Empty(t, errs)
	require.NotNil(t, sf.Items[0].Import)
	assert.Equal(t, "./common.rqc", sf.Items[0].Import.Path)
}

func TestParseDuplicateMethodError(t *testing.T) {
	src := `
api /users {
  get { response { ok Boolean } }
  get { response { ok Boolean } }
}
`
	_, errs := Parse("t.rqc", []byte(src))
	require.Len(t, errs, 1)
	assert.Equal(t, DuplicateMethod, errs[0].Kind)
}

func TestParseUnknownAnnotationError(t *testing.T) {
	src := `
api /users {
  get {
    response {
      id Number @bogus
    }
  }
}
`
	_, errs := Parse("t.rqc", []byte(src))
	require.Len(t, errs, 1)
	assert.Equal(t, UnknownAnnotation, errs[0].Kind)
}

func TestParseLiteralTypeMismatchError(t *testing.T) {
	src := `
api /users {
  get {
    response {
      age Number @mock("not a number")
    }
  }
}
`
	_, errs := Parse("t.rqc", []byte(src))
	require.Len(t, errs, 1)
	assert.Equal(t, LiteralTypeMismatch, errs[0].Kind)
}

func TestParseErrorIsolationAcrossTopLevelItems(t *testing.T) {
	src := `
api /broken {
  get {
    response {
      id @@@
    }
  }
}

api /fine {
  get {
    response { ok Boolean }
  }
}
`
	sf, errs := Parse("t.rqc", []byte(src))
	require.Len(t, errs, 1)
	require.Len(t, sf.Items, 1)
	assert.Equal(t, "/fine", sf.Items[0].Api.Path)
}

func TestParseUnexpectedTokenError(t *testing.T) {
	src := `api {`
	_, errs := Parse("t.rqc", []byte(src))
	require.NotEmpty(t, errs)
	assert.Equal(t, UnexpectedToken, errs[0].Kind)
}
