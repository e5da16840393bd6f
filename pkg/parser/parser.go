// Package parser implements the recursive-descent .rqc parser (C2): one
// token of lookahead, producing the raw AST defined in pkg/ast.
//
// Parsing is fail-fast within a single top-level item (or category child)
// but records only the first error per top-level item, so one malformed
// block doesn't mask unrelated errors in sibling items — matching the
// spec's error-isolation requirement.
package parser

import (
	"strconv"

	"github.com/moonrailgun/reqcraft/pkg/ast"
	"github.com/moonrailgun/reqcraft/pkg/lexer"
	"github.com/moonrailgun/reqcraft/pkg/token"
)

// Parser turns one file's token stream into an ast.SourceFile.
type Parser struct {
	file   string
	toks   []token.Token
	docs   docMap
	pos    int
	errors []*Error
}

// Parse lexes and parses a single .rqc source file. It returns the best
// partial AST it could build alongside any errors (one per broken
// top-level item); callers should treat a non-empty error slice as a
// failed build but may still inspect the partial tree for tooling.
func Parse(file string, src []byte) (*ast.SourceFile, []*Error) {
	lx := lexer.New(file, src)
	raw, lexErr := lx.Tokenize()
	if lexErr != nil {
		le := lexErr.(*lexer.Error)
		return nil, []*Error{{
			Kind: UnexpectedToken,
			Msg:  le.Error(),
			Span: le.Span,
		}}
	}

	sig := make([]token.Token, 0, len(raw))
	for _, t := range raw {
		switch t.Kind {
		case token.Newline, token.LineComment, token.BlockComment:
			continue
		default:
			sig = append(sig, t)
		}
	}

	p := &Parser{file: file, toks: sig, docs: buildDocs(raw)}
	sf := &ast.SourceFile{Path: file}

	for !p.atEOF() {
		item, err := p.parseTopLevelItemRecovering()
		if err != nil {
			pe, ok := err.(*Error)
			if !ok {
				pe = &Error{Kind: UnexpectedToken, Msg: err.Error(), Span: p.cur().Span}
			}
			p.errors = append(p.errors, pe)
			continue
		}
		if item != nil {
			sf.Items = append(sf.Items, *item)
		}
	}

	return sf, p.errors
}

func (p *Parser) atEOF() bool { return p.cur().Kind == token.EOF }

func (p *Parser) cur() token.Token { return p.toks[p.pos] }

func (p *Parser) at(off int) token.Token {
	i := p.pos + off
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[i]
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if t.Kind != token.EOF {
		p.pos++
	}
	return t
}

func (p *Parser) docFor(t token.Token) string {
	return p.docs[t.Span.ByteStart]
}

// expectSymbol consumes the current token if it is a Symbol with the given
// text; otherwise returns an UnexpectedToken error.
func (p *Parser) expectSymbol(sym string) (token.Token, error) {
	if p.cur().Kind == token.Symbol && p.cur().Text == sym {
		return p.advance(), nil
	}
	return token.Token{}, newUnexpected(p.cur(), "'"+sym+"'")
}

func (p *Parser) atSymbol(sym string) bool {
	return p.cur().Kind == token.Symbol && p.cur().Text == sym
}

func (p *Parser) atIdent(text string) bool {
	return p.cur().Kind == token.Ident && p.cur().Text == text
}

func (p *Parser) expectIdent(text string) (token.Token, error) {
	if p.atIdent(text) {
		return p.advance(), nil
	}
	return token.Token{}, newUnexpected(p.cur(), "'"+text+"'")
}

func (p *Parser) expectString() (token.Token, error) {
	if p.cur().Kind == token.String {
		return p.advance(), nil
	}
	return token.Token{}, newUnexpected(p.cur(), "string literal")
}

func (p *Parser) expectPathOrURL() (token.Token, error) {
	if p.cur().Kind == token.Ident {
		return p.advance(), nil
	}
	return token.Token{}, newUnexpected(p.cur(), "path or URL")
}

// parseTopLevelItemRecovering parses one top-level item; on error it skips
// tokens (respecting brace nesting) up to the next recognizable top-level
// keyword or EOF, so the rest of the file can still be parsed.
func (p *Parser) parseTopLevelItemRecovering() (*ast.Item, error) {
	item, err := p.parseItem(true)
	if err != nil {
		p.recoverToTopLevel()
		return nil, err
	}
	return item, nil
}

var topLevelKeywords = map[string]bool{
	"import": true, "config": true, "category": true,
	"api": true, "ws": true, "socketio": true, "sse": true,
}

// recoverToTopLevel skips forward to the next token that looks like the
// start of a top-level item, so a single broken item doesn't cascade into
// spurious errors for its own unconsumed closing braces. Braces opened
// after the error are tracked normally; a "}" seen at depth 0 is one of
// the error site's own enclosing blocks unwinding, so it's consumed and
// ignored rather than treated as a recovery boundary.
func (p *Parser) recoverToTopLevel() {
	depth := 0
	for !p.atEOF() {
		if depth == 0 && p.cur().Kind == token.Ident && topLevelKeywords[p.cur().Text] {
			return
		}
		if p.atSymbol("{") {
			depth++
		} else if p.atSymbol("}") && depth > 0 {
			depth--
		}
		p.advance()
	}
}

// parseItem parses one item (top-level or category child). topLevel is
// not consulted: every item kind, "import" included, is accepted in both
// positions, so the flag only records which kind of call site this is.
func (p *Parser) parseItem(topLevel bool) (*ast.Item, error) {
	_ = topLevel
	tok := p.cur()
	if tok.Kind != token.Ident {
		return nil, newUnexpected(tok, "a declaration")
	}

	switch tok.Text {
	case "import":
		imp, err := p.parseImport()
		if err != nil {
			return nil, err
		}
		return &ast.Item{Span: imp.Span, Import: imp}, nil
	case "config":
		cfg, err := p.parseConfig()
		if err != nil {
			return nil, err
		}
		return &ast.Item{Span: cfg.Span, Config: cfg}, nil
	case "category":
		cat, err := p.parseCategory()
		if err != nil {
			return nil, err
		}
		return &ast.Item{Span: cat.Span, Category: cat}, nil
	case "api":
		a, err := p.parseAPI()
		if err != nil {
			return nil, err
		}
		return &ast.Item{Span: a.Span, Api: a}, nil
	case "ws":
		w, err := p.parseWs()
		if err != nil {
			return nil, err
		}
		return &ast.Item{Span: w.Span, Ws: w}, nil
	case "socketio":
		s, err := p.parseSocketio()
		if err != nil {
			return nil, err
		}
		return &ast.Item{Span: s.Span, Socketio: s}, nil
	case "sse":
		s, err := p.parseSse()
		if err != nil {
			return nil, err
		}
		return &ast.Item{Span: s.Span, Sse: s}, nil
	default:
		return nil, newUnexpected(tok, "a declaration (import/config/category/api/ws/socketio/sse)")
	}
}

func (p *Parser) parseImport() (*ast.Import, error) {
	kw, _ := p.expectIdent("import")
	str, err := p.expectString()
	if err != nil {
		return nil, err
	}
	return &ast.Import{Span: kw.Span, Path: str.Text}, nil
}

func (p *Parser) parseConfig() (*ast.ConfigBlock, error) {
	kw, _ := p.expectIdent("config")
	if _, err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	cfg := &ast.ConfigBlock{Span: kw.Span}
	for !p.atSymbol("}") {
		if p.atEOF() {
			return nil, newUnexpected(p.cur(), "'}'")
		}
		entry, err := p.parseConfigEntry()
		if err != nil {
			return nil, err
		}
		cfg.Entries = append(cfg.Entries, *entry)
	}
	if _, err := p.expectSymbol("}"); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (p *Parser) parseConfigEntry() (*ast.ConfigEntry, error) {
	tok := p.cur()
	if tok.Kind != token.Ident {
		return nil, newUnexpected(tok, "a config entry")
	}
	switch tok.Text {
	case "baseUrl":
		p.advance()
		var urls []string
		for {
			// A URL may be written bare or as a quoted string.
			u := p.cur()
			if u.Kind != token.Ident && u.Kind != token.String {
				return nil, newUnexpected(u, "a URL")
			}
			p.advance()
			urls = append(urls, u.Text)
			if p.atSymbol(",") {
				p.advance()
				continue
			}
			break
		}
		return &ast.ConfigEntry{Span: tok.Span, BaseUrl: urls}, nil
	case "variable":
		p.advance()
		name, err := p.expectIdentAny()
		if err != nil {
			return nil, err
		}
		v := &ast.VariableDecl{Span: tok.Span, Name: name.Text}
		if p.cur().Kind == token.Ident && isTypeName(p.cur().Text) {
			v.Type = p.advance().Text
		}
		if p.atIdent("default") {
			p.advance()
			if _, err := p.expectSymbol("("); err != nil {
				return nil, err
			}
			s, err := p.expectString()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectSymbol(")"); err != nil {
				return nil, err
			}
			d := s.Text
			v.Default = &d
		}
		return &ast.ConfigEntry{Span: tok.Span, Variable: v}, nil
	case "header":
		p.advance()
		name, err := p.expectIdentAny()
		if err != nil {
			return nil, err
		}
		h := &ast.HeaderDecl{Span: tok.Span, Name: name.Text}
		if p.atSymbol("@") {
			p.advance()
			if _, err := p.expectIdent("default"); err != nil {
				return nil, err
			}
			if _, err := p.expectSymbol("("); err != nil {
				return nil, err
			}
			s, err := p.expectString()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectSymbol(")"); err != nil {
				return nil, err
			}
			d := s.Text
			h.Default = &d
		}
		return &ast.ConfigEntry{Span: tok.Span, Header: h}, nil
	case "mock":
		p.advance()
		b, err := p.expectBool()
		if err != nil {
			return nil, err
		}
		return &ast.ConfigEntry{Span: tok.Span, IsMock: true, MockVal: b}, nil
	case "cors":
		p.advance()
		b, err := p.expectBool()
		if err != nil {
			return nil, err
		}
		return &ast.ConfigEntry{Span: tok.Span, IsCors: true, CorsVal: b}, nil
	default:
		return nil, newUnexpected(tok, "baseUrl/variable/header/mock/cors")
	}
}

func isTypeName(s string) bool {
	switch s {
	case "String", "Number", "Boolean", "Any":
		return true
	default:
		return false
	}
}

func (p *Parser) expectBool() (bool, error) {
	tok := p.cur()
	if tok.Kind == token.Ident && (tok.Text == "true" || tok.Text == "false") {
		p.advance()
		return tok.Text == "true", nil
	}
	return false, newUnexpected(tok, "true or false")
}

func (p *Parser) parseCategory() (*ast.Category, error) {
	kw, _ := p.expectIdent("category")
	doc := p.docFor(kw)
	nameTok, err := p.expectIdentAny()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	cat := &ast.Category{Span: kw.Span, Name: nameTok.Text, Doc: doc}
	for !p.atSymbol("}") {
		if p.atEOF() {
			return nil, newUnexpected(p.cur(), "'}'")
		}
		if p.cur().Kind == token.Ident {
			switch p.cur().Text {
			case "name":
				p.advance()
				s, err := p.expectString()
				if err != nil {
					return nil, err
				}
				cat.DispName = s.Text
				continue
			case "desc":
				p.advance()
				s, err := p.expectString()
				if err != nil {
					return nil, err
				}
				cat.Desc = s.Text
				continue
			case "prefix":
				p.advance()
				s, err := p.expectString()
				if err != nil {
					return nil, err
				}
				cat.Prefix = s.Text
				continue
			}
		}
		child, err := p.parseItem(false)
		if err != nil {
			return nil, err
		}
		cat.Children = append(cat.Children, *child)
	}
	if _, err := p.expectSymbol("}"); err != nil {
		return nil, err
	}
	return cat, nil
}

// expectIdentAny consumes any identifier-kind token (used for names that
// aren't fixed keywords, e.g. a category's own name).
func (p *Parser) expectIdentAny() (token.Token, error) {
	if p.cur().Kind == token.Ident {
		return p.advance(), nil
	}
	return token.Token{}, newUnexpected(p.cur(), "identifier")
}

func (p *Parser) parseAPI() (*ast.Api, error) {
	kw, _ := p.expectIdent("api")
	doc := p.docFor(kw)
	path, err := p.expectPathOrURL()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	a := &ast.Api{Span: kw.Span, Path: path.Text, Doc: doc}
	seen := map[ast.Verb]bool{}
	for !p.atSymbol("}") {
		if p.atEOF() {
			return nil, newUnexpected(p.cur(), "'}'")
		}
		m, err := p.parseHTTPMethod()
		if err != nil {
			return nil, err
		}
		if seen[m.Verb] {
			return nil, &Error{Kind: DuplicateMethod, Msg: "duplicate method '" + string(m.Verb) + "' in api block", Span: m.Span}
		}
		seen[m.Verb] = true
		a.Methods = append(a.Methods, *m)
	}
	if _, err := p.expectSymbol("}"); err != nil {
		return nil, err
	}
	return a, nil
}

var verbSet = map[string]ast.Verb{
	"get": ast.VerbGet, "post": ast.VerbPost, "put": ast.VerbPut,
	"delete": ast.VerbDelete, "patch": ast.VerbPatch,
}

func (p *Parser) parseHTTPMethod() (*ast.HTTPMethod, error) {
	tok := p.cur()
	verb, ok := verbSet[tok.Text]
	if tok.Kind != token.Ident || !ok {
		return nil, newUnexpected(tok, "get/post/put/delete/patch")
	}
	doc := p.docFor(tok)
	p.advance()
	if _, err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	m := &ast.HTTPMethod{Span: tok.Span, Verb: verb, Doc: doc}
	for !p.atSymbol("}") {
		if p.atEOF() {
			return nil, newUnexpected(p.cur(), "'}'")
		}
		switch {
		case p.atIdent("name"):
			p.advance()
			s, err := p.expectString()
			if err != nil {
				return nil, err
			}
			m.Name = s.Text
		case p.atIdent("request"):
			p.advance()
			sc, err := p.parseSchema()
			if err != nil {
				return nil, err
			}
			m.Request = sc
		case p.atIdent("response"):
			p.advance()
			sc, err := p.parseSchema()
			if err != nil {
				return nil, err
			}
			m.Response = sc
		default:
			return nil, newUnexpected(p.cur(), "name/request/response")
		}
	}
	if _, err := p.expectSymbol("}"); err != nil {
		return nil, err
	}
	return m, nil
}

func (p *Parser) parseWs() (*ast.Ws, error) {
	kw, _ := p.expectIdent("ws")
	doc := p.docFor(kw)
	url, err := p.expectPathOrURL()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	w := &ast.Ws{Span: kw.Span, URL: url.Text, Doc: doc}
	for !p.atSymbol("}") {
		if p.atEOF() {
			return nil, newUnexpected(p.cur(), "'}'")
		}
		ev, err := p.parseEvent()
		if err != nil {
			return nil, err
		}
		w.Events = append(w.Events, *ev)
	}
	if _, err := p.expectSymbol("}"); err != nil {
		return nil, err
	}
	return w, nil
}

func (p *Parser) parseSocketio() (*ast.Socketio, error) {
	kw, _ := p.expectIdent("socketio")
	doc := p.docFor(kw)
	url, err := p.expectPathOrURL()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	s := &ast.Socketio{Span: kw.Span, URL: url.Text, Doc: doc}
	for !p.atSymbol("}") {
		if p.atEOF() {
			return nil, newUnexpected(p.cur(), "'}'")
		}
		switch {
		case p.atIdent("auth"):
			p.advance()
			sc, err := p.parseSchema()
			if err != nil {
				return nil, err
			}
			s.Auth = sc
		case p.atIdent("headers"):
			p.advance()
			sc, err := p.parseSchema()
			if err != nil {
				return nil, err
			}
			s.Headers = sc
		case p.atIdent("event"):
			ev, err := p.parseEvent()
			if err != nil {
				return nil, err
			}
			s.Events = append(s.Events, *ev)
		default:
			return nil, newUnexpected(p.cur(), "auth/headers/event")
		}
	}
	if _, err := p.expectSymbol("}"); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *Parser) parseEvent() (*ast.WsEvent, error) {
	kw, err := p.expectIdent("event")
	if err != nil {
		return nil, err
	}
	doc := p.docFor(kw)
	name, err := p.expectIdentAny()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	ev := &ast.WsEvent{Span: kw.Span, Name: name.Text, Doc: doc}
	for !p.atSymbol("}") {
		if p.atEOF() {
			return nil, newUnexpected(p.cur(), "'}'")
		}
		switch {
		case p.atIdent("request"):
			p.advance()
			sc, err := p.parseSchema()
			if err != nil {
				return nil, err
			}
			ev.Request = sc
		case p.atIdent("response"):
			p.advance()
			sc, err := p.parseSchema()
			if err != nil {
				return nil, err
			}
			ev.Response = sc
		default:
			return nil, newUnexpected(p.cur(), "request/response")
		}
	}
	if _, err := p.expectSymbol("}"); err != nil {
		return nil, err
	}
	return ev, nil
}

func (p *Parser) parseSse() (*ast.Sse, error) {
	kw, _ := p.expectIdent("sse")
	doc := p.docFor(kw)
	path, err := p.expectPathOrURL()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	s := &ast.Sse{Span: kw.Span, Path: path.Text, Doc: doc}
	for !p.atSymbol("}") {
		if p.atEOF() {
			return nil, newUnexpected(p.cur(), "'}'")
		}
		switch {
		case p.atIdent("name"):
			p.advance()
			str, err := p.expectString()
			if err != nil {
				return nil, err
			}
			s.Name = str.Text
		case p.atIdent("request"):
			p.advance()
			sc, err := p.parseSchema()
			if err != nil {
				return nil, err
			}
			s.Request = sc
		case p.atIdent("response"):
			p.advance()
			if _, err := p.expectSymbol("{"); err != nil {
				return nil, err
			}
			for !p.atSymbol("}") {
				if p.atEOF() {
					return nil, newUnexpected(p.cur(), "'}'")
				}
				evKw, err := p.expectIdent("event")
				if err != nil {
					return nil, err
				}
				name, err := p.expectIdentAny()
				if err != nil {
					return nil, err
				}
				fields, err := p.parseFieldList()
				if err != nil {
					return nil, err
				}
				s.Events = append(s.Events, ast.SseEvent{Span: evKw.Span, Name: name.Text, Fields: fields})
			}
			if _, err := p.expectSymbol("}"); err != nil {
				return nil, err
			}
		default:
			return nil, newUnexpected(p.cur(), "name/request/response")
		}
	}
	if _, err := p.expectSymbol("}"); err != nil {
		return nil, err
	}
	return s, nil
}

// parseSchema parses `{ field* } ["?"]`.
func (p *Parser) parseSchema() (*ast.Schema, error) {
	open, err := p.expectSymbol("{")
	if err != nil {
		return nil, err
	}
	fields, err := p.parseFieldsUntilClose()
	if err != nil {
		return nil, err
	}
	sc := &ast.Schema{Span: open.Span, Fields: fields}
	if p.atSymbol("?") {
		p.advance()
		sc.Optional = true
	}
	return sc, nil
}

// parseFieldList parses `{ field* }` without a trailing optional marker,
// used for sse event blocks which the grammar defines as plain field
// lists rather than full schemas.
func (p *Parser) parseFieldList() ([]ast.Field, error) {
	if _, err := p.expectSymbol("{"); err != nil {
		return nil, err
	}
	return p.parseFieldsUntilClose()
}

func (p *Parser) parseFieldsUntilClose() ([]ast.Field, error) {
	var fields []ast.Field
	for !p.atSymbol("}") {
		if p.atEOF() {
			return nil, newUnexpected(p.cur(), "'}'")
		}
		f, err := p.parseField()
		if err != nil {
			return nil, err
		}
		fields = append(fields, *f)
	}
	if _, err := p.expectSymbol("}"); err != nil {
		return nil, err
	}
	return fields, nil
}

// parseField parses `IDENT (typeName | schema) "?"? annotation*`.
func (p *Parser) parseField() (*ast.Field, error) {
	name, err := p.expectIdentAny()
	if err != nil {
		return nil, err
	}
	doc := p.docFor(name)
	f := &ast.Field{Span: name.Span, Name: name.Text, Doc: doc}

	if p.cur().Kind == token.Ident && isTypeName(p.cur().Text) {
		f.TypeName = p.advance().Text
	} else if p.atSymbol("{") {
		sc, err := p.parseSchema()
		if err != nil {
			return nil, err
		}
		f.Nested = sc
		if sc.Optional {
			f.Optional = true
			sc.Optional = false // the trailing '?' belongs to the field, not double-counted
		}
	} else {
		return nil, newUnexpected(p.cur(), "a type name or nested schema")
	}

	if p.atSymbol("?") {
		p.advance()
		f.Optional = true
	}

	for p.atSymbol("@") {
		at := p.advance()
		ann, err := p.parseAnnotation(at, f.TypeName)
		if err != nil {
			return nil, err
		}
		f.Annotations = append(f.Annotations, *ann)
	}

	return f, nil
}

// parseAnnotation parses one `@mock(lit)` / `@example(lit)` / `@params`
// annotation. fieldType is the enclosing field's type name ("Any" for an
// Any field, "" for a nested one), used to reject a literal whose kind can't
// match (e.g. `@mock("x")` on a Number field).
func (p *Parser) parseAnnotation(at token.Token, fieldType string) (*ast.Annotation, error) {
	name, err := p.expectIdentAny()
	if err != nil {
		return nil, err
	}
	switch name.Text {
	case "params":
		return &ast.Annotation{Span: at.Span, Kind: ast.AnnParams}, nil
	case "mock", "example":
		if _, err := p.expectSymbol("("); err != nil {
			return nil, err
		}
		litTok := p.cur()
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		if !literalMatchesType(lit, fieldType) {
			return nil, &Error{
				Kind: LiteralTypeMismatch,
				Msg:  "literal does not match field type '" + fieldType + "'",
				Span: litTok.Span,
			}
		}
		if _, err := p.expectSymbol(")"); err != nil {
			return nil, err
		}
		kind := ast.AnnMock
		if name.Text == "example" {
			kind = ast.AnnExample
		}
		return &ast.Annotation{Span: at.Span, Kind: kind, Literal: lit}, nil
	default:
		return nil, &Error{
			Kind: UnknownAnnotation,
			Msg:  "unknown annotation '@" + name.Text + "'",
			Span: name.Span,
		}
	}
}

// literalMatchesType reports whether lit is an acceptable value for a
// field declared with fieldType. An empty fieldType (nested schema, or
// an "Any"-typed field) accepts any literal kind.
func literalMatchesType(lit ast.Literal, fieldType string) bool {
	switch fieldType {
	case "String":
		return lit.Kind == ast.LitString
	case "Number":
		return lit.Kind == ast.LitNumber
	case "Boolean":
		return lit.Kind == ast.LitBool
	default:
		return true
	}
}

func (p *Parser) parseLiteral() (ast.Literal, error) {
	tok := p.cur()
	switch tok.Kind {
	case token.String:
		p.advance()
		return ast.String(tok.Text), nil
	case token.Number:
		p.advance()
		n, _ := strconv.ParseFloat(tok.Text, 64)
		return ast.Number(n, tok.IsInt), nil
	case token.Ident:
		if tok.Text == "true" || tok.Text == "false" {
			p.advance()
			return ast.Bool(tok.Text == "true"), nil
		}
	}
	return ast.Literal{}, newUnexpected(tok, "a literal")
}
