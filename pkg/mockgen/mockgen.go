// Package mockgen implements the mock synthesizer (C6): a depth-first
// traversal of a response or request Schema that produces a JSON value,
// favoring a field's declared `@mock` value, falling back to `@example`,
// and otherwise a fixed type default.
package mockgen

import "github.com/moonrailgun/reqcraft/pkg/model"

// Mode distinguishes a response-body synthesis pass from a request-body
// one. Both skip @params fields: those are query-string parameters, never
// JSON body members, regardless of which side of the exchange is synthesized.
type Mode int

// Synthesis modes.
const (
	ModeResponse Mode = iota
	ModeRequest
)

// Synthesize produces a JSON-ready value for s under mode. A nil schema
// yields nil (caller decides how to render "no body").
func Synthesize(s *model.Schema, mode Mode) interface{} {
	if s == nil {
		return nil
	}
	return synthesizeObject(s, mode)
}

func synthesizeObject(s *model.Schema, mode Mode) map[string]interface{} {
	out := make(map[string]interface{}, len(s.Fields))
	for _, f := range s.Fields {
		if f.IsParams {
			continue
		}
		out[f.Name] = synthesizeField(f, mode)
	}
	return out
}

func synthesizeField(f model.Field, mode Mode) interface{} {
	if f.Mock != nil {
		return literalValue(*f.Mock)
	}
	if f.Example != nil {
		return literalValue(*f.Example)
	}

	switch f.Type {
	case model.TypeArray:
		if f.Nested == nil {
			return []interface{}{}
		}
		return []interface{}{synthesizeObject(f.Nested, mode)}
	case model.TypeObject:
		if f.Nested == nil {
			return map[string]interface{}{}
		}
		return synthesizeObject(f.Nested, mode)
	case model.TypeString:
		return ""
	case model.TypeNumber:
		return 0
	case model.TypeBoolean:
		return false
	default: // Any
		return nil
	}
}

func literalValue(l model.Literal) interface{} {
	switch l.Kind {
	case model.LitString:
		return l.Str
	case model.LitNumber:
		if l.NumberIsInt {
			return int64(l.Num)
		}
		return l.Num
	case model.LitBool:
		return l.Bool
	default:
		return nil
	}
}
