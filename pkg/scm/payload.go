package scm

// Payload is an opaque configuration record as loaded from a selection. The
// engine only interprets the name and the per-kind reference fields; the
// rest passes through to the API untouched.
type Payload map[string]any

// Name returns the object name, or "" when absent or not a string.
func (p Payload) Name() string {
	name, _ := p["name"].(string)
	return name
}

// SetName replaces the object name.
func (p Payload) SetName(name string) {
	p["name"] = name
}

// StringSlice reads a field as a list of strings. YAML decoding yields
// []any; both that and []string are accepted. Returns nil otherwise.
func (p Payload) StringSlice(field string) []string {
	switch v := p[field].(type) {
	case []string:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			s, ok := e.(string)
			if !ok {
				return nil
			}
			out = append(out, s)
		}
		return out
	default:
		return nil
	}
}

// Clone copies the payload one level deep, with list fields copied so that
// rename repair on one item never mutates another item's view.
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		switch vv := v.(type) {
		case []string:
			c := make([]string, len(vv))
			copy(c, vv)
			out[k] = c
		case []any:
			c := make([]any, len(vv))
			copy(c, vv)
			out[k] = c
		default:
			out[k] = v
		}
	}
	return out
}
