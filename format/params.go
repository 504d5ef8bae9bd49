package format

// Params is an open-ended bag of read/write parameters for a Codec. It is the
// one deliberately free-form part of the configuration surface: codecs accept
// format-specific knobs (delimiter, sheet_name, compression, ...) without
// every caller naming every codec's options.
type Params map[string]interface{}

// Merge layers the given Params over this one, later layers winning, and
// returns the combined result as a new Params. The receiver and arguments are
// unmodified; nil layers are skipped.
func (p Params) Merge(layers ...Params) Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	for _, layer := range layers {
		for k, v := range layer {
			out[k] = v
		}
	}
	return out
}

// Bool returns the named parameter as a bool, or def when absent or mistyped
func (p Params) Bool(key string, def bool) bool {
	if v, ok := p[key].(bool); ok {
		return v
	}
	return def
}

// String returns the named parameter as a string, or def when absent or mistyped
func (p Params) String(key string, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}

// Int returns the named parameter as an int, or def when absent or mistyped
func (p Params) Int(key string, def int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	}
	return def
}

// Strings returns the named parameter as a []string, or nil when absent
func (p Params) Strings(key string) []string {
	switch v := p[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Rune returns the first rune of the named string parameter, or def
func (p Params) Rune(key string, def rune) rune {
	if v, ok := p[key].(string); ok && len(v) > 0 {
		return []rune(v)[0]
	}
	if v, ok := p[key].(rune); ok {
		return v
	}
	return def
}
