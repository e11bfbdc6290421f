package models

// JSON is an untyped gateway payload passed through to callers verbatim.
type JSON map[string]interface{}

// Merge returns a copy of j with extra keys layered on top.
func (j JSON) Merge(extra JSON) JSON {
	out := make(JSON, len(j)+len(extra))
	for k, v := range j {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}

// String returns the value at key when it is a string.
func (j JSON) String(key string) string {
	if s, ok := j[key].(string); ok {
		return s
	}
	return ""
}
