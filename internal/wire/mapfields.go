package wire

// mapGetUint64 extracts an unsigned integer field. msgpack decodes
// into interface{} as int64, uint64, or int8/int16/int32/uint8/... sized
// types depending on the value's magnitude, so every integer kind the
// library might hand back is covered here.
func mapGetUint64(m map[string]interface{}, key string) (uint64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case uint64:
		return n, true
	case uint32:
		return uint64(n), true
	case uint16:
		return uint64(n), true
	case uint8:
		return uint64(n), true
	case int64:
		return uint64(n), true
	case int32:
		return uint64(n), true
	case int16:
		return uint64(n), true
	case int8:
		return uint64(n), true
	case int:
		return uint64(n), true
	default:
		return 0, false
	}
}

func mapGetString(m map[string]interface{}, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func mapGetBytes(m map[string]interface{}, key string) ([]byte, bool) {
	v, ok := m[key]
	if !ok {
		return nil, false
	}
	switch b := v.(type) {
	case []byte:
		return b, true
	case string:
		return []byte(b), true
	default:
		return nil, false
	}
}

func mapGetBool(m map[string]interface{}, key string) (bool, bool) {
	v, ok := m[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func mapGetStringSlice(m map[string]interface{}, key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// mapGetEnv extracts env as a []string of "KEY=VALUE" pairs encoded as
// a list of two-element [key, value] arrays, matching the "env?:
// [(string,string)]" shape in §6.
func mapGetEnv(m map[string]interface{}, key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		pair, ok := item.([]interface{})
		if !ok || len(pair) != 2 {
			continue
		}
		k, kok := pair[0].(string)
		val, vok := pair[1].(string)
		if kok && vok {
			out = append(out, k+"="+val)
		}
	}
	return out
}

func envToPairs(env []string) []interface{} {
	out := make([]interface{}, 0, len(env))
	for _, kv := range env {
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				out = append(out, []interface{}{kv[:i], kv[i+1:]})
				break
			}
		}
	}
	return out
}

func stringsToAny(ss []string) []interface{} {
	out := make([]interface{}, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
