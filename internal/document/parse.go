package document

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// FromJSON builds a Document from a JSON value. Objects become sections in
// key order; a repeated key replaces the earlier value in place. A non-empty
// string is wrapped with FromText. Anything else yields nil.
func FromJSON(v gjson.Result) *Document {
	switch {
	case v.IsObject():
		d := &Document{}
		v.ForEach(func(key, value gjson.Result) bool {
			d.Set(key.String(), contentOf(value))
			return true
		})
		return d
	case v.Type == gjson.String:
		if v.Str == "" {
			return nil
		}
		return FromText(v.Str)
	default:
		return nil
	}
}

// Parse decodes input that is a JSON object, a JSON string or plain text.
// Blank input yields nil.
func Parse(data []byte) *Document {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	if gjson.ValidBytes(trimmed) {
		v := gjson.ParseBytes(trimmed)
		if v.IsObject() || v.Type == gjson.String {
			return FromJSON(v)
		}
	}

	return FromText(string(trimmed))
}

func contentOf(v gjson.Result) Content {
	switch {
	case v.Type == gjson.String:
		return Text(v.Str)
	case v.IsArray():
		items := make([]string, 0)
		v.ForEach(func(_, item gjson.Result) bool {
			items = append(items, coerce(item))
			return true
		})
		return List(items...)
	case v.IsObject():
		fields := make([]Field, 0)
		v.ForEach(func(key, value gjson.Result) bool {
			fields = append(fields, Field{Key: key.String(), Value: coerce(value)})
			return true
		})
		return Mapping(fields...)
	default:
		return Unsupported(v.Raw)
	}
}

// coerce converts a nested value to text. Integral numbers drop their
// fraction, booleans and null read True, False and None, nested arrays and
// objects keep their compact JSON form.
func coerce(v gjson.Result) string {
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Number:
		return formatNumber(v)
	case gjson.True:
		return "True"
	case gjson.False:
		return "False"
	case gjson.Null:
		return "None"
	default:
		return string(pretty.Ugly([]byte(v.Raw)))
	}
}

func formatNumber(v gjson.Result) string {
	if !strings.ContainsAny(v.Raw, ".eE") {
		return v.Raw
	}
	if v.Num == math.Trunc(v.Num) && math.Abs(v.Num) < 1e16 {
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	}
	return strconv.FormatFloat(v.Num, 'g', -1, 64)
}
