// Package dump renders decoded property values as JSON, YAML or CBOR.
//
// Decoded records hold interfaces (entry id variants, restriction nodes,
// action data) whose concrete type would be lost by a plain marshal, so
// values are first normalized into maps that carry a "type" key wherever
// an interface was crossed. Enumerations are rendered through their
// String method and, in the text formats, byte slices as upper-case hex.
package dump

import (
	"encoding"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"gopkg.in/yaml.v3"
)

// Format selects the output encoding.
type Format uint8

const (
	FormatJSON Format = iota + 1
	FormatYAML
	FormatCBOR
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	case FormatCBOR:
		return "cbor"
	default:
		return fmt.Sprintf("Format(%d)", uint8(f))
	}
}

// ParseFormat maps "json", "yaml" or "cbor" to a Format.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "cbor":
		return FormatCBOR, nil
	default:
		return 0, fmt.Errorf("unknown dump format %q", name)
	}
}

// cborEncMode uses Core Deterministic Encoding, so equal values always
// produce identical bytes.
var cborEncMode cbor.EncMode

func init() {
	opts := cbor.CoreDetEncOptions()
	opts.Time = cbor.TimeRFC3339Nano
	mode, err := opts.EncMode()
	if err != nil {
		panic("dump: CBOR encoder initialization failed: " + err.Error())
	}
	cborEncMode = mode
}

// Write renders v to w in format f.
func Write(w io.Writer, v any, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(Normalize(v, true))

	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Normalize(v, true)); err != nil {
			return err
		}

		return enc.Close()

	case FormatCBOR:
		return cborEncMode.NewEncoder(w).Encode(Normalize(v, false))

	default:
		return fmt.Errorf("unsupported dump format: %s", f)
	}
}

var (
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
	stringerType      = reflect.TypeFor[fmt.Stringer]()
	timeType          = reflect.TypeFor[time.Time]()
)

// Normalize converts v into nil, scalars, time.Time, []byte, []any and
// map[string]any. With hexBytes set, byte slices become hex strings.
func Normalize(v any, hexBytes bool) any {
	if v == nil {
		return nil
	}

	return normalize(reflect.ValueOf(v), hexBytes, true)
}

func normalize(v reflect.Value, hexBytes, viaInterface bool) any {
	switch v.Kind() {
	case reflect.Invalid:
		return nil

	case reflect.Interface:
		if v.IsNil() {
			return nil
		}

		return normalize(v.Elem(), hexBytes, true)

	case reflect.Pointer:
		if v.IsNil() {
			return nil
		}

		return normalize(v.Elem(), hexBytes, viaInterface)
	}

	t := v.Type()
	if t == timeType {
		return v.Interface()
	}
	if t.Implements(textMarshalerType) {
		if text, err := v.Interface().(encoding.TextMarshaler).MarshalText(); err == nil {
			return string(text)
		}
	}

	switch v.Kind() {
	case reflect.Struct:
		out := make(map[string]any, t.NumField()+1)
		if viaInterface {
			out["type"] = t.Name()
		}
		addFields(out, v, hexBytes)

		return out

	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Uint8 {
			b := bytesOf(v)
			if hexBytes {
				return strings.ToUpper(hex.EncodeToString(b))
			}

			return b
		}
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil
		}
		out := make([]any, v.Len())
		for i := range out {
			out[i] = normalize(v.Index(i), hexBytes, false)
		}

		return out

	case reflect.Map:
		if v.IsNil() {
			return nil
		}
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = normalize(iter.Value(), hexBytes, false)
		}

		return out
	}

	if t.PkgPath() != "" && t.Implements(stringerType) {
		return v.Interface().(fmt.Stringer).String()
	}

	return v.Interface()
}

// addFields copies the exported fields of struct v into out, flattening
// embedded structs.
func addFields(out map[string]any, v reflect.Value, hexBytes bool) {
	t := v.Type()
	for i := range t.NumField() {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		fv := v.Field(i)
		if field.Anonymous && fv.Kind() == reflect.Struct {
			addFields(out, fv, hexBytes)
			continue
		}
		out[field.Name] = normalize(fv, hexBytes, false)
	}
}

func bytesOf(v reflect.Value) []byte {
	if v.Kind() == reflect.Slice {
		return append([]byte(nil), v.Bytes()...)
	}

	b := make([]byte, v.Len())
	for i := range b {
		b[i] = byte(v.Index(i).Uint())
	}

	return b
}
