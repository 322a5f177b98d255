// Copyright 2026 The connector-oss Authors
// SPDX-License-Identifier: Apache-2.0

package canonical

import (
	"encoding"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gowebpki/jcs"

	"github.com/GlobalSushrut/connector-oss/lib/record"
)

var (
	marshalerType     = reflect.TypeFor[json.Marshaler]()
	textMarshalerType = reflect.TypeFor[encoding.TextMarshaler]()
)

// ErrEncoding matches every canonicalization failure.
var ErrEncoding = errors.New("canonical encoding failed")

// EncodingError describes why a value could not be canonicalized.
// Path locates the offending value ("value.dose[2]") when known.
type EncodingError struct {
	Path string
	Err  error
}

func (e *EncodingError) Error() string {
	if e.Path == "" {
		return "canonical: " + e.Err.Error()
	}
	return fmt.Sprintf("canonical: %s: %v", e.Path, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// Is reports whether target is ErrEncoding.
func (e *EncodingError) Is(target error) bool { return target == ErrEncoding }

// maxSafeInteger is 2^53, the largest integer magnitude a float64
// represents exactly.
const maxSafeInteger = 1 << 53

// Encode returns the canonical bytes of a record.
func Encode(r record.Record) ([]byte, error) {
	r, err := record.Normalize(r)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}
	if err := record.CheckTime(r.Time()); err != nil {
		return nil, &EncodingError{Path: "timestamp", Err: err}
	}

	var view any
	switch v := r.(type) {
	case record.Event:
		if err := checkStrings(map[string]string{
			"content":          v.Content,
			"source.kind":      string(v.Source.Kind),
			"source.principal": v.Source.Principal,
		}); err != nil {
			return nil, err
		}
		if err := check("entities", v.Entities, 0); err != nil {
			return nil, err
		}
		view = eventView{
			Kind:      string(record.KindEvent),
			Content:   v.Content,
			Source:    v.Source,
			Entities:  v.Entities,
			Timestamp: Time(v.Timestamp),
		}
	case record.Claim:
		if err := checkStrings(map[string]string{
			"subject":   v.Subject,
			"predicate": v.Predicate,
		}); err != nil {
			return nil, err
		}
		if err := check("value", v.Value, 0); err != nil {
			return nil, err
		}
		view = claimView{
			Kind:       string(record.KindClaim),
			Subject:    v.Subject,
			Predicate:  v.Predicate,
			Value:      v.Value,
			Confidence: v.Confidence,
			Evidence:   v.Evidence,
			Supersedes: v.Supersedes,
			Timestamp:  Time(v.Timestamp),
		}
		if math.IsNaN(v.Confidence) || math.IsInf(v.Confidence, 0) {
			return nil, &EncodingError{Path: "confidence", Err: fmt.Errorf("non-finite number")}
		}
	case record.ActionEnvelope:
		slots := map[string]record.Slot{
			"v1_karta":      v.Karta,
			"v2_karma":      v.Karma,
			"v3_kriya":      v.Kriya,
			"v4_karana":     v.Karana,
			"v5_sampradana": v.Sampradana,
			"v6_apadana":    v.Apadana,
			"v7_adhikarana": v.Adhikarana,
			"meta":          v.Meta,
		}
		for name, slot := range slots {
			if err := check(name, map[string]any(slot), 0); err != nil {
				return nil, err
			}
		}
		if err := check("body", v.Body, 0); err != nil {
			return nil, err
		}
		if err := checkStrings(map[string]string{
			"vakya_id":  v.VakyaID,
			"body_type": v.BodyType,
		}); err != nil {
			return nil, err
		}
		view = actionView{
			Kind:       string(record.KindAction),
			VakyaID:    v.VakyaID,
			Karta:      v.Karta,
			Karma:      v.Karma,
			Kriya:      v.Kriya,
			Karana:     v.Karana,
			Sampradana: v.Sampradana,
			Apadana:    v.Apadana,
			Adhikarana: v.Adhikarana,
			BodyType:   v.BodyType,
			Body:       v.Body,
			Meta:       v.Meta,
			Timestamp:  Time(v.Timestamp),
		}
	default:
		return nil, &EncodingError{Err: fmt.Errorf("unrecognized record variant %T", r)}
	}

	return marshal(view)
}

// EncodeValue returns the canonical bytes of an arbitrary value. Used
// for structures that are signed but are not records, such as tree
// heads.
func EncodeValue(v any) ([]byte, error) {
	if err := check("", v, 0); err != nil {
		return nil, err
	}
	return marshal(v)
}

// Time formats a timestamp the way every canonical form carries it.
func Time(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime parses a timestamp produced by Time.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing canonical timestamp: %w", err)
	}
	return t.UTC(), nil
}

func marshal(view any) ([]byte, error) {
	raw, err := json.Marshal(view)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, &EncodingError{Err: err}
	}
	return out, nil
}

// maxDepth bounds nesting of opaque values. It also stops a cyclic
// map or slice long before the JSON encoder's own cycle detector.
const maxDepth = 256

// check walks opaque values for the failures that json.Marshal would
// otherwise paper over: invalid UTF-8 (silently replaced), integers
// that RFC 8785 would round, and cycles. Typed slices, maps, structs
// and pointers are walked by reflection; channels and functions are left
// to json.Marshal, which rejects them.
func check(path string, v any, depth int) error {
	if depth > maxDepth {
		return &EncodingError{Path: path, Err: fmt.Errorf("nesting deeper than %d (cyclic value?)", maxDepth)}
	}
	switch value := v.(type) {
	case nil, bool:
		return nil
	case string:
		if !utf8.ValidString(value) {
			return &EncodingError{Path: path, Err: fmt.Errorf("invalid UTF-8 string")}
		}
	case float64:
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return &EncodingError{Path: path, Err: fmt.Errorf("non-finite number")}
		}
	case float32:
		return check(path, float64(value), depth)
	case int:
		return checkInteger(path, int64(value))
	case int64:
		return checkInteger(path, value)
	case int32, int16, int8, uint8, uint16, uint32:
		return nil
	case uint:
		return checkUnsigned(path, uint64(value))
	case uint64:
		return checkUnsigned(path, value)
	case json.Number:
		if strings.ContainsAny(value.String(), ".eE") {
			f, err := value.Float64()
			if err != nil {
				return &EncodingError{Path: path, Err: err}
			}
			return check(path, f, depth)
		}
		n, err := value.Int64()
		if err != nil {
			return &EncodingError{Path: path, Err: fmt.Errorf("integer %s out of range", value)}
		}
		return checkInteger(path, n)
	case record.Slot:
		return check(path, map[string]any(value), depth)
	case map[string]any:
		for key, item := range value {
			if !utf8.ValidString(key) {
				return &EncodingError{Path: path, Err: fmt.Errorf("invalid UTF-8 map key")}
			}
			if err := check(join(path, key), item, depth+1); err != nil {
				return err
			}
		}
	case []any:
		for index, item := range value {
			if err := check(fmt.Sprintf("%s[%d]", path, index), item, depth+1); err != nil {
				return err
			}
		}
	case []string:
		for index, item := range value {
			if err := check(fmt.Sprintf("%s[%d]", path, index), item, depth+1); err != nil {
				return err
			}
		}
	default:
		return checkReflect(path, reflect.ValueOf(v), depth)
	}
	return nil
}

// checkReflect walks typed containers ([]int64, map[string]int, structs)
// that the fast path above does not name. Values with their own JSON
// marshaling are left to the encoder.
func checkReflect(path string, v reflect.Value, depth int) error {
	if depth > maxDepth {
		return &EncodingError{Path: path, Err: fmt.Errorf("nesting deeper than %d (cyclic value?)", maxDepth)}
	}
	if !v.IsValid() {
		return nil
	}
	if v.Type().Implements(marshalerType) || v.Type().Implements(textMarshalerType) {
		return nil
	}
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			return nil
		}
		if v.Kind() == reflect.Interface && v.Elem().CanInterface() {
			return check(path, v.Elem().Interface(), depth+1)
		}
		return checkReflect(path, v.Elem(), depth+1)
	case reflect.String:
		if !utf8.ValidString(v.String()) {
			return &EncodingError{Path: path, Err: fmt.Errorf("invalid UTF-8 string")}
		}
	case reflect.Float32, reflect.Float64:
		if f := v.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			return &EncodingError{Path: path, Err: fmt.Errorf("non-finite number")}
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return checkInteger(path, v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return checkUnsigned(path, v.Uint())
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8 {
			// []byte encodes as a base64 string.
			return nil
		}
		for index := range v.Len() {
			if err := checkReflect(fmt.Sprintf("%s[%d]", path, index), v.Index(index), depth+1); err != nil {
				return err
			}
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			key := iter.Key()
			name := fmt.Sprint(key.Interface())
			if key.Kind() == reflect.String {
				name = key.String()
				if !utf8.ValidString(name) {
					return &EncodingError{Path: path, Err: fmt.Errorf("invalid UTF-8 map key")}
				}
			}
			if err := checkReflect(join(path, name), iter.Value(), depth+1); err != nil {
				return err
			}
		}
	case reflect.Struct:
		structType := v.Type()
		for index := range structType.NumField() {
			field := structType.Field(index)
			if !field.IsExported() {
				continue
			}
			name := field.Name
			if tag, _, _ := strings.Cut(field.Tag.Get("json"), ","); tag == "-" {
				continue
			} else if tag != "" {
				name = tag
			}
			if err := checkReflect(join(path, name), v.Field(index), depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkStrings(fields map[string]string) error {
	for path, value := range fields {
		if err := check(path, value, 0); err != nil {
			return err
		}
	}
	return nil
}

func checkInteger(path string, n int64) error {
	if n > maxSafeInteger || n < -maxSafeInteger {
		return &EncodingError{Path: path, Err: fmt.Errorf("integer %d exceeds ±2^53", n)}
	}
	return nil
}

func checkUnsigned(path string, n uint64) error {
	if n > maxSafeInteger {
		return &EncodingError{Path: path, Err: fmt.Errorf("integer %d exceeds 2^53", n)}
	}
	return nil
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

type eventView struct {
	Kind      string        `json:"kind"`
	Content   string        `json:"content"`
	Source    record.Source `json:"source"`
	Entities  []string      `json:"entities,omitempty"`
	Timestamp string        `json:"timestamp"`
}

type claimView struct {
	Kind       string       `json:"kind"`
	Subject    string       `json:"subject"`
	Predicate  string       `json:"predicate"`
	Value      any          `json:"value"`
	Confidence float64      `json:"confidence"`
	Evidence   []record.CID `json:"evidence_cids,omitempty"`
	Supersedes record.CID   `json:"supersedes,omitempty"`
	Timestamp  string       `json:"timestamp"`
}

type actionView struct {
	Kind       string      `json:"kind"`
	VakyaID    string      `json:"vakya_id"`
	Karta      record.Slot `json:"v1_karta,omitempty"`
	Karma      record.Slot `json:"v2_karma,omitempty"`
	Kriya      record.Slot `json:"v3_kriya,omitempty"`
	Karana     record.Slot `json:"v4_karana,omitempty"`
	Sampradana record.Slot `json:"v5_sampradana,omitempty"`
	Apadana    record.Slot `json:"v6_apadana,omitempty"`
	Adhikarana record.Slot `json:"v7_adhikarana,omitempty"`
	BodyType   string      `json:"body_type,omitempty"`
	Body       any         `json:"body,omitempty"`
	Meta       record.Slot `json:"meta,omitempty"`
	Timestamp  string      `json:"timestamp"`
}
