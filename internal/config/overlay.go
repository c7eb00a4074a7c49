package config

import (
	"reflect"
	"sort"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
)

// FieldError describes a document key that was dropped during an overlay.
type FieldError struct {
	Key string
	Err error
}

func (e FieldError) Error() string {
	return e.Key + ": " + e.Err.Error()
}

var errUnknownField = errors.New("unknown field")

// overlay applies raw onto dst one key at a time. A key that is unknown, fails to decode
// or fails validation is dropped without affecting the others. It returns the keys that
// were applied and the ones that were dropped, both sorted.
func overlay(dst *Config, raw map[string]any) ([]string, []FieldError) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var (
		applied []string
		dropped []FieldError
	)
	target := reflect.ValueOf(dst).Elem()
	for _, key := range keys {
		i, ok := fieldIndex[key]
		if !ok {
			dropped = append(dropped, FieldError{Key: key, Err: errUnknownField})
			continue
		}

		var decoded Config
		if err := decodeField(&decoded, key, raw[key]); err != nil {
			dropped = append(dropped, FieldError{Key: key, Err: err})
			continue
		}

		candidate := dst.Clone()
		reflect.ValueOf(&candidate).Elem().Field(i).Set(reflect.ValueOf(decoded).Field(i))
		if err := candidate.validateField(key); err != nil {
			dropped = append(dropped, FieldError{Key: key, Err: err})
			continue
		}
		target.Field(i).Set(reflect.ValueOf(decoded).Field(i))
		applied = append(applied, key)
	}
	return applied, dropped
}

func decodeField(out *Config, key string, value any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return errors.Wrap(err, "building decoder")
	}
	if err := decoder.Decode(map[string]any{key: value}); err != nil {
		return errors.Wrapf(err, "decoding %s", key)
	}
	return nil
}
