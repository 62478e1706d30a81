package model

import (
	"github.com/spf13/cast"
)

// Bag is an opaque map of raw API attributes, kept for downstream consumers.
type Bag map[string]any

// Get returns the value of the key, a missing key and a null value are the same.
func (b Bag) Get(key string) (any, bool) {
	v, ok := b[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// String returns the value converted to string, or "" if it is missing.
func (b Bag) String(key string) string {
	v, ok := b.Get(key)
	if !ok {
		return ""
	}
	return cast.ToString(v)
}

// StringOr returns the value converted to string, or the default if it is missing or empty.
func (b Bag) StringOr(key, defaultValue string) string {
	if v := b.String(key); v != "" {
		return v
	}
	return defaultValue
}

// Nested returns the value of the key if it is a map, otherwise nil.
func (b Bag) Nested(key string) Bag {
	v, ok := b.Get(key)
	if !ok {
		return nil
	}
	switch m := v.(type) {
	case Bag:
		return m
	case map[string]any:
		return m
	default:
		return nil
	}
}
