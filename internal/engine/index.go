package engine

import (
	"github.com/osteele/liquid/values"
)

// IndexedList is a Liquid value that iterates like an array and resolves property and
// string index lookups by key, so one binding serves both `for x in name` and
// `name.key`. Keyed entries need not appear in the list.
type IndexedList struct {
	items []any
	keyed map[string]any
}

var _ values.Value = (*IndexedList)(nil)

// NewIndexedList returns a list over items with keyed lookups. keyed may be nil.
func NewIndexedList(items []any, keyed map[string]any) *IndexedList {
	if keyed == nil {
		keyed = map[string]any{}
	}
	return &IndexedList{items: items, keyed: keyed}
}

// Len and Index make the value iterable by the for and tablerow tags.
func (l *IndexedList) Len() int { return len(l.items) }

func (l *IndexedList) Index(i int) any { return l.items[i] }

// Lookup returns the keyed entry for key.
func (l *IndexedList) Lookup(key string) (any, bool) {
	v, ok := l.keyed[key]
	return v, ok
}

func (l *IndexedList) Interface() any { return l }

func (l *IndexedList) Int() int { return len(l.items) }

func (l *IndexedList) Equal(other values.Value) bool { return other.Interface() == any(l) }

func (l *IndexedList) Less(values.Value) bool { return false }

func (l *IndexedList) Test() bool { return true }

// Contains reports whether key names a keyed entry.
func (l *IndexedList) Contains(key values.Value) bool {
	k, ok := key.Interface().(string)
	if !ok {
		return false
	}
	_, found := l.keyed[k]
	return found
}

// IndexValue resolves x[0] positionally and x["key"] by key.
func (l *IndexedList) IndexValue(key values.Value) values.Value {
	switch k := key.Interface().(type) {
	case string:
		return l.PropertyValue(key)
	case int:
		if k < 0 {
			k += len(l.items)
		}
		if k >= 0 && k < len(l.items) {
			return values.ValueOf(l.items[k])
		}
	case float64:
		return l.IndexValue(values.ValueOf(int(k)))
	}
	return values.ValueOf(nil)
}

// PropertyValue resolves keyed entries, then size, first and last like an array.
func (l *IndexedList) PropertyValue(key values.Value) values.Value {
	k, ok := key.Interface().(string)
	if !ok {
		return values.ValueOf(nil)
	}
	if v, found := l.keyed[k]; found {
		return values.ValueOf(v)
	}
	switch k {
	case "size":
		return values.ValueOf(len(l.items))
	case "first":
		if len(l.items) > 0 {
			return values.ValueOf(l.items[0])
		}
	case "last":
		if len(l.items) > 0 {
			return values.ValueOf(l.items[len(l.items)-1])
		}
	}
	return values.ValueOf(nil)
}
