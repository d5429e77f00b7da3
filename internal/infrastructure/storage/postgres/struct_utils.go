package postgres

import (
	"reflect"
	"sync"
)

// Columns returns the "db" tag names of T in field order, descending into
// embedded structs. Fields tagged "-" are skipped. Called once per
// repository at construction.
func Columns[T any]() []string {
	var zero T
	return columnsOf(reflect.TypeOf(zero))
}

func columnsOf(t reflect.Type) []string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var cols []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			cols = append(cols, columnsOf(f.Type)...)
			continue
		}
		if tag := f.Tag.Get("db"); tag != "" && tag != "-" {
			cols = append(cols, tag)
		}
	}
	return cols
}

type structMeta struct {
	fields   []int
	tags     []string
	embedded []int
}

var metaCache sync.Map // reflect.Type -> *structMeta

func metaOf(t reflect.Type) *structMeta {
	if cached, ok := metaCache.Load(t); ok {
		return cached.(*structMeta)
	}

	meta := &structMeta{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			meta.embedded = append(meta.embedded, i)
			continue
		}
		if tag := f.Tag.Get("db"); tag != "" && tag != "-" {
			meta.fields = append(meta.fields, i)
			meta.tags = append(meta.tags, tag)
		}
	}
	metaCache.Store(t, meta)
	return meta
}

// StructToMap maps the "db" tagged fields of v, a struct or pointer to one,
// to their values. It feeds squirrel SetMap for inserts and updates.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	out := make(map[string]any)
	fill(rv, out)
	return out
}

func fill(rv reflect.Value, out map[string]any) {
	meta := metaOf(rv.Type())
	for i, idx := range meta.fields {
		out[meta.tags[i]] = rv.Field(idx).Interface()
	}
	for _, idx := range meta.embedded {
		f := rv.Field(idx)
		if f.Kind() == reflect.Ptr {
			if f.IsNil() {
				continue
			}
			f = f.Elem()
		}
		if f.Kind() == reflect.Struct {
			fill(f, out)
		}
	}
}
