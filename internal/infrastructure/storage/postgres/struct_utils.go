package postgres

import (
	"reflect"
	"slices"
	"sync"
)

// ExtractDBColumns extracts all column names from struct "db" tags.
// Embedded structs (entity.Document and friends) are walked recursively.
// Called once per repository at construction time.
//
// Usage:
//
//	columns := ExtractDBColumns[sale.Sale]()
//	// Returns: ["id", "version", "created_at", ..., "number", "date", ..., "customer_id", ...]
func ExtractDBColumns[T any]() []string {
	var zero T
	return columnsOf(getOrCreateTypeMetadata(reflect.TypeOf(zero)))
}

// ColumnsExcept returns cols without the listed columns, preserving order.
func ColumnsExcept(cols []string, except ...string) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		if !slices.Contains(except, c) {
			out = append(out, c)
		}
	}
	return out
}

// fieldInfo contains pre-computed metadata about a struct field.
type fieldInfo struct {
	index    int
	dbTag    string
	embedded *typeMetadata
}

// typeMetadata contains cached reflection metadata for a struct type.
type typeMetadata struct {
	fields []fieldInfo
}

// typeCache maps reflect.Type to *typeMetadata.
var typeCache sync.Map

func getOrCreateTypeMetadata(t reflect.Type) *typeMetadata {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := typeCache.Load(t); ok {
		return cached.(*typeMetadata)
	}

	meta := &typeMetadata{}
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			field := t.Field(i)
			if field.Anonymous {
				meta.fields = append(meta.fields, fieldInfo{index: i, embedded: getOrCreateTypeMetadata(field.Type)})
				continue
			}
			tag := field.Tag.Get("db")
			if tag == "" || tag == "-" {
				continue
			}
			meta.fields = append(meta.fields, fieldInfo{index: i, dbTag: tag})
		}
	}

	actual, _ := typeCache.LoadOrStore(t, meta)
	return actual.(*typeMetadata)
}

func columnsOf(meta *typeMetadata) []string {
	var cols []string
	for _, f := range meta.fields {
		if f.embedded != nil {
			cols = append(cols, columnsOf(f.embedded)...)
			continue
		}
		cols = append(cols, f.dbTag)
	}
	return cols
}

// StructToMap converts a struct to a column → value map using "db" tags.
// Fields tagged "-" or untagged are skipped.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	res := make(map[string]any)
	fillMap(res, rv, getOrCreateTypeMetadata(rv.Type()))
	return res
}

func fillMap(res map[string]any, rv reflect.Value, meta *typeMetadata) {
	for _, f := range meta.fields {
		fv := rv.Field(f.index)
		if f.embedded != nil {
			if fv.Kind() == reflect.Ptr {
				if fv.IsNil() {
					continue
				}
				fv = fv.Elem()
			}
			fillMap(res, fv, f.embedded)
			continue
		}
		res[f.dbTag] = fv.Interface()
	}
}

// PickColumns returns the values of cols from data, skipping absent ones.
func PickColumns(data map[string]any, cols []string) map[string]any {
	out := make(map[string]any, len(cols))
	for _, c := range cols {
		if v, ok := data[c]; ok {
			out[c] = v
		}
	}
	return out
}
