package debugui

import (
	"reflect"
	"sync"
)

// FieldInfo describes an exported struct field shown by the inspector.
type FieldInfo struct {
	Name      string
	Index     int
	Type      reflect.Type
	IsPointer bool
}

// ReflectionCache memoises the exported fields of component types.
type ReflectionCache struct {
	mu     sync.RWMutex
	fields map[reflect.Type][]FieldInfo
}

func NewReflectionCache() *ReflectionCache {
	return &ReflectionCache{fields: make(map[reflect.Type][]FieldInfo)}
}

// Fields returns the exported fields of t, or nil when t is not a struct.
func (rc *ReflectionCache) Fields(t reflect.Type) []FieldInfo {
	rc.mu.RLock()
	cached, ok := rc.fields[t]
	rc.mu.RUnlock()
	if ok {
		return cached
	}

	var fields []FieldInfo
	if t.Kind() == reflect.Struct {
		for i := range t.NumField() {
			f := t.Field(i)
			if !f.IsExported() {
				continue
			}
			ft := f.Type
			ptr := ft.Kind() == reflect.Pointer
			if ptr {
				ft = ft.Elem()
			}
			fields = append(fields, FieldInfo{Name: f.Name, Index: i, Type: ft, IsPointer: ptr})
		}
	}

	rc.mu.Lock()
	rc.fields[t] = fields
	rc.mu.Unlock()
	return fields
}
