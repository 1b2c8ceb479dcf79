// internal/beanscope/types.go
//
// Type identity helpers for render-state-scoped beans.
//
// A bean "class" is a named Go type.  Pointers are unwrapped so *Cart and
// Cart register as the same bean.  The canonical name is "<pkgpath>.<Name>",
// which is what the activation pass sorts on.
//
// Go has no inheritance; the closest structural relation is embedding.  A
// type that embeds Cart (directly or through further embedded structs) is
// treated as a descendant of Cart, and Cart as its ancestor.  Proxy types
// that do not embed the bean must be registered in the alias table.
package beanscope

import (
	"errors"
	"reflect"
)

var (
	// ErrNilType is returned for a nil reflect.Type.
	ErrNilType = errors.New("beanscope: nil type")
	// ErrUnnamedType is returned for anonymous types (after unwrapping pointers).
	ErrUnnamedType = errors.New("beanscope: type has no name")
)

// maxEmbedDepth bounds the embedding walk.
const maxEmbedDepth = 8

// normalize strips pointer levels and rejects unnamed types.
func normalize(t reflect.Type) (reflect.Type, error) {
	if t == nil {
		return nil, ErrNilType
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Name() == "" {
		return nil, ErrUnnamedType
	}
	return t, nil
}

// CanonicalName returns "<pkgpath>.<Name>" for t, or just the name for
// predeclared types.  Pointers are unwrapped first.
func CanonicalName(t reflect.Type) string {
	nt, err := normalize(t)
	if err != nil {
		return ""
	}
	if nt.PkgPath() == "" {
		return nt.Name()
	}
	return nt.PkgPath() + "." + nt.Name()
}

// embeds reports whether outer embeds inner at any depth.
func embeds(outer, inner reflect.Type) bool {
	return embedsDepth(outer, inner, 0)
}

func embedsDepth(outer, inner reflect.Type, depth int) bool {
	if depth >= maxEmbedDepth {
		return false
	}
	for outer.Kind() == reflect.Ptr {
		outer = outer.Elem()
	}
	if outer.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < outer.NumField(); i++ {
		f := outer.Field(i)
		if !f.Anonymous {
			continue
		}
		ft := f.Type
		for ft.Kind() == reflect.Ptr {
			ft = ft.Elem()
		}
		if ft == inner || embedsDepth(ft, inner, depth+1) {
			return true
		}
	}
	return false
}

// related reports whether a and b are the same type or one embeds the other.
func related(a, b reflect.Type) bool {
	return a == b || embeds(a, b) || embeds(b, a)
}
