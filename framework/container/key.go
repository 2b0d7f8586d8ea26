package container

import (
	"reflect"
	"strings"
)

// Key identifies a Definition inside a Container.
//
// A key is a capability identity (usually an interface type), a name, or both.
// Keys are plain comparable values and can be used as map keys.
//
//	container.KeyFor[Storage]()             // capability only
//	container.NamedKeyFor[Storage]("disk")  // capability + name
//	container.NameKey("home")               // name only
//
// Args is set on keys of definitions whose factory takes a runtime argument;
// such keys only match lookups made with an argument of that type.
type Key struct {
	Type reflect.Type
	Name string
	Args reflect.Type
}

// KeyFor returns the capability key for I.
func KeyFor[I any]() Key {
	return Key{Type: reflect.TypeFor[I]()}
}

// NamedKeyFor returns the capability key for I qualified by name.
func NamedKeyFor[I any](name string) Key {
	return Key{Type: reflect.TypeFor[I](), Name: name}
}

// NameKey returns a key that only carries a name.
func NameKey(name string) Key {
	return Key{Name: name}
}

// WithName returns a copy of k qualified by name.
func (k Key) WithName(name string) Key {
	k.Name = name
	return k
}

// WithArgs returns a copy of k for definitions taking an argument of type A.
func WithArgs[A any](k Key) Key {
	k.Args = reflect.TypeFor[A]()
	return k
}

// IsZero reports whether k identifies nothing.
func (k Key) IsZero() bool {
	return k.Type == nil && k.Name == ""
}

// String renders the key as "pkg/path.Type; name", with "(pkg/path.Arg)"
// after the type when the key takes an argument.
func (k Key) String() string {
	var b strings.Builder
	if k.Type != nil {
		b.WriteString(typeName(k.Type))
	}
	if k.Args != nil {
		b.WriteString("(" + typeName(k.Args) + ")")
	}
	if k.Name != "" {
		if b.Len() > 0 {
			b.WriteString("; ")
		}
		b.WriteString(k.Name)
	}
	return b.String()
}

func typeName(t reflect.Type) string {
	if t.Name() != "" && t.PkgPath() != "" {
		return t.PkgPath() + "." + t.Name()
	}
	if t.Kind() == reflect.Pointer {
		return "*" + typeName(t.Elem())
	}
	return t.String()
}

func keyStrings(keys []Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}
