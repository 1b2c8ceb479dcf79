// internal/beanscope/registry_test.go
//
// Unit-tests for scoped-bean name assignment and lookup.

package beanscope

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type BeanA struct{ N int }
type BeanB struct{ S string }
type BeanC struct{ F float64 }

// proxyA embeds BeanA the way a generated wrapper would.
type proxyA struct {
	*BeanA
	calls int
}

// base is embedded by BeanD; neither is registered as the other.
type base struct{ ID string }
type BeanD struct {
	base
	Extra string
}

// opaqueProxy does not embed anything; it needs an alias.
type opaqueProxy struct{ target any }

func typeOf[T any]() reflect.Type { return reflect.TypeOf((*T)(nil)).Elem() }

func staticBeans(types ...reflect.Type) (*StaticResolver, map[reflect.Type]*StaticBean) {
	beans := make([]*StaticBean, 0, len(types))
	byType := make(map[reflect.Type]*StaticBean, len(types))
	for _, t := range types {
		b := &StaticBean{Impl: t}
		beans = append(beans, b)
		byType[t] = b
	}
	return NewStaticResolver(beans...), byType
}

func TestActivate_GeneratedNamesFollowSortedOrder(t *testing.T) {
	orders := [][]reflect.Type{
		{typeOf[BeanC](), typeOf[BeanA](), typeOf[BeanB]()},
		{typeOf[BeanB](), typeOf[BeanC](), typeOf[BeanA]()},
		{typeOf[BeanA](), typeOf[BeanB](), typeOf[BeanC]()},
	}
	for _, order := range orders {
		b := NewBuilder()
		for _, ty := range order {
			require.NoError(t, b.RegisterCandidate(ty, ""))
		}
		res, _ := staticBeans(order...)
		reg, err := b.Activate(res)
		require.NoError(t, err)

		for i, ty := range []reflect.Type{typeOf[BeanA](), typeOf[BeanB](), typeOf[BeanC]()} {
			name, ok := reg.ParamNameForType(ty)
			require.True(t, ok)
			assert.Equal(t, ReservedPrefix+string(rune('0'+i)), name, ty.Name())
		}
		assert.Equal(t, 3, reg.Len())
	}
}

func TestActivate_DeclaredNameWins(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.RegisterCandidate(typeOf[BeanA](), "cart"))
	require.NoError(t, b.RegisterCandidate(typeOf[BeanB](), ""))
	require.NoError(t, b.RegisterCandidate(typeOf[BeanC](), ""))

	res, _ := staticBeans(typeOf[BeanA](), typeOf[BeanB](), typeOf[BeanC]())
	reg, err := b.Activate(res)
	require.NoError(t, err)

	name, _ := reg.ParamNameForType(typeOf[BeanA]())
	assert.Equal(t, "cart", name)
	// Indexes still come from the full sorted list.
	name, _ = reg.ParamNameForType(typeOf[BeanB]())
	assert.Equal(t, ReservedPrefix+"1", name)
	name, _ = reg.ParamNameForType(typeOf[BeanC]())
	assert.Equal(t, ReservedPrefix+"2", name)
}

func TestActivate_DeclareOverridesScan(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.RegisterCandidate(typeOf[BeanA](), "scan"))
	require.NoError(t, b.Declare(CanonicalName(typeOf[BeanA]()), "config"))

	res, _ := staticBeans(typeOf[BeanA]())
	reg, err := b.Activate(res)
	require.NoError(t, err)

	name, _ := reg.ParamNameForType(typeOf[BeanA]())
	assert.Equal(t, "config", name)
}

func TestRegisterCandidate_LastWins(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.RegisterCandidate(typeOf[BeanA](), "first"))
	require.NoError(t, b.RegisterCandidate(reflect.TypeOf(&BeanA{}), "second"))

	res, _ := staticBeans(typeOf[BeanA]())
	reg, err := b.Activate(res)
	require.NoError(t, err)

	assert.Equal(t, 1, reg.Len())
	name, _ := reg.ParamNameForType(typeOf[BeanA]())
	assert.Equal(t, "second", name)
}

func TestRegisterCandidate_BadTypes(t *testing.T) {
	b := NewBuilder()
	assert.ErrorIs(t, b.RegisterCandidate(nil, ""), ErrNilType)
	assert.ErrorIs(t, b.RegisterCandidate(reflect.TypeOf(struct{}{}), ""), ErrUnnamedType)
}

func TestActivate_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*Builder)
		res   BeanResolver
		want  []error
	}{
		{
			name: "duplicate declared names",
			setup: func(b *Builder) {
				_ = b.RegisterCandidate(typeOf[BeanA](), "same")
				_ = b.RegisterCandidate(typeOf[BeanB](), "same")
			},
			res:  func() BeanResolver { r, _ := staticBeans(typeOf[BeanA](), typeOf[BeanB]()); return r }(),
			want: []error{ErrDuplicateName},
		},
		{
			name: "reserved prefix",
			setup: func(b *Builder) {
				_ = b.RegisterCandidate(typeOf[BeanA](), ReservedPrefix+"9")
			},
			res:  func() BeanResolver { r, _ := staticBeans(typeOf[BeanA]()); return r }(),
			want: []error{ErrReservedName},
		},
		{
			name: "unresolved",
			setup: func(b *Builder) {
				_ = b.RegisterCandidate(typeOf[BeanA](), "")
			},
			res:  NewStaticResolver(),
			want: []error{ErrUnresolvedBean},
		},
		{
			name: "ambiguous",
			setup: func(b *Builder) {
				_ = b.RegisterCandidate(typeOf[BeanA](), "")
			},
			res:  NewStaticResolver(&StaticBean{Impl: typeOf[BeanA]()}, &StaticBean{Impl: typeOf[proxyA]()}),
			want: []error{ErrAmbiguousBean},
		},
		{
			name: "unknown declared type and unresolved together",
			setup: func(b *Builder) {
				_ = b.RegisterCandidate(typeOf[BeanA](), "")
				_ = b.Declare("example.com/nowhere.Bean", "x")
			},
			res:  NewStaticResolver(),
			want: []error{ErrUnknownBean, ErrUnresolvedBean},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBuilder()
			tc.setup(b)
			reg, err := b.Activate(tc.res)
			assert.Nil(t, reg)
			require.Error(t, err)
			for _, w := range tc.want {
				assert.ErrorIs(t, err, w)
			}
		})
	}
}

func TestActivate_Once(t *testing.T) {
	b := NewBuilder()
	_, err := b.Activate(NewStaticResolver())
	require.NoError(t, err)

	_, err = b.Activate(NewStaticResolver())
	assert.ErrorIs(t, err, ErrAlreadyActivated)
	assert.ErrorIs(t, b.RegisterCandidate(typeOf[BeanA](), ""), ErrAlreadyActivated)
	assert.ErrorIs(t, b.Declare("x", "y"), ErrAlreadyActivated)
	assert.ErrorIs(t, b.RegisterAlias(typeOf[opaqueProxy](), typeOf[BeanA]()), ErrAlreadyActivated)
}

func TestActivate_NilResolver(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.RegisterCandidate(typeOf[BeanA](), "a"))
	_, err := b.Activate(nil)
	assert.ErrorIs(t, err, ErrNilResolver)

	// The builder is still usable after a nil resolver.
	res, _ := staticBeans(typeOf[BeanA]())
	reg, err := b.Activate(res)
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
}

func TestStaticResolver_Resolve(t *testing.T) {
	r := NewStaticResolver()

	bean, err := r.Resolve(nil)
	assert.Nil(t, bean)
	assert.ErrorIs(t, err, errUnresolved)

	one := &StaticBean{Impl: typeOf[BeanA]()}
	bean, err = r.Resolve([]Bean{one})
	require.NoError(t, err)
	assert.Same(t, one, bean)

	_, err = r.Resolve([]Bean{one, &StaticBean{Impl: typeOf[BeanB]()}})
	assert.ErrorIs(t, err, errAmbiguous)
}

func TestParamNameForType_Polymorphic(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.RegisterCandidate(typeOf[BeanA](), "a"))
	require.NoError(t, b.RegisterCandidate(typeOf[BeanD](), "d"))
	require.NoError(t, b.RegisterAlias(typeOf[opaqueProxy](), typeOf[BeanA]()))

	res, _ := staticBeans(typeOf[BeanA](), typeOf[BeanD]())
	reg, err := b.Activate(res)
	require.NoError(t, err)

	tests := []struct {
		name string
		in   reflect.Type
		want string
		ok   bool
	}{
		{"exact", typeOf[BeanA](), "a", true},
		{"pointer", reflect.TypeOf(&BeanA{}), "a", true},
		{"descendant", typeOf[proxyA](), "a", true},
		{"ancestor", typeOf[base](), "d", true},
		{"alias", typeOf[opaqueProxy](), "a", true},
		{"unrelated", typeOf[BeanC](), "", false},
		{"unnamed", reflect.TypeOf(struct{}{}), "", false},
		{"nil", nil, "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := reg.ParamNameForType(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParamNameFor_Bean(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.RegisterCandidate(typeOf[BeanA](), ""))
	res, beans := staticBeans(typeOf[BeanA]())
	reg, err := b.Activate(res)
	require.NoError(t, err)

	name, err := reg.ParamNameFor(beans[typeOf[BeanA]()])
	require.NoError(t, err)
	assert.Equal(t, ReservedPrefix+"0", name)

	bound, ok := reg.Bean(typeOf[BeanA]())
	require.True(t, ok)
	assert.Same(t, beans[typeOf[BeanA]()], bound)

	_, err = reg.ParamNameFor(&StaticBean{Impl: typeOf[BeanA]()})
	assert.ErrorIs(t, err, ErrUnboundBean)
	_, err = reg.ParamNameFor(nil)
	assert.ErrorIs(t, err, ErrUnboundBean)
}

func TestRegistrySummary(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.RegisterCandidate(typeOf[BeanB](), ""))
	require.NoError(t, b.RegisterCandidate(typeOf[BeanA](), "a"))
	res, _ := staticBeans(typeOf[BeanA](), typeOf[BeanB]())
	reg, err := b.Activate(res)
	require.NoError(t, err)

	assert.Equal(t, []reflect.Type{typeOf[BeanA](), typeOf[BeanB]()}, reg.Types())
	descs := reg.Descriptors()
	require.Len(t, descs, 2)
	assert.Equal(t, "a", descs[0].ParamName)
	assert.Equal(t, ReservedPrefix+"1", descs[1].ParamName)
	assert.Contains(t, reg.String(), "beanscope.BeanB, Param name: "+ReservedPrefix+"1")
}

func TestCanonicalName(t *testing.T) {
	assert.Equal(t, "github.com/yanizio/portlet/internal/beanscope.BeanA", CanonicalName(typeOf[BeanA]()))
	assert.Equal(t, "int", CanonicalName(reflect.TypeOf(0)))
	assert.Equal(t, "", CanonicalName(nil))
}
