// internal/portalurl/url_test.go
//
// Unit-tests for the portal URL accumulator and its query codec.

package portalurl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/portlet/internal/params"
)

var cityQN = params.QName{Namespace: "urn:travel", Local: "city"}

func TestMergeWindow_PrivateAndModes(t *testing.T) {
	u := New()
	u.MergeWindow(Delta{
		WindowID:    "w1",
		Mode:        ModeEdit,
		WindowState: StateMaximized,
		SetPrivate:  map[string][]string{"q": {"1"}},
	})

	m, ok := u.Mode("w1")
	require.True(t, ok)
	assert.Equal(t, ModeEdit, m)
	s, ok := u.WindowState("w1")
	require.True(t, ok)
	assert.Equal(t, StateMaximized, s)
	assert.Equal(t, []string{"1"}, u.Values("w1", "q"))

	// Last write wins; empty mode means unchanged.
	u.MergeWindow(Delta{WindowID: "w1", WindowState: StateNormal})
	m, _ = u.Mode("w1")
	s, _ = u.WindowState("w1")
	assert.Equal(t, ModeEdit, m)
	assert.Equal(t, StateNormal, s)
}

func TestMergeWindow_RemovePrivateIsWindowLocal(t *testing.T) {
	u := New()
	u.MergeWindow(Delta{WindowID: "w1", SetPrivate: map[string][]string{"q": {"1"}}})
	u.MergeWindow(Delta{WindowID: "w2", SetPrivate: map[string][]string{"q": {"2"}}})

	u.MergeWindow(Delta{WindowID: "w1", RemovePrivate: []string{"q"}})

	assert.Empty(t, u.Names("w1"))
	assert.Equal(t, []string{"2"}, u.Values("w2", "q"))
}

func TestMergeWindow_PublicIsSharedAndRemovalIsPortalWide(t *testing.T) {
	u := New()
	require.NoError(t, u.Bind("w2", "town", cityQN))

	u.MergeWindow(Delta{WindowID: "w1", PublicChanges: []PublicChange{
		{Name: "city", QName: cityQN, Values: []string{"Paris"}},
	}})

	assert.True(t, u.IsPublic("w1", "city"))
	assert.True(t, u.IsPublic("w2", "town"))
	assert.Equal(t, []string{"Paris"}, u.PublicValues("w2", "town"))

	u.MergeWindow(Delta{WindowID: "w1", PublicChanges: []PublicChange{
		{QName: cityQN, Remove: true},
	}})

	assert.False(t, u.IsPublic("w1", "city"))
	assert.False(t, u.IsPublic("w2", "town"))
	assert.Empty(t, u.PublicValues("w2", "town"))
}

func TestMergeWindow_EmptyPublicValuesRemove(t *testing.T) {
	u := New()
	u.MergeWindow(Delta{WindowID: "w1", PublicChanges: []PublicChange{
		{Name: "city", QName: cityQN, Values: []string{"Paris"}},
	}})
	require.NoError(t, u.Bind("w2", "city", cityQN))

	u.MergeWindow(Delta{WindowID: "w2", PublicChanges: []PublicChange{
		{Name: "city", QName: cityQN, Values: []string{}},
	}})

	assert.False(t, u.IsPublic("w1", "city"))
	assert.False(t, u.IsPublic("w2", "city"))
}

func TestMergeWindow_PrivateSkipsPublicNames(t *testing.T) {
	u := New()
	require.NoError(t, u.Bind("w1", "city", cityQN))
	u.MergeWindow(Delta{WindowID: "w1", SetPrivate: map[string][]string{"city": {"x"}}})

	assert.False(t, u.HasPrivate("w1", "city"))
}

func TestBind_Rejects(t *testing.T) {
	u := New()
	assert.ErrorIs(t, u.Bind("w1", "", cityQN), params.ErrEmptyName)
	assert.ErrorIs(t, u.Bind("w1", params.ReservedPrefix+"1", cityQN), params.ErrReservedName)
}

func TestMergeFrom(t *testing.T) {
	base := New()
	base.MergeWindow(Delta{WindowID: "w1", SetPrivate: map[string][]string{"old": {"x"}}})
	base.MergeWindow(Delta{WindowID: "w2", Mode: ModeView, SetPrivate: map[string][]string{"k": {"v"}}})
	base.MergeWindow(Delta{WindowID: "w2", PublicChanges: []PublicChange{
		{Name: "city", QName: cityQN, Values: []string{"Rome"}},
	}})
	require.NoError(t, base.Bind("w1", "city", cityQN))

	work := base.Clone()
	work.MergeWindow(Delta{
		WindowID:      "w1",
		Mode:          ModeEdit,
		RemovePrivate: []string{"old"},
		SetPrivate:    map[string][]string{"q": {"1"}},
		PublicChanges: []PublicChange{{Name: "city", QName: cityQN, Values: []string{"Oslo"}}},
	})

	base.MergeFrom(work, "w1")

	m, _ := base.Mode("w1")
	assert.Equal(t, ModeEdit, m)
	assert.Equal(t, []string{"q"}, base.Names("w1"))
	assert.Equal(t, []string{"Oslo"}, base.PublicValues("w2", "city"))
	assert.Equal(t, []string{"v"}, base.Values("w2", "k"))

	// Public removal travels through MergeFrom as well.
	work = base.Clone()
	work.MergeWindow(Delta{WindowID: "w1", PublicChanges: []PublicChange{{QName: cityQN, Remove: true}}})
	base.MergeFrom(work, "w1")
	assert.False(t, base.IsPublic("w2", "city"))

	base.MergeFrom(base, "w1")
}

func TestMergeFrom_ReplaysOnlyOwnPublicChanges(t *testing.T) {
	base := New()
	require.NoError(t, base.Bind("w1", "city", cityQN))
	require.NoError(t, base.Bind("w2", "town", cityQN))

	// Bound but valueless QNames survive a private-only merge.
	work := base.Clone()
	work.MergeWindow(Delta{WindowID: "w1", SetPrivate: map[string][]string{"q": {"1"}}})
	base.MergeFrom(work, "w1")
	assert.True(t, base.IsPublic("w2", "town"))
	assert.True(t, base.IsPublic("w1", "city"))

	// Values inherited from a stale clone are not written back.
	stale := base.Clone()
	base.MergeWindow(Delta{WindowID: "w2", PublicChanges: []PublicChange{
		{Name: "town", QName: cityQN, Values: []string{"Rome"}},
	}})
	stale.MergeWindow(Delta{WindowID: "w1", Mode: ModeEdit})
	base.MergeFrom(stale, "w1")
	assert.Equal(t, []string{"Rome"}, base.PublicValues("w1", "city"))

	// A clone does not inherit the journal of its source.
	removing := base.Clone()
	removing.MergeWindow(Delta{WindowID: "w1", PublicChanges: []PublicChange{{QName: cityQN, Remove: true}}})
	base.MergeFrom(removing.Clone(), "w1")
	assert.Equal(t, []string{"Rome"}, base.PublicValues("w2", "town"))
}

func TestClone_IsIndependent(t *testing.T) {
	u := New()
	u.MergeWindow(Delta{WindowID: "w1", SetPrivate: map[string][]string{"q": {"1"}}})
	c := u.Clone()
	c.MergeWindow(Delta{WindowID: "w1", SetPrivate: map[string][]string{"q": {"2"}}})

	assert.Equal(t, []string{"1"}, u.Values("w1", "q"))
	assert.Equal(t, []string{"2"}, c.Values("w1", "q"))
}

func TestWindows(t *testing.T) {
	u := New()
	u.MergeWindow(Delta{WindowID: "b", Mode: ModeView})
	u.MergeWindow(Delta{WindowID: "a", SetPrivate: map[string][]string{"q": {}}})
	require.NoError(t, u.Bind("c", "x", cityQN))

	assert.Equal(t, []string{"a", "b", "c"}, u.Windows())
}

func TestEncodeDecode(t *testing.T) {
	u := New()
	u.MergeWindow(Delta{
		WindowID:    "portal:w1",
		Mode:        ModeEdit,
		WindowState: StateMinimized,
		SetPrivate: map[string][]string{
			"q":     {"a b", "c:d"},
			"blank": {},
		},
		PublicChanges: []PublicChange{{Name: "city", QName: cityQN, Values: []string{"Paris"}}},
	})
	require.NoError(t, u.Bind("w2", "town", cityQN))

	q := u.Encode()
	q.Set("page", "home") // foreign key, ignored

	got, err := Decode(q)
	require.NoError(t, err)

	assert.Equal(t, u.Encode().Encode(), got.Encode().Encode())
	assert.Equal(t, []string{"a b", "c:d"}, got.Values("portal:w1", "q"))
	assert.True(t, got.HasPrivate("portal:w1", "blank"))
	assert.Equal(t, []string{"Paris"}, got.PublicValues("w2", "town"))
	m, _ := got.Mode("portal:w1")
	assert.Equal(t, ModeEdit, m)
}

func TestDecode_Malformed(t *testing.T) {
	_, err := Decode(map[string][]string{"p:onlywindow": {"x"}})
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Decode(map[string][]string{"b:w:n": {"nocolon"}})
	assert.ErrorIs(t, err, ErrMalformed)
}
