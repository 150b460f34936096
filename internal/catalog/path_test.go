package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPath_Cleanup(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"character/props", "character/props"},
		{"/character/props/", "character/props"},
		{"character//props", "character/props"},
		{"  character / props  ", "character/props"},
		{`character\props`, "character/props"},
		{"a:b/c", "a-b/c"},
		{"", ""},
		{"///", ""},
		{" / / ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewPath(tt.raw).String(), "NewPath(%q)", tt.raw)
	}
}

func TestPath_Parent(t *testing.T) {
	assert.Equal(t, "a/b", NewPath("a/b/c").Parent().String())
	assert.Equal(t, "", NewPath("a").Parent().String())
	assert.True(t, NewPath("").Parent().Empty())
}

func TestPath_Name(t *testing.T) {
	assert.Equal(t, "c", NewPath("a/b/c").Name())
	assert.Equal(t, "a", NewPath("a").Name())
	assert.Equal(t, "", NewPath("").Name())
}

func TestPath_Depth(t *testing.T) {
	assert.Equal(t, 0, NewPath("").Depth())
	assert.Equal(t, 1, NewPath("a").Depth())
	assert.Equal(t, 3, NewPath("/a//b/c/").Depth())
}

func TestPath_Join(t *testing.T) {
	assert.Equal(t, "a/b", NewPath("a").Join("b").String())
	assert.Equal(t, "b/c", NewPath("").Join("b/c").String())
	assert.Equal(t, "a/b", NewPath("a").Join("/b/").String())
}

func TestPath_IsContainedIn(t *testing.T) {
	tests := []struct {
		path, other string
		want        bool
	}{
		{"a/b", "a/b", true},
		{"a/b/c", "a/b", true},
		{"a/b/c/d", "a", true},
		{"a/bc", "a/b", false},
		{"foo/barbaz", "foo/bar", false},
		{"a", "a/b", false},
		{"b/a", "a", false},
		{"anything", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got := NewPath(tt.path).IsContainedIn(NewPath(tt.other))
		assert.Equal(t, tt.want, got, "%q in %q", tt.path, tt.other)
	}
}

func TestPath_Rebase(t *testing.T) {
	from, to := NewPath("a/b"), NewPath("x/y")

	got, ok := NewPath("a/b").Rebase(from, to)
	assert.True(t, ok)
	assert.Equal(t, "x/y", got.String())

	got, ok = NewPath("a/b/c/d").Rebase(from, to)
	assert.True(t, ok)
	assert.Equal(t, "x/y/c/d", got.String())

	_, ok = NewPath("a/bc").Rebase(from, to)
	assert.False(t, ok)

	_, ok = NewPath("a").Rebase(from, to)
	assert.False(t, ok)

	_, ok = NewPath("a").Rebase(NewPath(""), to)
	assert.False(t, ok)
}

func TestPath_RebaseOntoRoot(t *testing.T) {
	got, ok := NewPath("a/b/c").Rebase(NewPath("a"), NewPath(""))
	assert.True(t, ok)
	assert.Equal(t, "b/c", got.String())
}

func TestPath_Components(t *testing.T) {
	var names []string
	var lasts []bool
	NewPath("a/b/c").Components(func(name string, isLast bool) {
		names = append(names, name)
		lasts = append(lasts, isLast)
	})
	assert.Equal(t, []string{"a", "b", "c"}, names)
	assert.Equal(t, []bool{false, false, true}, lasts)

	called := false
	NewPath("").Components(func(string, bool) { called = true })
	assert.False(t, called)
}
