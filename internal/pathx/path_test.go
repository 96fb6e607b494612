package pathx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
		want  string
	}{
		{"simple", []string{"a", "b"}, "a/b"},
		{"empty base", []string{"", "b"}, "b"},
		{"trailing slashes", []string{"a/", "/b/"}, "a/b"},
		{"all empty", []string{"", ""}, ""},
		{"three parts", []string{"a", "b", "c.groovy"}, "a/b/c.groovy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Join(tt.parts...))
		})
	}
}

func TestDivide(t *testing.T) {
	tests := []struct {
		path string
		dir  string
		file string
	}{
		{"a/b/c.groovy", "a/b", "c.groovy"},
		{"c.groovy", "", "c.groovy"},
		{"a/b/", "a/b", ""},
	}
	for _, tt := range tests {
		dir, file := Divide(tt.path)
		assert.Equal(t, tt.dir, dir)
		assert.Equal(t, tt.file, file)
	}
}

func TestFromURL(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"special chars replaced", "http://a.b.com/x;y?z=1", "a.b.com/x_y"},
		{"root path dropped", "http://a.b.com/", "a.b.com"},
		{"no path", "http://a.b.com", "a.b.com"},
		{"dash replaced", "http://a.b.com/x-y", "a.b.com/x_y"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromURL(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHostOf(t *testing.T) {
	assert.Equal(t, "a.b.com", HostOf("http://a.b.com:8080/x"))
	assert.Equal(t, "", HostOf("://bad"))
}
