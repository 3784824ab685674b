package object

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		rel    string
		want   string
	}{
		{"no prefix", "", "a.jpg", "a.jpg"},
		{"prefix", "converted", "a.jpg", "converted/a.jpg"},
		{"prefix with slashes", "/converted/", "a.jpg", "converted/a.jpg"},
		{"nested", "out", filepath.Join("trip", "day1", "a.png"), "out/trip/day1/a.png"},
		{"leading slash", "", "/a.png", "a.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ObjectName(tt.prefix, tt.rel))
		})
	}
}
