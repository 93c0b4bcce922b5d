package version_test

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/edumarques81/stellar-remote/internal/version"
)

func TestGetInfo(t *testing.T) {
	info := version.GetInfo()
	assert.Equal(t, version.Name, info.Name)
	assert.NotEmpty(t, info.Version)
	assert.Equal(t, runtime.Version(), info.GoVersion)
}

func TestString(t *testing.T) {
	tests := []struct {
		name string
		info version.Info
		want string
	}{
		{"plain", version.Info{Name: "Stellar Remote", Version: "1.2.3"}, "Stellar Remote v1.2.3"},
		{"short commit", version.Info{Name: "R", Version: "1", GitCommit: "abc"}, "R v1 (abc)"},
		{"long commit", version.Info{Name: "R", Version: "1", GitCommit: "0123456789abcdef"}, "R v1 (0123456)"},
		{"build time", version.Info{Name: "R", Version: "1", BuildTime: "2026-01-02"}, "R v1 built 2026-01-02"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.info.String())
		})
	}
}
