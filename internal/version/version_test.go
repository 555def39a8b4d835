package version

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShort(t *testing.T) {
	assert.Equal(t, Version, Short())
}

func TestFull(t *testing.T) {
	s := Full()
	assert.Contains(t, s, "Heimdall")
	assert.Contains(t, s, Version)
	assert.Contains(t, s, GitCommit)
	assert.Contains(t, s, runtime.Version())
	assert.Contains(t, s, runtime.GOOS)
}

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, GitCommit, info.GitCommit)
	assert.Equal(t, runtime.Version(), info.GoVersion)
	assert.NotEmpty(t, info.Platform)
}
