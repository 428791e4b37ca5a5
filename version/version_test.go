package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShort(t *testing.T) {
	assert.Equal(t, "v1.2.0 (3f2a9c1)", Info{Version: "v1.2.0", Commit: "3f2a9c1d8e"}.Short())
	assert.Equal(t, "dev", Info{Version: "dev", Commit: "none"}.Short())
}

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	assert.Equal(t, Protocol, info.Protocol)
	assert.Contains(t, info.String(), "Protocol:  1")
	assert.NotEmpty(t, info.Platform)
}
