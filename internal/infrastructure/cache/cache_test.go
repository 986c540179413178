package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	a := Key("lint:json", "sqlite:/tmp/grid.db", "0f8fad5b-d9cb-469f-a165-70867728950e")
	b := Key("lint:json", "0f8fad5b-d9cb-469f-a165-70867728950e", "sqlite:/tmp/grid.db")
	assert.Equal(t, a, b)
	assert.Regexp(t, `^lint:json:[0-9a-f]{24}$`, a)

	assert.NotEqual(t, a, Key("lint:text", "sqlite:/tmp/grid.db", "0f8fad5b-d9cb-469f-a165-70867728950e"))
	assert.NotEqual(t, a, Key("lint:json", "sqlite:/tmp/grid.db"))
}
