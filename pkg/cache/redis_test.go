package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey(t *testing.T) {
	assert.Equal(t, "nccrd", Key())
	assert.Equal(t, "nccrd:regions:provinces", Key("regions", "provinces"))
	assert.Equal(t, "nccrd:regions:districts:Gauteng", Key("regions", "districts", "Gauteng"))
}
