package toolserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithDefaultFillsOnlyUnspecifiedZero(t *testing.T) {
	assert.Equal(t, 10, withDefault(0, 10))
	assert.Equal(t, 25, withDefault(25, 10))
	assert.Equal(t, 1, withDefault(1, 10))
}
