package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJoinWithAnd(t *testing.T) {
	assert.Equal(t, "", JoinWithAnd(nil))
	assert.Equal(t, " WHERE a = $1", JoinWithAnd([]string{"a = $1"}))
	assert.Equal(t, " WHERE a = $1 AND b = $2", JoinWithAnd([]string{"a = $1", "b = $2"}))
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, "helm", EscapeLike("helm"))
	assert.Equal(t, `100\%\_x\\y`, EscapeLike(`100%_x\y`))
}
