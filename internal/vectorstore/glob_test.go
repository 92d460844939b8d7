package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGlobToLikeBasics(t *testing.T) {
	like, escape := globToLike("internal/**/*.go")
	assert.Equal(t, "internal/%/%.go", like)
	assert.Equal(t, byte('\\'), escape)
}

func TestGlobToLikeQuestionMark(t *testing.T) {
	like, _ := globToLike("file?.go")
	assert.Equal(t, "file_.go", like)
}

func TestGlobToLikeEscapesLiteralPercentAndUnderscore(t *testing.T) {
	like, escape := globToLike("100%_done.go")
	assert.Equal(t, "100\\%\\_done.go", like)
	assert.Equal(t, byte('\\'), escape)
}

func TestGlobToLikeEscapesLiteralBackslash(t *testing.T) {
	like, _ := globToLike(`a\b`)
	assert.Equal(t, `a\\b`, like)
}
