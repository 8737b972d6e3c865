package text

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchCommand_ExactNames(t *testing.T) {
	assert.Equal(t, cmdClassify, matchCommand("CLASSIFY"))
	assert.Equal(t, cmdQuery, matchCommand("QUERY"))
	assert.Equal(t, cmdBase, matchCommand("BASE"))
	assert.Equal(t, cmdSet, matchCommand("SET"))
	assert.Equal(t, cmdExit, matchCommand("EXIT"))
}

func TestMatchCommand_IsCaseInsensitive(t *testing.T) {
	assert.Equal(t, cmdClassify, matchCommand("classify"))
	assert.Equal(t, cmdBase, matchCommand("base"))
}

func TestMatchCommand_MatchesAbbreviation(t *testing.T) {
	assert.Equal(t, cmdClassify, matchCommand("CLASS"))
}

func TestMatchCommand_MatchesWithTrailingGarbage(t *testing.T) {
	assert.Equal(t, cmdClassify, matchCommand("CLASSIFYBLAH"))
}

func TestMatchCommand_UnrecognizedToken(t *testing.T) {
	assert.Equal(t, cmdUnknown, matchCommand("FROBNICATE"))
}

func TestMatchCommand_EmptyToken(t *testing.T) {
	assert.Equal(t, cmdUnknown, matchCommand(""))
}
