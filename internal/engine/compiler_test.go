package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"usecase-workflow/backend/pkg/models"
)

func TestASLCompilerChainsStagesInOrder(t *testing.T) {
	c := NewASLCompiler()

	out, err := c.Compile([]models.Stage{
		{Label: "discovery", Tasks: []string{"collect docs"}, Checklist: []string{"signed off"}},
		{Label: "build", Tasks: []string{"implement"}},
		{Label: "launch"},
	})
	require.NoError(t, err)

	var def definition
	require.NoError(t, json.Unmarshal([]byte(out), &def))

	assert.Equal(t, "discovery", def.StartAt)
	require.Len(t, def.States, 3)
	assert.Equal(t, "build", def.States["discovery"].Next)
	assert.Equal(t, "launch", def.States["build"].Next)
	assert.True(t, def.States["launch"].End)
	assert.False(t, def.States["discovery"].End)
	assert.Equal(t, "Pass", def.States["discovery"].Type)
}

func TestASLCompilerRejectsEmptySequence(t *testing.T) {
	c := NewASLCompiler()
	_, err := c.Compile(nil)
	assert.Error(t, err)
}

func TestASLCompilerHandlesMissingAndDuplicateLabels(t *testing.T) {
	c := NewASLCompiler()

	out, err := c.Compile([]models.Stage{
		{Label: ""},
		{Label: "review"},
		{Label: "review"},
	})
	require.NoError(t, err)

	var def definition
	require.NoError(t, json.Unmarshal([]byte(out), &def))

	assert.Equal(t, "stage-1", def.StartAt)
	assert.Contains(t, def.States, "review")
	assert.Contains(t, def.States, "review-3")
}
