package certificate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vta-hub/vta-training-hub/internal/domain/shared"
)

func TestResolveTemplate_HighestSequenceWins(t *testing.T) {
	templates := []Template{
		{ID: "t1", Name: "Initial Certificate v1", Sequence: 1, Active: true},
		{ID: "t2", Name: "Initial Certificate v2", Sequence: 2, Active: true},
		{ID: "t3", Name: "Professional Certificate", Sequence: 5, Active: true},
	}

	tpl, err := ResolveTemplate(templates, shared.LevelInitial)
	require.NoError(t, err)
	assert.Equal(t, "t2", tpl.ID)
}

func TestResolveTemplate_InactiveSkipped(t *testing.T) {
	templates := []Template{
		{ID: "t1", Name: "Initial Certificate v1", Sequence: 1, Active: true},
		{ID: "t2", Name: "Initial Certificate v2", Sequence: 2, Active: false},
	}

	tpl, err := ResolveTemplate(templates, shared.LevelInitial)
	require.NoError(t, err)
	assert.Equal(t, "t1", tpl.ID)
}

func TestResolveTemplate_RelearnFallsBackToInitial(t *testing.T) {
	withOwn := []Template{
		{ID: "t1", Name: "Initial Certificate", Sequence: 9, Active: true},
		{ID: "t2", Name: "Relearn Certificate", Sequence: 1, Active: true},
	}
	tpl, err := ResolveTemplate(withOwn, shared.LevelRelearn)
	require.NoError(t, err)
	assert.Equal(t, "t2", tpl.ID)

	initialOnly := []Template{
		{ID: "t1", Name: "Initial Certificate", Sequence: 9, Active: true},
	}
	tpl, err = ResolveTemplate(initialOnly, shared.LevelRelearn)
	require.NoError(t, err)
	assert.Equal(t, "t1", tpl.ID)
}

func TestResolveTemplate_NotFound(t *testing.T) {
	templates := []Template{
		{ID: "t1", Name: "Initial Certificate", Sequence: 1, Active: true},
	}
	_, err := ResolveTemplate(templates, shared.LevelProfessional)
	assert.ErrorIs(t, err, shared.ErrTemplateNotFound)

	_, err = ResolveTemplate(nil, shared.LevelInitial)
	assert.ErrorIs(t, err, shared.ErrTemplateNotFound)
}

func TestGradeTier(t *testing.T) {
	assert.Equal(t, "Excellent", GradeTier(9.5))
	assert.Equal(t, "Excellent", GradeTier(9.0))
	assert.Equal(t, "Very Good", GradeTier(8.2))
	assert.Equal(t, "Good", GradeTier(7.0))
	assert.Equal(t, "Pass", GradeTier(6.9))
}
