package rasterizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/echodeck/echodeck/pkg/models"
)

func TestRenderSlideHTMLTitleLayout(t *testing.T) {
	slide := &models.Slide{
		ID:       "s0",
		Position: 0,
		Title:    "Quarterly Review",
		Bullets:  models.StringList{"Revenue", "Costs"},
	}

	html, err := RenderSlideHTML(slide, models.StyleProfessional)
	require.NoError(t, err)

	// Position 0 always gets the centered title layout, bullets or not
	assert.Contains(t, html, `class="title"`)
	assert.Contains(t, html, "Quarterly Review")
	assert.NotContains(t, html, "<li>")
}

func TestRenderSlideHTMLContentLayout(t *testing.T) {
	slide := &models.Slide{
		ID:       "s1",
		Position: 1,
		Title:    "Revenue",
		Bullets:  models.StringList{"Up 12% year over year", "New enterprise tier"},
	}

	html, err := RenderSlideHTML(slide, models.StyleAcademic)
	require.NoError(t, err)

	assert.Contains(t, html, "<h1>Revenue</h1>")
	assert.Contains(t, html, "<li>Up 12% year over year</li>")
	assert.Contains(t, html, "<li>New enterprise tier</li>")
	// Academic palette
	assert.Contains(t, html, "#fdfdfd")
}

func TestRenderSlideHTMLBulletlessSlideIsTitleLayout(t *testing.T) {
	slide := &models.Slide{ID: "s3", Position: 3, Title: "Questions?"}

	html, err := RenderSlideHTML(slide, models.StyleCasual)
	require.NoError(t, err)

	assert.Contains(t, html, `class="title"`)
}

func TestRenderSlideHTMLUnknownStyleFallsBack(t *testing.T) {
	slide := &models.Slide{ID: "s1", Position: 1, Title: "T", Bullets: models.StringList{"b"}}

	html, err := RenderSlideHTML(slide, "brutalist")
	require.NoError(t, err)

	// Professional palette background
	assert.Contains(t, html, "#1a1a2e")
}

func TestRenderSlideHTMLEscapesMarkup(t *testing.T) {
	slide := &models.Slide{
		ID:       "s1",
		Position: 1,
		Title:    "<script>alert(1)</script>",
		Bullets:  models.StringList{"a < b"},
	}

	html, err := RenderSlideHTML(slide, models.StyleProfessional)
	require.NoError(t, err)

	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.Contains(t, html, "&lt;script&gt;")
}
