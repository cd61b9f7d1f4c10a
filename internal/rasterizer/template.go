package rasterizer

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/echodeck/echodeck/pkg/models"
)

// palette holds the colors for one presentation style
type palette struct {
	Background string
	Accent     string
	Text       string
	FontFamily string
}

var palettes = map[string]palette{
	models.StyleProfessional: {
		Background: "#1a1a2e",
		Accent:     "#0f9b8e",
		Text:       "#eaeaea",
		FontFamily: "'Helvetica Neue', Arial, sans-serif",
	},
	models.StyleCreative: {
		Background: "#2d132c",
		Accent:     "#ee4540",
		Text:       "#f3f3f3",
		FontFamily: "'Trebuchet MS', Verdana, sans-serif",
	},
	models.StyleAcademic: {
		Background: "#fdfdfd",
		Accent:     "#14274e",
		Text:       "#1c1c1c",
		FontFamily: "Georgia, 'Times New Roman', serif",
	},
	models.StyleCasual: {
		Background: "#f7f3e9",
		Accent:     "#e8871e",
		Text:       "#2f2f2f",
		FontFamily: "'Comic Sans MS', 'Segoe UI', sans-serif",
	},
}

const titleTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  html, body { margin: 0; padding: 0; width: 100%; height: 100%; }
  body {
    background: {{.Palette.Background}};
    color: {{.Palette.Text}};
    font-family: {{.Palette.FontFamily}};
    display: flex;
    align-items: center;
    justify-content: center;
  }
  .title {
    font-size: 96px;
    font-weight: bold;
    text-align: center;
    max-width: 80%;
    border-bottom: 6px solid {{.Palette.Accent}};
    padding-bottom: 32px;
  }
</style>
</head>
<body>
  <div class="title">{{.Slide.Title}}</div>
</body>
</html>`

const contentTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<style>
  html, body { margin: 0; padding: 0; width: 100%; height: 100%; }
  body {
    background: {{.Palette.Background}};
    color: {{.Palette.Text}};
    font-family: {{.Palette.FontFamily}};
  }
  .slide { padding: 80px 120px; }
  h1 {
    font-size: 64px;
    color: {{.Palette.Accent}};
    margin-bottom: 48px;
  }
  ul { font-size: 40px; line-height: 1.8; }
  li { margin-bottom: 16px; }
</style>
</head>
<body>
  <div class="slide">
    <h1>{{.Slide.Title}}</h1>
    <ul>
      {{range .Slide.Bullets}}<li>{{.}}</li>
      {{end}}
    </ul>
  </div>
</body>
</html>`

var (
	titleTmpl   = template.Must(template.New("title").Parse(titleTemplate))
	contentTmpl = template.Must(template.New("content").Parse(contentTemplate))
)

type templateData struct {
	Slide   *models.Slide
	Palette palette
}

// RenderSlideHTML renders a slide into a standalone HTML document. Title
// slides get the centered layout; everything else gets heading plus bullets.
func RenderSlideHTML(slide *models.Slide, style string) (string, error) {
	pal, ok := palettes[style]
	if !ok {
		pal = palettes[models.StyleProfessional]
	}

	tmpl := contentTmpl
	if slide.IsTitleSlide() {
		tmpl = titleTmpl
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, templateData{Slide: slide, Palette: pal}); err != nil {
		return "", fmt.Errorf("failed to render slide template: %w", err)
	}

	return buf.String(), nil
}
