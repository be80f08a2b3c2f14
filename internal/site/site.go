// Package site renders the portfolio page from the profile record.
package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/zadiki/folio/internal/profile"
)

//go:embed templates/*.html
var templatesFS embed.FS

var page = template.Must(template.New("index.html").Funcs(template.FuncMap{
	"achievementIcon": AchievementIcon,
	"skillIcon":       SkillIcon,
}).ParseFS(templatesFS, "templates/index.html"))

// achievementIcons maps the open icon tag of an achievement to the glyph drawn
// behind it. Unknown tags draw nothing.
var achievementIcons = map[string]string{
	"building":      "code",
	"users":         "smartphone",
	"shopping-cart": "database",
}

var skillIcons = map[string]string{
	"Languages & Core":     "code",
	"Frontend":             "cpu",
	"Backend & Frameworks": "server",
	"Data & Database":      "database",
	"Cloud & DevOps":       "cloud",
}

// AchievementIcon returns the glyph for an achievement icon tag, or "" when
// the tag is not recognized.
func AchievementIcon(tag string) string {
	return achievementIcons[tag]
}

// SkillIcon returns the glyph for a skill category. Every category gets one.
func SkillIcon(category string) string {
	if icon, ok := skillIcons[category]; ok {
		return icon
	}
	return "smartphone"
}

// Page is the data handed to the template.
type Page struct {
	Profile profile.Profile
	Year    int
	// ChatEnabled controls whether the widget markup and script are emitted.
	ChatEnabled bool
}

// Options tunes rendering.
type Options struct {
	ChatEnabled bool
	Now         func() time.Time
}

// Renderer renders the page for one profile.
type Renderer struct {
	store *profile.Store
	opts  Options
}

// NewRenderer creates a Renderer for store.
func NewRenderer(store *profile.Store, opts Options) *Renderer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Renderer{store: store, opts: opts}
}

// Render writes the full HTML page to w. The output is buffered so a template
// error never leaves a half-written page.
func (r *Renderer) Render(w io.Writer) error {
	var buf bytes.Buffer
	err := page.Execute(&buf, Page{
		Profile:     r.store.Profile(),
		Year:        r.opts.Now().Year(),
		ChatEnabled: r.opts.ChatEnabled,
	})
	if err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}
	_, err = buf.WriteTo(w)
	return err
}
