// Package view renders the relay state for the terminal and as an HTML page.
package view

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/ibeckermayer/icebreaker/internal/relay"
	"github.com/ibeckermayer/icebreaker/internal/types"
)

// Renderer renders relay state.
type Renderer struct {
	text *template.Template
	html *htmltemplate.Template
	now  func() time.Time
}

// Data is the template data structure
type Data struct {
	Title       string
	Date        string
	Handle      string
	Profile     *types.Profile
	PostCount   int
	Posts       []PostData
	Suggestions []types.Suggestion
	Selection   relay.Selection
	Generating  bool
	Configured  bool
}

// PostData represents a post in the rendered view
type PostData struct {
	Text     string
	Likes    string
	Retweets string
	Comments string
}

var funcs = template.FuncMap{
	"indent": func(s string) string { return strings.ReplaceAll(s, "\n", "\n   ") },
	"inc":    func(i int) int { return i + 1 },
}

// New parses the built-in templates
func New() (*Renderer, error) {
	text, err := template.New("text").Funcs(funcs).Parse(textTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse text template: %w", err)
	}
	html, err := htmltemplate.New("html").Funcs(htmltemplate.FuncMap(funcs)).Parse(htmlTemplate)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html template: %w", err)
	}
	return &Renderer{text: text, html: html, now: time.Now}, nil
}

func (r *Renderer) data(state relay.State, sel relay.Selection, maxPosts int) Data {
	d := Data{
		Title:       "icebreaker",
		Date:        r.now().Format("Monday, January 2"),
		Handle:      state.Handle,
		Profile:     state.Profile,
		PostCount:   len(state.Posts),
		Suggestions: state.Suggestions,
		Selection:   sel,
		Generating:  state.Generating,
		Configured:  state.Configured,
	}
	if state.Handle != "" {
		d.Title = "icebreaker - @" + state.Handle
	}

	posts := state.Posts
	if maxPosts >= 0 && len(posts) > maxPosts {
		posts = posts[:maxPosts]
	}
	for _, p := range posts {
		d.Posts = append(d.Posts, PostData{
			Text:     truncate(p.Text, 280),
			Likes:    p.Likes,
			Retweets: p.Retweets,
			Comments: p.Comments,
		})
	}
	return d
}

// Text writes a plain-text rendering of state. maxPosts < 0 lists every post.
func (r *Renderer) Text(w io.Writer, state relay.State, sel relay.Selection, maxPosts int) error {
	if err := r.text.Execute(w, r.data(state, sel, maxPosts)); err != nil {
		return fmt.Errorf("failed to render template: %w", err)
	}
	return nil
}

// HTML renders state as a standalone page.
func (r *Renderer) HTML(state relay.State, sel relay.Selection, maxPosts int) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.html.Execute(&buf, r.data(state, sel, maxPosts)); err != nil {
		return nil, fmt.Errorf("failed to render template: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteHTML renders state into dir and returns the file path.
func (r *Renderer) WriteHTML(dir string, state relay.State, sel relay.Selection, maxPosts int) (string, error) {
	page, err := r.HTML(state, sel, maxPosts)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	name := "suggestions.html"
	if state.Handle != "" {
		name = state.Handle + ".html"
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, page, 0644); err != nil {
		return "", err
	}
	return path, nil
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

const textTemplate = `{{.Title}}
{{if not .Profile}}Open an X profile in the browser to get started.
{{else}}{{with .Profile}}@{{.Username}} · {{.FollowersCount}} followers · {{.FollowingCount}} following
{{.Bio}}
{{end}}
{{.PostCount}} posts analyzed
{{range $i, $p := .Posts}}{{inc $i}}. {{indent $p.Text}}
{{end}}{{if .Generating}}
Generating...
{{else if .Suggestions}}
Suggestions ({{.Selection.Provider}}, {{.Selection.Style}}, {{.Selection.Persona}}):
{{range .Suggestions}}{{.Topic}}
   {{indent .Text}}
{{end}}{{else if not .Configured}}
No AI provider configured. Run "icebreaker config set <provider> <api-key>".
{{end}}{{end}}`

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>{{.Title}}</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background: #f5f5f5; }
        .container { background: white; border-radius: 8px; padding: 20px; }
        h1 { color: #1da1f2; margin-bottom: 5px; }
        .date { color: #666; margin-bottom: 20px; }
        .bio { margin: 10px 0; line-height: 1.4; }
        .metrics { color: #666; font-size: 13px; }
        .post { border-bottom: 1px solid #eee; padding: 10px 0; }
        .suggestion { background: #e8f5fd; border-radius: 8px; padding: 10px 12px; margin: 10px 0; }
        .topic { color: #1da1f2; font-weight: bold; font-size: 12px; }
        .footer { margin-top: 20px; padding-top: 15px; border-top: 1px solid #eee; color: #999; font-size: 12px; text-align: center; }
    </style>
</head>
<body>
    <div class="container">
        <h1>{{.Title}}</h1>
        <div class="date">{{.Date}}</div>
        {{with .Profile}}
        <div class="bio">{{.Bio}}</div>
        <div class="metrics">{{.FollowersCount}} followers · {{.FollowingCount}} following</div>
        {{else}}
        <p>Open an X profile in the browser to get started.</p>
        {{end}}

        {{range .Suggestions}}
        <div class="suggestion">
            <div class="topic">{{.Topic}}</div>
            <div>{{.Text}}</div>
        </div>
        {{end}}

        {{range .Posts}}
        <div class="post">
            <div>{{.Text}}</div>
            <div class="metrics">{{.Likes}} likes · {{.Retweets}} reposts · {{.Comments}} replies</div>
        </div>
        {{end}}

        <div class="footer">
            {{.PostCount}} posts analyzed · Generated by icebreaker
        </div>
    </div>
</body>
</html>`
