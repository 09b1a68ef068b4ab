// ABOUTME: Informational HTML catalog of the visible tools.
// ABOUTME: Tool descriptions are rendered as Markdown; schemas shown verbatim.

package mcp

import (
	"bytes"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"

	"github.com/kaladinstorm84/SwaggerMCP/pkg/identity"
)

var catalogTmpl = template.Must(template.New("catalog").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.ServerName}} tools</title>
<style>
body { font-family: sans-serif; max-width: 60rem; margin: 2rem auto; padding: 0 1rem; }
h2 { border-bottom: 1px solid #ddd; padding-bottom: .3rem; }
code, pre { background: #f5f5f5; }
pre { padding: .8rem; overflow-x: auto; }
.route { color: #555; font-size: .9rem; }
.tags span { background: #eef; border-radius: 3px; padding: 0 .4rem; margin-right: .3rem; font-size: .8rem; }
</style>
</head>
<body>
<h1>{{.ServerName}} <small>{{.ServerVersion}}</small></h1>
<p>{{.Count}} tool(s) available.</p>
{{range .Tools}}
<h2>{{.Name}}</h2>
<p class="route"><code>{{.Method}} {{.Path}}</code></p>
{{if .Tags}}<p class="tags">{{range .Tags}}<span>{{.}}</span>{{end}}</p>{{end}}
<div>{{.Description}}</div>
<pre><code>{{.Schema}}</code></pre>
{{end}}
</body>
</html>
`))

type catalogTool struct {
	Name        string
	Method      string
	Path        string
	Tags        []string
	Description template.HTML
	Schema      string
}

type catalogData struct {
	ServerName    string
	ServerVersion string
	Count         int
	Tools         []catalogTool
}

// handleCatalog renders the tool catalog for the requesting identity. The
// same governance chain filters the page, so hidden tools stay hidden here
// too.
func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	ident := s.resolveIdentity(r)
	r = r.WithContext(identity.WithIdentity(r.Context(), ident))

	data := catalogData{
		ServerName:    s.serverName,
		ServerVersion: s.serverVersion,
	}
	for _, tool := range s.visibleTools(r, ident) {
		data.Tools = append(data.Tools, catalogTool{
			Name:        tool.Name,
			Method:      tool.Method,
			Path:        tool.Path,
			Tags:        tool.Tags,
			Description: renderMarkdown(tool.Description),
			Schema:      tool.SchemaJSON,
		})
	}
	data.Count = len(data.Tools)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := catalogTmpl.Execute(w, data); err != nil {
		s.logger.Warn("failed to render catalog", "error", err)
	}
}

// renderMarkdown converts a tool description to HTML, falling back to the
// escaped raw text on conversion failure.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}
