// Package placeholder renders the static page served for a domain while the
// fleet is on vacation.
package placeholder

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// DefaultMessage is markdown; "{domain}" is replaced with the hostname.
const DefaultMessage = `## We're on holiday

**{domain}** is taking a short break while the team is away.
Everything is safe and we'll be back shortly.

Thanks for your patience.`

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta name="robots" content="noindex">
<title>{{.Domain}} is on holiday</title>
<style>
body{font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",Helvetica,Arial,sans-serif;background:#f9fafb;color:#1f2937;display:flex;min-height:100vh;align-items:center;justify-content:center;margin:0}
main{max-width:36rem;padding:2rem;background:#fff;border-radius:12px;box-shadow:0 1px 3px rgba(0,0,0,.1)}
h2{color:#7c3aed;margin-top:0}
</style>
</head>
<body>
<main>
{{.Body}}
</main>
</body>
</html>
`))

type Generator struct {
	message string
	md      goldmark.Markdown
}

// New returns a generator for message; an empty message uses DefaultMessage.
func New(message string) *Generator {
	if message == "" {
		message = DefaultMessage
	}
	return &Generator{
		message: message,
		md: goldmark.New(
			goldmark.WithExtensions(extension.Typographer),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

// Render returns the full HTML document for domain. It depends only on its
// input.
func (g *Generator) Render(domain string) (string, error) {
	var body bytes.Buffer
	src := strings.ReplaceAll(g.message, "{domain}", domain)
	if err := g.md.Convert([]byte(src), &body); err != nil {
		return "", fmt.Errorf("render placeholder for %s: %w", domain, err)
	}

	var out bytes.Buffer
	err := page.Execute(&out, struct {
		Domain string
		Body   template.HTML
	}{
		Domain: domain,
		Body:   template.HTML(body.String()),
	})
	if err != nil {
		return "", fmt.Errorf("render placeholder for %s: %w", domain, err)
	}
	return out.String(), nil
}
