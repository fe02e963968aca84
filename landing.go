package main

import (
	"fmt"
	"html"
	"net/http"
	"slices"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/server"
)

// sharedCSS is the stylesheet of the landing page.
const sharedCSS = `*,*::before,*::after{box-sizing:border-box;margin:0;padding:0}

:root{
  --blue:#1A7CF9;
  --bg:#FFFFFF;
  --text:#1C1C1E;
  --text-secondary:#8E8E93;
  --divider:#E5E5EA;
  --code-bg:#F2F2F7;
  --radius:12px;
}

@media(prefers-color-scheme:dark){
  :root{
    --bg:#1C1C1E;
    --text:#F2F2F7;
    --divider:#3A3A3C;
    --code-bg:#3A3A3C;
  }
}

body{
  font-family:-apple-system,BlinkMacSystemFont,"Segoe UI",Roboto,Helvetica,Arial,sans-serif;
  color:var(--text);
  background:var(--bg);
  line-height:1.6;
}

.container{max-width:960px;margin:0 auto;padding:48px 24px}
h1{font-size:32px;letter-spacing:-0.6px;margin-bottom:8px}
h1 .brand{color:var(--blue)}
.lead{color:var(--text-secondary);margin-bottom:32px}
code{background:var(--code-bg);border-radius:6px;padding:2px 6px;font-size:14px}
.tool{border:1px solid var(--divider);border-radius:var(--radius);padding:20px;margin-bottom:16px}
.tool h2{font-size:18px;margin-bottom:4px}
.tool p{color:var(--text-secondary);margin-bottom:8px}
.tool ul{padding-left:20px;font-size:14px}
`

// landingPage renders an HTML overview of tools and where to connect.
func landingPage(tools []server.ServerTool) string {
	var b strings.Builder
	b.WriteString(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Itemit MCP</title>
<style>`)
	b.WriteString(sharedCSS)
	b.WriteString(`</style>
</head>
<body>
<div class="container">
<h1><span class="brand">Itemit</span> MCP server</h1>
<p class="lead">Connect an MCP client to <code>/mcp</code> to search locations and items, create items and read reminders.</p>
`)
	for _, st := range tools {
		b.WriteString(`<div class="tool">`)
		fmt.Fprintf(&b, "<h2><code>%s</code></h2>\n", html.EscapeString(st.Tool.Name))
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(st.Tool.Description))

		props := st.Tool.InputSchema.Properties
		if len(props) > 0 {
			names := make([]string, 0, len(props))
			for name := range props {
				names = append(names, name)
			}
			sort.Strings(names)
			b.WriteString("<ul>\n")
			for _, name := range names {
				desc := ""
				if p, ok := props[name].(map[string]any); ok {
					desc, _ = p["description"].(string)
				}
				req := ""
				if slices.Contains(st.Tool.InputSchema.Required, name) {
					req = " (required)"
				}
				fmt.Fprintf(&b, "<li><code>%s</code>%s: %s</li>\n", html.EscapeString(name), req, html.EscapeString(desc))
			}
			b.WriteString("</ul>\n")
		}
		b.WriteString("</div>\n")
	}
	b.WriteString("</div>\n</body>\n</html>\n")
	return b.String()
}

func landingHandler(tools []server.ServerTool) http.HandlerFunc {
	page := landingPage(tools)
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(page))
	}
}
