package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

const landingHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>localrag</title>
<style>
  *, *::before, *::after { box-sizing: border-box; margin: 0; padding: 0; }
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; background: #0f172a; color: #e2e8f0; min-height: 100vh; display: flex; align-items: center; justify-content: center; }
  .card { max-width: 640px; width: 90%; background: #1e293b; border-radius: 12px; padding: 2.5rem; }
  h1 { font-size: 1.75rem; margin-bottom: 0.5rem; color: #f8fafc; }
  .subtitle { color: #94a3b8; margin-bottom: 1.75rem; }
  .section { margin-bottom: 1.5rem; }
  .section-title { font-size: 0.75rem; text-transform: uppercase; letter-spacing: 0.1em; color: #64748b; margin-bottom: 0.5rem; }
  a { color: #38bdf8; text-decoration: none; }
  pre { background: #0f172a; border: 1px solid #334155; border-radius: 8px; padding: 1rem; overflow-x: auto; font-size: 0.85rem; line-height: 1.5; }
  code, .endpoint { font-family: "SF Mono", "Fira Code", Menlo, monospace; }
  .endpoint { font-size: 0.9rem; color: #a5b4fc; }
</style>
</head>
<body>
<div class="card">
  <h1>localrag</h1>
  <p class="subtitle">Question answering over your local documents.</p>

  <div class="section">
    <div class="section-title">Ask a question</div>
    <pre><code>curl -s localhost:8080/api/chat -d '{"message":"What is in my notes?"}' -H 'Content-Type: application/json'</code></pre>
  </div>

  <div class="section">
    <div class="section-title">Endpoints</div>
    <p><span class="endpoint">POST /api/chat</span> &mdash; answer a question</p>
    <p><a href="/api/stats" class="endpoint">/api/stats</a> &mdash; index size</p>
    <p><a href="/api/health" class="endpoint">/api/health</a> &mdash; health check</p>
    <p><a href="/metrics" class="endpoint">/metrics</a> &mdash; Prometheus metrics</p>
    <p><span class="endpoint">/mcp</span> &mdash; MCP Streamable HTTP</p>
  </div>
</div>
</body>
</html>`

func (s *Server) handleLanding(c echo.Context) error {
	return c.HTML(http.StatusOK, landingHTML)
}
