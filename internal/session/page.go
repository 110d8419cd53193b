package session

import (
	"net/http"

	g "maragu.dev/gomponents"
	h "maragu.dev/gomponents/html"
)

const callbackPageStyle = `
	body {
		font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
		background: #f6f8fa;
		color: #24292f;
		display: flex;
		align-items: center;
		justify-content: center;
		min-height: 100vh;
		margin: 0;
	}
	.card {
		background: #fff;
		border: 1px solid #d0d7de;
		border-radius: 8px;
		padding: 32px 40px;
		max-width: 420px;
		text-align: center;
	}
	h1 { font-size: 20px; margin: 0 0 12px; }
	h1.ok { color: #1a7f37; }
	h1.fail { color: #cf222e; }
	p { margin: 0; line-height: 1.5; }
`

type callbackPageData struct {
	Title   string
	Message string
	Success bool
}

// callbackPage renders the page shown in the browser after the consent
// redirect. Text nodes are escaped.
func callbackPage(data callbackPageData) g.Node {
	headingClass := "fail"
	if data.Success {
		headingClass = "ok"
	}

	return h.Doctype(
		h.HTML(
			h.Lang("en"),
			h.Head(
				h.Meta(h.Charset("utf-8")),
				h.TitleEl(g.Text(data.Title)),
				h.StyleEl(g.Raw(callbackPageStyle)),
			),
			h.Body(
				h.Div(
					h.Class("card"),
					h.H1(h.Class(headingClass), g.Text(data.Title)),
					h.P(g.Text(data.Message)),
				),
			),
		),
	)
}

func writeCallbackPage(w http.ResponseWriter, status int, data callbackPageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = callbackPage(data).Render(w)
}
