package report

import (
	"bytes"
	"html"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

const htmlHead = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>`

const htmlStyle = `</title>
<style>
body { font-family: Arial, sans-serif; margin: 20px; background-color: #f5f5f5; }
.container { max-width: 1200px; margin: 0 auto; background-color: white; padding: 30px; box-shadow: 0 0 10px rgba(0,0,0,0.1); }
h1 { color: #2c3e50; border-bottom: 3px solid #3498db; padding-bottom: 10px; }
h2 { color: #34495e; margin-top: 30px; border-left: 4px solid #3498db; padding-left: 10px; }
table { width: 100%; border-collapse: collapse; margin: 20px 0; }
th, td { border: 1px solid #ddd; padding: 12px; text-align: left; }
th { background-color: #3498db; color: white; }
tr:nth-child(even) { background-color: #f2f2f2; }
blockquote { background-color: #fff3cd; border-left: 4px solid #ffc107; padding: 10px; margin: 10px 0; }
</style>
</head>
<body>
<div class="container">
`

const htmlTail = `</div>
</body>
</html>
`

// HTML renders a self-contained HTML document. Raw HTML in dataset values
// is never passed through.
func HTML(in Input) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	r := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags | mdhtml.SkipHTML})
	body := markdown.ToHTML([]byte(Markdown(in)), p, r)

	var b bytes.Buffer
	b.WriteString(htmlHead)
	b.WriteString(html.EscapeString(in.title()))
	b.WriteString(htmlStyle)
	b.Write(body)
	b.WriteString(htmlTail)
	return b.Bytes()
}
