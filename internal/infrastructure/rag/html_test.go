package rag

import (
	"strings"
	"testing"
)

func TestHTMLToText_RemovesScriptStyle(t *testing.T) {
	page := `
<html><head><title>Ignored</title></head>
<body>
    <div id="main">Hello</div>
    <script>alert("hi")</script>
    <style>.x {}</style>
</body></html>`

	out := htmlToText(page)

	if strings.Contains(out, "alert") || strings.Contains(out, ".x") {
		t.Errorf("script/style content must be removed, output: %q", out)
	}
	if strings.Contains(out, "Ignored") {
		t.Errorf("head content must be removed, output: %q", out)
	}
	if out != "Hello" {
		t.Errorf("expected only the body text, got %q", out)
	}
}

func TestHTMLToText_RemovesComments(t *testing.T) {
	out := htmlToText(`<body><!-- comment --><div>Text</div></body>`)

	if strings.Contains(out, "comment") {
		t.Errorf("comments must be removed, output: %q", out)
	}
}

func TestHTMLToText_BlocksBecomeParagraphs(t *testing.T) {
	out := htmlToText(`<body><h1>Title</h1><p>First   <b>bold</b> line</p><ul><li>one</li><li>two</li></ul></body>`)

	want := "Title\n\nFirst bold line\n\none\n\ntwo"
	if out != want {
		t.Errorf("got %q, want %q", out, want)
	}
}
