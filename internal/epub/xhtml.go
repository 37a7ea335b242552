// SPDX-License-Identifier: MIT

package epub

import (
	"fmt"
	"html"
	"strings"
)

// styleCSS is embedded into every book; it mirrors the reading style the
// generated chapters were designed around.
const styleCSS = `body { margin: 1em; padding: 0 1em; }
p { margin: 1.5em 0; line-height: 1.7; font-size: 1.1em; }
h1 { margin: 2em 0 1em 0; text-align: center; }
.metadata { margin: 1.5em 0; line-height: 1.7; font-size: 1.1em; }
.metadata-item { margin: 1em 0; }
.metadata-label { font-weight: bold; margin-right: 0.5em; }
`

const xhtmlHeader = `<?xml version="1.0" encoding="utf-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head>
<title>%s</title>
<link rel="stylesheet" type="text/css" href="style.css"/>
</head>
<body>
`

const xhtmlFooter = `</body>
</html>
`

// chapterXHTML renders one chapter document: a heading plus escaped paragraphs.
func chapterXHTML(title string, paragraphs []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, xhtmlHeader, html.EscapeString(title))
	fmt.Fprintf(&b, "<h1>%s</h1>\n", html.EscapeString(title))
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fmt.Fprintf(&b, "<p>%s</p>\n", html.EscapeString(p))
	}
	b.WriteString(xhtmlFooter)
	return b.String()
}

// infoXHTML renders the optional "Story Information" page with category and tags.
func infoXHTML(category string, tags []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, xhtmlHeader, "Story Information")
	b.WriteString("<h1>Story Information</h1>\n<div class=\"metadata\">\n")
	if category != "" {
		fmt.Fprintf(&b, "<div class=\"metadata-item\"><span class=\"metadata-label\">Category:</span>%s</div>\n",
			html.EscapeString(category))
	}
	if len(tags) > 0 {
		escaped := make([]string, len(tags))
		for i, t := range tags {
			escaped[i] = html.EscapeString(t)
		}
		fmt.Fprintf(&b, "<div class=\"metadata-item\"><span class=\"metadata-label\">Tags:</span>%s</div>\n",
			strings.Join(escaped, ", "))
	}
	b.WriteString("</div>\n")
	b.WriteString(xhtmlFooter)
	return b.String()
}

// navXHTML renders the EPUB3 navigation document.
func navXHTML(entries []navEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, xhtmlHeader, "Contents")
	b.WriteString("<nav epub:type=\"toc\" id=\"toc\">\n<h1>Contents</h1>\n<ol>\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "<li><a href=\"%s\">%s</a></li>\n", e.href, html.EscapeString(e.title))
	}
	b.WriteString("</ol>\n</nav>\n")
	b.WriteString(xhtmlFooter)
	return b.String()
}

type navEntry struct {
	title string
	href  string
}
