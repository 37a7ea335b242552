// SPDX-License-Identifier: MIT

// Package epub assembles EPUB 3 books from downloaded stories. The container
// is written with archive/zip and the package documents with encoding/xml,
// keeping the output readable by both EPUB 2 and EPUB 3 readers.
package epub

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// Chapter is one spine entry of the book.
type Chapter struct {
	Title      string
	Paragraphs []string
}

// Book holds everything needed to assemble an EPUB.
type Book struct {
	Title       string
	Author      string
	Category    string
	Tags        []string
	Description string // dc:description; chapter descriptions joined
	Cover       []byte // JPEG bytes; optional
	Chapters    []Chapter

	// Identifier defaults to a fresh UUID when empty.
	Identifier string
}

const (
	mimetypeFile    = "mimetype"
	epubMimetype    = "application/epub+zip"
	containerPath   = "META-INF/container.xml"
	opfPath         = "OEBPS/content.opf"
	navPath         = "OEBPS/nav.xhtml"
	ncxPath         = "OEBPS/toc.ncx"
	cssPath         = "OEBPS/style.css"
	coverPath       = "OEBPS/cover.jpg"
	infoPath        = "OEBPS/info.xhtml"
	chapterPathTmpl = "OEBPS/chapter_%03d.xhtml"
)

// WriteTo assembles the book and writes the complete EPUB container to w.
func (b *Book) WriteTo(w io.Writer) (int64, error) {
	if len(b.Chapters) == 0 {
		return 0, fmt.Errorf("book has no chapters")
	}
	if b.Identifier == "" {
		b.Identifier = uuid.New().String()
	}

	counter := &countingWriter{w: w}
	zw := zip.NewWriter(counter)

	// The mimetype entry must come first and must be stored uncompressed.
	mt, err := zw.CreateHeader(&zip.FileHeader{Name: mimetypeFile, Method: zip.Store})
	if err != nil {
		return counter.n, fmt.Errorf("create mimetype entry: %w", err)
	}
	if _, err := mt.Write([]byte(epubMimetype)); err != nil {
		return counter.n, fmt.Errorf("write mimetype: %w", err)
	}

	if err := b.writeContainer(zw); err != nil {
		return counter.n, err
	}
	if err := b.writePackage(zw); err != nil {
		return counter.n, err
	}
	if err := b.writeNav(zw); err != nil {
		return counter.n, err
	}
	if err := writeEntry(zw, cssPath, styleCSS); err != nil {
		return counter.n, err
	}
	if len(b.Cover) > 0 {
		f, err := zw.Create(coverPath)
		if err != nil {
			return counter.n, fmt.Errorf("create cover entry: %w", err)
		}
		if _, err := f.Write(b.Cover); err != nil {
			return counter.n, fmt.Errorf("write cover: %w", err)
		}
	}
	if b.hasInfoPage() {
		if err := writeEntry(zw, infoPath, infoXHTML(b.Category, b.Tags)); err != nil {
			return counter.n, err
		}
	}
	for i, ch := range b.Chapters {
		path := fmt.Sprintf(chapterPathTmpl, i+1)
		if err := writeEntry(zw, path, chapterXHTML(ch.Title, ch.Paragraphs)); err != nil {
			return counter.n, err
		}
	}

	if err := zw.Close(); err != nil {
		return counter.n, fmt.Errorf("finalize epub: %w", err)
	}
	return counter.n, nil
}

func (b *Book) hasInfoPage() bool {
	return b.Category != "" || len(b.Tags) > 0
}

func (b *Book) writeContainer(zw *zip.Writer) error {
	doc := container{
		Version: "1.0",
		Rootfiles: []rootfile{
			{FullPath: opfPath, MediaType: "application/oebps-package+xml"},
		},
	}
	return writeXML(zw, containerPath, doc)
}

func (b *Book) writePackage(zw *zip.Writer) error {
	pkg := opfPackage{
		Version:          "3.0",
		UniqueIdentifier: "pub-id",
		Metadata: opfMetadata{
			XmlnsDC:     "http://purl.org/dc/elements/1.1/",
			Identifier:  opfIdentifier{ID: "pub-id", Value: "urn:uuid:" + b.Identifier},
			Title:       b.Title,
			Language:    "en",
			Creator:     b.Author,
			Publisher:   "litkeeper",
			Description: b.Description,
			Subjects:    b.subjects(),
		},
		Spine: opfSpine{Toc: "ncx"},
	}

	add := func(id, href, mediaType, properties string) {
		pkg.Manifest = append(pkg.Manifest, opfItem{
			ID: id, Href: strings.TrimPrefix(href, "OEBPS/"), MediaType: mediaType, Properties: properties,
		})
	}
	add("nav", navPath, "application/xhtml+xml", "nav")
	add("ncx", ncxPath, "application/x-dtbncx+xml", "")
	add("css", cssPath, "text/css", "")
	if len(b.Cover) > 0 {
		add("cover-image", coverPath, "image/jpeg", "cover-image")
		pkg.Metadata.Metas = append(pkg.Metadata.Metas, opfMeta{Name: "cover", Content: "cover-image"})
	}
	if b.hasInfoPage() {
		add("info", infoPath, "application/xhtml+xml", "")
		pkg.Spine.ItemRefs = append(pkg.Spine.ItemRefs, opfItemRef{IDRef: "info"})
	}
	for i := range b.Chapters {
		id := fmt.Sprintf("chapter-%03d", i+1)
		add(id, fmt.Sprintf(chapterPathTmpl, i+1), "application/xhtml+xml", "")
		pkg.Spine.ItemRefs = append(pkg.Spine.ItemRefs, opfItemRef{IDRef: id})
	}

	return writeXML(zw, opfPath, pkg)
}

func (b *Book) writeNav(zw *zip.Writer) error {
	var entries []navEntry
	if b.hasInfoPage() {
		entries = append(entries, navEntry{title: "Story Information", href: "info.xhtml"})
	}
	for i, ch := range b.Chapters {
		entries = append(entries, navEntry{
			title: ch.Title,
			href:  strings.TrimPrefix(fmt.Sprintf(chapterPathTmpl, i+1), "OEBPS/"),
		})
	}
	if err := writeEntry(zw, navPath, navXHTML(entries)); err != nil {
		return err
	}

	// EPUB2 fallback navigation.
	doc := ncx{
		Version: "2005-1",
		Head: []opfMeta{
			{Name: "dtb:uid", Content: "urn:uuid:" + b.Identifier},
			{Name: "dtb:depth", Content: "1"},
		},
		DocTitle: b.Title,
	}
	for i, e := range entries {
		doc.NavPoints = append(doc.NavPoints, navPoint{
			ID:        fmt.Sprintf("navpoint-%d", i+1),
			PlayOrder: i + 1,
			Label:     e.title,
			Content:   navContent{Src: e.href},
		})
	}
	return writeXML(zw, ncxPath, doc)
}

func (b *Book) subjects() []string {
	// dc:subject carries the category plus every tag, deduplicated.
	seen := make(map[string]bool)
	var out []string
	appendOne := func(s string) {
		if s == "" || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}
	appendOne(b.Category)
	for _, t := range b.Tags {
		appendOne(t)
	}
	return out
}

func writeEntry(zw *zip.Writer, name, content string) error {
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := f.Write([]byte(content)); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func writeXML(zw *zip.Writer, name string, doc any) error {
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := f.Write([]byte(xml.Header)); err != nil {
		return fmt.Errorf("write %s header: %w", name, err)
	}
	enc := xml.NewEncoder(f)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}
