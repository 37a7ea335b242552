// SPDX-License-Identifier: MIT

package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBook() *Book {
	return &Book{
		Title:       "The Lighthouse",
		Author:      "R. Waverly",
		Category:    "Romance",
		Tags:        []string{"slow burn", "coastal"},
		Description: "Part one. Part two.",
		Cover:       []byte{0xff, 0xd8, 0xff, 0xd9},
		Chapters: []Chapter{
			{Title: "The Lighthouse", Paragraphs: []string{"First paragraph.", "Second & third."}},
			{Title: "The Lighthouse Pt. 02", Paragraphs: []string{"It continued."}},
		},
	}
}

func buildZip(t *testing.T, b *Book) *zip.Reader {
	t.Helper()
	var buf bytes.Buffer
	n, err := b.WriteTo(&buf)
	require.NoError(t, err)
	require.Equal(t, int64(buf.Len()), n)

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	return zr
}

func readEntry(t *testing.T, zr *zip.Reader, name string) []byte {
	t.Helper()
	f, err := zr.Open(name)
	require.NoError(t, err, "open %s", name)
	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	require.NoError(t, err)
	return data
}

func TestWriteToMimetypeFirstAndStored(t *testing.T) {
	zr := buildZip(t, testBook())

	require.NotEmpty(t, zr.File)
	first := zr.File[0]
	assert.Equal(t, "mimetype", first.Name)
	assert.Equal(t, zip.Store, first.Method)
	assert.Equal(t, "application/epub+zip", string(readEntry(t, zr, "mimetype")))
}

func TestWriteToContainerPointsAtPackage(t *testing.T) {
	zr := buildZip(t, testBook())

	var doc struct {
		Rootfiles []struct {
			FullPath  string `xml:"full-path,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"rootfiles>rootfile"`
	}
	require.NoError(t, xml.Unmarshal(readEntry(t, zr, "META-INF/container.xml"), &doc))
	require.Len(t, doc.Rootfiles, 1)
	assert.Equal(t, "OEBPS/content.opf", doc.Rootfiles[0].FullPath)
	assert.Equal(t, "application/oebps-package+xml", doc.Rootfiles[0].MediaType)
}

func TestWriteToPackageDocument(t *testing.T) {
	b := testBook()
	b.Identifier = "11111111-2222-3333-4444-555555555555"
	zr := buildZip(t, b)

	opf := string(readEntry(t, zr, "OEBPS/content.opf"))
	assert.Contains(t, opf, "urn:uuid:11111111-2222-3333-4444-555555555555")
	assert.Contains(t, opf, "<dc:title>The Lighthouse</dc:title>")
	assert.Contains(t, opf, "<dc:creator>R. Waverly</dc:creator>")
	assert.Contains(t, opf, "<dc:description>Part one. Part two.</dc:description>")
	assert.Contains(t, opf, "<dc:subject>Romance</dc:subject>")
	assert.Contains(t, opf, "<dc:subject>slow burn</dc:subject>")
	assert.Contains(t, opf, `properties="cover-image"`)
	assert.Contains(t, opf, `idref="chapter-001"`)
	assert.Contains(t, opf, `idref="chapter-002"`)

	// Info page precedes chapters in the spine.
	info := strings.Index(opf, `idref="info"`)
	ch1 := strings.Index(opf, `idref="chapter-001"`)
	require.Greater(t, info, -1)
	assert.Less(t, info, ch1)
}

func TestWriteToChapterContentEscaped(t *testing.T) {
	zr := buildZip(t, testBook())

	ch1 := string(readEntry(t, zr, "OEBPS/chapter_001.xhtml"))
	assert.Contains(t, ch1, "<h1>The Lighthouse</h1>")
	assert.Contains(t, ch1, "<p>First paragraph.</p>")
	assert.Contains(t, ch1, "<p>Second &amp; third.</p>")
}

func TestWriteToNavigationListsAllChapters(t *testing.T) {
	zr := buildZip(t, testBook())

	nav := string(readEntry(t, zr, "OEBPS/nav.xhtml"))
	assert.Contains(t, nav, `href="info.xhtml"`)
	assert.Contains(t, nav, `href="chapter_001.xhtml"`)
	assert.Contains(t, nav, `href="chapter_002.xhtml"`)

	ncx := string(readEntry(t, zr, "OEBPS/toc.ncx"))
	assert.Contains(t, ncx, "The Lighthouse Pt. 02")
	assert.Contains(t, ncx, `playOrder="1"`)
}

func TestWriteToGeneratesIdentifier(t *testing.T) {
	b := testBook()
	var buf bytes.Buffer
	_, err := b.WriteTo(&buf)
	require.NoError(t, err)
	assert.NotEmpty(t, b.Identifier)
}

func TestWriteToWithoutMetadataSkipsInfoPage(t *testing.T) {
	b := &Book{
		Title:    "Bare",
		Author:   "Nobody",
		Chapters: []Chapter{{Title: "Bare", Paragraphs: []string{"Text."}}},
	}
	zr := buildZip(t, b)

	_, err := zr.Open("OEBPS/info.xhtml")
	assert.Error(t, err)
	_, err = zr.Open("OEBPS/cover.jpg")
	assert.Error(t, err)
}

func TestWriteToRejectsEmptyBook(t *testing.T) {
	var buf bytes.Buffer
	_, err := (&Book{Title: "Empty"}).WriteTo(&buf)
	assert.Error(t, err)
}
