// SPDX-License-Identifier: MIT

package epub

import "encoding/xml"

// container is META-INF/container.xml pointing at the package document.
type container struct {
	XMLName   xml.Name `xml:"urn:oasis:names:tc:opendocument:xmlns:container container"`
	Version   string   `xml:"version,attr"`
	Rootfiles []rootfile `xml:"rootfiles>rootfile"`
}

type rootfile struct {
	FullPath  string `xml:"full-path,attr"`
	MediaType string `xml:"media-type,attr"`
}

// opfPackage is the EPUB package document (content.opf).
type opfPackage struct {
	XMLName          xml.Name    `xml:"http://www.idpf.org/2007/opf package"`
	Version          string      `xml:"version,attr"`
	UniqueIdentifier string      `xml:"unique-identifier,attr"`
	Metadata         opfMetadata `xml:"metadata"`
	Manifest         []opfItem   `xml:"manifest>item"`
	Spine            opfSpine    `xml:"spine"`
}

type opfMetadata struct {
	XmlnsDC     string       `xml:"xmlns:dc,attr"`
	Identifier  opfIdentifier `xml:"dc:identifier"`
	Title       string       `xml:"dc:title"`
	Language    string       `xml:"dc:language"`
	Creator     string       `xml:"dc:creator,omitempty"`
	Publisher   string       `xml:"dc:publisher,omitempty"`
	Description string       `xml:"dc:description,omitempty"`
	Subjects    []string     `xml:"dc:subject,omitempty"`
	Metas       []opfMeta    `xml:"meta"`
}

type opfIdentifier struct {
	ID    string `xml:"id,attr"`
	Value string `xml:",chardata"`
}

type opfMeta struct {
	Name     string `xml:"name,attr,omitempty"`
	Content  string `xml:"content,attr,omitempty"`
	Property string `xml:"property,attr,omitempty"`
	Value    string `xml:",chardata"`
}

type opfItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr,omitempty"`
}

type opfSpine struct {
	Toc      string       `xml:"toc,attr"`
	ItemRefs []opfItemRef `xml:"itemref"`
}

type opfItemRef struct {
	IDRef string `xml:"idref,attr"`
}

// ncx is the EPUB2-compatible navigation file (toc.ncx).
type ncx struct {
	XMLName   xml.Name   `xml:"http://www.daisy.org/z3986/2005/ncx/ ncx"`
	Version   string     `xml:"version,attr"`
	Head      []opfMeta  `xml:"head>meta"`
	DocTitle  string     `xml:"docTitle>text"`
	NavPoints []navPoint `xml:"navMap>navPoint"`
}

type navPoint struct {
	ID        string     `xml:"id,attr"`
	PlayOrder int        `xml:"playOrder,attr"`
	Label     string     `xml:"navLabel>text"`
	Content   navContent `xml:"content"`
}

type navContent struct {
	Src string `xml:"src,attr"`
}
