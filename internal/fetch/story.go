// SPDX-License-Identifier: MIT

package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/litkeeper/litkeeper/internal/config"
	xklog "github.com/litkeeper/litkeeper/internal/log"
)

// Chapter is one part of a story, already reduced to plain paragraphs.
type Chapter struct {
	Title       string
	Description string
	Paragraphs  []string
}

// Story is the fully collected result of a download.
type Story struct {
	URL      string
	Title    string
	Author   string
	Category string
	Tags     []string
	Chapters []Chapter
}

// Downloader walks a story URL chapter by chapter.
type Downloader struct {
	client   *Client
	profile  config.SelectorProfile
	maxPages int
}

// NewDownloader builds a downloader for the site profile matching startURL.
func NewDownloader(client *Client, selectors config.Selectors, startURL string, maxPages int) (*Downloader, error) {
	u, err := url.Parse(startURL)
	if err != nil {
		return nil, fmt.Errorf("invalid story URL %q: %w", startURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported story URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("story URL %q is missing host", startURL)
	}
	return &Downloader{
		client:   client,
		profile:  selectors.ForHost(u.Host),
		maxPages: maxPages,
	}, nil
}

// Download collects all chapters reachable from startURL: it follows
// "next page" links within a chapter and queues "next part" links from the
// series panel, deduplicating already processed URLs.
func (d *Downloader) Download(ctx context.Context, startURL string) (*Story, error) {
	logger := xklog.WithComponentFromContext(ctx, "fetch")

	story := &Story{URL: startURL}
	queue := []string{startURL}
	processed := make(map[string]bool)
	pagesFetched := 0
	seriesTitle := ""

	for len(queue) > 0 {
		chapterURL := queue[0]
		queue = queue[1:]
		if processed[chapterURL] {
			continue
		}
		processed[chapterURL] = true

		chapterNo := len(story.Chapters) + 1
		logger.Info().
			Str("url", chapterURL).
			Int(xklog.FieldChapter, chapterNo).
			Msg("processing chapter")

		var chapter Chapter
		pageURL := chapterURL
		page := 1

		for pageURL != "" {
			if pagesFetched >= d.maxPages {
				return nil, fmt.Errorf("story exceeds page limit of %d", d.maxPages)
			}
			pagesFetched++

			body, err := d.client.FetchPage(ctx, pageURL)
			if err != nil {
				return nil, fmt.Errorf("chapter %d: %w", chapterNo, err)
			}

			doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
			if err != nil {
				return nil, fmt.Errorf("parse page %s: %w", pageURL, err)
			}

			if page == 1 {
				chapter.Title = strings.TrimSpace(doc.Find(d.profile.Title).First().Text())
				if chapter.Title == "" {
					chapter.Title = fmt.Sprintf("Chapter %d", chapterNo)
				}
				chapter.Description = strings.TrimSpace(doc.Find(d.profile.Description).First().Text())

				if chapterNo == 1 {
					d.extractStoryMetadata(doc, chapter.Title, story)
					logger.Info().
						Str(xklog.FieldTitle, story.Title).
						Str(xklog.FieldAuthor, story.Author).
						Msg("extracted story metadata")
				}
			}

			doc.Find(d.profile.Content).Find("p").Each(func(_ int, p *goquery.Selection) {
				text := strings.TrimSpace(p.Text())
				if text != "" {
					chapter.Paragraphs = append(chapter.Paragraphs, text)
				}
			})

			next := d.nextPageURL(doc)
			if next != "" {
				pageURL = next
				page++
				continue
			}

			// Chapter complete; look for further parts in the series panel.
			if title, nextPart := d.scanSeriesPanel(doc, processed); nextPart != "" || title != "" {
				if seriesTitle == "" && title != "" {
					seriesTitle = title
					story.Title = seriesTitle
					logger.Info().Str(xklog.FieldTitle, seriesTitle).Msg("found series title")
				}
				if nextPart != "" {
					queue = append(queue, nextPart)
					logger.Info().Str("url", nextPart).Msg("found next chapter link")
				}
			}
			pageURL = ""
		}

		story.Chapters = append(story.Chapters, chapter)
	}

	if len(story.Chapters) == 0 {
		return nil, fmt.Errorf("no chapters collected from %s", startURL)
	}
	return story, nil
}

// extractStoryMetadata fills title, author, category and tags from the first
// page of the first chapter.
func (d *Downloader) extractStoryMetadata(doc *goquery.Document, chapterTitle string, story *Story) {
	story.Title = chapterTitle
	if story.Title == "" {
		story.Title = "Unknown Title"
	}

	story.Author = strings.TrimSpace(doc.Find(d.profile.Author).First().Text())
	if story.Author == "" {
		story.Author = "Unknown Author"
	}

	if d.profile.Breadcrumb != "" {
		links := doc.Find(d.profile.Breadcrumb)
		if links.Length() >= 2 {
			category := strings.TrimSpace(links.Eq(1).Text())
			if strings.HasPrefix(strings.ToLower(category), "inc") {
				category = "I/T"
			}
			story.Category = category
		}
	}

	if d.profile.Tags != "" {
		doc.Find(d.profile.Tags).Each(func(_ int, s *goquery.Selection) {
			tag := strings.TrimSpace(s.Text())
			if tag == "" || strings.HasPrefix(strings.ToLower(tag), "inc") {
				return
			}
			story.Tags = append(story.Tags, tag)
		})
	}
	if story.Category != "" && !contains(story.Tags, story.Category) {
		story.Tags = append([]string{story.Category}, story.Tags...)
	}
}

// nextPageURL returns the absolute URL of the next page of the current
// chapter, or "" when this is the last page.
func (d *Downloader) nextPageURL(doc *goquery.Document) string {
	href, ok := doc.Find(d.profile.NextPage).First().Attr("href")
	if !ok || href == "" {
		return ""
	}
	return d.absoluteURL(href)
}

// scanSeriesPanel inspects the series panel for the series title and the
// link to the next part. Already processed URLs are skipped.
func (d *Downloader) scanSeriesPanel(doc *goquery.Document, processed map[string]bool) (seriesTitle, nextPart string) {
	panel := doc.Find(d.profile.SeriesPanel).First()
	if panel.Length() == 0 {
		return "", ""
	}

	panel.Find(d.profile.SeriesItem).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		link := item.Find(d.profile.SeriesLink).First()
		if link.Length() == 0 {
			return true
		}
		role := strings.TrimSpace(item.Find(d.profile.SeriesRole).First().Text())

		switch role {
		case "Series Info":
			if seriesTitle == "" {
				seriesTitle = strings.TrimSpace(link.Text())
			}
		case "Next Part":
			if href, ok := link.Attr("href"); ok {
				abs := d.absoluteURL(href)
				if !processed[abs] {
					nextPart = abs
				}
				return false
			}
		}
		return true
	})

	return seriesTitle, nextPart
}

func (d *Downloader) absoluteURL(href string) string {
	if strings.HasPrefix(href, "http") {
		return href
	}
	return strings.TrimRight(d.profile.BaseURL, "/") + "/" + strings.TrimLeft(href, "/")
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
