package publish

import (
	"encoding/xml"
	"fmt"
	"time"

	"github.com/newsroom-labs/debatecast/internal/config"
	"github.com/newsroom-labs/debatecast/internal/store"
)

// FeedName is the object key of the podcast feed.
const FeedName = "feed.xml"

type rssFeed struct {
	XMLName  xml.Name   `xml:"rss"`
	Version  string     `xml:"version,attr"`
	ItunesNS string     `xml:"xmlns:itunes,attr"`
	AtomNS   string     `xml:"xmlns:atom,attr"`
	Channel  rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string     `xml:"title"`
	Link          string     `xml:"link"`
	Description   string     `xml:"description"`
	Language      string     `xml:"language,omitempty"`
	LastBuildDate string     `xml:"lastBuildDate"`
	AtomLink      atomLink   `xml:"atom:link"`
	Author        string     `xml:"itunes:author,omitempty"`
	Image         *rssImage  `xml:"itunes:image,omitempty"`
	Items         []rssItem  `xml:"item"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssImage struct {
	Href string `xml:"href,attr"`
}

type rssItem struct {
	Title       string        `xml:"title"`
	Description string        `xml:"description"`
	GUID        rssGUID       `xml:"guid"`
	PubDate     string        `xml:"pubDate"`
	Link        string        `xml:"link,omitempty"`
	Enclosure   *rssEnclosure `xml:"enclosure,omitempty"`
	Duration    string        `xml:"itunes:duration,omitempty"`
}

type rssGUID struct {
	IsPermaLink bool   `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

// BuildFeed renders the RSS 2.0 document for the catalog episodes.
// Episodes are expected newest first, as store.List returns them.
func BuildFeed(cfg config.FeedConfig, feedURL string, episodes []store.Episode, now time.Time) ([]byte, error) {
	channel := rssChannel{
		Title:         cfg.Title,
		Link:          cfg.Link,
		Description:   cfg.Description,
		Language:      cfg.Language,
		LastBuildDate: now.UTC().Format(time.RFC1123Z),
		AtomLink:      atomLink{Href: feedURL, Rel: "self", Type: "application/rss+xml"},
		Author:        cfg.Author,
	}
	if cfg.ImageURL != "" {
		channel.Image = &rssImage{Href: cfg.ImageURL}
	}

	for _, ep := range episodes {
		item := rssItem{
			Title:       ep.Title,
			Description: ep.Description,
			GUID:        rssGUID{IsPermaLink: false, Value: ep.ID},
			PubDate:     ep.PubDate.UTC().Format(time.RFC1123Z),
			Link:        ep.VideoURL,
			Duration:    formatDuration(ep.DurationSec),
		}
		if ep.AudioURL != "" {
			item.Enclosure = &rssEnclosure{URL: ep.AudioURL, Length: ep.AudioSize, Type: "audio/mpeg"}
		}
		channel.Items = append(channel.Items, item)
	}

	feed := rssFeed{
		Version:  "2.0",
		ItunesNS: "http://www.itunes.com/dtds/podcast-1.0.dtd",
		AtomNS:   "http://www.w3.org/2005/Atom",
		Channel:  channel,
	}

	body, err := xml.MarshalIndent(feed, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal feed: %w", err)
	}
	return append([]byte(xml.Header), body...), nil
}

// formatDuration renders seconds as H:MM:SS or M:SS.
func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	total := int(seconds + 0.5)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
