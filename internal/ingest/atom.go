package ingest

import (
	"encoding/xml"
	"strings"
	"time"

	"briefing/internal/services"
)

// Notification is one announced video from an Atom payload.
type Notification struct {
	ChannelID    string
	VideoID      string
	ChannelTitle string
	VideoTitle   string
	Description  string
	Link         string
	PublishedAt  *time.Time
}

// Feed is the decoded content of one Atom payload: announced videos plus
// the external ids of videos the upstream has deleted.
type Feed struct {
	Notifications []Notification
	Deleted       []string
}

const deletedRefPrefix = "yt:video:"

type atomFeed struct {
	XMLName xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	Entries []atomEntry `xml:"http://www.w3.org/2005/Atom entry"`
	Deleted []struct {
		Ref string `xml:"ref,attr"`
	} `xml:"http://purl.org/atompub/tombstones/1.0 deleted-entry"`
}

type atomEntry struct {
	ChannelID string `xml:"http://www.youtube.com/xml/schemas/2015 channelId"`
	VideoID   string `xml:"http://www.youtube.com/xml/schemas/2015 videoId"`
	Title     string `xml:"http://www.w3.org/2005/Atom title"`
	Published string `xml:"http://www.w3.org/2005/Atom published"`
	Author    struct {
		Name string `xml:"http://www.w3.org/2005/Atom name"`
	} `xml:"http://www.w3.org/2005/Atom author"`
	Links []struct {
		Rel  string `xml:"rel,attr"`
		Href string `xml:"href,attr"`
	} `xml:"http://www.w3.org/2005/Atom link"`
	MediaGroup struct {
		Description string `xml:"http://search.yahoo.com/mrss/ description"`
	} `xml:"http://search.yahoo.com/mrss/ group"`
}

// Parse decodes an Atom payload. Entries missing their channel or video
// identifier are skipped; tombstone deleted-entry refs surface as Deleted
// video ids. Malformed XML or a non-feed root is a validation error,
// rejected at the boundary.
func Parse(payload []byte) (*Feed, error) {
	var feed atomFeed
	if err := xml.Unmarshal(payload, &feed); err != nil {
		return nil, services.Wrap(services.ErrValidation, "ingest", "parse", "invalid atom payload", err)
	}

	decoded := &Feed{}
	for _, deleted := range feed.Deleted {
		ref := strings.TrimSpace(deleted.Ref)
		if videoID, ok := strings.CutPrefix(ref, deletedRefPrefix); ok && videoID != "" {
			decoded.Deleted = append(decoded.Deleted, videoID)
		}
	}

	for _, entry := range feed.Entries {
		channelID := strings.TrimSpace(entry.ChannelID)
		videoID := strings.TrimSpace(entry.VideoID)
		if channelID == "" || videoID == "" {
			continue
		}

		notification := Notification{
			ChannelID:    channelID,
			VideoID:      videoID,
			ChannelTitle: strings.TrimSpace(entry.Author.Name),
			VideoTitle:   strings.TrimSpace(entry.Title),
			Description:  entry.MediaGroup.Description,
			PublishedAt:  parseTime(entry.Published),
		}
		for _, link := range entry.Links {
			if link.Rel == "" || link.Rel == "alternate" {
				notification.Link = link.Href
				break
			}
		}
		decoded.Notifications = append(decoded.Notifications, notification)
	}
	return decoded, nil
}

func parseTime(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	utc := parsed.UTC()
	return &utc
}
