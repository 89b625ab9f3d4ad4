package notify

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"briefing/internal/store"
)

//go:embed templates/notification_email.txt.tmpl
var emailTemplateText string

var emailTemplate = template.Must(template.New("notification_email").Parse(emailTemplateText))

type emailData struct {
	SubscriberName string
	VideoTitle     string
	WatchURL       string
	TLDR           string
	Highlights     []string
	KeyQuote       string
}

// Render produces the subject and body of a summary notification.
func Render(video *store.Video, summary *store.Summary, subscriber *store.Subscriber) (subject, body string, err error) {
	watchURL := video.URL
	if watchURL == "" {
		watchURL = "https://www.youtube.com/watch?v=" + video.ExternalID
	}

	data := emailData{
		SubscriberName: subscriber.Name,
		VideoTitle:     video.Title,
		WatchURL:       watchURL,
		TLDR:           summary.Content.TLDR,
		Highlights:     summary.Content.Highlights,
		KeyQuote:       summary.Content.KeyQuote,
	}

	var b strings.Builder
	if err := emailTemplate.Execute(&b, data); err != nil {
		return "", "", fmt.Errorf("render email: %w", err)
	}
	return "New summary: " + video.Title, b.String(), nil
}
