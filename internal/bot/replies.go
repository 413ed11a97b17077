package bot

import (
	"fmt"
	"strings"

	"github.com/sundayezeilo/yourlsbot/internal/stats"
	"github.com/sundayezeilo/yourlsbot/internal/yourls"
)

const (
	ColorBlue  = 0x3498db
	ColorGreen = 0x2ecc71
)

const (
	msgOverloaded = "The server is currently overloaded or undergoing maintenance. " +
		"Please try again later."
	msgNetwork = "A network error occurred while connecting to the YOURLS service. " +
		"Please check your connection and try again."
	msgStatsNotSaved   = "(Statistics could not be saved.)"
	msgCalculatingPing = "Calculating ping..."
	msgUnknownCommand  = "Unknown command."
)

// Embed is a structured display block.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
}

// EmbedField is one titled row of an Embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Reply is a message sent back for an invocation. Exactly one of Content
// and Embed is normally set.
type Reply struct {
	Content   string
	Embed     *Embed
	Ephemeral bool
}

// shortenMessage renders the text reply for a shorten result.
func shortenMessage(result yourls.Result) string {
	switch r := result.(type) {
	case yourls.Success:
		return "Here is your short link: " + r.ShortURL
	case yourls.ServiceError:
		if r.StatusCode == 200 {
			return "Failed to create short link: " + r.Message
		}
		return fmt.Sprintf("Error: %d - %s", r.StatusCode, r.Message)
	case yourls.Overloaded:
		return msgOverloaded
	case yourls.NetworkError:
		return msgNetwork
	case yourls.UnexpectedError:
		return "An unexpected error occurred: " + r.Detail
	default:
		return fmt.Sprintf("An unexpected error occurred: unhandled result %T", result)
	}
}

func invalidInputMessage(reason string) string {
	return "Failed to create short link: " + reason
}

func missingOptionMessage(name string) string {
	return fmt.Sprintf("Missing required option: %s", name)
}

func infoEmbed(githubLink, donationLink string) *Embed {
	return &Embed{
		Title: "YOURLS Shortener Bot",
		Description: "This bot allows you to create short URLs directly from Discord using YOURLS. " +
			"Built with love for easy URL sharing!",
		Color: ColorBlue,
		Fields: []EmbedField{
			{Name: "GitHub", Value: fmt.Sprintf("[Source Code](%s)", githubLink)},
			{Name: "Support", Value: fmt.Sprintf("Consider supporting the development: [Donate here](%s)", donationLink)},
		},
	}
}

// statsView is the data rendered by the stats command.
type statsView struct {
	TotalLinks     int64
	UserLinks      int64
	TopDomains     []stats.DomainCount
	ShowTopDomains bool
	PingMillis     int64
}

func statsEmbed(v statsView) *Embed {
	fields := []EmbedField{
		{Name: "Total Links Shortened", Value: fmt.Sprint(v.TotalLinks)},
		{Name: "Your Links Shortened", Value: fmt.Sprint(v.UserLinks)},
	}
	if v.ShowTopDomains {
		fields = append(fields, EmbedField{Name: "Top Domains", Value: formatTopDomains(v.TopDomains)})
	}
	fields = append(fields, EmbedField{Name: "Bot Ping", Value: fmt.Sprintf("%d ms", v.PingMillis)})

	return &Embed{
		Title:  "Bot Statistics",
		Color:  ColorGreen,
		Fields: fields,
	}
}

func formatTopDomains(domains []stats.DomainCount) string {
	if len(domains) == 0 {
		return "No data"
	}
	lines := make([]string, len(domains))
	for i, d := range domains {
		lines[i] = fmt.Sprintf("%s: %d", d.Domain, d.Count)
	}
	return strings.Join(lines, "\n")
}
