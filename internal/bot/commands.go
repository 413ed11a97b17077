package bot

// Action selects the handler a command runs.
type Action uint8

const (
	ActionShorten Action = iota + 1
	ActionCustomShorten
	ActionInfo
	ActionStats
)

// Feature gates a command behind a configuration flag.
type Feature uint8

const (
	FeatureAlways Feature = iota
	FeatureCustomURL
	FeatureInfo
)

// Option names.
const (
	OptionURL           = "url"
	OptionCustomKeyword = "custom_keyword"
)

// Option is one string parameter of a command.
type Option struct {
	Name        string
	Description string
	Required    bool
}

// Command describes a slash command exposed to the platform.
type Command struct {
	Name        string
	Description string
	Options     []Option
	Action      Action
	Feature     Feature
}

// Features holds the startup flags that enable optional commands.
type Features struct {
	CustomURL bool
	Info      bool
}

func (f Features) enabled(feature Feature) bool {
	switch feature {
	case FeatureAlways:
		return true
	case FeatureCustomURL:
		return f.CustomURL
	case FeatureInfo:
		return f.Info
	default:
		return false
	}
}

var urlOption = Option{Name: OptionURL, Description: "The URL to shorten", Required: true}

// commandTable lists every command the bot knows. shorturl and shortlink
// are aliases for the same action.
var commandTable = []Command{
	{
		Name:        "shorturl",
		Description: "Create a short URL using YOURLS",
		Options:     []Option{urlOption},
		Action:      ActionShorten,
	},
	{
		Name:        "shortlink",
		Description: "Create a short URL using YOURLS",
		Options:     []Option{urlOption},
		Action:      ActionShorten,
	},
	{
		Name:        "customurl",
		Description: "Create a custom short URL using YOURLS",
		Options: []Option{
			urlOption,
			{Name: OptionCustomKeyword, Description: "Keyword for the short URL", Required: true},
		},
		Action:  ActionCustomShorten,
		Feature: FeatureCustomURL,
	},
	{
		Name:        "info",
		Description: "Information about this bot",
		Action:      ActionInfo,
		Feature:     FeatureInfo,
	},
	{
		Name:        "stats",
		Description: "View bot statistics",
		Action:      ActionStats,
	},
}

// Commands returns the commands enabled by f, in table order.
func Commands(f Features) []Command {
	out := make([]Command, 0, len(commandTable))
	for _, c := range commandTable {
		if f.enabled(c.Feature) {
			out = append(out, c)
		}
	}
	return out
}
