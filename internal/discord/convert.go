package discord

import (
	"github.com/bwmarrin/discordgo"

	"github.com/sundayezeilo/yourlsbot/internal/bot"
)

// toApplicationCommands converts the dispatcher's command table into the
// registration payload.
func toApplicationCommands(cmds []bot.Command) []*discordgo.ApplicationCommand {
	out := make([]*discordgo.ApplicationCommand, 0, len(cmds))
	for _, c := range cmds {
		ac := &discordgo.ApplicationCommand{
			Name:        c.Name,
			Description: c.Description,
		}
		for _, o := range c.Options {
			ac.Options = append(ac.Options, &discordgo.ApplicationCommandOption{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        o.Name,
				Description: o.Description,
				Required:    o.Required,
			})
		}
		out = append(out, ac)
	}
	return out
}

// toInvocation extracts the command name, invoking user and string options
// from an application command interaction. ok is false for any other
// interaction type.
func toInvocation(i *discordgo.Interaction) (inv bot.Invocation, ok bool) {
	if i == nil || i.Type != discordgo.InteractionApplicationCommand {
		return bot.Invocation{}, false
	}

	data := i.ApplicationCommandData()
	args := make(map[string]string, len(data.Options))
	for _, opt := range data.Options {
		if opt.Type == discordgo.ApplicationCommandOptionString {
			args[opt.Name] = opt.StringValue()
		}
	}

	return bot.Invocation{
		Command: data.Name,
		UserID:  userID(i),
		Args:    args,
	}, true
}

// userID returns the invoking user for guild and direct-message interactions.
func userID(i *discordgo.Interaction) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func toEmbeds(e *bot.Embed) []*discordgo.MessageEmbed {
	if e == nil {
		return nil
	}
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   f.Name,
			Value:  f.Value,
			Inline: f.Inline,
		})
	}
	return []*discordgo.MessageEmbed{embed}
}

func toResponse(r bot.Reply) *discordgo.InteractionResponse {
	data := &discordgo.InteractionResponseData{
		Content: r.Content,
		Embeds:  toEmbeds(r.Embed),
	}
	if r.Ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	}
}

// toDeferredResponse shows a loading state until the first edit. The
// visibility chosen here applies to the edited reply as well.
func toDeferredResponse(ephemeral bool) *discordgo.InteractionResponse {
	data := &discordgo.InteractionResponseData{}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: data,
	}
}

// toWebhookEdit replaces both content and embeds of the first reply.
// Visibility cannot change after the first response, so Ephemeral is ignored.
func toWebhookEdit(r bot.Reply) *discordgo.WebhookEdit {
	content := r.Content
	embeds := toEmbeds(r.Embed)
	if embeds == nil {
		embeds = []*discordgo.MessageEmbed{}
	}
	return &discordgo.WebhookEdit{
		Content: &content,
		Embeds:  &embeds,
	}
}
