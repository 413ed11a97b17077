// Package discord connects the command dispatcher to the Discord gateway.
// It registers the enabled slash commands and turns each interaction into
// a bot.Invocation answered through the interaction response API.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/sundayezeilo/yourlsbot/internal/bot"
	"github.com/sundayezeilo/yourlsbot/internal/errx"
	"github.com/sundayezeilo/yourlsbot/internal/idgen"
)

// Dispatcher is the part of bot.Dispatcher the gateway uses.
type Dispatcher interface {
	Dispatch(ctx context.Context, inv bot.Invocation, r bot.Responder) error
	Commands() []bot.Command
}

// interactionAPI is the subset of *discordgo.Session used to answer
// interactions.
type interactionAPI interface {
	InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	InteractionResponseEdit(i *discordgo.Interaction, edit *discordgo.WebhookEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Responder answers one interaction.
type Responder struct {
	api         interactionAPI
	interaction *discordgo.Interaction
}

// NewResponder returns a bot.Responder bound to interaction i.
func NewResponder(api interactionAPI, i *discordgo.Interaction) *Responder {
	return &Responder{api: api, interaction: i}
}

func (r *Responder) Respond(ctx context.Context, reply bot.Reply) error {
	return r.api.InteractionRespond(r.interaction, toResponse(reply), discordgo.WithContext(ctx))
}

// Defer acknowledges the interaction; the reply arrives later through Edit.
func (r *Responder) Defer(ctx context.Context, ephemeral bool) error {
	return r.api.InteractionRespond(r.interaction, toDeferredResponse(ephemeral), discordgo.WithContext(ctx))
}

func (r *Responder) Edit(ctx context.Context, reply bot.Reply) error {
	_, err := r.api.InteractionResponseEdit(r.interaction, toWebhookEdit(reply), discordgo.WithContext(ctx))
	return err
}

// Gateway owns the Discord session.
type Gateway struct {
	session        *discordgo.Session
	dispatcher     Dispatcher
	logger         *slog.Logger
	ids            idgen.Generator
	guildID        string
	handlerTimeout time.Duration
}

// GatewayConfig holds configuration for the gateway.
type GatewayConfig struct {
	Token          string
	GuildID        string // register commands in one guild; empty registers globally
	Dispatcher     Dispatcher
	Logger         *slog.Logger
	IDGenerator    idgen.Generator
	HandlerTimeout time.Duration // upper bound for one invocation; 0 means none
}

// NewGateway creates a session for cfg.Token. Nothing connects until Open.
func NewGateway(cfg GatewayConfig) (*Gateway, error) {
	const op = "discord.NewGateway"

	if cfg.Token == "" {
		return nil, errx.E(op, errx.Invalid, errors.New("token cannot be empty"))
	}
	if cfg.Dispatcher == nil {
		return nil, errx.E(op, errx.Invalid, errors.New("dispatcher is required"))
	}

	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, errx.E(op, errx.Invalid, err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ids := cfg.IDGenerator
	if ids == nil {
		ids = idgen.New()
	}

	return &Gateway{
		session:        session,
		dispatcher:     cfg.Dispatcher,
		logger:         logger,
		ids:            ids,
		guildID:        cfg.GuildID,
		handlerTimeout: cfg.HandlerTimeout,
	}, nil
}

// Open connects to the gateway. Commands are registered each time the
// gateway reports ready.
func (g *Gateway) Open() error {
	const op = "discord.Gateway.Open"

	g.session.AddHandler(g.onReady)
	g.session.AddHandler(g.onInteraction)

	if err := g.session.Open(); err != nil {
		return errx.E(op, errx.Network, err)
	}
	return nil
}

// Close disconnects from the gateway.
func (g *Gateway) Close() error {
	return g.session.Close()
}

func (g *Gateway) onReady(s *discordgo.Session, r *discordgo.Ready) {
	ctx := context.Background()

	appID := r.User.ID
	if r.Application != nil && r.Application.ID != "" {
		appID = r.Application.ID
	}

	g.logger.InfoContext(ctx, "bot is logged in",
		"user", r.User.String(),
		"guilds", len(r.Guilds),
	)

	if err := g.registerCommands(ctx, s, appID); err != nil {
		g.logger.ErrorContext(ctx, "failed to register commands",
			"error", err.Error(),
			"error_kind", errx.KindOf(err),
		)
	}
}

func (g *Gateway) registerCommands(ctx context.Context, s *discordgo.Session, appID string) error {
	const op = "discord.Gateway.registerCommands"

	cmds := toApplicationCommands(g.dispatcher.Commands())
	registered, err := s.ApplicationCommandBulkOverwrite(appID, g.guildID, cmds, discordgo.WithContext(ctx))
	if err != nil {
		return errx.E(op, errx.Unavailable, fmt.Errorf("bulk overwrite: %w", err))
	}

	names := make([]string, len(registered))
	for i, c := range registered {
		names[i] = c.Name
	}
	g.logger.InfoContext(ctx, "commands registered",
		"commands", names,
		"guild_id", g.guildID,
	)
	return nil
}

// onInteraction runs on its own goroutine per event, so concurrent
// invocations do not block one another.
func (g *Gateway) onInteraction(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	g.handle(s, ic.Interaction)
}

func (g *Gateway) handle(api interactionAPI, i *discordgo.Interaction) {
	inv, ok := toInvocation(i)
	if !ok {
		return
	}
	inv.ID = g.ids.NewID()

	ctx := context.Background()
	if g.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.handlerTimeout)
		defer cancel()
	}

	start := time.Now()
	err := g.dispatcher.Dispatch(ctx, inv, NewResponder(api, i))

	attrs := []any{
		"invocation_id", inv.ID,
		"command", inv.Command,
		"user_id", inv.UserID,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		attrs = append(attrs,
			"error", err.Error(),
			"error_kind", errx.KindOf(err),
			"operation", errx.OpOf(err),
		)
		g.logger.WarnContext(ctx, "invocation finished with error", attrs...)
		return
	}
	g.logger.InfoContext(ctx, "invocation handled", attrs...)
}
