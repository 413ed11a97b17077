// Package bot binds slash commands to their handlers. A Dispatcher receives
// one Invocation at a time, drives the shortening client and the statistics
// store, and answers through a Responder supplied by the platform adapter.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sundayezeilo/yourlsbot/internal/errx"
	"github.com/sundayezeilo/yourlsbot/internal/idgen"
	"github.com/sundayezeilo/yourlsbot/internal/stats"
	"github.com/sundayezeilo/yourlsbot/internal/yourls"
)

const DefaultTopDomainsLimit = 5

// Invocation is one command issued by a user.
type Invocation struct {
	ID      string // correlation id; generated when empty
	Command string
	UserID  string
	Args    map[string]string
}

// Responder delivers replies for a single invocation. The first call is
// either Respond, which sends a reply, or Defer, which only acknowledges
// the invocation. Edit then replaces the first reply.
type Responder interface {
	Respond(ctx context.Context, reply Reply) error
	Defer(ctx context.Context, ephemeral bool) error
	Edit(ctx context.Context, reply Reply) error
}

// Shortener issues shorten requests.
type Shortener interface {
	Shorten(ctx context.Context, req yourls.Request) yourls.Result
}

// StatsStore records and reads usage counters.
type StatsStore interface {
	RecordEvent(ctx context.Context, userID, domain string) error
	Counts(userID string) (total, user int64)
	TopDomains(n int) []stats.DomainCount
}

// Dispatcher routes invocations to handlers.
type Dispatcher struct {
	shortener       Shortener
	stats           StatsStore
	logger          *slog.Logger
	ids             idgen.Generator
	now             func() time.Time
	commands        map[string]Command
	enabled         []Command
	ephemeral       bool
	githubLink      string
	donationLink    string
	showTopDomains  bool
	topDomainsLimit int
}

// DispatcherConfig holds configuration for the dispatcher.
type DispatcherConfig struct {
	Shortener       Shortener
	Stats           StatsStore
	Logger          *slog.Logger
	IDGenerator     idgen.Generator
	Now             func() time.Time
	Features        Features
	Ephemeral       bool
	GithubLink      string
	DonationLink    string
	ShowTopDomains  bool
	TopDomainsLimit int
}

// NewDispatcher creates a Dispatcher serving the commands enabled by
// cfg.Features.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ids := cfg.IDGenerator
	if ids == nil {
		ids = idgen.New()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	limit := cfg.TopDomainsLimit
	if limit <= 0 {
		limit = DefaultTopDomainsLimit
	}

	enabled := Commands(cfg.Features)
	byName := make(map[string]Command, len(enabled))
	for _, c := range enabled {
		byName[c.Name] = c
	}

	return &Dispatcher{
		shortener:       cfg.Shortener,
		stats:           cfg.Stats,
		logger:          logger,
		ids:             ids,
		now:             now,
		commands:        byName,
		enabled:         enabled,
		ephemeral:       cfg.Ephemeral,
		githubLink:      cfg.GithubLink,
		donationLink:    cfg.DonationLink,
		showTopDomains:  cfg.ShowTopDomains,
		topDomainsLimit: limit,
	}
}

// Commands returns the registered command set.
func (d *Dispatcher) Commands() []Command {
	out := make([]Command, len(d.enabled))
	copy(out, d.enabled)
	return out
}

// Dispatch handles inv and answers it through r. Every invocation gets a
// reply, including unknown commands and invalid arguments. The returned
// error reports failures worth logging by the caller; the user has already
// been answered when it is a non-delivery error.
func (d *Dispatcher) Dispatch(ctx context.Context, inv Invocation, r Responder) error {
	const op = "bot.Dispatcher.Dispatch"

	if inv.ID == "" {
		inv.ID = d.ids.NewID()
	}
	logger := d.logger.With(
		"invocation_id", inv.ID,
		"command", inv.Command,
		"user_id", inv.UserID,
	)

	cmd, ok := d.commands[inv.Command]
	if !ok {
		logger.WarnContext(ctx, "unknown command")
		if err := r.Respond(ctx, d.text(msgUnknownCommand)); err != nil {
			return errx.E(op, errx.Unavailable, err)
		}
		return errx.E(op, errx.NotFound, fmt.Errorf("command %q is not registered", inv.Command))
	}

	for _, opt := range cmd.Options {
		if opt.Required && strings.TrimSpace(inv.Args[opt.Name]) == "" {
			logger.WarnContext(ctx, "missing required option", "option", opt.Name)
			if err := r.Respond(ctx, d.text(missingOptionMessage(opt.Name))); err != nil {
				return errx.E(op, errx.Unavailable, err)
			}
			return errx.E(op, errx.Invalid, fmt.Errorf("missing option %q", opt.Name))
		}
	}

	var err error
	switch cmd.Action {
	case ActionShorten:
		err = d.shorten(ctx, logger, inv, r, "")
	case ActionCustomShorten:
		err = d.shorten(ctx, logger, inv, r, strings.TrimSpace(inv.Args[OptionCustomKeyword]))
	case ActionInfo:
		err = d.info(ctx, r)
	case ActionStats:
		err = d.statsReply(ctx, inv, r)
	default:
		err = r.Respond(ctx, d.text(msgUnknownCommand))
		if err == nil {
			err = fmt.Errorf("command %q has no handler", cmd.Name)
		}
	}
	if err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}
	return nil
}

func (d *Dispatcher) shorten(ctx context.Context, logger *slog.Logger, inv Invocation, r Responder, keyword string) error {
	const op = "bot.Dispatcher.shorten"

	req := yourls.Request{
		LongURL: strings.TrimSpace(inv.Args[OptionURL]),
		Keyword: keyword,
	}

	if err := req.Validate(); err != nil {
		logger.InfoContext(ctx, "rejected shorten request",
			"error", err.Error(),
			"url", req.LongURL,
		)
		var e *errx.Error
		reason := err.Error()
		if errors.As(err, &e) && e.Err != nil {
			reason = e.Err.Error()
		}
		return d.respond(ctx, op, r, d.text(invalidInputMessage(reason)))
	}

	// The platform drops invocations that are not acknowledged within a few
	// seconds, which a slow shortening service would exceed.
	if err := r.Defer(ctx, d.ephemeral); err != nil {
		return errx.E(op, errx.Unavailable, err)
	}

	result := d.shortener.Shorten(ctx, req)
	message := shortenMessage(result)

	switch res := result.(type) {
	case yourls.Success:
		domain := yourls.DomainOf(req.LongURL)
		if err := d.stats.RecordEvent(ctx, inv.UserID, domain); err != nil {
			logger.ErrorContext(ctx, "failed to save statistics",
				"error", err.Error(),
				"error_kind", errx.KindOf(err),
				"operation", errx.OpOf(err),
				"domain", domain,
			)
			message += "\n" + msgStatsNotSaved
		}
		logger.InfoContext(ctx, "link shortened",
			"short_url", res.ShortURL,
			"domain", domain,
			"custom_keyword", keyword != "",
		)
	case yourls.ServiceError:
		logger.WarnContext(ctx, "shortening service rejected request",
			"status", res.StatusCode,
			"message", res.Message,
		)
	case yourls.Overloaded:
		logger.WarnContext(ctx, "shortening service overloaded")
	case yourls.NetworkError:
		logger.ErrorContext(ctx, "shortening service unreachable", "error", res.String())
	case yourls.UnexpectedError:
		logger.ErrorContext(ctx, "unexpected shortening failure", "error", res.Detail)
	}

	if err := r.Edit(ctx, d.text(message)); err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	return nil
}

func (d *Dispatcher) info(ctx context.Context, r Responder) error {
	const op = "bot.Dispatcher.info"
	return d.respond(ctx, op, r, Reply{
		Embed:     infoEmbed(d.githubLink, d.donationLink),
		Ephemeral: d.ephemeral,
	})
}

// statsReply sends a provisional message, measures how long that took and
// then edits the message into the statistics embed.
func (d *Dispatcher) statsReply(ctx context.Context, inv Invocation, r Responder) error {
	const op = "bot.Dispatcher.stats"

	total, user := d.stats.Counts(inv.UserID)
	view := statsView{
		TotalLinks:     total,
		UserLinks:      user,
		TopDomains:     d.stats.TopDomains(d.topDomainsLimit),
		ShowTopDomains: d.showTopDomains,
	}

	start := d.now()
	if err := d.respond(ctx, op, r, d.text(msgCalculatingPing)); err != nil {
		return err
	}
	view.PingMillis = d.now().Sub(start).Milliseconds()

	if err := r.Edit(ctx, Reply{Embed: statsEmbed(view), Ephemeral: d.ephemeral}); err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	return nil
}

func (d *Dispatcher) text(content string) Reply {
	return Reply{Content: content, Ephemeral: d.ephemeral}
}

func (d *Dispatcher) respond(ctx context.Context, op string, r Responder, reply Reply) error {
	if err := r.Respond(ctx, reply); err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	return nil
}
