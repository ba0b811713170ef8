package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/pitboard-bot/pitboard/internal/standings"
)

// Config holds bot credentials and interactive behavior.
type Config struct {
	Token    string
	AppID    string
	GuildID  string
	Cooldown time.Duration
}

// Runner executes one pipeline run for a league. Injected after tracker
// construction to break the tracker/notifier cycle.
type Runner func(ctx context.Context, league standings.League, force bool) (standings.RunResult, error)

// Clearer removes a league's board message and stored record.
type Clearer func(ctx context.Context, league standings.League) error

// Bot owns the Discord session: the notifier the pipeline posts through,
// plus slash commands and refresh buttons.
type Bot struct {
	cfg       Config
	session   *discordgo.Session
	notifier  *Notifier
	leagues   []standings.League
	archive   standings.Archive
	cooldowns *CooldownMap
	runner    Runner
	clearer   Clearer
	logger    *zap.Logger

	registered []*discordgo.ApplicationCommand
}

// New creates the session without opening it.
func New(cfg Config, leagues []standings.League, archive standings.Archive, logger *zap.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("discord token is required")
	}
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages

	return &Bot{
		cfg:       cfg,
		session:   session,
		notifier:  NewNotifier(session, logger),
		leagues:   leagues,
		archive:   archive,
		cooldowns: NewCooldownMap(cfg.Cooldown),
		logger:    logger,
	}, nil
}

// SetRunner injects the pipeline entry point used by buttons and commands.
func (b *Bot) SetRunner(r Runner) {
	b.runner = r
}

// SetClearer injects the board teardown used by the clear command.
func (b *Bot) SetClearer(c Clearer) {
	b.clearer = c
}

// Notifier returns the standings.Notifier backed by this session.
func (b *Bot) Notifier() *Notifier {
	return b.notifier
}

// Open connects the gateway and registers interaction handlers and slash
// commands.
func (b *Bot) Open(ctx context.Context) error {
	b.session.AddHandler(b.handleReady)
	b.session.AddHandler(b.handleInteraction)

	if err := b.session.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	if err := b.registerCommands(ctx); err != nil {
		_ = b.session.Close()
		return err
	}
	return nil
}

// Close tears down registered commands and the gateway connection.
func (b *Bot) Close() error {
	for _, cmd := range b.registered {
		if err := b.session.ApplicationCommandDelete(b.cfg.AppID, b.cfg.GuildID, cmd.ID); err != nil {
			b.logger.Warn("delete slash command failed",
				zap.String("command", cmd.Name),
				zap.Error(err),
			)
		}
	}
	if err := b.session.Close(); err != nil {
		return fmt.Errorf("close discord session: %w", err)
	}
	return nil
}

// Ready reports whether the gateway session has completed identify.
func (b *Bot) Ready() bool {
	return b.session.State != nil && b.session.State.User != nil
}

func (b *Bot) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.logger.Info("discord gateway ready",
		zap.String("user", r.User.Username),
		zap.Int("guilds", len(r.Guilds)),
	)
}

func (b *Bot) leagueBySlug(slug string) (standings.League, bool) {
	for _, league := range b.leagues {
		if league.Slug == slug {
			return league, true
		}
	}
	return standings.League{}, false
}
