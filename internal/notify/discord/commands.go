package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/pitboard-bot/pitboard/internal/metrics"
	"github.com/pitboard-bot/pitboard/internal/standings"
)

// runTimeout bounds interaction-triggered pipeline runs; Discord followups
// stay valid for 15 minutes, the pipeline should never get close.
const runTimeout = 90 * time.Second

func (b *Bot) registerCommands(_ context.Context) error {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(b.leagues))
	for _, league := range b.leagues {
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  league.Name,
			Value: league.Slug,
		})
	}
	leagueOption := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "league",
		Description: "Which league",
		Required:    true,
		Choices:     choices,
	}

	command := &discordgo.ApplicationCommand{
		Name:        "standings",
		Description: "League standings boards",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "show",
				Description: "Post or restore the standings board",
				Options:     []*discordgo.ApplicationCommandOption{leagueOption},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "refresh",
				Description: "Re-check the league page now",
				Options:     []*discordgo.ApplicationCommandOption{leagueOption},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "history",
				Description: "Recent standings snapshots",
				Options:     []*discordgo.ApplicationCommandOption{leagueOption},
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "clear",
				Description: "Remove the standings board and forget its state",
				Options:     []*discordgo.ApplicationCommandOption{leagueOption},
			},
		},
	}

	created, err := b.session.ApplicationCommandCreate(b.cfg.AppID, b.cfg.GuildID, command)
	if err != nil {
		return fmt.Errorf("register /standings command: %w", err)
	}
	b.registered = append(b.registered, created)
	return nil
}

func (b *Bot) handleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		b.handleButton(s, i)
	case discordgo.InteractionApplicationCommand:
		b.handleCommand(s, i)
	}
}

func (b *Bot) handleButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	if !strings.HasPrefix(customID, customIDPrefix) {
		return
	}
	slug := strings.TrimPrefix(customID, customIDPrefix)
	b.runInteractive(s, i, slug, false)
}

func (b *Bot) handleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	data := i.ApplicationCommandData()
	if data.Name != "standings" || len(data.Options) == 0 {
		return
	}
	sub := data.Options[0]
	slug := ""
	for _, opt := range sub.Options {
		if opt.Name == "league" {
			slug = opt.StringValue()
		}
	}

	switch sub.Name {
	case "show":
		b.runInteractive(s, i, slug, true)
	case "refresh":
		b.runInteractive(s, i, slug, false)
	case "history":
		b.replyHistory(s, i, slug)
	case "clear":
		b.runClear(s, i, slug)
	}
}

func (b *Bot) runClear(s *discordgo.Session, i *discordgo.InteractionCreate, slug string) {
	league, ok := b.leagueBySlug(slug)
	if !ok {
		b.replyEphemeral(s, i, fmt.Sprintf("Unknown league `%s`.", slug))
		return
	}
	if b.clearer == nil {
		b.replyEphemeral(s, i, "The tracker is not running.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := b.clearer(ctx, league); err != nil {
		b.logger.Warn("clear failed", zap.String("league", league.Slug), zap.Error(err))
		b.replyEphemeral(s, i, fmt.Sprintf("Could not clear **%s**: %v", league.Name, err))
		return
	}
	b.replyEphemeral(s, i, fmt.Sprintf("**%s** board removed.", league.Name))
}

// runInteractive executes the pipeline behind an interaction: cooldown
// check, deferred ephemeral ack, run, followup with the outcome.
func (b *Bot) runInteractive(s *discordgo.Session, i *discordgo.InteractionCreate, slug string, force bool) {
	league, ok := b.leagueBySlug(slug)
	if !ok {
		b.replyEphemeral(s, i, fmt.Sprintf("Unknown league `%s`.", slug))
		return
	}
	if b.runner == nil {
		b.replyEphemeral(s, i, "The tracker is not running.")
		return
	}

	if allowed, remaining := b.cooldowns.Allow(interactionUserID(i)); !allowed {
		b.replyEphemeral(s, i, fmt.Sprintf("Easy on the pit radio — try again in %ds.", int(remaining.Seconds())+1))
		return
	}

	if err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	}); err != nil {
		metrics.ObserveDiscordError("interaction_ack")
		b.logger.Warn("interaction ack failed", zap.Error(err))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()

		result, err := b.runner(ctx, league, force)
		b.followup(s, i, runSummary(league, result, err))
	}()
}

func runSummary(league standings.League, result standings.RunResult, err error) string {
	switch {
	case errors.Is(err, standings.ErrRunInProgress):
		return fmt.Sprintf("A refresh for **%s** is already running.", league.Name)
	case err != nil:
		return fmt.Sprintf("Refresh for **%s** failed: %v", league.Name, err)
	case result.Posted:
		return fmt.Sprintf("**%s** board updated (%d rows).", league.Name, result.Rows)
	default:
		return fmt.Sprintf("**%s** is unchanged; the board is current.", league.Name)
	}
}

func (b *Bot) replyHistory(s *discordgo.Session, i *discordgo.InteractionCreate, slug string) {
	league, ok := b.leagueBySlug(slug)
	if !ok {
		b.replyEphemeral(s, i, fmt.Sprintf("Unknown league `%s`.", slug))
		return
	}
	if b.archive == nil {
		b.replyEphemeral(s, i, "Snapshot history is disabled.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	snaps, err := b.archive.Recent(ctx, league.Slug, 5)
	if err != nil {
		b.logger.Warn("history query failed", zap.String("league", league.Slug), zap.Error(err))
		b.replyEphemeral(s, i, "Could not read the snapshot history.")
		return
	}
	if len(snaps) == 0 {
		b.replyEphemeral(s, i, fmt.Sprintf("No snapshots recorded for **%s** yet.", league.Name))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Recent snapshots for **%s**:\n", league.Name)
	for _, snap := range snaps {
		fmt.Fprintf(&sb, "• `%s` — %d rows, %s\n",
			shortDigest(snap.Digest),
			len(snap.Table.Rows),
			snap.TakenAt.UTC().Format("02 Jan 15:04 UTC"),
		)
	}
	b.replyEphemeral(s, i, sb.String())
}

// shortDigest truncates a digest for display. Archive rows written by other
// tools may carry digests shorter than the display width.
func shortDigest(digest string) string {
	if len(digest) <= 12 {
		return digest
	}
	return digest[:12]
}

func (b *Bot) replyEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
	if err != nil {
		metrics.ObserveDiscordError("interaction_reply")
		b.logger.Warn("interaction reply failed", zap.Error(err))
	}
}

func (b *Bot) followup(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_, err := s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if err != nil {
		metrics.ObserveDiscordError("interaction_followup")
		b.logger.Warn("interaction followup failed", zap.Error(err))
	}
}

func interactionUserID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return "unknown"
}
