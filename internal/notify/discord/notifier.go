// Package discord posts rendered leaderboard images into Discord channels
// and serves the bot's interactive surface (refresh buttons, slash
// commands).
package discord

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/pitboard-bot/pitboard/internal/metrics"
	"github.com/pitboard-bot/pitboard/internal/standings"
)

const customIDPrefix = "pitboard:refresh:"

// Notifier implements standings.Notifier on a discordgo session.
type Notifier struct {
	session *discordgo.Session
	logger  *zap.Logger
}

// NewNotifier wraps an open session.
func NewNotifier(session *discordgo.Session, logger *zap.Logger) *Notifier {
	return &Notifier{session: session, logger: logger}
}

// Upsert edits the stored board message in place, or posts a fresh one when
// none is stored or the stored one is gone (deleted by a moderator).
func (n *Notifier) Upsert(ctx context.Context, rec standings.Record, png []byte, table standings.Table) (standings.Record, error) {
	if rec.ChannelID == "" {
		return rec, fmt.Errorf("no channel configured for league %s", rec.League)
	}

	if rec.MessageID != "" {
		updated, err := n.edit(ctx, rec, png, table)
		if err == nil {
			return updated, nil
		}
		if !isUnknownMessage(err) {
			metrics.ObserveDiscordError("edit")
			return rec, fmt.Errorf("edit message %s: %w", rec.MessageID, err)
		}
		n.logger.Info("stored message gone, reposting",
			zap.String("league", rec.League),
			zap.String("message_id", rec.MessageID),
		)
		rec.MessageID = ""
	}

	msg, err := n.session.ChannelMessageSendComplex(rec.ChannelID, &discordgo.MessageSend{
		Files:      []*discordgo.File{boardFile(rec.League, png)},
		Components: boardComponents(rec.League),
	}, discordgo.WithContext(ctx))
	if err != nil {
		metrics.ObserveDiscordError("send")
		return rec, fmt.Errorf("send message for %s: %w", rec.League, err)
	}
	rec.MessageID = msg.ID
	return rec, nil
}

func (n *Notifier) edit(ctx context.Context, rec standings.Record, png []byte, _ standings.Table) (standings.Record, error) {
	components := boardComponents(rec.League)
	// Replace the old attachment instead of appending to it.
	noAttachments := []*discordgo.MessageAttachment{}
	_, err := n.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:     rec.ChannelID,
		ID:          rec.MessageID,
		Files:       []*discordgo.File{boardFile(rec.League, png)},
		Attachments: &noAttachments,
		Components:  &components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return rec, err
	}
	return rec, nil
}

// Remove deletes the board message; a message already gone is not an error.
func (n *Notifier) Remove(ctx context.Context, rec standings.Record) error {
	if rec.MessageID == "" || rec.ChannelID == "" {
		return nil
	}
	err := n.session.ChannelMessageDelete(rec.ChannelID, rec.MessageID, discordgo.WithContext(ctx))
	if err != nil && !isUnknownMessage(err) {
		metrics.ObserveDiscordError("delete")
		return fmt.Errorf("delete message %s: %w", rec.MessageID, err)
	}
	return nil
}

func boardFile(league string, png []byte) *discordgo.File {
	return &discordgo.File{
		Name:        fmt.Sprintf("%s-standings.png", league),
		ContentType: "image/png",
		Reader:      bytes.NewReader(png),
	}
}

func boardComponents(league string) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "Refresh",
					Style:    discordgo.SecondaryButton,
					CustomID: customIDPrefix + league,
					Emoji:    &discordgo.ComponentEmoji{Name: "🔄"},
				},
			},
		},
	}
}

func isUnknownMessage(err error) bool {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Message != nil {
		return restErr.Message.Code == discordgo.ErrCodeUnknownMessage
	}
	return false
}
