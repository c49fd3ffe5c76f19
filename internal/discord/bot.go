package discord

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/i474232898/airline-rank-bot/internal/logger"
	"github.com/i474232898/airline-rank-bot/internal/standings"
)

// Updater runs a standings update. *standings.Service satisfies it.
type Updater interface {
	Update(ctx context.Context, trigger standings.Trigger) (standings.Snapshot, error)
}

// Bot listens for the manual trigger command and uploads rendered tables.
type Bot struct {
	session    *discordgo.Session
	updater    Updater
	log        logger.Logger
	channelID  string
	userID     string
	command    string
	runTimeout time.Duration
	ready      chan struct{}

	// reply posts a plain text message to a channel.
	reply func(channelID, content string) error
}

// Options configures a Bot.
type Options struct {
	Token      string
	ChannelID  string
	UserID     string
	Command    string
	RunTimeout time.Duration
}

// New creates a bot session; call Open to connect.
func New(opts Options, updater Updater, log logger.Logger) (*Bot, error) {
	session, err := discordgo.New("Bot " + opts.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	b := &Bot{
		session:    session,
		updater:    updater,
		log:        log,
		channelID:  opts.ChannelID,
		userID:     opts.UserID,
		command:    strings.ToLower(strings.TrimSpace(opts.Command)),
		runTimeout: opts.RunTimeout,
		ready:      make(chan struct{}),
		reply: func(channelID, content string) error {
			_, err := session.ChannelMessageSend(channelID, content)
			return err
		},
	}

	session.AddHandlerOnce(func(_ *discordgo.Session, r *discordgo.Ready) {
		b.log.Info("discord: bot ready", "user", r.User.Username)
		close(b.ready)
	})
	session.AddHandler(b.onMessage)

	return b, nil
}

// Open connects to the gateway and waits for the ready event.
func (b *Bot) Open(ctx context.Context) error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord: open gateway: %w", err)
	}
	select {
	case <-b.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the gateway.
func (b *Bot) Close() error {
	return b.session.Close()
}

func (b *Bot) Name() string {
	return "discord"
}

// Notify uploads the rendered table to the configured channel.
func (b *Bot) Notify(_ context.Context, snapshot standings.Snapshot, imagePath string) error {
	f, err := os.Open(imagePath)
	if err != nil {
		return fmt.Errorf("discord: open image: %w", err)
	}
	defer f.Close()

	_, err = b.session.ChannelMessageSendComplex(b.channelID, &discordgo.MessageSend{
		Content: Caption(snapshot),
		Files: []*discordgo.File{{
			Name:        filepath.Base(imagePath),
			ContentType: "image/png",
			Reader:      f,
		}},
	})
	if err != nil {
		return fmt.Errorf("discord: upload to channel %s: %w", b.channelID, err)
	}
	return nil
}

// Caption summarises a snapshot in one line.
func Caption(s standings.Snapshot) string {
	caption := fmt.Sprintf("Airline standings, %s UTC", s.GeneratedAt.UTC().Format("2006-01-02 15:04"))
	if len(s.Omitted) > 0 {
		caption += fmt.Sprintf(" (%d airline(s) unavailable)", len(s.Omitted))
	}
	if !s.ProjectionsEnabled {
		caption += " - projections unavailable"
	}
	return caption
}

// IsTrigger reports whether content from authorID should start a manual run.
// An empty command never matches.
func IsTrigger(content, authorID, command, allowedUserID string) bool {
	return command != "" && strings.ToLower(strings.TrimSpace(content)) == command && authorID == allowedUserID
}

func (b *Bot) onMessage(s *discordgo.Session, m *discordgo.MessageCreate) {
	var selfID string
	if s.State != nil && s.State.User != nil {
		selfID = s.State.User.ID
	}
	b.handleMessage(selfID, m.Message)
}

// handleMessage runs a manual update when the allowed user sends the command.
// selfID is the bot's own user ID; its messages are ignored.
func (b *Bot) handleMessage(selfID string, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.ID == selfID {
		return
	}
	if !IsTrigger(m.Content, m.Author.ID, b.command, b.userID) {
		return
	}

	b.log.Info("discord: manual update requested", "channel_id", m.ChannelID, "user_id", m.Author.ID)
	if err := b.reply(m.ChannelID, "Test started!"); err != nil {
		b.log.Warn("discord: acknowledge command failed", "err", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), b.runTimeout)
	defer cancel()

	_, err := b.updater.Update(ctx, standings.TriggerManual)
	switch {
	case errors.Is(err, standings.ErrUpdateInProgress):
		_ = b.reply(m.ChannelID, "Update already in progress.")
	case err != nil:
		// Update already logged the failure.
		_ = b.reply(m.ChannelID, "Update failed, check the logs.")
	}
}
