package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/linkdrop/linkdrop/internal/consts"
	"github.com/linkdrop/linkdrop/internal/entitlement"
	"github.com/linkdrop/linkdrop/internal/logger"
)

// command is a parsed "/name@bot arg1 arg2" message. Target is the "@bot"
// suffix without the "@", empty when the command names no bot.
type command struct {
	Name   string
	Target string
	Args   []string
}

// parseCommand splits a slash command into its name and space separated
// arguments. Matching is case-sensitive; an "@botname" suffix is split off.
func parseCommand(text string) (command, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return command{}, false
	}

	name, target, _ := strings.Cut(strings.TrimPrefix(fields[0], "/"), "@")
	return command{Name: name, Target: target, Args: fields[1:]}, true
}

// addressedToMe reports whether cmd is meant for this bot. Telegram handles
// are case-insensitive; an unknown own handle accepts every suffix.
func (b *Bot) addressedToMe(cmd command) bool {
	return cmd.Target == "" || b.username == "" || strings.EqualFold(cmd.Target, b.username)
}

func isLink(text string) bool {
	return strings.HasPrefix(text, consts.SchemeHTTP) || strings.HasPrefix(text, consts.SchemeHTTPS)
}

// handleEvent routes one inbound message. A returned error is reported to
// the user by the caller.
func (b *Bot) handleEvent(ctx context.Context, ev Event) error {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return nil
	}

	if strings.HasPrefix(text, "/") {
		cmd, _ := parseCommand(text)
		if !b.addressedToMe(cmd) {
			logger.Debug("Ignoring command addressed to another bot", map[string]interface{}{
				"command": cmd.Name,
				"target":  cmd.Target,
				"chat_id": ev.ChatID,
			})
			return nil
		}
		return b.handleCommand(ctx, ev, cmd)
	}

	if isLink(text) {
		return b.handleLink(ctx, ev, text)
	}

	b.metrics.RecordCommand(consts.KindInvalidLink)
	b.reply(ev, MsgInvalidLink)
	return nil
}

func (b *Bot) handleCommand(ctx context.Context, ev Event, cmd command) error {
	if consts.AdminCommands[cmd.Name] && !b.config.IsAdmin(ev.UserID) {
		logger.Warn("Rejected admin command from non-admin", map[string]interface{}{
			"command": cmd.Name,
			"user_id": ev.UserID,
		})
		b.metrics.RecordCommand(cmd.Name)
		b.reply(ev, MsgAdminOnly)
		return nil
	}

	switch cmd.Name {
	case consts.CommandStart, consts.CommandHelp:
		b.reply(ev, MsgWelcome)
	case consts.CommandStatus:
		b.handleStatusCommand(ctx, ev)
	case consts.CommandBuy:
		b.reply(ev, b.config.BuyText)
	case consts.CommandAddPremium:
		if err := b.handlePremiumChange(ctx, ev, cmd, b.entitlement.GrantPremium, MsgPremiumAddedTemplate); err != nil {
			return err
		}
	case consts.CommandRemovePremium:
		if err := b.handlePremiumChange(ctx, ev, cmd, b.entitlement.RevokePremium, MsgPremiumRemovedTmpl); err != nil {
			return err
		}
	case consts.CommandPremiumList:
		b.handlePremiumListCommand(ctx, ev)
	default:
		b.metrics.RecordCommand(consts.CommandUnknown)
		b.reply(ev, MsgUnknownCommand)
		return nil
	}

	b.metrics.RecordCommand(cmd.Name)
	return nil
}

func (b *Bot) handleStatusCommand(ctx context.Context, ev Event) {
	if b.entitlement.IsPremium(ctx, ev.UserID) {
		b.reply(ev, MsgStatusPremium)
		return
	}
	b.reply(ev, fmt.Sprintf(MsgStatusFreeTemplate, b.entitlement.RemainingToday(ctx, ev.UserID)))
}

// handlePremiumChange runs an admin grant or revoke. The confirmation is only
// sent once the change is persisted.
func (b *Bot) handlePremiumChange(ctx context.Context, ev Event, cmd command, apply func(context.Context, int64) error, confirmTemplate string) error {
	if len(cmd.Args) == 0 {
		b.reply(ev, fmt.Sprintf(MsgUsageTemplate, cmd.Name))
		return nil
	}

	userID, err := entitlement.ParseUserID(cmd.Args[0])
	if err != nil {
		b.reply(ev, MsgInvalidUserID)
		return nil
	}

	if err := apply(ctx, userID); err != nil {
		return fmt.Errorf("failed to update premium users: %w", err)
	}

	logger.Info("Admin changed premium users", map[string]interface{}{
		"command":     cmd.Name,
		"admin_id":    ev.UserID,
		"target_user": userID,
	})
	b.reply(ev, fmt.Sprintf(confirmTemplate, userID))
	return nil
}

func (b *Bot) handlePremiumListCommand(ctx context.Context, ev Event) {
	ids := b.entitlement.PremiumUsers(ctx)
	if len(ids) == 0 {
		b.reply(ev, MsgPremiumListEmpty)
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(MsgPremiumListHeader, len(ids)))
	for _, id := range ids {
		sb.WriteString(fmt.Sprintf("\n• %d", id))
	}
	b.reply(ev, sb.String())
}
