package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zenpost/planner-bot/internal/domain/common/errorz"
	"github.com/zenpost/planner-bot/internal/domain/entity"
	"github.com/zenpost/planner-bot/pkg/logger/types"
	tele "gopkg.in/telebot.v3"
)

// GateService talks to the external gating channels: single-use invite links
// for buyers and membership checks before a paid plan activates.
type GateService struct {
	bot    *tele.Bot
	logger *types.Logger
}

func NewGateService(bot *tele.Bot, logger *types.Logger) *GateService {
	return &GateService{
		bot:    bot,
		logger: logger,
	}
}

// InviteLink creates a single-use, time-limited invite link to the gating
// channel of a tariff.
func (s *GateService) InviteLink(tariff *entity.Tariff) (string, error) {
	if !tariff.Gated() {
		return "", errorz.NotConfigured
	}

	chat, err := s.bot.ChatByID(tariff.GatingChannelID)
	if err != nil {
		return "", s.classifyAccess(tariff.GatingChannelID, err)
	}

	invite := &tele.ChatInviteLink{MemberLimit: 1}
	if tariff.InviteTTL > 0 {
		invite.ExpireUnixtime = time.Now().Add(tariff.InviteTTL).Unix()
	}

	link, err := s.bot.CreateInviteLink(chat, invite)
	if err != nil {
		return "", s.classifyAccess(tariff.GatingChannelID, err)
	}
	return link.InviteLink, nil
}

// IsMember checks whether the user currently belongs to the gating channel of
// a tariff. A definitive absence and an unknown API answer both come back as
// not-a-member; a bot-side access problem is errorz.BotAccess and must be
// shown to the admin, not blamed on the user.
func (s *GateService) IsMember(tariff *entity.Tariff, userID int64) (bool, error) {
	if !tariff.Gated() {
		return false, errorz.NotConfigured
	}

	chat, err := s.bot.ChatByID(tariff.GatingChannelID)
	if err != nil {
		return false, s.classifyAccess(tariff.GatingChannelID, err)
	}

	member, err := s.bot.ChatMemberOf(chat, &tele.User{ID: userID})
	if err != nil {
		if accessErr := s.classifyAccess(tariff.GatingChannelID, err); errors.Is(accessErr, errorz.BotAccess) {
			return false, accessErr
		}
		// Anything else is treated conservatively as not subscribed.
		s.logger.Warnf("(user: %d) membership check in %d failed: %v", userID, tariff.GatingChannelID, err)
		return false, nil
	}

	switch member.Role {
	case tele.Creator, tele.Administrator, tele.Member:
		return true, nil
	default:
		return false, nil
	}
}

// Kick evicts a user from a gating channel after their plan lapsed. Ban plus
// immediate unban removes the user without leaving a permanent ban.
func (s *GateService) Kick(channelID int64, userID int64) error {
	chat, err := s.bot.ChatByID(channelID)
	if err != nil {
		return s.classifyAccess(channelID, err)
	}
	if err = s.bot.Ban(chat, &tele.ChatMember{User: &tele.User{ID: userID}}); err != nil {
		return s.classifyAccess(channelID, err)
	}
	return s.bot.Unban(chat, &tele.User{ID: userID})
}

func (s *GateService) classifyAccess(channelID int64, err error) error {
	if errors.Is(err, tele.ErrChatNotFound) ||
		errors.Is(err, tele.ErrKickedFromChannel) ||
		strings.Contains(err.Error(), "not enough rights") ||
		strings.Contains(err.Error(), "bot is not a member") {
		s.logger.Errorf("bot has no access to gating channel %d: %v", channelID, err)
		return fmt.Errorf("%w: channel %d: %v", errorz.BotAccess, channelID, err)
	}
	return err
}
