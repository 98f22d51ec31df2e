// internal/infra/telegram/community_handlers.go
package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"

	"guardian_bot/internal/app"
	"guardian_bot/internal/domain/directory"
	idb "guardian_bot/internal/infra/database"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"
)

// CommunityChats names the chats the bot watches.
type CommunityChats struct {
	IntroductionChatID int64 // Messages here become directory entries
	CommunityChatID    int64 // Activity here feeds the member roster
}

// RegisterCommunityHandlers records introductions, tracks member activity and
// answers joins with the newcomer's introduction.
func RegisterCommunityHandlers(ctx context.Context, b *telebot.Bot, directoryService *app.DirectoryService, chats CommunityChats, baseLogger *logrus.Entry) {
	eventLogger := baseLogger.WithField("handler_group", "community")

	onMessage := func(c telebot.Context) error {
		msg := c.Message()
		if msg == nil || c.Sender() == nil || c.Sender().IsBot {
			return nil
		}
		logCtx := eventLogger.WithFields(logrus.Fields{"chat_id": c.Chat().ID, "sender_id": c.Sender().ID})

		switch c.Chat().ID {
		case chats.IntroductionChatID:
			ref := IntroductionReference(c.Chat().ID, msg.ID)
			if err := directoryService.RecordIntroduction(ctx, c.Sender().ID, ref); err != nil {
				logCtx.WithError(err).Error("Failed to record introduction")
			}
		case chats.CommunityChatID:
			if err := directoryService.TrackMember(ctx, c.Chat().ID, c.Sender().ID); err != nil {
				logCtx.WithError(err).Error("Failed to track member")
			}
		}
		return nil
	}
	b.Handle(telebot.OnText, onMessage)
	b.Handle(telebot.OnPhoto, onMessage)

	b.Handle(telebot.OnUserJoined, func(c telebot.Context) error {
		if c.Chat().ID != chats.CommunityChatID {
			return nil
		}
		// telebot fires once per joined user with UserJoined set.
		joined := c.Message().UsersJoined
		if c.Message().UserJoined != nil {
			joined = []telebot.User{*c.Message().UserJoined}
		}
		for _, u := range joined {
			if u.IsBot {
				continue
			}
			logCtx := eventLogger.WithFields(logrus.Fields{"event": "user_joined", "user_id": u.ID})
			if err := directoryService.TrackMember(ctx, c.Chat().ID, u.ID); err != nil {
				logCtx.WithError(err).Error("Failed to track member")
			}
			text, err := presenceText(ctx, directoryService, u)
			if err != nil {
				logCtx.WithError(err).Error("Failed to look up introduction")
				continue
			}
			if err := c.Send(text, &telebot.SendOptions{ParseMode: telebot.ModeHTML}); err != nil {
				logCtx.WithError(err).Warn("Failed to post presence notice")
			}
		}
		return nil
	})
}

func presenceText(ctx context.Context, directoryService *app.DirectoryService, u telebot.User) (string, error) {
	entry, err := directoryService.LookupIntroduction(ctx, u.ID)
	if errors.Is(err, idb.ErrDirectoryEntryNotFound) {
		return greeting(u.FirstName, nil), nil
	}
	if err != nil {
		return "", err
	}
	return greeting(u.FirstName, entry), nil
}

// greeting addresses the member directly. entry is nil when they have no
// introduction yet.
func greeting(firstName string, entry *directory.Entry) string {
	name := html.EscapeString(firstName)
	if entry == nil {
		return fmt.Sprintf("Welcome, %s! You have not posted an introduction yet.", name)
	}
	if link := ReferenceLink(entry.Ref); link != "" {
		return fmt.Sprintf("Welcome back, %s! Here is <a href=\"%s\">your introduction</a>.", name, html.EscapeString(link))
	}
	return fmt.Sprintf("Welcome back, %s! You have already posted an introduction.", name)
}
