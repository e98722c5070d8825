package telegram

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"catering-platform/internal/domain"
	"catering-platform/internal/domain/model"
	"catering-platform/internal/domain/ports/repository"
	"catering-platform/internal/usecase"
)

// Bot relays Telegram messages into the chat use case with concurrent
// polling. Each Telegram account maps to one platform user; the same session
// manager serves both the bot and the HTTP surface.
type Bot struct {
	bot     *tgbotapi.BotAPI
	users   repository.UserRepository
	chatUC  usecase.ChatUseCase
	workers int
	log     *zerolog.Logger
}

func NewBot(token string, users repository.UserRepository, chatUC usecase.ChatUseCase, workers int, log *zerolog.Logger) (*Bot, error) {
	if token == "" {
		return nil, errors.New("bot token is empty")
	}
	if workers <= 0 {
		workers = 5
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Bot{bot: bot, users: users, chatUC: chatUC, workers: workers, log: log}, nil
}

// StartPolling polls Telegram for updates until ctx is cancelled.
func (b *Bot) StartPolling(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.bot.GetUpdatesChan(u)
	updateChan := make(chan tgbotapi.Update, 100)

	var wg sync.WaitGroup
	for i := 0; i < b.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case update, ok := <-updateChan:
					if !ok {
						return
					}
					b.handleUpdate(ctx, update)
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(updateChan)
		for {
			select {
			case update := <-updates:
				select {
				case updateChan <- update:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()
	b.bot.StopReceivingUpdates()
	wg.Wait()
	return nil
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	msg := update.Message
	user, err := b.resolveUser(ctx, msg.From)
	if err != nil {
		b.log.Error().Err(err).Int64("telegram_id", msg.From.ID).Msg("failed to resolve user")
		b.reply(msg.Chat.ID, "Something went wrong, try again later.")
		return
	}

	_, reply, err := b.chatUC.ProcessTurn(ctx, user.ID, msg.Text)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSessionConflict):
			b.reply(msg.Chat.ID, "Hold on, I'm still processing your previous message.")
		case errors.Is(err, domain.ErrInvalidArgument):
			b.reply(msg.Chat.ID, "I didn't catch that. Tell me what you'd like to order.")
		default:
			b.log.Error().Err(err).Str("user_id", user.ID).Msg("turn processing failed")
			b.reply(msg.Chat.ID, "Something went wrong, try again later.")
		}
		return
	}
	b.reply(msg.Chat.ID, reply)
}

func (b *Bot) resolveUser(ctx context.Context, from *tgbotapi.User) (*model.User, error) {
	user, err := b.users.FindByTelegramID(ctx, from.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	username := from.UserName
	if username == "" {
		username = fmt.Sprintf("tg-%d", from.ID)
	}
	user, err = model.NewUser("", username)
	if err != nil {
		return nil, err
	}
	user.TelegramID = from.ID
	if err := b.users.Save(ctx, user); err != nil {
		// Lost a registration race with another update for the same account.
		if errors.Is(err, domain.ErrAlreadyExists) {
			return b.users.FindByTelegramID(ctx, from.ID)
		}
		return nil, err
	}
	return user, nil
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Warn().Err(err).Int64("chat_id", chatID).Msg("telegram send failed")
	}
}
