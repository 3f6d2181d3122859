// Copyright 2025 Lexrag Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package telegram relays chats between Telegram users and the query API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lexrag/lexrag/core"
)

const maxTelegramMessage = 4096

const (
	greeting = "Olá! Sou o assistente jurídico do Lexrag. " +
		"Envie sua pergunta sobre os documentos e eu respondo por aqui."
	searching = "Só um momento enquanto busco informações..."
	apology   = "Perdão! Houve um erro ao processar a sua solicitação. " +
		"Tente novamente em alguns instantes."
	unknownCommand = "Comando desconhecido. Disponível: /start"
)

// ErrBotTokenRequired is returned when no bot token is provided.
var ErrBotTokenRequired = errors.New("bot token required")

// Querier answers one question. Implemented by Client.
type Querier interface {
	Query(ctx context.Context, query, chatID string) (*core.QueryResult, error)
}

// Bot long-polls Telegram and relays each message through the query API.
// The Telegram chat id doubles as the conversation id, so each chat keeps
// its own history.
type Bot struct {
	api     *tgbotapi.BotAPI
	querier Querier
	logger  *slog.Logger
}

// NewBot creates the relay bot.
func NewBot(token string, querier Querier, logger *slog.Logger) (*Bot, error) {
	if token == "" {
		return nil, ErrBotTokenRequired
	}
	if querier == nil {
		return nil, errors.New("querier required")
	}
	if logger == nil {
		logger = slog.Default().With("component", "telegram")
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating bot: %w", err)
	}
	return &Bot{api: api, querier: querier, logger: logger}, nil
}

// Run long-polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	b.logger.Info("bot started", "username", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case update := <-updates:
			if update.Message == nil || update.Message.Text == "" {
				continue
			}
			b.handleMessage(ctx, update.Message)
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("bot stopped")
			return
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.send(chatID, greeting)
		default:
			b.send(chatID, unknownCommand)
		}
		return
	}

	b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
	b.send(chatID, searching)

	result, err := b.querier.Query(ctx, msg.Text, strconv.FormatInt(chatID, 10))
	if err != nil {
		b.logger.Error("query relay failed", "chat_id", chatID, "err", err)
		b.send(chatID, apology)
		return
	}

	b.logger.Info("query relayed",
		"chat_id", chatID,
		"context_docs", result.ContextDocs,
		"processing_time", result.ProcessingTime)
	b.send(chatID, result.Response)
}

func (b *Bot) send(chatID int64, text string) {
	for _, part := range splitMessage(text) {
		out := tgbotapi.NewMessage(chatID, part)
		if _, err := b.api.Send(out); err != nil {
			b.logger.Error("send failed", "chat_id", chatID, "err", err)
		}
	}
}

// splitMessage chunks text under Telegram's message size limit, never
// cutting through a UTF-8 rune.
func splitMessage(text string) []string {
	if len(text) <= maxTelegramMessage {
		return []string{text}
	}
	var parts []string
	for len(text) > 0 {
		end := maxTelegramMessage
		if end >= len(text) {
			end = len(text)
		} else {
			for end > 0 && !utf8.RuneStart(text[end]) {
				end--
			}
		}
		parts = append(parts, text[:end])
		text = text[end:]
	}
	return parts
}
