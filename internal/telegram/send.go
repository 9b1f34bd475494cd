package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/lingorelay/internal/bridge"
)

// generalTopicID is the fixed topic ID for the "General" topic in forum
// supergroups. It must be omitted on send; Telegram rejects it with
// "thread not found".
const generalTopicID = 1

func resolveThreadIDForSend(topicID int) int {
	if topicID == generalTopicID {
		return 0
	}
	return topicID
}

// Send posts a message into the destination, waiting on the rate limiter
// first. Media rides on file IDs; multi-item posts become one media group
// with the text as the first item's caption.
func (c *Client) Send(ctx context.Context, post bridge.Post) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, err
	}

	chatID := telego.ChatID{ID: post.Dest.ChatID}
	threadID := resolveThreadIDForSend(post.Dest.TopicID)
	var reply *telego.ReplyParameters
	if post.ReplyToID != 0 {
		reply = &telego.ReplyParameters{MessageID: post.ReplyToID}
	}

	switch len(post.Media) {
	case 0:
		msg, err := c.bot.SendMessage(ctx, &telego.SendMessageParams{
			ChatID:          chatID,
			Text:            post.Text,
			MessageThreadID: threadID,
			ReplyParameters: reply,
		})
		if err != nil {
			return 0, fmt.Errorf("send message: %w", err)
		}
		return msg.MessageID, nil

	case 1:
		return c.sendSingleMedia(ctx, chatID, threadID, reply, post.Media[0], post.Text)

	default:
		msgs, err := c.bot.SendMediaGroup(ctx, &telego.SendMediaGroupParams{
			ChatID:          chatID,
			Media:           inputMediaGroup(post.Media, post.Text),
			MessageThreadID: threadID,
			ReplyParameters: reply,
		})
		if err != nil {
			return 0, fmt.Errorf("send media group: %w", err)
		}
		if len(msgs) == 0 {
			return 0, errors.New("send media group: empty result")
		}
		return msgs[0].MessageID, nil
	}
}

func (c *Client) sendSingleMedia(ctx context.Context, chatID telego.ChatID, threadID int, reply *telego.ReplyParameters, media bridge.MediaRef, caption string) (int, error) {
	file := telego.InputFile{FileID: media.FileID}

	var msg *telego.Message
	var err error
	switch media.Kind {
	case bridge.MediaVideo:
		msg, err = c.bot.SendVideo(ctx, &telego.SendVideoParams{
			ChatID: chatID, Video: file, Caption: caption,
			MessageThreadID: threadID, ReplyParameters: reply,
		})
	case bridge.MediaAnimation:
		msg, err = c.bot.SendAnimation(ctx, &telego.SendAnimationParams{
			ChatID: chatID, Animation: file, Caption: caption,
			MessageThreadID: threadID, ReplyParameters: reply,
		})
	case bridge.MediaAudio:
		msg, err = c.bot.SendAudio(ctx, &telego.SendAudioParams{
			ChatID: chatID, Audio: file, Caption: caption,
			MessageThreadID: threadID, ReplyParameters: reply,
		})
	case bridge.MediaDocument:
		msg, err = c.bot.SendDocument(ctx, &telego.SendDocumentParams{
			ChatID: chatID, Document: file, Caption: caption,
			MessageThreadID: threadID, ReplyParameters: reply,
		})
	default:
		msg, err = c.bot.SendPhoto(ctx, &telego.SendPhotoParams{
			ChatID: chatID, Photo: file, Caption: caption,
			MessageThreadID: threadID, ReplyParameters: reply,
		})
	}
	if err != nil {
		return 0, fmt.Errorf("send %s: %w", media.Kind, err)
	}
	return msg.MessageID, nil
}

// inputMediaGroup converts media refs to album items. The caption goes on
// the first item only, the way Telegram renders album text. Kinds inside
// one source album are already mutually compatible; Telegram would not have
// grouped them otherwise.
func inputMediaGroup(media []bridge.MediaRef, caption string) []telego.InputMedia {
	items := make([]telego.InputMedia, 0, len(media))
	for i, m := range media {
		itemCaption := ""
		if i == 0 {
			itemCaption = caption
		}
		file := telego.InputFile{FileID: m.FileID}

		switch m.Kind {
		case bridge.MediaVideo:
			items = append(items, &telego.InputMediaVideo{
				Type: telego.MediaTypeVideo, Media: file, Caption: itemCaption,
			})
		case bridge.MediaAudio:
			items = append(items, &telego.InputMediaAudio{
				Type: telego.MediaTypeAudio, Media: file, Caption: itemCaption,
			})
		case bridge.MediaDocument:
			items = append(items, &telego.InputMediaDocument{
				Type: telego.MediaTypeDocument, Media: file, Caption: itemCaption,
			})
		default:
			items = append(items, &telego.InputMediaPhoto{
				Type: telego.MediaTypePhoto, Media: file, Caption: itemCaption,
			})
		}
	}
	return items
}

// Edit replaces the text of a previously sent message. Media posts carry
// their text as a caption, so a failed text edit falls back to a caption
// edit before giving up.
func (c *Client) Edit(ctx context.Context, dest bridge.Destination, messageID int, text string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	chatID := telego.ChatID{ID: dest.ChatID}
	_, err := c.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:    chatID,
		MessageID: messageID,
		Text:      text,
	})
	if err == nil {
		return nil
	}

	slog.Debug("text edit failed, retrying as caption edit",
		"chat_id", dest.ChatID, "message_id", messageID, "error", err)
	if _, capErr := c.bot.EditMessageCaption(ctx, &telego.EditMessageCaptionParams{
		ChatID:    chatID,
		MessageID: messageID,
		Caption:   text,
	}); capErr != nil {
		return fmt.Errorf("edit message: %w", err)
	}
	return nil
}
