package telegram

import (
	"github.com/mymmrac/telego"

	"github.com/nextlevelbuilder/lingorelay/internal/bridge"
)

// eventFromUpdate normalizes one Telegram update. Channel posts and plain
// group messages are treated uniformly; updates carrying neither are
// skipped.
func eventFromUpdate(update telego.Update) (bridge.Event, bool) {
	switch {
	case update.ChannelPost != nil:
		return eventFromMessage(update.ChannelPost, bridge.EventNewMessage), true
	case update.EditedChannelPost != nil:
		return eventFromMessage(update.EditedChannelPost, bridge.EventEditedMessage), true
	case update.Message != nil:
		return eventFromMessage(update.Message, bridge.EventNewMessage), true
	case update.EditedMessage != nil:
		return eventFromMessage(update.EditedMessage, bridge.EventEditedMessage), true
	default:
		return bridge.Event{}, false
	}
}

func eventFromMessage(msg *telego.Message, kind bridge.EventKind) bridge.Event {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}

	replyTo := 0
	if msg.ReplyToMessage != nil {
		replyTo = msg.ReplyToMessage.MessageID
	}

	return bridge.Event{
		Kind:      kind,
		SourceID:  msg.Chat.ID,
		MessageID: msg.MessageID,
		Text:      text,
		Media:     mediaRefs(msg),
		GroupID:   msg.MediaGroupID,
		ReplyToID: replyTo,
	}
}

// mediaRefs extracts pass-through file references. For photos the highest
// resolution (last element) wins; everything rides on its file_id, nothing
// is downloaded.
func mediaRefs(msg *telego.Message) []bridge.MediaRef {
	var refs []bridge.MediaRef

	if len(msg.Photo) > 0 {
		photo := msg.Photo[len(msg.Photo)-1]
		refs = append(refs, bridge.MediaRef{Kind: bridge.MediaPhoto, FileID: photo.FileID})
	}
	if msg.Video != nil {
		refs = append(refs, bridge.MediaRef{Kind: bridge.MediaVideo, FileID: msg.Video.FileID})
	}
	if msg.Animation != nil {
		refs = append(refs, bridge.MediaRef{Kind: bridge.MediaAnimation, FileID: msg.Animation.FileID})
	}
	if msg.Audio != nil {
		refs = append(refs, bridge.MediaRef{Kind: bridge.MediaAudio, FileID: msg.Audio.FileID})
	}
	if msg.Document != nil {
		refs = append(refs, bridge.MediaRef{Kind: bridge.MediaDocument, FileID: msg.Document.FileID})
	}

	return refs
}
