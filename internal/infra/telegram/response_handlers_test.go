package telegram

import (
	"testing"

	"gopkg.in/telebot.v3"
)

func TestMessageMentionsBot(t *testing.T) {
	me := &telebot.User{ID: 777, Username: "diet_bot"}

	tests := []struct {
		name string
		msg  *telebot.Message
		want bool
	}{
		{
			name: "username mention",
			msg: &telebot.Message{
				Text: "hello @diet_bot",
				Entities: telebot.Entities{
					{Type: telebot.EntityMention, Offset: 6, Length: 9},
				},
			},
			want: true,
		},
		{
			name: "username mention different case",
			msg: &telebot.Message{
				Text: "hey @Diet_Bot please",
				Entities: telebot.Entities{
					{Type: telebot.EntityMention, Offset: 4, Length: 9},
				},
			},
			want: true,
		},
		{
			// Entity offsets count UTF-16 code units: the apple emoji is
			// two units, so the mention starts at 3, not at its byte index.
			name: "username mention after multibyte text",
			msg: &telebot.Message{
				Text: "🍎 @diet_bot",
				Entities: telebot.Entities{
					{Type: telebot.EntityMention, Offset: 3, Length: 9},
				},
			},
			want: true,
		},
		{
			name: "mention of someone else",
			msg: &telebot.Message{
				Text: "hello @other_bot",
				Entities: telebot.Entities{
					{Type: telebot.EntityMention, Offset: 6, Length: 10},
				},
			},
			want: false,
		},
		{
			name: "text mention by user id",
			msg: &telebot.Message{
				Text: "hello there",
				Entities: telebot.Entities{
					{Type: telebot.EntityTMention, Offset: 0, Length: 5, User: &telebot.User{ID: 777}},
				},
			},
			want: true,
		},
		{
			name: "text mention of someone else",
			msg: &telebot.Message{
				Text: "hello there",
				Entities: telebot.Entities{
					{Type: telebot.EntityTMention, Offset: 0, Length: 5, User: &telebot.User{ID: 42}},
				},
			},
			want: false,
		},
		{
			name: "entity out of bounds ignored",
			msg: &telebot.Message{
				Text: "short",
				Entities: telebot.Entities{
					{Type: telebot.EntityMention, Offset: 2, Length: 20},
				},
			},
			want: false,
		},
		{
			name: "no entities",
			msg:  &telebot.Message{Text: "plain message"},
			want: false,
		},
		{
			name: "nil message",
			msg:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := messageMentionsBot(tt.msg, me); got != tt.want {
				t.Errorf("messageMentionsBot() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("nil bot user", func(t *testing.T) {
		msg := &telebot.Message{Text: "@diet_bot"}
		if messageMentionsBot(msg, nil) {
			t.Error("messageMentionsBot() = true with nil bot user")
		}
	})
}
