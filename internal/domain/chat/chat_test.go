package chat

import (
	"errors"
	"testing"
)

func TestAnswerTokenRoundTrip(t *testing.T) {
	for _, choice := range []Choice{ChoiceYes, ChoiceNo} {
		token := AnswerToken{QuestionIndex: 2, Choice: choice}
		parsed, err := ParseAnswerToken(token.Encode())
		if err != nil {
			t.Fatalf("ParseAnswerToken(%q) returned error: %v", token.Encode(), err)
		}
		if parsed != token {
			t.Errorf("round trip mismatch: got %+v, want %+v", parsed, token)
		}
	}
}

func TestAnswerTokenEncoding(t *testing.T) {
	token := AnswerToken{QuestionIndex: 0, Choice: ChoiceYes}
	if got := token.Encode(); got != "answer_0_yes" {
		t.Errorf("Encode() = %q, want %q", got, "answer_0_yes")
	}
}

func TestParseAnswerTokenFailsClosed(t *testing.T) {
	malformed := []string{
		"",
		"answer",
		"answer_1",
		"answer_1_maybe",
		"answer_x_yes",
		"answer_-1_yes",
		"reply_1_yes",
		"answer_1_yes_extra",
	}
	for _, data := range malformed {
		if _, err := ParseAnswerToken(data); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ParseAnswerToken(%q) = %v, want ErrInvalidToken", data, err)
		}
	}
}
