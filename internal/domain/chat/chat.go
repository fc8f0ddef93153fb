// internal/domain/chat/chat.go
package chat

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase enumerates the per-chat conversation phases of a check-in cycle.
type Phase string

const (
	PhaseIdle                Phase = "IDLE"
	PhaseAwaitingAnswer      Phase = "AWAITING_ANSWER"
	PhaseAwaitingPhoto       Phase = "AWAITING_PHOTO"
	PhaseAwaitingExplanation Phase = "AWAITING_EXPLANATION"
)

// State is the conversation state of a registered chat. QuestionIndex is a
// valid catalog index whenever Phase is not PhaseIdle.
type State struct {
	Phase         Phase
	QuestionIndex int
}

// Idle is the resting state between check-in cycles.
func Idle() State {
	return State{Phase: PhaseIdle}
}

// AwaitingAnswer is the state after a question was delivered to the chat.
func AwaitingAnswer(questionIndex int) State {
	return State{Phase: PhaseAwaitingAnswer, QuestionIndex: questionIndex}
}

// AwaitingPhoto is the state after a "Yes" answer.
func AwaitingPhoto(questionIndex int) State {
	return State{Phase: PhaseAwaitingPhoto, QuestionIndex: questionIndex}
}

// AwaitingExplanation is the state after a "No" answer.
func AwaitingExplanation(questionIndex int) State {
	return State{Phase: PhaseAwaitingExplanation, QuestionIndex: questionIndex}
}

// Conversation is the mutable per-chat record owned by the Registry.
type Conversation struct {
	ChatID      int64
	MasterID    int64 // the supervisor who registered the chat
	DisplayName string
	State       State
}

// Choice is a discrete yes/no button answer.
type Choice string

const (
	ChoiceYes Choice = "yes"
	ChoiceNo  Choice = "no"
)

// ErrInvalidToken reports a callback payload that does not parse as an
// answer token. Parsing fails closed; the caller replies "Invalid response."
var ErrInvalidToken = fmt.Errorf("invalid answer token")

const tokenPrefix = "answer"

// AnswerToken correlates an inbound button press back to the question that
// produced it. It is carried opaquely in the button's callback payload, so
// no per-message session table is needed: only one question is outstanding
// per chat at a time.
type AnswerToken struct {
	QuestionIndex int
	Choice        Choice
}

// Encode renders the token in its wire form, e.g. "answer_2_no".
func (t AnswerToken) Encode() string {
	return fmt.Sprintf("%s_%d_%s", tokenPrefix, t.QuestionIndex, t.Choice)
}

// ParseAnswerToken parses the wire form produced by Encode. Any deviation
// from the expected shape yields ErrInvalidToken.
func ParseAnswerToken(data string) (AnswerToken, error) {
	parts := strings.Split(data, "_")
	if len(parts) != 3 || parts[0] != tokenPrefix {
		return AnswerToken{}, ErrInvalidToken
	}
	index, err := strconv.Atoi(parts[1])
	if err != nil || index < 0 {
		return AnswerToken{}, ErrInvalidToken
	}
	switch Choice(parts[2]) {
	case ChoiceYes, ChoiceNo:
		return AnswerToken{QuestionIndex: index, Choice: Choice(parts[2])}, nil
	default:
		return AnswerToken{}, ErrInvalidToken
	}
}
