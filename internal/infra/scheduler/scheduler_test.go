package scheduler

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sync"
	"testing"
	"time"

	"diet_follow_up_bot/internal/domain/question"

	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log.WithField("component", "test")
}

type firedQuestion struct {
	chatID        int64
	masterID      int64
	questionIndex int
}

type fakeDispatcher struct {
	mu    sync.Mutex
	fired []firedQuestion
	err   error
}

func (f *fakeDispatcher) AskQuestion(ctx context.Context, chatID, masterID int64, questionIndex int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fired = append(f.fired, firedQuestion{chatID: chatID, masterID: masterID, questionIndex: questionIndex})
	return f.err
}

func newSchedulerFixture(t *testing.T) (*QuestionScheduler, *fakeDispatcher, *question.Catalog) {
	t.Helper()
	catalog, err := question.DefaultCatalog(time.UTC)
	if err != nil {
		t.Fatalf("DefaultCatalog: %v", err)
	}
	dispatcher := &fakeDispatcher{}
	return NewQuestionScheduler(catalog, dispatcher, testLogger()), dispatcher, catalog
}

func TestArmSchedulesEveryQuestion(t *testing.T) {
	s, _, catalog := newSchedulerFixture(t)

	s.Arm(-1, 10)

	want := make([]int, 0, catalog.Len())
	for i := 0; i < catalog.Len(); i++ {
		want = append(want, i)
	}
	if got := s.ArmedQuestions(-1); !reflect.DeepEqual(got, want) {
		t.Errorf("ArmedQuestions = %v, want %v", got, want)
	}
	if got := len(s.cronEngine.Entries()); got != catalog.Len() {
		t.Errorf("cron entries = %d, want %d", got, catalog.Len())
	}
}

func TestArmIsIdempotent(t *testing.T) {
	s, _, catalog := newSchedulerFixture(t)

	// A duplicate registration trigger re-arms the same chat; the old
	// entries must be replaced, never accumulated.
	s.Arm(-1, 10)
	s.Arm(-1, 10)
	s.Arm(-1, 10)

	if got := len(s.ArmedQuestions(-1)); got != catalog.Len() {
		t.Errorf("armed questions = %d, want %d", got, catalog.Len())
	}
	if got := len(s.cronEngine.Entries()); got != catalog.Len() {
		t.Errorf("cron entries after re-arming = %d, want %d", got, catalog.Len())
	}
}

func TestArmKeepsChatsIndependent(t *testing.T) {
	s, _, catalog := newSchedulerFixture(t)

	s.Arm(-1, 10)
	s.Arm(-2, 20)
	s.Arm(-1, 10) // re-arm first chat only

	if got := len(s.cronEngine.Entries()); got != 2*catalog.Len() {
		t.Errorf("cron entries = %d, want %d", got, 2*catalog.Len())
	}
	if got := len(s.ArmedQuestions(-2)); got != catalog.Len() {
		t.Errorf("chat -2 armed questions = %d, want %d", got, catalog.Len())
	}
}

func TestDisarmRemovesOnlyThatChat(t *testing.T) {
	s, _, catalog := newSchedulerFixture(t)

	s.Arm(-1, 10)
	s.Arm(-2, 20)
	s.Disarm(-1)

	if got := s.ArmedQuestions(-1); len(got) != 0 {
		t.Errorf("chat -1 still armed: %v", got)
	}
	if got := len(s.ArmedQuestions(-2)); got != catalog.Len() {
		t.Errorf("chat -2 armed questions = %d, want %d", got, catalog.Len())
	}
	if got := len(s.cronEngine.Entries()); got != catalog.Len() {
		t.Errorf("cron entries = %d, want %d", got, catalog.Len())
	}
}

func TestDisarmUnknownChatIsHarmless(t *testing.T) {
	s, _, _ := newSchedulerFixture(t)
	s.Disarm(-404)
	if got := len(s.cronEngine.Entries()); got != 0 {
		t.Errorf("cron entries = %d, want 0", got)
	}
}

func TestFireInvokesDispatcher(t *testing.T) {
	s, dispatcher, _ := newSchedulerFixture(t)

	s.fire(-1, 10, 2)

	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	want := []firedQuestion{{chatID: -1, masterID: 10, questionIndex: 2}}
	if !reflect.DeepEqual(dispatcher.fired, want) {
		t.Errorf("fired = %v, want %v", dispatcher.fired, want)
	}
}

func TestFireSwallowsDispatcherErrors(t *testing.T) {
	s, dispatcher, _ := newSchedulerFixture(t)
	dispatcher.err = errors.New("send failed")

	// Must not panic or propagate; the next firing stays healthy.
	s.fire(-1, 10, 0)
	s.fire(-1, 10, 1)

	dispatcher.mu.Lock()
	defer dispatcher.mu.Unlock()
	if len(dispatcher.fired) != 2 {
		t.Errorf("fired %d times, want 2", len(dispatcher.fired))
	}
}
