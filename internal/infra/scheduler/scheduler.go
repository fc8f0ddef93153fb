package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"diet_follow_up_bot/internal/domain/question"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const defaultFireTimeout = 30 * time.Second

// Dispatcher is the capability invoked when a question's fire time is
// reached. Failures are logged by the scheduler and never break future
// firings.
type Dispatcher interface {
	AskQuestion(ctx context.Context, chatID, masterID int64, questionIndex int) error
}

type entryKey struct {
	chatID        int64
	questionIndex int
}

// QuestionScheduler maintains exactly one recurring cron entry per
// (chat, question) pair, firing daily at each question's configured time in
// the catalog's location.
type QuestionScheduler struct {
	cronEngine *cron.Cron
	catalog    *question.Catalog
	dispatcher Dispatcher
	logger     *logrus.Entry

	mu      sync.Mutex
	entries map[entryKey]cron.EntryID

	fireTimeout time.Duration
}

func NewQuestionScheduler(
	catalog *question.Catalog,
	dispatcher Dispatcher,
	logger *logrus.Entry,
) *QuestionScheduler {
	// cron.Recover keeps a panicking fire from killing the cron goroutine,
	// so later firings for other chats and questions survive.
	engine := cron.New(
		cron.WithLocation(catalog.Location()),
		cron.WithChain(cron.Recover(cron.DefaultLogger)),
	)
	return &QuestionScheduler{
		cronEngine:  engine,
		catalog:     catalog,
		dispatcher:  dispatcher,
		logger:      logger,
		entries:     make(map[entryKey]cron.EntryID),
		fireTimeout: defaultFireTimeout,
	}
}

func (s *QuestionScheduler) Start() {
	s.cronEngine.Start()
	s.logger.Info("Question scheduler started")
}

func (s *QuestionScheduler) Stop() {
	s.logger.Info("Stopping question scheduler...")
	ctx := s.cronEngine.Stop() // No new firings; wait for running jobs.
	<-ctx.Done()
	s.logger.Info("Question scheduler gracefully stopped")
}

// Arm schedules every catalog question for the chat. Any existing entry for
// a (chat, question) key is removed before the fresh one is added, so
// re-arming is idempotent: the chat ends up with exactly one live entry per
// question no matter how often Arm is called.
func (s *QuestionScheduler) Arm(chatID, masterID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for index := 0; index < s.catalog.Len(); index++ {
		q, _ := s.catalog.Get(index)
		key := entryKey{chatID: chatID, questionIndex: index}

		if existing, ok := s.entries[key]; ok {
			s.cronEngine.Remove(existing)
			delete(s.entries, key)
		}

		entryID, err := s.cronEngine.AddFunc(q.CronSpec(), func() {
			s.fire(chatID, masterID, index)
		})
		if err != nil {
			// Catalog specs are validated at construction; this is an
			// invariant violation, not a runtime condition.
			s.logger.WithError(err).WithFields(logrus.Fields{
				"chat_id":        chatID,
				"question_index": index,
				"cron_spec":      q.CronSpec(),
			}).Error("Failed to add cron entry for question")
			continue
		}
		s.entries[key] = entryID
	}

	s.logger.WithFields(logrus.Fields{
		"chat_id":   chatID,
		"master_id": masterID,
		"questions": s.catalog.Len(),
	}).Info("Chat timers armed")
}

// Disarm cancels all entries for the chat.
func (s *QuestionScheduler) Disarm(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entryID := range s.entries {
		if key.chatID == chatID {
			s.cronEngine.Remove(entryID)
			delete(s.entries, key)
			removed++
		}
	}
	s.logger.WithFields(logrus.Fields{
		"chat_id": chatID,
		"removed": removed,
	}).Info("Chat timers disarmed")
}

// ArmedQuestions returns the question indices currently scheduled for the
// chat, sorted ascending.
func (s *QuestionScheduler) ArmedQuestions(chatID int64) []int {
	s.mu.Lock()
	defer s.mu.Unlock()

	indices := make([]int, 0)
	for key := range s.entries {
		if key.chatID == chatID {
			indices = append(indices, key.questionIndex)
		}
	}
	sort.Ints(indices)
	return indices
}

// fire runs on the cron goroutine. Dispatcher failures are logged per
// firing so one bad cycle cannot affect the next.
func (s *QuestionScheduler) fire(chatID, masterID int64, questionIndex int) {
	ctx, cancel := context.WithTimeout(context.Background(), s.fireTimeout)
	defer cancel()

	if err := s.dispatcher.AskQuestion(ctx, chatID, masterID, questionIndex); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"chat_id":        chatID,
			"question_index": questionIndex,
		}).Error("Scheduled question dispatch failed")
	}
}
