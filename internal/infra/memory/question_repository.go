package memory

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"quiz-session-service/internal/domain"
)

// QuestionLoader fetches the questions of an exam from a backing store (database, remote API).
type QuestionLoader interface {
	LoadQuestions(ctx context.Context, examID, sectionID int) ([]domain.Question, error)
}

// QuestionRepository caches question lists with TTL to avoid repeated loader hits.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedQuestions
}

type cachedQuestions struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestions),
	}
}

func (r *QuestionRepository) GetQuestions(ctx context.Context, examID, sectionID int) ([]domain.Question, error) {
	key := cacheKey(examID, sectionID)
	if qs, ok := r.lookup(key); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		if qs, ok := r.lookup(key); ok {
			return qs, nil
		}

		qs, err := r.loader.LoadQuestions(ctx, examID, sectionID)
		if err != nil {
			return nil, err
		}
		// empty lists are not cached so a later import is picked up
		if len(qs) == 0 {
			return qs, nil
		}

		r.mu.Lock()
		r.cache[key] = cachedQuestions{
			questions: qs,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneQuestions(result.([]domain.Question)), nil
}

func (r *QuestionRepository) lookup(key string) ([]domain.Question, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[key]; ok && entry.expiresAt.After(now) {
		return cloneQuestions(entry.questions), true
	}
	return nil, false
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func cacheKey(examID, sectionID int) string {
	return strconv.Itoa(examID) + ":" + strconv.Itoa(sectionID)
}

func cloneQuestions(qs []domain.Question) []domain.Question {
	return append([]domain.Question(nil), qs...)
}

// StaticQuestionLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticQuestionLoader struct {
	exams map[int][]domain.Question
}

func NewStaticQuestionLoader(exams map[int][]domain.Question) *StaticQuestionLoader {
	return &StaticQuestionLoader{exams: exams}
}

func (l *StaticQuestionLoader) LoadQuestions(_ context.Context, examID, _ int) ([]domain.Question, error) {
	if qs, ok := l.exams[examID]; ok {
		return qs, nil
	}
	return nil, domain.ErrExamNotFound
}
