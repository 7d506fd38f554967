package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

// QuestionRepository caches question lists in Redis and falls back to a loader on cache miss.
// Questions are stored as a JSON array: SET exam:{examID}:questions[:{sectionID}] <json>
type QuestionRepository struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewQuestionRepository(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) GetQuestions(ctx context.Context, examID, sectionID int) ([]domain.Question, error) {
	key := questionsKey(examID, sectionID)
	if qs, ok := r.lookup(ctx, key); ok {
		return qs, nil
	}

	result, err, _ := r.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if qs, ok := r.lookup(ctx, key); ok {
			return qs, nil
		}

		qs, err := r.loader.LoadQuestions(ctx, examID, sectionID)
		if err != nil {
			return nil, err
		}
		if len(qs) == 0 {
			return qs, nil
		}

		payload, err := json.Marshal(qs)
		if err != nil {
			return nil, err
		}
		_ = r.client.Set(ctx, key, payload, r.ttlWithJitter()).Err()
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]domain.Question(nil), result.([]domain.Question)...), nil
}

// lookup treats an unreachable or corrupt cache as a miss.
func (r *QuestionRepository) lookup(ctx context.Context, key string) ([]domain.Question, bool) {
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(raw, &qs); err != nil || len(qs) == 0 {
		return nil, false
	}
	return qs, true
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

func questionsKey(examID, sectionID int) string {
	key := "exam:" + strconv.Itoa(examID) + ":questions"
	if sectionID > 0 {
		key += ":" + strconv.Itoa(sectionID)
	}
	return key
}
