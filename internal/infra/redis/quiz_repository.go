package redis

import (
	"context"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"lms-progress-service/internal/domain"
)

// QuizLoader fetches quiz content from the backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// QuizRepository caches the scoring view of a quiz in Redis and falls back to
// the loader on a miss. Layout per quiz:
//
//	HSET quiz:{id}:meta    course_id .. passing_marks .. title .. order q1,q2
//	HSET quiz:{id}:answers {questionID} {correct optionID}
//	HSET quiz:{id}:options {questionID} o1,o2,o3
//	HSET quiz:{id}:points  {questionID} {points}
//
// Prompts and option texts are not cached; scoring does not need them.
type QuizRepository struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	group  singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizRepository(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizRepository {
	return &QuizRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuizRepository) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if quiz, ok := r.fromCache(ctx, quizID); ok {
		return quiz, nil
	}

	v, err, _ := r.group.Do(quizID, func() (interface{}, error) {
		if quiz, ok := r.fromCache(ctx, quizID); ok {
			return quiz, nil
		}
		quiz, err := r.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, fmt.Errorf("load quiz %s: %w", quizID, err)
		}
		// A failed write only costs a reload next time.
		_ = r.store(ctx, quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return v.(domain.Quiz), nil
}

// Invalidate removes every cached hash of a quiz.
func (r *QuizRepository) Invalidate(ctx context.Context, quizID string) error {
	return r.client.Del(ctx, r.metaKey(quizID), r.answersKey(quizID), r.optionsKey(quizID), r.pointsKey(quizID)).Err()
}

func (r *QuizRepository) fromCache(ctx context.Context, quizID string) (domain.Quiz, bool) {
	var meta, answers, options, points *redis.MapStringStringCmd
	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		meta = pipe.HGetAll(ctx, r.metaKey(quizID))
		answers = pipe.HGetAll(ctx, r.answersKey(quizID))
		options = pipe.HGetAll(ctx, r.optionsKey(quizID))
		points = pipe.HGetAll(ctx, r.pointsKey(quizID))
		return nil
	})
	if err != nil || len(meta.Val()) == 0 {
		return domain.Quiz{}, false
	}
	return buildQuizFromCache(quizID, meta.Val(), answers.Val(), options.Val(), points.Val()), true
}

func (r *QuizRepository) store(ctx context.Context, quiz domain.Quiz) error {
	order := make([]string, 0, len(quiz.Questions))
	ttl := r.ttlWithJitter()
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, q := range quiz.Questions {
			order = append(order, q.ID)
			optionIDs := make([]string, 0, len(q.Options))
			for _, opt := range q.Options {
				optionIDs = append(optionIDs, opt.ID)
			}
			pipe.HSet(ctx, r.answersKey(quiz.ID), q.ID, correctOption(q))
			pipe.HSet(ctx, r.optionsKey(quiz.ID), q.ID, strings.Join(optionIDs, ","))
			pipe.HSet(ctx, r.pointsKey(quiz.ID), q.ID, q.Worth())
		}
		pipe.HSet(ctx, r.metaKey(quiz.ID),
			"course_id", quiz.CourseID,
			"title", quiz.Title,
			"passing_marks", quiz.PassingMarks,
			"order", strings.Join(order, ","),
		)
		if ttl > 0 {
			for _, key := range []string{r.metaKey(quiz.ID), r.answersKey(quiz.ID), r.optionsKey(quiz.ID), r.pointsKey(quiz.ID)} {
				pipe.Expire(ctx, key, ttl)
			}
		}
		return nil
	})
	return err
}

func (r *QuizRepository) metaKey(quizID string) string    { return "quiz:" + quizID + ":meta" }
func (r *QuizRepository) answersKey(quizID string) string { return "quiz:" + quizID + ":answers" }
func (r *QuizRepository) optionsKey(quizID string) string { return "quiz:" + quizID + ":options" }
func (r *QuizRepository) pointsKey(quizID string) string  { return "quiz:" + quizID + ":points" }

func buildQuizFromCache(quizID string, meta, answers, options, points map[string]string) domain.Quiz {
	quiz := domain.Quiz{
		ID:       quizID,
		CourseID: meta["course_id"],
		Title:    meta["title"],
	}
	quiz.PassingMarks, _ = strconv.Atoi(meta["passing_marks"])

	var order []string
	if meta["order"] != "" {
		order = strings.Split(meta["order"], ",")
	}
	quiz.Questions = make([]domain.Question, 0, len(order))
	for _, questionID := range order {
		q := domain.Question{ID: questionID, Points: 1}
		if p, err := strconv.Atoi(points[questionID]); err == nil && p > 0 {
			q.Points = p
		}
		correct := answers[questionID]
		for _, optionID := range strings.Split(options[questionID], ",") {
			if optionID == "" {
				continue
			}
			q.Options = append(q.Options, domain.Option{ID: optionID, Correct: optionID == correct})
		}
		quiz.Questions = append(quiz.Questions, q)
	}
	return quiz
}

func correctOption(q domain.Question) string {
	for _, opt := range q.Options {
		if opt.Correct {
			return opt.ID
		}
	}
	return ""
}

func (r *QuizRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(int64(r.ttl)/10+1))
}
