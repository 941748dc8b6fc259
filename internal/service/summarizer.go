package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"copro-smart-go/internal/config"
	"copro-smart-go/internal/repository"
	"copro-smart-go/pkg/llm"
	"copro-smart-go/pkg/log"
)

// Summarizer refreshes conversation summaries in the background.
type Summarizer interface {
	// Enqueue schedules a summary of conversationID. It never blocks and
	// reports false when the request was dropped.
	Enqueue(conversationID string) bool
	// Stop ends the worker and waits for the running summary to finish.
	Stop()
}

type summarizer struct {
	repo      repository.ConversationRepository
	llmClient llm.Client
	locker    repository.Locker
	cfg       config.ChatConfig

	queue    chan string
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewSummarizer starts a single worker fed by a bounded queue. locker may be
// nil, in which case no cross-process de-duplication happens.
func NewSummarizer(repo repository.ConversationRepository, llmClient llm.Client, locker repository.Locker, cfg config.ChatConfig) Summarizer {
	if cfg.SummaryThreshold <= 0 {
		cfg.SummaryThreshold = 10
	}
	if cfg.SummaryQueueSize <= 0 {
		cfg.SummaryQueueSize = 64
	}
	if cfg.SummaryTimeoutSeconds <= 0 {
		cfg.SummaryTimeoutSeconds = 60
	}
	if cfg.Language == "" {
		cfg.Language = "French"
	}
	s := &summarizer{
		repo:      repo,
		llmClient: llmClient,
		locker:    locker,
		cfg:       cfg,
		queue:     make(chan string, cfg.SummaryQueueSize),
		done:      make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

func (s *summarizer) Enqueue(conversationID string) bool {
	select {
	case <-s.done:
		return false
	default:
	}
	select {
	case s.queue <- conversationID:
		return true
	default:
		log.Warnf("[Summarizer] queue full, dropping summary of conversation %s", conversationID)
		return false
	}
}

func (s *summarizer) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

func (s *summarizer) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case id := <-s.queue:
			timeout := time.Duration(s.cfg.SummaryTimeoutSeconds) * time.Second
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			if err := s.summarize(ctx, id); err != nil {
				log.Errorf("[Summarizer] conversation %s: %v", id, err)
			}
			cancel()
		}
	}
}

func (s *summarizer) summarize(ctx context.Context, conversationID string) error {
	if s.locker != nil {
		lockName := "summary:" + conversationID
		timeout := time.Duration(s.cfg.SummaryTimeoutSeconds) * time.Second
		ok, err := s.locker.TryLock(ctx, lockName, timeout)
		if err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		if !ok {
			log.Infof("[Summarizer] conversation %s is already being summarized", conversationID)
			return nil
		}
		defer func() {
			if err := s.locker.Unlock(context.Background(), lockName); err != nil {
				log.Warnf("[Summarizer] release lock of %s: %v", conversationID, err)
			}
		}()
	}

	msgs, err := s.repo.RecentMessages(ctx, conversationID, s.cfg.SummaryThreshold)
	if err != nil {
		return fmt.Errorf("load messages: %w", err)
	}
	if len(msgs) == 0 {
		return nil
	}

	var transcript strings.Builder
	for _, m := range msgs {
		transcript.WriteString(fmt.Sprintf("%s: %s\n", m.Role, m.Content))
	}
	prompt := []llm.Message{
		{Role: "system", Content: fmt.Sprintf(
			"Summarize the following conversation between a co-ownership manager and an assistant in %s, "+
				"in at most three sentences. Keep names, dates and amounts. Answer with the summary only.",
			s.cfg.Language)},
		{Role: "user", Content: transcript.String()},
	}
	summary, err := s.llmClient.Complete(ctx, prompt, nil)
	if err != nil {
		return fmt.Errorf("generate summary: %w", err)
	}
	summary = cleanLLMResponse(summary)
	if summary == "" {
		return nil
	}
	if err := s.repo.UpdateSummary(ctx, conversationID, summary); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	log.Infof("[Summarizer] conversation %s summarized from %d messages", conversationID, len(msgs))
	return nil
}
