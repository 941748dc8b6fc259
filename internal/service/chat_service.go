package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"copro-smart-go/internal/apperr"
	"copro-smart-go/internal/config"
	"copro-smart-go/internal/model"
	"copro-smart-go/pkg/llm"
	"copro-smart-go/pkg/log"
)

// Stream error policies.
const (
	StreamErrorDiscard        = "discard"
	StreamErrorPersistPartial = "persist_partial"
)

// ChatService answers questions inside a conversation using retrieved
// document chunks as context.
type ChatService interface {
	// Ask runs the whole pipeline and persists the question and the answer.
	// Nothing is persisted when the model call fails.
	Ask(ctx context.Context, req AskRequest) (*AskResult, error)
	// StartStream prepares the prompt and opens a streamed completion. The
	// caller drains Chunks and then calls Finish exactly once.
	StartStream(ctx context.Context, req AskRequest) (*AnswerStream, error)
}

// AskRequest is a question asked in a conversation.
type AskRequest struct {
	ConversationID string
	UserID         string
	Question       string
	DocIDs         []string
}

// AskResult holds the two messages persisted for one exchange.
type AskResult struct {
	UserMessage      *model.Message `json:"userMessage"`
	AssistantMessage *model.Message `json:"assistantMessage"`
}

// AnswerStream is an answer being generated.
type AnswerStream struct {
	Chunks <-chan llm.Chunk

	finish func(ctx context.Context, answer string, streamErr error) (*AskResult, error)
}

// NewAnswerStream wraps chunks with the function that persists the exchange.
func NewAnswerStream(chunks <-chan llm.Chunk, finish func(ctx context.Context, answer string, streamErr error) (*AskResult, error)) *AnswerStream {
	return &AnswerStream{Chunks: chunks, finish: finish}
}

// Finish persists the exchange once the stream is drained. answer is the
// concatenation of every fragment received; streamErr is the error that
// ended the stream early, if any, including the client going away.
func (st *AnswerStream) Finish(ctx context.Context, answer string, streamErr error) (*AskResult, error) {
	return st.finish(ctx, answer, streamErr)
}

type chatService struct {
	conversations ConversationService
	retrieval     RetrievalService
	llmClient     llm.Client
	cfg           config.ChatConfig
}

// NewChatService creates a ChatService.
func NewChatService(conversations ConversationService, retrieval RetrievalService, llmClient llm.Client, cfg config.ChatConfig) ChatService {
	if cfg.TopK == 0 {
		cfg.TopK = 5
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = 6
	}
	if cfg.Language == "" {
		cfg.Language = "French"
	}
	if cfg.StreamErrorPolicy == "" {
		cfg.StreamErrorPolicy = StreamErrorDiscard
	}
	return &chatService{
		conversations: conversations,
		retrieval:     retrieval,
		llmClient:     llmClient,
		cfg:           cfg,
	}
}

func (s *chatService) Ask(ctx context.Context, req AskRequest) (*AskResult, error) {
	messages, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	raw, err := s.llmClient.Complete(ctx, messages, nil)
	if err != nil {
		log.Errorf("[ChatService] model call failed, conversation=%s: %v", req.ConversationID, err)
		return nil, apperr.Upstream("language model request failed", err)
	}
	answer := cleanLLMResponse(raw)
	if answer == "" {
		return nil, apperr.Upstream("language model returned an empty answer", nil)
	}
	return s.persist(ctx, req, answer)
}

func (s *chatService) StartStream(ctx context.Context, req AskRequest) (*AnswerStream, error) {
	messages, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	chunks, err := s.llmClient.Stream(ctx, messages, nil)
	if err != nil {
		log.Errorf("[ChatService] opening stream failed, conversation=%s: %v", req.ConversationID, err)
		return nil, apperr.Upstream("language model request failed", err)
	}
	return NewAnswerStream(chunks, func(ctx context.Context, answer string, streamErr error) (*AskResult, error) {
		return s.finishStream(ctx, req, answer, streamErr)
	}), nil
}

func (s *chatService) finishStream(ctx context.Context, req AskRequest, answer string, streamErr error) (*AskResult, error) {
	cleaned := cleanLLMResponse(answer)
	if streamErr == nil {
		if cleaned == "" {
			return nil, apperr.Upstream("language model returned an empty answer", nil)
		}
		return s.persist(ctx, req, cleaned)
	}

	log.Warnf("[ChatService] stream ended early, conversation=%s policy=%s: %v", req.ConversationID, s.cfg.StreamErrorPolicy, streamErr)
	if s.cfg.StreamErrorPolicy == StreamErrorPersistPartial && cleaned != "" {
		if _, err := s.persist(ctx, req, cleaned); err != nil {
			log.Errorf("[ChatService] saving partial answer failed: %v", err)
		}
	}
	return nil, apperr.Upstream("language model stream failed", streamErr)
}

// prepare checks the conversation and builds the prompt.
func (s *chatService) prepare(ctx context.Context, req AskRequest) ([]llm.Message, error) {
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return nil, apperr.Validation("question is required")
	}
	conv, err := s.conversations.Get(ctx, req.UserID, req.ConversationID)
	if err != nil {
		return nil, err
	}

	hits, err := s.retrieval.Search(ctx, req.Question, s.cfg.TopK, req.DocIDs)
	if err != nil {
		return nil, err
	}

	history, err := s.conversations.RecentMessages(ctx, conv.ID, s.cfg.HistoryWindow)
	if err != nil {
		log.Errorf("[ChatService] failed to load history of %s: %v", conv.ID, err)
		history = nil
	}

	systemMsg := s.buildSystemMessage(buildContextText(hits), conv.Summary)
	return composeMessages(systemMsg, history, req.Question), nil
}

func (s *chatService) persist(ctx context.Context, req AskRequest, answer string) (*AskResult, error) {
	userMsg := &model.Message{Role: model.RoleUserMessage, Content: strings.TrimSpace(req.Question), UserID: req.UserID}
	assistantMsg := &model.Message{Role: model.RoleAssistantMessage, Content: answer, UserID: req.UserID}
	if err := s.conversations.AppendMessages(ctx, req.ConversationID, userMsg, assistantMsg); err != nil {
		return nil, err
	}
	return &AskResult{UserMessage: userMsg, AssistantMessage: assistantMsg}, nil
}

// buildContextText numbers the hits as "[i] (file) text".
func buildContextText(hits []model.SearchHit) string {
	if len(hits) == 0 {
		return ""
	}
	// Same order of magnitude as the ingestion chunk size.
	const maxSnippetLen = 1000
	var b strings.Builder
	for i, h := range hits {
		snippet := h.TextContent
		if runes := []rune(snippet); len(runes) > maxSnippetLen {
			snippet = string(runes[:maxSnippetLen]) + "…"
		}
		label := h.FileName
		if label == "" {
			label = "unknown"
		}
		b.WriteString(fmt.Sprintf("[%d] (%s) %s\n", i+1, label, snippet))
	}
	return b.String()
}

func (s *chatService) buildSystemMessage(contextText, summary string) string {
	var sys strings.Builder
	sys.WriteString("You are a helpful assistant for co-ownership (copropriete) management.\n")
	sys.WriteString(fmt.Sprintf("Requirements:\n- Answer exclusively in %s\n", s.cfg.Language))
	sys.WriteString("- Be concise (1-2 sentences maximum)\n")
	sys.WriteString("- Only give relevant information\n")
	sys.WriteString("- Phrase the answer as a complete sentence\n")
	sys.WriteString("- Do not include code, markdown or separators such as ```\n\n")

	sys.WriteString("<<REF>>\n")
	if contextText != "" {
		sys.WriteString(contextText)
	} else {
		sys.WriteString("(no context found for this question)\n")
	}
	sys.WriteString("<<END>>")

	if summary != "" {
		sys.WriteString("\n\nSummary of the conversation so far:\n")
		sys.WriteString(summary)
	}
	return sys.String()
}

func composeMessages(systemMsg string, history []model.Message, question string) []llm.Message {
	msgs := make([]llm.Message, 0, len(history)+2)
	msgs = append(msgs, llm.Message{Role: "system", Content: systemMsg})
	for _, m := range history {
		msgs = append(msgs, llm.Message{Role: m.Role, Content: m.Content})
	}
	msgs = append(msgs, llm.Message{Role: "user", Content: question})
	return msgs
}

var (
	codeBlockRe    = regexp.MustCompile("(?s)```.*?```")
	instBlockRe    = regexp.MustCompile(`(?s)\[INST\].*?\[/INST\]`)
	escapedInstRe  = regexp.MustCompile(`\\n\s*\[/INST\]`)
	trailingInstRe = regexp.MustCompile(`\n\s*\[/INST\]`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
)

// cleanLLMResponse strips prompt artefacts and formatting from a model answer.
func cleanLLMResponse(s string) string {
	s = codeBlockRe.ReplaceAllString(s, "")
	s = instBlockRe.ReplaceAllString(s, "")
	s = escapedInstRe.ReplaceAllString(s, "")
	s = trailingInstRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "[/INST]", "")
	s = strings.ReplaceAll(s, `\n`, " ")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
