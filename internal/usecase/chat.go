package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"tgn-site/internal/domain"
	"tgn-site/internal/integrations/gemini"
)

const maxMessageRunes = 500

// Storage roles for the session log. The wire role for assistant turns is
// "model" (the generation service's naming); the log keeps the conventional
// pair.
const (
	logRoleUser      = "user"
	logRoleAssistant = "assistant"
)

// Limiter admits or rejects a request for a client key.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// LLMClient generates a reply from the fixed system prompt and the full
// ordered turn sequence.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, turns []domain.Turn) (string, error)
}

// TurnRecorder persists the exchange. Implementations may fail; the service
// never lets that failure reach the caller.
type TurnRecorder interface {
	EnsureSession(ctx context.Context, sessionID, userAgent, clientHash string) error
	AppendMessage(ctx context.Context, sessionID, role, content string, sources []domain.Source) error
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// ChatService orchestrates one chat exchange: rate check, validation,
// context assembly, generation, topic classification, then best-effort
// persistence. Ordering is strictly sequential; persistence is off the
// critical path.
type ChatService struct {
	limiter      Limiter
	llm          LLMClient
	recorder     TurnRecorder
	logger       *slog.Logger
	systemPrompt string
	addrSalt     string
}

type ChatInput struct {
	Message   string
	SessionID string
	History   []domain.Turn

	// ClientKey is the caller's network identifier, used for throttling and
	// (hashed) session attribution. Never persisted raw.
	ClientKey string
	UserAgent string
}

type ChatOutput struct {
	Reply     string
	Sources   []domain.Source
	SessionID string
}

func NewChatService(limiter Limiter, llm LLMClient, recorder TurnRecorder, logger *slog.Logger, addrSalt string) (*ChatService, error) {
	if limiter == nil {
		return nil, errors.New("usecase: limiter must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if recorder == nil {
		return nil, errors.New("usecase: turn recorder must not be nil")
	}
	// An empty salt would persist a bare digest of the client address.
	if strings.TrimSpace(addrSalt) == "" {
		return nil, errors.New("usecase: address salt must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		limiter:      limiter,
		llm:          llm,
		recorder:     recorder,
		logger:       logger,
		systemPrompt: DefaultSystemPrompt,
		addrSalt:     addrSalt,
	}, nil
}

func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	allowed, err := s.limiter.Allow(ctx, in.ClientKey)
	if err != nil {
		// The limiter is best-effort abuse mitigation; a broken store must
		// not take the chat down. Fail open.
		s.logger.Error("rate limiter store failed, admitting", "err", err)
		allowed = true
	}
	if !allowed {
		return ChatOutput{}, newError(ErrorRateLimited, "client_quota_exhausted", nil)
	}

	if strings.TrimSpace(in.Message) == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}
	if utf8.RuneCountInString(in.Message) > maxMessageRunes {
		return ChatOutput{}, newError(ErrorTooLong, "message_too_long", nil)
	}

	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		sessionID = newSessionID()
	}

	turns := assembleContext(in.History, in.Message)

	reply, err := s.llm.Generate(ctx, s.systemPrompt, turns)
	if err != nil {
		return ChatOutput{}, classifyGenerationError(err)
	}

	sources := ClassifySources(in.Message, reply)

	// The response is fully determined; record the turn and swallow any
	// persistence failure.
	s.recordTurn(ctx, sessionID, in, reply, sources)

	return ChatOutput{
		Reply:     reply,
		Sources:   sources,
		SessionID: sessionID,
	}, nil
}

// assembleContext appends the new user turn to the supplied prior history,
// preserving its ordering exactly. No truncation: windowing is the caller's
// responsibility.
func assembleContext(history []domain.Turn, message string) []domain.Turn {
	turns := make([]domain.Turn, 0, len(history)+1)
	turns = append(turns, history...)
	turns = append(turns, domain.UserTurn(message))
	return turns
}

func (s *ChatService) recordTurn(ctx context.Context, sessionID string, in ChatInput, reply string, sources []domain.Source) {
	if err := s.recorder.EnsureSession(ctx, sessionID, in.UserAgent, hashClientKey(s.addrSalt, in.ClientKey)); err != nil {
		s.logger.Error("session upsert failed", "sessionId", sessionID, "err", err)
		return
	}
	if err := s.recorder.AppendMessage(ctx, sessionID, logRoleUser, in.Message, nil); err != nil {
		s.logger.Error("user turn write failed", "sessionId", sessionID, "err", err)
	}
	if err := s.recorder.AppendMessage(ctx, sessionID, logRoleAssistant, reply, sources); err != nil {
		s.logger.Error("assistant turn write failed", "sessionId", sessionID, "err", err)
	}
}

// hashClientKey produces the salted, truncated one-way digest stored in
// place of the raw client address.
func hashClientKey(salt, key string) string {
	sum := sha256.Sum256([]byte(salt + key))
	return hex.EncodeToString(sum[:])[:16]
}

func classifyGenerationError(err error) *Error {
	var statusErr httpStatusCoder
	if errors.As(err, &statusErr) {
		return newError(ErrorUpstreamUnavailable, fmt.Sprintf("generation_status_%d", statusErr.HTTPStatusCode()), err)
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.DeadlineExceeded) {
		return newError(ErrorUpstreamUnavailable, "generation_unreachable", err)
	}
	if isMalformedReply(err) {
		return newError(ErrorUpstreamMalformed, "generation_malformed_response", err)
	}
	// Anything left failed before the outbound call (key resolution, request
	// construction): a server configuration problem, not an upstream one.
	return newError(ErrorInternal, "generation_setup_failed", err)
}

func isMalformedReply(err error) bool {
	if errors.Is(err, gemini.ErrEmptyReply) {
		return true
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) || errors.As(err, &typeErr)
}

var newSessionID = func() string {
	return uuid.NewString()
}
