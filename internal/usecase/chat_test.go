package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"tgn-site/internal/domain"
	"tgn-site/internal/integrations/gemini"
)

type stubLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubLimiter) Allow(_ context.Context, key string) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.err
}

type stubLLM struct {
	reply string
	err   error

	gotPrompt string
	gotTurns  []domain.Turn
	calls     int
}

func (s *stubLLM) Generate(_ context.Context, systemPrompt string, turns []domain.Turn) (string, error) {
	s.calls++
	s.gotPrompt = systemPrompt
	s.gotTurns = turns
	return s.reply, s.err
}

type recordedMessage struct {
	sessionID string
	role      string
	content   string
	sources   []domain.Source
}

type stubRecorder struct {
	ensureErr  error
	appendErr  error
	sessions   []string
	userAgents []string
	hashes     []string
	messages   []recordedMessage
}

func (s *stubRecorder) EnsureSession(_ context.Context, sessionID, userAgent, clientHash string) error {
	s.sessions = append(s.sessions, sessionID)
	s.userAgents = append(s.userAgents, userAgent)
	s.hashes = append(s.hashes, clientHash)
	return s.ensureErr
}

func (s *stubRecorder) AppendMessage(_ context.Context, sessionID, role, content string, sources []domain.Source) error {
	s.messages = append(s.messages, recordedMessage{sessionID, role, content, sources})
	return s.appendErr
}

type statusError struct{ status int }

func (e *statusError) Error() string       { return "upstream status" }
func (e *statusError) HTTPStatusCode() int { return e.status }

func newTestService(t *testing.T, limiter *stubLimiter, llm *stubLLM, rec *stubRecorder) *ChatService {
	t.Helper()
	svc, err := NewChatService(limiter, llm, rec, slog.Default(), "pepper")
	require.NoError(t, err)
	return svc
}

func requireCode(t *testing.T, err error, code ErrorCode) {
	t.Helper()
	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, code, ucErr.Code)
}

func TestNewChatService_Validation(t *testing.T) {
	_, err := NewChatService(nil, &stubLLM{}, &stubRecorder{}, nil, "pepper")
	require.Error(t, err)
	_, err = NewChatService(&stubLimiter{}, nil, &stubRecorder{}, nil, "pepper")
	require.Error(t, err)
	_, err = NewChatService(&stubLimiter{}, &stubLLM{}, nil, nil, "pepper")
	require.Error(t, err)
}

func TestNewChatService_RejectsEmptySalt(t *testing.T) {
	for _, salt := range []string{"", "   "} {
		_, err := NewChatService(&stubLimiter{}, &stubLLM{}, &stubRecorder{}, nil, salt)
		require.Error(t, err, "an empty salt would store unsalted address digests")
	}
}

func TestChat_HappyPath_MintsSessionID(t *testing.T) {
	limiter := &stubLimiter{allowed: true}
	llm := &stubLLM{reply: "TGNは異分野交流団体だよ😊"}
	rec := &stubRecorder{}
	svc := newTestService(t, limiter, llm, rec)

	out, err := svc.Chat(context.Background(), ChatInput{
		Message:   "TGNって何？",
		ClientKey: "203.0.113.7",
		UserAgent: "Mozilla/5.0",
	})
	require.NoError(t, err)
	require.Equal(t, "TGNは異分野交流団体だよ😊", out.Reply)
	require.NotEmpty(t, out.SessionID)
	require.Len(t, out.SessionID, 36, "minted session ids are UUID-shaped")
	require.Contains(t, out.Sources, domain.Source{Title: "TGNについて", URL: "/qchan#about"})

	require.Equal(t, []string{"203.0.113.7"}, limiter.keys)
	require.Equal(t, DefaultSystemPrompt, llm.gotPrompt)
}

func TestChat_ReusesSuppliedSessionID(t *testing.T) {
	svc := newTestService(t, &stubLimiter{allowed: true}, &stubLLM{reply: "ok"}, &stubRecorder{})

	out, err := svc.Chat(context.Background(), ChatInput{Message: "hi", SessionID: "sess-given"})
	require.NoError(t, err)
	require.Equal(t, "sess-given", out.SessionID)
}

func TestChat_ContextAssemblyIsOrderPreserving(t *testing.T) {
	llm := &stubLLM{reply: "ok"}
	svc := newTestService(t, &stubLimiter{allowed: true}, llm, &stubRecorder{})

	history := []domain.Turn{
		domain.UserTurn("h1"),
		{Role: domain.RoleAssistant, Parts: []domain.Part{{Text: "h2"}}},
		domain.UserTurn("h3"),
	}
	_, err := svc.Chat(context.Background(), ChatInput{Message: "m", History: history})
	require.NoError(t, err)

	require.Len(t, llm.gotTurns, 4)
	for i, want := range []string{"h1", "h2", "h3", "m"} {
		require.Equal(t, want, llm.gotTurns[i].Text())
	}
	require.Equal(t, domain.RoleUser, llm.gotTurns[3].Role, "the newest user turn is appended last")
}

func TestChat_RateLimited(t *testing.T) {
	llm := &stubLLM{reply: "ok"}
	svc := newTestService(t, &stubLimiter{allowed: false}, llm, &stubRecorder{})

	_, err := svc.Chat(context.Background(), ChatInput{Message: "hi"})
	requireCode(t, err, ErrorRateLimited)
	require.Zero(t, llm.calls)
}

func TestChat_LimiterStoreErrorFailsOpen(t *testing.T) {
	svc := newTestService(t, &stubLimiter{err: errors.New("store down")}, &stubLLM{reply: "ok"}, &stubRecorder{})

	out, err := svc.Chat(context.Background(), ChatInput{Message: "hi"})
	require.NoError(t, err)
	require.Equal(t, "ok", out.Reply)
}

func TestChat_EmptyMessage(t *testing.T) {
	llm := &stubLLM{}
	svc := newTestService(t, &stubLimiter{allowed: true}, llm, &stubRecorder{})

	_, err := svc.Chat(context.Background(), ChatInput{Message: "   "})
	requireCode(t, err, ErrorInvalidInput)
	require.Zero(t, llm.calls)
}

func TestChat_TooLongSkipsGeneration(t *testing.T) {
	llm := &stubLLM{}
	svc := newTestService(t, &stubLimiter{allowed: true}, llm, &stubRecorder{})

	_, err := svc.Chat(context.Background(), ChatInput{Message: strings.Repeat("あ", 501)})
	requireCode(t, err, ErrorTooLong)
	require.Zero(t, llm.calls, "over-long messages must never reach the generation service")
}

func TestChat_ExactLimitIsAccepted(t *testing.T) {
	svc := newTestService(t, &stubLimiter{allowed: true}, &stubLLM{reply: "ok"}, &stubRecorder{})

	_, err := svc.Chat(context.Background(), ChatInput{Message: strings.Repeat("あ", 500)})
	require.NoError(t, err)
}

func TestChat_UpstreamStatusError(t *testing.T) {
	svc := newTestService(t, &stubLimiter{allowed: true}, &stubLLM{err: &statusError{status: 500}}, &stubRecorder{})

	_, err := svc.Chat(context.Background(), ChatInput{Message: "hi"})
	requireCode(t, err, ErrorUpstreamUnavailable)
}

func TestChat_UpstreamMalformedError(t *testing.T) {
	var decodeErr error = json.Unmarshal([]byte("{"), &struct{}{})
	cases := map[string]error{
		"empty reply":  fmt.Errorf("generate: %w", gemini.ErrEmptyReply),
		"decode error": fmt.Errorf("decode response: %w", decodeErr),
	}
	for name, genErr := range cases {
		t.Run(name, func(t *testing.T) {
			svc := newTestService(t, &stubLimiter{allowed: true}, &stubLLM{err: genErr}, &stubRecorder{})

			_, err := svc.Chat(context.Background(), ChatInput{Message: "hi"})
			requireCode(t, err, ErrorUpstreamMalformed)
		})
	}
}

func TestChat_SetupFailureIsInternal(t *testing.T) {
	svc := newTestService(t, &stubLimiter{allowed: true}, &stubLLM{err: errors.New("paramstore: get parameter \"/p/gemini-api-key\": access denied")}, &stubRecorder{})

	_, err := svc.Chat(context.Background(), ChatInput{Message: "hi"})
	requireCode(t, err, ErrorInternal)
}

func TestChat_PersistenceFailureDoesNotAffectResponse(t *testing.T) {
	rec := &stubRecorder{ensureErr: errors.New("db down"), appendErr: errors.New("db down")}
	svc := newTestService(t, &stubLimiter{allowed: true}, &stubLLM{reply: "ok"}, rec)

	out, err := svc.Chat(context.Background(), ChatInput{Message: "hi", SessionID: "sess-1"})
	require.NoError(t, err)
	require.Equal(t, "ok", out.Reply)
	require.Equal(t, "sess-1", out.SessionID)
}

func TestChat_RecordsBothTurns(t *testing.T) {
	rec := &stubRecorder{}
	svc := newTestService(t, &stubLimiter{allowed: true}, &stubLLM{reply: "イベントに参加してね"}, rec)

	out, err := svc.Chat(context.Background(), ChatInput{
		Message:   "参加したい",
		SessionID: "sess-1",
		ClientKey: "203.0.113.7",
		UserAgent: "agent",
	})
	require.NoError(t, err)

	require.Equal(t, []string{"sess-1"}, rec.sessions)
	require.Equal(t, []string{"agent"}, rec.userAgents)
	require.Len(t, rec.hashes[0], 16, "client key is stored as a truncated digest")
	require.NotContains(t, rec.hashes[0], "203.0.113.7")

	require.Len(t, rec.messages, 2)
	require.Equal(t, "user", rec.messages[0].role)
	require.Equal(t, "参加したい", rec.messages[0].content)
	require.Nil(t, rec.messages[0].sources)
	require.Equal(t, "assistant", rec.messages[1].role)
	require.Equal(t, out.Sources, rec.messages[1].sources)
}

func TestChat_SessionUpsertFailureSkipsMessageWrites(t *testing.T) {
	rec := &stubRecorder{ensureErr: errors.New("db down")}
	svc := newTestService(t, &stubLimiter{allowed: true}, &stubLLM{reply: "ok"}, rec)

	_, err := svc.Chat(context.Background(), ChatInput{Message: "hi"})
	require.NoError(t, err)
	require.Empty(t, rec.messages, "message rows without a session row would be orphans")
}

func TestHashClientKey_SaltedAndStable(t *testing.T) {
	a := hashClientKey("salt", "203.0.113.7")
	b := hashClientKey("salt", "203.0.113.7")
	c := hashClientKey("other", "203.0.113.7")

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
	require.Len(t, a, 16)
}
