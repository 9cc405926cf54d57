package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(start time.Time) (*MemoryLimiter, *time.Time) {
	clock := start
	l := NewMemoryLimiter(DefaultWindow, DefaultQuota)
	l.now = func() time.Time { return clock }
	return l, &clock
}

func TestMemoryLimiter_QuotaWithinWindow(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1700000000, 0))

	for i := 0; i < DefaultQuota; i++ {
		ok, err := l.Allow(context.Background(), "1.2.3.4")
		require.NoError(t, err)
		require.True(t, ok, "request %d should be admitted", i+1)
	}

	ok, err := l.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	require.False(t, ok, "11th request within the window must be rejected")
}

func TestMemoryLimiter_WindowResetsAfterSixtySeconds(t *testing.T) {
	start := time.Unix(1700000000, 0)
	l, clock := newTestLimiter(start)

	for i := 0; i < DefaultQuota; i++ {
		ok, _ := l.Allow(context.Background(), "k")
		require.True(t, ok)
	}

	// At exactly reset time the old window still applies.
	*clock = start.Add(60 * time.Second)
	ok, _ := l.Allow(context.Background(), "k")
	require.False(t, ok)

	*clock = start.Add(60*time.Second + time.Millisecond)
	ok, _ = l.Allow(context.Background(), "k")
	require.True(t, ok, "a fresh window must open once the reset time has elapsed")

	// The fresh window starts at count 1.
	for i := 0; i < DefaultQuota-1; i++ {
		ok, _ = l.Allow(context.Background(), "k")
		require.True(t, ok)
	}
	ok, _ = l.Allow(context.Background(), "k")
	require.False(t, ok)
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(time.Unix(1700000000, 0))

	for i := 0; i < DefaultQuota; i++ {
		ok, _ := l.Allow(context.Background(), "a")
		require.True(t, ok)
	}
	ok, _ := l.Allow(context.Background(), "a")
	require.False(t, ok)

	ok, _ = l.Allow(context.Background(), "b")
	require.True(t, ok, "an exhausted key must not affect other keys")
}

// fakeDynamo scripts UpdateItem outcomes in call order.
type fakeDynamo struct {
	errs  []error
	calls []*dynamodb.UpdateItemInput
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.calls = append(f.calls, in)
	if len(f.errs) == 0 {
		return &dynamodb.UpdateItemOutput{}, nil
	}
	err := f.errs[0]
	f.errs = f.errs[1:]
	if err != nil {
		return nil, err
	}
	return &dynamodb.UpdateItemOutput{}, nil
}

func condFail() error { return &types.ConditionalCheckFailedException{} }

func TestNewDynamoLimiter_Validation(t *testing.T) {
	_, err := NewDynamoLimiter(nil, "t", DefaultWindow, DefaultQuota)
	require.Error(t, err)

	_, err = NewDynamoLimiter(&fakeDynamo{}, " ", DefaultWindow, DefaultQuota)
	require.Error(t, err)
}

func TestDynamoLimiter_FreshWindowAdmits(t *testing.T) {
	api := &fakeDynamo{}
	l, err := NewDynamoLimiter(api, "rate-limits", DefaultWindow, DefaultQuota)
	require.NoError(t, err)

	ok, err := l.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, api.calls, 1, "a fresh window needs a single write")
}

func TestDynamoLimiter_IncrementWithinWindow(t *testing.T) {
	api := &fakeDynamo{errs: []error{condFail(), nil}}
	l, err := NewDynamoLimiter(api, "rate-limits", DefaultWindow, DefaultQuota)
	require.NoError(t, err)

	ok, err := l.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, api.calls, 2)
}

func TestDynamoLimiter_QuotaExhausted(t *testing.T) {
	api := &fakeDynamo{errs: []error{condFail(), condFail()}}
	l, err := NewDynamoLimiter(api, "rate-limits", DefaultWindow, DefaultQuota)
	require.NoError(t, err)

	ok, err := l.Allow(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDynamoLimiter_StoreError(t *testing.T) {
	api := &fakeDynamo{errs: []error{errors.New("throttled")}}
	l, err := NewDynamoLimiter(api, "rate-limits", DefaultWindow, DefaultQuota)
	require.NoError(t, err)

	_, err = l.Allow(context.Background(), "1.2.3.4")
	require.Error(t, err)
	require.ErrorContains(t, err, "throttled")
}
