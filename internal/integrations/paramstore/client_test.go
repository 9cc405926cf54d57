package paramstore

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	out *ssm.GetParameterOutput
	err error
}

func (f *fakeAPI) GetParameter(_ context.Context, _ *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	return f.out, f.err
}

func strPtr(s string) *string { return &s }

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)
}

func TestGetParameter_HappyPath(t *testing.T) {
	api := &fakeAPI{out: &ssm.GetParameterOutput{Parameter: &types.Parameter{
		Name: strPtr("/tgn-site/gemini-api-key"), Value: strPtr("sk-value"),
	}}}
	c, err := New(api)
	require.NoError(t, err)

	v, err := c.GetParameter(context.Background(), "/tgn-site/gemini-api-key")
	require.NoError(t, err)
	require.Equal(t, "sk-value", v)
}

func TestGetParameter_MissingValue(t *testing.T) {
	api := &fakeAPI{out: &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p")}}}
	c, err := New(api)
	require.NoError(t, err)

	_, err = c.GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "no value")
}

func TestGetParameter_APIError(t *testing.T) {
	api := &fakeAPI{err: errors.New("ssm unavailable")}
	c, err := New(api)
	require.NoError(t, err)

	_, err = c.GetParameter(context.Background(), "p")
	require.Error(t, err)
	require.ErrorContains(t, err, "ssm unavailable")
}

func TestGetParameter_EmptyName(t *testing.T) {
	c, err := New(&fakeAPI{})
	require.NoError(t, err)

	_, err = c.GetParameter(context.Background(), "  ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "required")
}
