package identity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider(t *testing.T) {
	t.Parallel()

	p := &StaticProvider{
		Token:  "tok",
		Owners: map[string]string{"metricbridge": "abc123"},
	}

	token, err := p.AuthToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	id, err := p.LookupOwnerID(context.Background(), "metricbridge")
	require.NoError(t, err)
	assert.Equal(t, "abc123", id)

	_, err = p.LookupOwnerID(context.Background(), "other")
	require.Error(t, err)
}

func TestStaticProviderEmpty(t *testing.T) {
	t.Parallel()

	p := &StaticProvider{}
	_, err := p.AuthToken(context.Background())
	require.Error(t, err)
	_, err = p.LookupOwnerID(context.Background(), "metricbridge")
	require.Error(t, err)
}
