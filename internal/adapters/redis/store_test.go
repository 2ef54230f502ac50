package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/steve/internal/adapters/redis"
	"github.com/aretw0/steve/pkg/domain"
	"github.com/aretw0/steve/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func template() *domain.ConversationState {
	return &domain.ConversationState{
		SteveState:          domain.StateDefaultStasis,
		ConversationSummary: "The conversation has just begun.",
	}
}

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, func(t *testing.T) ports.StateStore {
		_, client := newClient(t)
		return redis.NewFromClient(client, redis.WithTemplate(template()))
	}, template())
}

func TestRedisStore_TTLAndPrefix(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client,
		redis.WithPrefix("test:"),
		redis.WithTTL(time.Minute),
		redis.WithTemplate(template()),
	)

	_, err := store.Reset(context.Background())
	require.NoError(t, err)

	assert.True(t, mr.Exists("test:state"))
	assert.Equal(t, time.Minute, mr.TTL("test:state"))

	mr.FastForward(2 * time.Minute)
	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrStateNotFound)
}

func TestRedisStore_NoTemplate(t *testing.T) {
	_, client := newClient(t)
	store := redis.NewFromClient(client)

	_, err := store.Reset(context.Background())
	assert.ErrorIs(t, err, domain.ErrTemplateMissing)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	mr, client := newClient(t)
	store := redis.NewFromClient(client)
	require.NoError(t, mr.Set(redis.DefaultPrefix+"state", `{"steveState":"Euphoria"}`))

	_, err := store.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrCorruptState)
}

func TestRedisStore_TemplateIsCopied(t *testing.T) {
	_, client := newClient(t)
	tpl := template()
	store := redis.NewFromClient(client, redis.WithTemplate(tpl))
	tpl.SteveState = domain.StateTheCollapse

	state, err := store.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StateDefaultStasis, state.SteveState)

	state.LoopCount = 9
	again, err := store.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, again.LoopCount)
}
