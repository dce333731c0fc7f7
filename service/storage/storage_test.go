package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/flowmind/internal/clock"
	"github.com/viant/flowmind/model/types"
	"github.com/viant/flowmind/service/storage"
	"github.com/viant/flowmind/service/storage/fs"
	"github.com/viant/flowmind/service/storage/memory"
)

func TestService(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	previous := clock.NowFunc
	clock.NowFunc = func() time.Time { return now }
	defer func() { clock.NowFunc = previous }()

	testCases := []struct {
		name string
		new  func(t *testing.T) storage.Service
	}{
		{name: "memory", new: func(t *testing.T) storage.Service { return memory.New() }},
		{name: "fs", new: func(t *testing.T) storage.Service {
			svc, err := fs.New(context.Background(), t.TempDir())
			require.NoError(t, err)
			return svc
		}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			svc := tc.new(t)
			now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

			require.NoError(t, svc.Put(ctx, "users", "max", map[string]interface{}{"name": "Max"}))
			require.NoError(t, svc.Put(ctx, "users", "anna", "Anna"))
			require.NoError(t, svc.Put(ctx, "session", "token", "abc", storage.WithTTL(time.Minute)))

			value, err := svc.Get(ctx, "users", "max")
			require.NoError(t, err)
			assert.Equal(t, map[string]interface{}{"name": "Max"}, value)

			_, err = svc.Get(ctx, "users", "nobody")
			assert.Equal(t, types.KindNotFound, types.KindOf(err))
			assert.Equal(t, types.KindNotFound, types.KindOf(svc.Update(ctx, "users", "nobody", "x")))
			assert.Equal(t, types.KindValidationFailure, types.KindOf(svc.Put(ctx, "", "k", "v")))

			require.NoError(t, svc.Update(ctx, "users", "anna", "Anna B."))
			value, _ = svc.Get(ctx, "users", "anna")
			assert.Equal(t, "Anna B.", value)

			keys, err := svc.List(ctx, "users")
			require.NoError(t, err)
			assert.Equal(t, []string{"anna", "max"}, keys)

			// ttl survives update and lapses
			require.NoError(t, svc.Update(ctx, "session", "token", "def"))
			now = now.Add(30 * time.Second)
			value, err = svc.Get(ctx, "session", "token")
			require.NoError(t, err)
			assert.Equal(t, "def", value)
			now = now.Add(31 * time.Second)
			_, err = svc.Get(ctx, "session", "token")
			assert.Equal(t, types.KindNotFound, types.KindOf(err))
			keys, _ = svc.List(ctx, "session")
			assert.Empty(t, keys)

			require.NoError(t, svc.Delete(ctx, "users", "max"))
			require.NoError(t, svc.Delete(ctx, "users", "max"), "delete is idempotent")
			keys, _ = svc.List(ctx, "users")
			assert.Equal(t, []string{"anna"}, keys)
		})
	}
}
