package notification

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"habitat-backend/internal/model"
	"habitat-backend/internal/store"
)

// mockSender is a mock implementation of the Sender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&model.HabitatRecord{}, &model.PushSubscription{}))
	return store.NewGormStore(db)
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := NewWorkerPool(1, newTestStore(t), &webpush.Options{})

	wp.Dispatch(Job{TenantID: "guild-1", Message: "The heron has left the waterside."})

	select {
	case job := <-wp.jobs:
		assert.Equal(t, "guild-1", job.TenantID)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_DeliversToEverySubscriber(t *testing.T) {
	st := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, st.UpsertSubscription(ctx, model.PushSubscription{
		Endpoint: "https://example.com/push/a", TenantID: "guild-1", P256DH: "ka", Auth: "aa",
	}))
	require.NoError(t, st.UpsertSubscription(ctx, model.PushSubscription{
		Endpoint: "https://example.com/push/b", TenantID: "guild-1", P256DH: "kb", Auth: "ab",
	}))
	// A different tenant's subscriber never hears about guild-1.
	require.NoError(t, st.UpsertSubscription(ctx, model.PushSubscription{
		Endpoint: "https://example.com/push/c", TenantID: "guild-2", P256DH: "kc", Auth: "ac",
	}))

	wp := NewWorkerPool(1, st, &webpush.Options{})

	var mu sync.Mutex
	endpoints := make(map[string]string)
	var wg sync.WaitGroup
	wg.Add(2)
	wp.SetSender(&mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			mu.Lock()
			endpoints[sub.Endpoint] = string(payload)
			mu.Unlock()
			wg.Done()
			return &http.Response{
				StatusCode: http.StatusCreated,
				Body:       io.NopCloser(bytes.NewBufferString("")),
			}, nil
		},
	})
	wp.Start(ctx)

	wp.Dispatch(Job{TenantID: "guild-1", Message: "The owl in the forest is hungry!"})
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, endpoints, 2)
	assert.Equal(t, "The owl in the forest is hungry!", endpoints["https://example.com/push/a"])
	assert.NotContains(t, endpoints, "https://example.com/push/c")
}

func TestWorkerPool_DeletesExpiredSubscription(t *testing.T) {
	st := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, st.UpsertSubscription(ctx, model.PushSubscription{
		Endpoint: "https://example.com/push/expired", TenantID: "guild-1", P256DH: "k", Auth: "a",
	}))

	wp := NewWorkerPool(1, st, &webpush.Options{})

	var wg sync.WaitGroup
	wg.Add(1)
	wp.SetSender(&mockSender{
		SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
			defer wg.Done()
			return &http.Response{
				StatusCode: http.StatusGone,
				Body:       io.NopCloser(bytes.NewBufferString("")),
			}, nil
		},
	})
	wp.Start(ctx)

	wp.Dispatch(Job{TenantID: "guild-1", Message: "The crane has left the grassland."})
	wg.Wait()

	// Deletion happens after the send returns; poll briefly.
	assert.Eventually(t, func() bool {
		subs, err := st.SubscriptionsForTenant(ctx, "guild-1")
		return err == nil && len(subs) == 0
	}, time.Second, 10*time.Millisecond)
}
