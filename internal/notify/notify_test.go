package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"ordertracker/internal/database"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *database.DB) int64 {
	t.Helper()
	id, err := db.Users.Create(&database.User{Username: "bob", CredentialHash: "hash"})
	require.NoError(t, err)
	return id
}

type countingNotifier struct {
	key   string
	calls int32
	err   error
}

func (n *countingNotifier) Key() string { return n.key }

func (n *countingNotifier) Notify(ctx context.Context, userID int64, event Event, data Data) error {
	atomic.AddInt32(&n.calls, 1)
	return n.err
}

type fakeRegistry struct {
	notifiers []Notifier
}

func (r *fakeRegistry) EnabledNotifiers() []Notifier { return r.notifiers }

func TestFanoutSkipsUnsubscribedUsers(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db)

	n := &countingNotifier{key: "email"}
	reg := &fakeRegistry{notifiers: []Notifier{n}}

	Fanout(context.Background(), db, reg, testLogger(), userID, EventNewOrder, Data{})

	require.EqualValues(t, 0, atomic.LoadInt32(&n.calls))
}

func TestFanoutInvokesSubscribedNotifier(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db)
	require.NoError(t, db.NotificationConfigs.Upsert(&database.NotificationConfig{
		UserID: userID, ModuleKey: "email", EventType: string(EventNewOrder), Enabled: true, Destination: "bob@example.com",
	}))

	n := &countingNotifier{key: "email"}
	reg := &fakeRegistry{notifiers: []Notifier{n}}

	Fanout(context.Background(), db, reg, testLogger(), userID, EventNewOrder, Data{})

	require.EqualValues(t, 1, atomic.LoadInt32(&n.calls))
}

func TestFanoutIsolatesOneNotifierFailureFromAnother(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db)
	for _, key := range []string{"email", "webhook"} {
		require.NoError(t, db.NotificationConfigs.Upsert(&database.NotificationConfig{
			UserID: userID, ModuleKey: key, EventType: string(EventNewOrder), Enabled: true, Destination: "x",
		}))
	}

	failing := &countingNotifier{key: "email", err: errBoom}
	ok := &countingNotifier{key: "webhook"}
	reg := &fakeRegistry{notifiers: []Notifier{failing, ok}}

	Fanout(context.Background(), db, reg, testLogger(), userID, EventNewOrder, Data{})

	require.EqualValues(t, 1, atomic.LoadInt32(&failing.calls))
	require.EqualValues(t, 1, atomic.LoadInt32(&ok.calls))
}

func TestFanoutWithNoEnabledNotifiersIsNoop(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db)

	reg := &fakeRegistry{}
	Fanout(context.Background(), db, reg, testLogger(), userID, EventNewOrder, Data{})
}

func TestFanoutRunsNotifiersConcurrently(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db)
	for _, key := range []string{"a", "b", "c"} {
		require.NoError(t, db.NotificationConfigs.Upsert(&database.NotificationConfig{
			UserID: userID, ModuleKey: key, EventType: string(EventNewOrder), Enabled: true, Destination: "x",
		}))
	}

	var wg sync.WaitGroup
	release := make(chan struct{})
	wg.Add(3)

	blocking := func(key string) *blockingNotifier {
		return &blockingNotifier{key: key, started: &wg, release: release}
	}
	reg := &fakeRegistry{notifiers: []Notifier{blocking("a"), blocking("b"), blocking("c")}}

	done := make(chan struct{})
	go func() {
		Fanout(context.Background(), db, reg, testLogger(), userID, EventNewOrder, Data{})
		close(done)
	}()

	wg.Wait()
	close(release)
	<-done
}

var errBoom = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }

type blockingNotifier struct {
	key     string
	started *sync.WaitGroup
	release chan struct{}
	once    sync.Once
}

func (n *blockingNotifier) Key() string { return n.key }

func (n *blockingNotifier) Notify(ctx context.Context, userID int64, event Event, data Data) error {
	n.once.Do(n.started.Done)
	<-n.release
	return nil
}
