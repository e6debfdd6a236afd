package room

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/danmuck/peerboard/internal/board"
	"github.com/danmuck/peerboard/internal/engine"
	"github.com/danmuck/peerboard/internal/swarm"
	"github.com/danmuck/peerboard/internal/testutil/testlog"
)

func testServiceConfig(name string) ServiceConfig {
	cfg := DefaultServiceConfig()
	cfg.Name = name
	cfg.ServeAPI = false
	cfg.HeartbeatInterval = 50 * time.Millisecond
	cfg.Swarm.ListenAddr = "127.0.0.1:0"
	cfg.Swarm.MDNS = false
	cfg.Swarm.BrowseWindow = 50 * time.Millisecond
	cfg.Swarm.Backoff = swarm.BackoffConfig{InitialDelay: 10 * time.Millisecond, Multiplier: 2, MaxDelay: 50 * time.Millisecond}
	return cfg
}

type running struct {
	svc  *Service
	done chan error
}

func start(t *testing.T, svc *Service, fn StartFunc) *running {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	r := &running{svc: svc, done: make(chan error, 1)}
	go func() { r.done <- svc.Run(ctx, fn) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-r.done:
		case <-time.After(3 * time.Second):
			t.Errorf("service did not stop")
		}
	})
	return r
}

func waitReady(t *testing.T, svc *Service) {
	t.Helper()
	select {
	case <-svc.Ready():
	case <-time.After(3 * time.Second):
		t.Fatalf("room never became ready, phase=%s", svc.Phase())
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 3*time.Second, 10*time.Millisecond, what)
}

func snapshotOf(t *testing.T, svc *Service) (roster []string, creator string, tasks int) {
	t.Helper()
	err := svc.Call(context.Background(), func(e *engine.Engine) error {
		snap := e.Snapshot()
		roster, creator, tasks = snap.Roster, snap.Creator, len(snap.Tasks)
		return nil
	})
	require.NoError(t, err)
	return
}

func TestCreateThenJoinConverges(t *testing.T) {
	testlog.Start(t)
	notified := make(chan [2]string, 4)

	alice := NewService(testServiceConfig("alice"), engine.Hooks{}, swarm.StaticDiscovery{})
	start(t, alice, Create)
	waitReady(t, alice)
	require.Equal(t, PhaseReady, alice.Phase())
	require.False(t, alice.Topic().IsZero())

	bob := NewService(testServiceConfig("bob"), engine.Hooks{
		OnNotify: func(from, title string) { notified <- [2]string{from, title} },
	}, swarm.StaticDiscovery{Addrs: []string{alice.ListenAddr().String()}})
	start(t, bob, JoinTopic(alice.Topic().String()))
	waitReady(t, bob)
	require.Equal(t, alice.Topic(), bob.Topic())

	eventually(t, "bob learns alice and her creator claim", func() bool {
		roster, creator, _ := snapshotOf(t, bob)
		return len(roster) == 2 && creator == "alice"
	})
	eventually(t, "alice learns bob", func() bool {
		roster, _, _ := snapshotOf(t, alice)
		return len(roster) == 2
	})
	require.Equal(t, 2, alice.PeerCount())
	require.Equal(t, 2, bob.PeerCount())

	err := alice.Call(context.Background(), func(e *engine.Engine) error {
		_, err := e.AddTask(board.TaskDraft{Title: "Ship release", To: "@bob"})
		return err
	})
	require.NoError(t, err)

	select {
	case got := <-notified:
		require.Equal(t, [2]string{"alice", "Ship release"}, got)
	case <-time.After(3 * time.Second):
		t.Fatalf("bob was never notified")
	}
	_, _, tasks := snapshotOf(t, bob)
	require.Equal(t, 1, tasks)

	st, err := bob.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, "bob", st.Name)
	require.Equal(t, "alice", st.Creator)
	require.False(t, st.IsCreator)
	require.Equal(t, alice.Topic().String(), st.Topic)
}

func TestLateJoinerGetsNoTasks(t *testing.T) {
	testlog.Start(t)
	alice := NewService(testServiceConfig("alice"), engine.Hooks{}, swarm.StaticDiscovery{})
	start(t, alice, Create)
	waitReady(t, alice)

	for _, title := range []string{"one", "two", "three"} {
		err := alice.Call(context.Background(), func(e *engine.Engine) error {
			_, err := e.AddTask(board.TaskDraft{Title: title})
			return err
		})
		require.NoError(t, err)
	}

	late := NewService(testServiceConfig("late"), engine.Hooks{}, swarm.StaticDiscovery{Addrs: []string{alice.ListenAddr().String()}})
	start(t, late, JoinTopic(alice.Topic().String()))
	waitReady(t, late)

	eventually(t, "late joiner greeted", func() bool {
		_, creator, _ := snapshotOf(t, late)
		return creator == "alice"
	})
	_, _, tasks := snapshotOf(t, late)
	require.Zero(t, tasks)
}

func TestCreateWithoutNameDefersCreatorClaim(t *testing.T) {
	testlog.Start(t)
	svc := NewService(testServiceConfig(""), engine.Hooks{}, swarm.StaticDiscovery{})
	start(t, svc, Create)
	waitReady(t, svc)

	st, err := svc.Status(context.Background())
	require.NoError(t, err)
	require.True(t, st.IsCreator)
	require.Empty(t, st.Creator)
	require.Empty(t, st.Name)

	require.NoError(t, svc.SetName(context.Background(), "alice"))
	st, err = svc.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, "alice", st.Creator)
	require.True(t, st.IsCreator)
}

func TestJoinRejectsBadTopic(t *testing.T) {
	testlog.Start(t)
	svc := NewService(testServiceConfig("bob"), engine.Hooks{}, swarm.StaticDiscovery{})
	err := svc.Run(context.Background(), JoinTopic("not-hex"))
	require.ErrorIs(t, err, swarm.ErrInvalidTopic)
}

func TestJoinTwiceIsLifecycleError(t *testing.T) {
	testlog.Start(t)
	svc := NewService(testServiceConfig("bob"), engine.Hooks{}, swarm.StaticDiscovery{})
	topic, _ := swarm.NewTopic()
	start(t, svc, JoinTopic(topic.String()))
	waitReady(t, svc)
	_, err := svc.Join(context.Background(), topic.String())
	require.True(t, errors.Is(err, ErrLifecycleOrder))
}

func TestRunRejectsHeartbeat(t *testing.T) {
	testlog.Start(t)
	cfg := testServiceConfig("bob")
	cfg.HeartbeatInterval = 0
	svc := NewService(cfg, engine.Hooks{}, swarm.StaticDiscovery{})
	require.ErrorIs(t, svc.Run(context.Background(), nil), ErrInvalidHeartbeatInterval)
}
