package plugin

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

type recordingHook struct {
	mu        sync.Mutex
	initReq   *InitializeRequest
	events    []*MessageEvent
	status    Status
	initErr   error
	cleanedUp bool
}

func (h *recordingHook) Initialize(ctx context.Context, req *InitializeRequest) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.initReq = req
	return h.initErr
}

func (h *recordingHook) OnMessage(ctx context.Context, ev *MessageEvent) Status {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.events = append(h.events, ev)
	return h.status
}

func (h *recordingHook) Cleanup(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleanedUp = true
	return nil
}

func newTestClient(t *testing.T, impl Hook) *HookClient {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	p := &HookPlugin{Impl: impl}
	require.NoError(t, p.GRPCServer(nil, s))
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	raw, err := p.GRPCClient(context.Background(), nil, conn)
	require.NoError(t, err)
	client, ok := raw.(*HookClient)
	require.True(t, ok)
	return client
}

func TestHookClientRoundTrip(t *testing.T) {
	impl := &recordingHook{status: StatusSuccess}
	client := newTestClient(t, impl)
	ctx := context.Background()

	err := client.Initialize(ctx, &InitializeRequest{
		Name:    "csv",
		Options: map[string]string{"root": "/tmp/payloads"},
	})
	require.NoError(t, err)
	require.Equal(t, "csv", impl.initReq.Name)
	require.Equal(t, "/tmp/payloads", impl.initReq.Options["root"])

	ev := &MessageEvent{
		ClientID: "abc123",
		Topic:    "sensors/temp",
		Payload:  []byte("a,b\n\x00\xff"),
		QoS:      1,
		Retain:   true,
	}
	require.Equal(t, StatusSuccess, client.OnMessage(ctx, ev))
	require.Len(t, impl.events, 1)
	require.Equal(t, ev, impl.events[0])

	require.NoError(t, client.Cleanup(ctx))
	require.True(t, impl.cleanedUp)
}

func TestHookClientPropagatesStatus(t *testing.T) {
	client := newTestClient(t, &recordingHook{status: StatusUnknown})

	status := client.OnMessage(context.Background(), &MessageEvent{ClientID: "abc123"})
	require.Equal(t, StatusUnknown, status)
}

func TestHookClientInitializeFailure(t *testing.T) {
	client := newTestClient(t, &recordingHook{initErr: errors.New("cannot create root")})

	err := client.Initialize(context.Background(), &InitializeRequest{Name: "csv"})
	require.ErrorIs(t, err, errHookFailed)
	require.ErrorContains(t, err, "cannot create root")
}

func TestHookClientTransportFailure(t *testing.T) {
	client := newTestClient(t, &recordingHook{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Equal(t, StatusUnknown, client.OnMessage(ctx, &MessageEvent{ClientID: "abc123"}))
}

func TestHookClientServiceNotServed(t *testing.T) {
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	go s.Serve(lis)
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	client := NewHookClient(conn)
	require.Equal(t, StatusNotSupported, client.OnMessage(context.Background(), &MessageEvent{ClientID: "abc123"}))
}
