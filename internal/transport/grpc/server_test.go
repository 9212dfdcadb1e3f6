package grpcx

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/cwrk-planet/chat-relay/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

type fakeRegistry struct {
	snap service.Snapshot
}

func (f *fakeRegistry) Snapshot() service.Snapshot { return f.snap }

type panicRegistry struct{}

func (panicRegistry) Snapshot() service.Snapshot { panic("boom") }

func dialBufconn(t *testing.T, reg SnapshotSource) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	gs, _ := NewGRPCServer(reg, Config{CallTimeout: time.Second})
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	cc, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })
	return cc
}

func testSnapshot() service.Snapshot {
	return service.Snapshot{
		Users: []string{"alice", "bob"},
		Rooms: []service.RoomStats{
			{ID: 0, Name: "Public Room", IsPublic: true, Users: []string{"alice", "bob"}, Messages: 3},
			{ID: 1, Name: "secret", IsPublic: false, Users: []string{"bob"}, Messages: 1},
		},
		Polls:        1,
		PendingPolls: 1,
	}
}

func TestAdmin_Stats(t *testing.T) {
	client := NewAdminClient(dialBufconn(t, &fakeRegistry{snap: testSnapshot()}))

	out, err := client.Stats(context.Background())
	require.NoError(t, err)

	m := out.AsMap()
	assert.EqualValues(t, 2, m["users"])
	assert.EqualValues(t, 2, m["rooms"])
	assert.EqualValues(t, 1, m["polls"])
	assert.EqualValues(t, 1, m["pendingPolls"])
}

func TestAdmin_ListRooms(t *testing.T) {
	client := NewAdminClient(dialBufconn(t, &fakeRegistry{snap: testSnapshot()}))

	out, err := client.ListRooms(context.Background())
	require.NoError(t, err)

	rooms, ok := out.AsMap()["rooms"].([]any)
	require.True(t, ok)
	require.Len(t, rooms, 2)

	second := rooms[1].(map[string]any)
	assert.Equal(t, "secret", second["name"])
	assert.Equal(t, false, second["isPublic"])
	assert.Equal(t, []any{"bob"}, second["users"])
	assert.NotContains(t, second, "password")
}

func TestAdmin_ListUsersFromRegistry(t *testing.T) {
	reg := service.NewRegistry()
	t.Cleanup(reg.Close)

	client := NewAdminClient(dialBufconn(t, reg))

	out, err := client.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{}, out.AsMap()["users"])
}

func TestAdmin_PanicBecomesInternal(t *testing.T) {
	client := NewAdminClient(dialBufconn(t, panicRegistry{}))

	_, err := client.Stats(context.Background())
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))
}

func TestHealth_Serving(t *testing.T) {
	hc := healthpb.NewHealthClient(dialBufconn(t, &fakeRegistry{}))

	for _, svc := range []string{"", AdminServiceName} {
		resp, err := hc.Check(context.Background(), &healthpb.HealthCheckRequest{Service: svc})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
	}
}
