package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/alif-arrizqy/jspro-powerdesk-sub000/internal/pkg/logger"
)

type failingSink struct{}

func (failingSink) Name() string { return "failing" }
func (failingSink) Write(context.Context, *Event) error { return errors.New("disk full") }

func TestNewEvent_DefaultResult(t *testing.T) {
	tests := []struct {
		eventType EventType
		want      Result
	}{
		{EventLoginSuccess, ResultSuccess},
		{EventLoginFailure, ResultFailure},
		{EventAccountLocked, ResultFailure},
		{EventTokenValid, ResultSuccess},
		{EventTokenInvalid, ResultFailure},
		{EventAccessGranted, ResultAllowed},
		{EventAccessDenied, ResultDenied},
		{EventLogout, ResultSuccess},
	}
	for _, tt := range tests {
		if got := NewEvent(tt.eventType).Result; got != tt.want {
			t.Errorf("NewEvent(%s).Result = %s, want %s", tt.eventType, got, tt.want)
		}
	}
}

func TestEventBuilder(t *testing.T) {
	e := NewEvent(EventAccessDenied).
		WithUser("teknisi", "teknisi").
		WithAuthMethod("session").
		WithResource("mqtt_service", "page").
		WithReason("forbidden")

	assert.Equal(t, "teknisi", e.Username)
	assert.Equal(t, "session", e.AuthMethod)
	assert.Equal(t, "mqtt_service", e.Resource)
	assert.Equal(t, "page", e.ResourceType)
	assert.Equal(t, "forbidden", e.Reason)
	assert.Equal(t, ResultDenied, e.Result)

	assert.Equal(t, ResultFailure, NewEvent(EventAccessDenied).WithResult(ResultFailure).Result)
}

func TestLog_StampsEvents(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
	ring := NewRingSink(10)
	l := NewLog(zap.NewNop(), clock, ring)

	ctx := logger.WithRequestID(context.Background(), "req-42")
	ctx = WithSourceIP(ctx, "10.0.0.7")
	l.Record(ctx, NewEvent(EventLoginSuccess).WithUser("admin", "admin"))

	events, err := ring.List(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	e := events[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, clock.Now().UTC(), e.Timestamp)
	assert.Equal(t, "req-42", e.RequestID)
	assert.Equal(t, "10.0.0.7", e.SourceIP)
}

func TestLog_SinkFailureDoesNotStopOtherSinks(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ring := NewRingSink(10)
	l := NewLog(zap.New(core), nil, failingSink{}, ring)

	l.Record(context.Background(), NewEvent(EventAccessDenied))

	assert.Equal(t, 1, ring.Len())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "audit sink write failed", logs.All()[0].Message)
}

func TestLog_NilEventIgnored(t *testing.T) {
	ring := NewRingSink(2)
	NewLog(nil, nil, ring).Record(context.Background(), nil)
	assert.Equal(t, 0, ring.Len())
}

func TestRingSink_WrapsAndFilters(t *testing.T) {
	ring := NewRingSink(3)
	ctx := context.Background()
	for i, typ := range []EventType{EventLoginFailure, EventLoginSuccess, EventAccessDenied, EventAccessGranted} {
		e := NewEvent(typ).WithUser("admin", "admin")
		e.ID = string(rune('a' + i))
		require.NoError(t, ring.Write(ctx, e))
	}
	assert.Equal(t, 3, ring.Len())

	all, err := ring.List(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "d", all[0].ID, "newest first")
	assert.Equal(t, "b", all[2].ID, "oldest entry was overwritten")

	denied, err := ring.List(ctx, Query{EventType: EventAccessDenied})
	require.NoError(t, err)
	require.Len(t, denied, 1)
	assert.Equal(t, "c", denied[0].ID)

	limited, err := ring.List(ctx, Query{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := ring.List(ctx, Query{Username: "apt"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestQuery_EffectiveLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, Query{}.EffectiveLimit())
	assert.Equal(t, 5, Query{Limit: 5}.EffectiveLimit())
	assert.Equal(t, MaxListLimit, Query{Limit: MaxListLimit + 1}.EffectiveLimit())
}

func TestZapSink_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.log")
	sink, err := NewZapSink(FileConfig{Path: path, MaxSize: 1, MaxBackups: 1, MaxAge: 1})
	require.NoError(t, err)

	l := NewLog(nil, nil, sink)
	l.Record(context.Background(), NewEvent(EventAccessDenied).
		WithUser("apt", "apt").
		WithResource("/api/v1/power/reboot", "api_endpoint").
		WithReason("forbidden"))
	require.NoError(t, l.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan(), "expected one audit line")
	var line map[string]any
	require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
	assert.Equal(t, "access_denied", line["event_type"])
	assert.Equal(t, "denied", line["result"])
	assert.Equal(t, "apt", line["username"])
	assert.Equal(t, "/api/v1/power/reboot", line["resource"])
	assert.Equal(t, "forbidden", line["reason"])
}

func TestZapSink_RequiresOutput(t *testing.T) {
	_, err := NewZapSink(FileConfig{})
	assert.Error(t, err)
}
