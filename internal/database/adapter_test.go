package database

import (
	"context"
	"testing"
)

func TestConfigSelectsBackendByURLPresence(t *testing.T) {
	if backend := (Config{Path: "board.db"}).Backend(); backend != BackendSQLite {
		t.Fatalf("expected sqlite without url, got %s", backend)
	}
	if backend := (Config{URL: "  "}).Backend(); backend != BackendSQLite {
		t.Fatalf("expected blank url to select sqlite, got %s", backend)
	}
	if backend := (Config{URL: "postgres://board@db/board"}).Backend(); backend != BackendPostgres {
		t.Fatalf("expected postgres with url, got %s", backend)
	}
}

func TestOpenRequiresPathForEmbeddedBackend(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Fatalf("expected error without database path")
	}
}

func TestConnectOnClosedAdapterFails(t *testing.T) {
	var adapter *Adapter
	if _, err := adapter.Connect(context.Background()); err == nil {
		t.Fatalf("expected error from nil adapter")
	}

	opened := openTestAdapter(t)
	if err := opened.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if _, err := opened.Connect(context.Background()); err == nil {
		t.Fatalf("expected error after close")
	}
}

func TestConnectionsAreNotReusedAcrossRequests(t *testing.T) {
	adapter := openTestAdapter(t)
	ctx := context.Background()
	if err := adapter.InitSchema(ctx, SchemaOptions{}); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	for request := 0; request < 3; request++ {
		db, err := adapter.Connect(ctx)
		if err != nil {
			t.Fatalf("connect failed: %v", err)
		}
		var count int64
		if err := db.Table("links").Count(&count).Error; err != nil {
			t.Fatalf("query failed: %v", err)
		}
	}

	sqlDB, err := adapter.db.DB()
	if err != nil {
		t.Fatalf("failed to reach pool: %v", err)
	}
	stats := sqlDB.Stats()
	if stats.Idle != 0 || stats.OpenConnections != 0 {
		t.Fatalf("expected released connections to be closed, got idle=%d open=%d", stats.Idle, stats.OpenConnections)
	}
	if stats.MaxIdleClosed == 0 {
		t.Fatalf("expected released connections to be closed instead of parked")
	}
}

func TestBoolLiteral(t *testing.T) {
	testCases := []struct {
		backend Backend
		value   bool
		want    string
	}{
		{BackendSQLite, true, "1"},
		{BackendSQLite, false, "0"},
		{BackendPostgres, true, "TRUE"},
		{BackendPostgres, false, "FALSE"},
	}
	for _, testCase := range testCases {
		adapter := &Adapter{backend: testCase.backend}
		if got := adapter.BoolLiteral(testCase.value); got != testCase.want {
			t.Fatalf("%s literal for %v: got %s want %s", testCase.backend, testCase.value, got, testCase.want)
		}
	}
}

func TestToBool(t *testing.T) {
	testCases := []struct {
		value any
		want  bool
	}{
		{nil, false},
		{true, true},
		{int64(1), true},
		{int64(0), false},
		{int32(2), true},
		{1, true},
		{float64(0), false},
		{"true", true},
		{"1", true},
		{"0", false},
		{[]byte("t"), true},
		{"nope", false},
		{struct{}{}, false},
	}
	for _, testCase := range testCases {
		if got := ToBool(testCase.value); got != testCase.want {
			t.Fatalf("ToBool(%#v) = %v, want %v", testCase.value, got, testCase.want)
		}
	}
}

func TestToInt64(t *testing.T) {
	if value, ok := ToInt64(int64(7)); !ok || value != 7 {
		t.Fatalf("unexpected int64 conversion %d %v", value, ok)
	}
	if value, ok := ToInt64(" 12 "); !ok || value != 12 {
		t.Fatalf("unexpected string conversion %d %v", value, ok)
	}
	if _, ok := ToInt64("twelve"); ok {
		t.Fatalf("expected non-numeric text to fail")
	}
	if _, ok := ToInt64(nil); ok {
		t.Fatalf("expected nil to fail")
	}
}
