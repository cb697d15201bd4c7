package store_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"

	"github.com/AntoineSierzputowski/carmen"
	"github.com/AntoineSierzputowski/carmen/store"
)

func newSQLiteStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	must.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func record(plantID string, ts time.Time, humidity float64, status carmen.Status) carmen.AnalysisRecord {
	return carmen.AnalysisRecord{
		PlantID:     plantID,
		Timestamp:   ts,
		Humidity:    humidity,
		Light:       1500,
		Temperature: 22,
		Comparisons: `{"soil_moisture":{"status":"OK"}}`,
		Status:      status,
		Message:     "test message",
		Action:      "none",
	}
}

func TestSQLiteStore_AppendAndFetch(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)

	stored, err := s.Append(ctx, record("basil-001", ts, 60, carmen.StatusOK))
	must.NoError(t, err)
	should.NotZero(t, stored.ID)

	records, err := s.FetchRecent(ctx, "basil-001", 10)
	must.NoError(t, err)
	must.Len(t, records, 1)

	got := records[0]
	should.Equal(t, stored.ID, got.ID)
	should.Equal(t, "basil-001", got.PlantID)
	should.True(t, got.Timestamp.Equal(ts))
	should.Equal(t, 60.0, got.Humidity)
	should.Equal(t, carmen.StatusOK, got.Status)
	should.Equal(t, "test message", got.Message)
	should.Equal(t, `{"soil_moisture":{"status":"OK"}}`, got.Comparisons)
}

func TestSQLiteStore_FetchRecentNewestFirst(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		_, err := s.Append(ctx, record("basil-001", base.Add(time.Duration(i)*24*time.Hour), float64(60+i), carmen.StatusOK))
		must.NoError(t, err)
	}

	records, err := s.FetchRecent(ctx, "basil-001", 3)
	must.NoError(t, err)
	must.Len(t, records, 3)
	should.Equal(t, 64.0, records[0].Humidity)
	should.Equal(t, 63.0, records[1].Humidity)
	should.Equal(t, 62.0, records[2].Humidity)
	should.True(t, records[0].Timestamp.After(records[1].Timestamp))
}

func TestSQLiteStore_ListFiltersByPlant(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	ts := time.Now().UTC()

	_, err := s.Append(ctx, record("basil-001", ts, 60, carmen.StatusOK))
	must.NoError(t, err)
	_, err = s.Append(ctx, record("tomato-007", ts, 70, carmen.StatusAlert))
	must.NoError(t, err)

	records, err := s.List(ctx, "basil-001", 10, 0)
	must.NoError(t, err)
	must.Len(t, records, 1)
	should.Equal(t, "basil-001", records[0].PlantID)
}

func TestSQLiteStore_ListAllPaging(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 6; i++ {
		_, err := s.Append(ctx, record("basil-001", base.Add(time.Duration(i)*time.Hour), 60, carmen.StatusOK))
		must.NoError(t, err)
	}

	first, err := s.ListAll(ctx, 4, 0)
	must.NoError(t, err)
	should.Len(t, first, 4)

	second, err := s.ListAll(ctx, 4, 4)
	must.NoError(t, err)
	should.Len(t, second, 2)

	// No overlap between pages.
	should.NotEqual(t, first[len(first)-1].ID, second[0].ID)
}

func TestSQLiteStore_EmptyFetch(t *testing.T) {
	s := newSQLiteStore(t)

	records, err := s.FetchRecent(context.Background(), "nobody", 10)
	must.NoError(t, err)
	should.Empty(t, records)
}
