package backup

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/customers"
	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/database"
	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/failures"
	"github.com/MarcoPoloResearchLab/listingboard/backend/internal/links"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var fixedNow = time.Date(2026, time.October, 15, 9, 30, 0, 0, time.UTC)

type fixture struct {
	adapter  *database.Adapter
	db       *gorm.DB
	links    *links.Service
	profiles *customers.Service
	backup   *Service
}

func newFixture(t *testing.T, transactional bool) fixture {
	t.Helper()
	ctx := context.Background()

	adapter, err := database.Open(database.Config{Path: filepath.Join(t.TempDir(), "board.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = adapter.Close() })
	require.NoError(t, adapter.InitSchema(ctx, database.SchemaOptions{}))

	db, err := adapter.Connect(ctx)
	require.NoError(t, err)

	clock := func() time.Time { return fixedNow }
	linkService, err := links.NewService(links.ServiceConfig{Connector: adapter, Clock: clock})
	require.NoError(t, err)
	profileService, err := customers.NewService(customers.ServiceConfig{Connector: adapter})
	require.NoError(t, err)
	backupService, err := NewService(ServiceConfig{
		Connector:     adapter,
		Columns:       adapter,
		Clock:         clock,
		Transactional: transactional,
	})
	require.NoError(t, err)

	return fixture{adapter: adapter, db: db, links: linkService, profiles: profileService, backup: backupService}
}

func (f fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	firstID, err := f.links.Create(ctx, links.CreateRequest{URL: "http://a.example/1", Platform: "siteA", AddedBy: "alice", Memo: "balcony"})
	require.NoError(t, err)
	secondID, err := f.links.Create(ctx, links.CreateRequest{URL: "http://a.example/2", Platform: "siteB", AddedBy: "bob"})
	require.NoError(t, err)

	liked := true
	rating := 2
	require.NoError(t, f.links.Update(ctx, firstID, links.UpdateRequest{Action: links.ActionLike, Liked: &liked}))
	require.NoError(t, f.links.Update(ctx, secondID, links.UpdateRequest{Action: links.ActionRating, Rating: &rating}))

	name := "Choi family"
	moveIn := "2027-03-01"
	require.NoError(t, f.profiles.Set(ctx, customers.SetRequest{CustomerName: &name, MoveInDate: &moveIn}))
}

func (f fixture) storedLinks(t *testing.T) []links.Link {
	t.Helper()
	var stored []links.Link
	require.NoError(t, f.db.Order("id ASC").Find(&stored).Error)
	return stored
}

func withoutIDs(stored []links.Link) []links.Link {
	stripped := make([]links.Link, 0, len(stored))
	for _, link := range stored {
		link.ID = 0
		stripped = append(stripped, link)
	}
	return stripped
}

func TestExportCarriesEveryColumn(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t)

	snapshot, err := f.backup.Export(context.Background())
	require.NoError(t, err)

	assert.Equal(t, fixedNow.Format(time.RFC3339), snapshot.BackupDate)
	require.Len(t, snapshot.Links, 2)

	first := snapshot.Links[0]
	for _, column := range links.Columns {
		assert.Contains(t, first, column)
	}
	assert.NotContains(t, first, "number")
	assert.Equal(t, "http://a.example/1", first["url"])
	assert.Equal(t, true, first["liked"])
	assert.Equal(t, false, first["disliked"])
	assert.Equal(t, int64(5), first["rating"])
	assert.Equal(t, "2026-10-15", first["date_added"])
	assert.Equal(t, int64(2), snapshot.Links[1]["rating"])

	require.NotNil(t, snapshot.CustomerInfo)
	assert.Equal(t, "Choi family", snapshot.CustomerInfo["customer_name"])
	assert.Equal(t, "2027-03-01", snapshot.CustomerInfo["move_in_date"])
}

func TestExportWithoutCustomerRowReportsNull(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, f.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&customers.Profile{}).Error)

	snapshot, err := f.backup.Export(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snapshot.CustomerInfo)
	assert.Empty(t, snapshot.Links)

	payload, err := json.Marshal(snapshot)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"customer_info":null`)
	assert.Contains(t, string(payload), `"links":[]`)
}

func TestExportRestoreRoundTrip(t *testing.T) {
	for _, transactional := range []bool{false, true} {
		f := newFixture(t, transactional)
		f.seed(t)
		ctx := context.Background()

		before := withoutIDs(f.storedLinks(t))
		profileBefore, err := f.profiles.Get(ctx)
		require.NoError(t, err)

		snapshot, err := f.backup.Export(ctx)
		require.NoError(t, err)
		payload, err := json.Marshal(snapshot)
		require.NoError(t, err)
		request, err := DecodeRestoreRequest(payload)
		require.NoError(t, err)

		result, err := f.backup.Restore(ctx, request)
		require.NoError(t, err)
		assert.Equal(t, 2, result.Restored)
		assert.Equal(t, "2 links restored", result.Message)

		after := f.storedLinks(t)
		assert.Equal(t, before, withoutIDs(after))
		profileAfter, err := f.profiles.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, profileBefore, profileAfter)
	}
}

func TestRestoreAppliesFieldDefaults(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t)

	request, err := DecodeRestoreRequest([]byte(`{"links":[{"url":"http://x"}]}`))
	require.NoError(t, err)
	result, err := f.backup.Restore(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Restored)

	stored := f.storedLinks(t)
	require.Len(t, stored, 1)
	assert.Equal(t, "http://x", stored[0].URL)
	assert.Equal(t, "other", stored[0].Platform)
	assert.Equal(t, "unknown", stored[0].AddedBy)
	assert.Equal(t, "2026-10-15", stored[0].DateAdded)
	assert.Equal(t, links.DefaultRating, stored[0].Rating)
	assert.False(t, stored[0].Liked)
	assert.False(t, stored[0].Disliked)
	assert.Equal(t, "", stored[0].Memo)

	profile, err := f.profiles.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, customers.DefaultCustomerName, profile.CustomerName)
	assert.Equal(t, "", profile.MoveInDate)
}

func TestRestoreRegeneratesIDs(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t)

	request, err := DecodeRestoreRequest([]byte(`{"links":[{"id":900,"url":"http://x","platform":"p","added_by":"u"}]}`))
	require.NoError(t, err)
	_, err = f.backup.Restore(context.Background(), request)
	require.NoError(t, err)

	stored := f.storedLinks(t)
	require.Len(t, stored, 1)
	assert.NotEqual(t, int64(900), stored[0].ID)
	assert.Greater(t, stored[0].ID, int64(2))
}

func TestRestoreAcceptsLegacyBooleansAndCustomerID(t *testing.T) {
	f := newFixture(t, false)

	legacy := `{
		"backup_date": "2025-07-01T10:00:00.000000",
		"links": [
			{"id": 3, "url": "http://legacy", "platform": "siteA", "added_by": "alice",
			 "date_added": "2025-06-30", "rating": 4, "liked": 0, "disliked": 1, "memo": "near park",
			 "customer_name": "000", "move_in_date": ""}
		],
		"customer_info": {"id": 7, "customer_name": "Legacy", "move_in_date": "2025-09"}
	}`
	request, err := DecodeRestoreRequest([]byte(legacy))
	require.NoError(t, err)
	_, err = f.backup.Restore(context.Background(), request)
	require.NoError(t, err)

	stored := f.storedLinks(t)
	require.Len(t, stored, 1)
	assert.False(t, stored[0].Liked)
	assert.True(t, stored[0].Disliked)
	assert.Equal(t, 4, stored[0].Rating)
	assert.Equal(t, "2025-06-30", stored[0].DateAdded)

	profile, err := f.profiles.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Legacy", profile.CustomerName)
	assert.Equal(t, int64(customers.ProfileID), profile.ID)
}

func TestRestoreKeepsReactionsExclusive(t *testing.T) {
	f := newFixture(t, false)

	request, err := DecodeRestoreRequest([]byte(`{"links":[{"url":"http://x","liked":true,"disliked":true}]}`))
	require.NoError(t, err)
	_, err = f.backup.Restore(context.Background(), request)
	require.NoError(t, err)

	stored := f.storedLinks(t)
	require.Len(t, stored, 1)
	assert.True(t, stored[0].Liked)
	assert.False(t, stored[0].Disliked)
}

func TestRestoreRejectsSnapshotWithoutLinks(t *testing.T) {
	f := newFixture(t, false)
	f.seed(t)

	for _, body := range []string{`{}`, `{"links":null}`, `{"customer_info":{}}`} {
		_, err := DecodeRestoreRequest([]byte(body))
		assert.True(t, failures.IsValidation(err), "body %s", body)
	}

	_, err := f.backup.Restore(context.Background(), RestoreRequest{})
	assert.True(t, failures.IsValidation(err))
	assert.Len(t, f.storedLinks(t), 2, "rejected restore must not touch existing rows")
}

func TestDecodeRejectsMalformedSnapshots(t *testing.T) {
	testCases := map[string]string{
		"not-json":        `links`,
		"links-object":    `{"links":{"url":"http://x"}}`,
		"entry-scalar":    `{"links":["http://x"]}`,
		"rating-text":     `{"links":[{"url":"http://x","rating":"five"}]}`,
		"liked-text":      `{"links":[{"url":"http://x","liked":"maybe"}]}`,
		"rating-overflow": `{"links":[{"url":"http://x","rating":1e30}]}`,
		"rating-negative": `{"links":[{"url":"http://x","rating":-1e30}]}`,
		"top-level-array": `[{"links":[]}]`,
	}
	for name, body := range testCases {
		_, err := DecodeRestoreRequest([]byte(body))
		assert.True(t, failures.IsValidation(err), name)
	}
}

func TestParseRatingRange(t *testing.T) {
	request, err := ParseRestoreRequest(map[string]any{"links": []any{map[string]any{"url": "http://x", "rating": 4.7}}})
	require.NoError(t, err)
	require.NotNil(t, request.Links[0].Rating)
	assert.Equal(t, 4, *request.Links[0].Rating)

	_, err = ParseRestoreRequest(map[string]any{"links": []any{map[string]any{"url": "http://x", "rating": 1e30}}})
	assert.True(t, failures.IsValidation(err))
	assert.Contains(t, err.Error(), "out of range")
}

func TestRestoreEmptyLinksClearsTable(t *testing.T) {
	f := newFixture(t, true)
	f.seed(t)

	request, err := DecodeRestoreRequest([]byte(`{"links":[]}`))
	require.NoError(t, err)
	result, err := f.backup.Restore(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Restored)
	assert.Empty(t, f.storedLinks(t))
}

func TestRestoreFailureMidSequence(t *testing.T) {
	testCases := []struct {
		name          string
		transactional bool
		wantLinks     int
		wantCustomer  string
	}{
		{name: "non-transactional leaves partial state", transactional: false, wantLinks: 0, wantCustomer: customers.DefaultCustomerName},
		{name: "transactional rolls back", transactional: true, wantLinks: 2, wantCustomer: "Choi family"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			f := newFixture(t, testCase.transactional)
			f.seed(t)
			require.NoError(t, f.db.Exec(`CREATE TRIGGER reject_link_insert BEFORE INSERT ON links
BEGIN
	SELECT RAISE(ABORT, 'link inserts rejected');
END`).Error)

			request, err := DecodeRestoreRequest([]byte(`{"links":[{"url":"http://x","platform":"p","added_by":"u"}]}`))
			require.NoError(t, err)
			_, err = f.backup.Restore(context.Background(), request)
			require.Error(t, err)
			assert.True(t, failures.IsStorage(err))
			assert.Contains(t, err.Error(), "backup.restore.insert_links_failed")

			assert.Len(t, f.storedLinks(t), testCase.wantLinks)
			profile, err := f.profiles.Get(context.Background())
			require.NoError(t, err)
			assert.Equal(t, testCase.wantCustomer, profile.CustomerName)
		})
	}
}

type failingConnector struct{}

func (failingConnector) Connect(context.Context) (*gorm.DB, error) {
	return nil, errors.New("connection refused")
}

func TestConnectFailuresAreStorageErrors(t *testing.T) {
	service, err := NewService(ServiceConfig{Connector: failingConnector{}, Columns: &database.Adapter{}})
	require.NoError(t, err)

	_, err = service.Export(context.Background())
	assert.True(t, failures.IsStorage(err))

	_, err = service.Restore(context.Background(), RestoreRequest{Links: []LinkRecord{}})
	assert.True(t, failures.IsStorage(err))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceConfig{})
	assert.Error(t, err)
	_, err = NewService(ServiceConfig{Connector: failingConnector{}})
	assert.Error(t, err)
}
