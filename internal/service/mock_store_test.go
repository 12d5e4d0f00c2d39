package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"checkin-desk/config"
	"checkin-desk/internal/model"
	"checkin-desk/internal/repository"
)

// ── Mock TableStore ──

type mockTableStore struct {
	mu     sync.Mutex
	tables map[repository.TableRef][][]string

	readErr    error
	appendErr  error
	replaceErr error
	reads      int
	replaces   int
}

func newMockTableStore() *mockTableStore {
	return &mockTableStore{tables: make(map[repository.TableRef][][]string)}
}

func (m *mockTableStore) put(ref repository.TableRef, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[ref] = rows
}

func (m *mockTableStore) rows(ref repository.TableRef) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return cloneTestRows(m.tables[ref])
}

func (m *mockTableStore) ReadAll(_ context.Context, ref repository.TableRef) ([][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.readErr != nil {
		return nil, m.readErr
	}
	rows, ok := m.tables[ref]
	if !ok {
		return nil, repository.ErrTableNotFound
	}
	return cloneTestRows(rows), nil
}

func (m *mockTableStore) Append(ctx context.Context, ref repository.TableRef, row []string) error {
	return m.AppendMany(ctx, ref, [][]string{row})
}

func (m *mockTableStore) AppendMany(_ context.Context, ref repository.TableRef, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return m.appendErr
	}
	if _, ok := m.tables[ref]; !ok {
		return repository.ErrTableNotFound
	}
	m.tables[ref] = append(m.tables[ref], cloneTestRows(rows)...)
	return nil
}

func (m *mockTableStore) ReplaceAll(_ context.Context, ref repository.TableRef, rows [][]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.replaces++
	if m.replaceErr != nil {
		return m.replaceErr
	}
	if _, ok := m.tables[ref]; !ok {
		return repository.ErrTableNotFound
	}
	m.tables[ref] = cloneTestRows(rows)
	return nil
}

func (m *mockTableStore) EnsureTable(_ context.Context, ref repository.TableRef, header []string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[ref]; ok {
		return false, nil
	}
	m.tables[ref] = [][]string{append([]string(nil), header...)}
	return true, nil
}

func cloneTestRows(rows [][]string) [][]string {
	if rows == nil {
		return nil
	}
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// ── 测试辅助 ──

var errStoreDown = errors.New("connection refused")

var bangkok = mustLoadLocation("Asia/Bangkok")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// 2026-03-10 为星期二
func tuesdayAt(h, m, s int) time.Time {
	return time.Date(2026, 3, 10, h, m, s, 0, bangkok)
}

func testConfig() *config.Config {
	return &config.Config{
		Session: config.SessionConfig{
			Timezone:        "Asia/Bangkok",
			Noon:            "12:00:00",
			MorningCutoff:   "09:10:00",
			AfternoonCutoff: "13:10:00",
		},
		Roster: config.RosterConfig{
			Backend:    "xlsx",
			Collection: "students",
			Naming:     "thai",
			CacheTTL:   5 * time.Minute,
		},
		Ledger: config.LedgerConfig{
			Backend:           "sqlite",
			DefaultCollection: "attendance",
			CacheTTL:          30 * time.Second,
		},
		Checkin: config.CheckinConfig{Revalidate: true},
		Auth: config.AuthConfig{
			JWTSecret:      "test-secret-key-for-unit-testing-2026",
			AccessTokenTTL: 15 * time.Minute,
		},
	}
}

func newTestClock(cfg *config.Config) *SessionClock {
	clock, err := NewSessionClock(cfg)
	if err != nil {
		panic(err)
	}
	return clock
}

var tuesdayMorningRoster = repository.TableRef{Collection: "students", Table: "อังคารเช้า"}

var tuesdayMorningLedger = repository.TableRef{Collection: "attendance", Table: "tue_morning 2026-03-10"}

func sampleRosterRows() [][]string {
	return [][]string{
		{"Student ID", "Full Name", "Seat"},
		{"1000000001", "Alice Anan", "A1"},
		{"1000000002", "Bee Boonmee", "B2"},
		{"1000000003", "Chai Charoen", ""},
		{"1000000004", "Dao Duangdee", "c4"},
	}
}

type testEnv struct {
	cfg     *config.Config
	roster  *mockTableStore
	ledger  *mockTableStore
	cache   ReadCache
	clock   *SessionClock
	svc     *checkinService
	now     time.Time
	ledgers LedgerService
}

func setupTestCheckinService() *testEnv {
	cfg := testConfig()
	env := &testEnv{
		cfg:    cfg,
		roster: newMockTableStore(),
		ledger: newMockTableStore(),
		cache:  NewMemoryCache(),
		clock:  newTestClock(cfg),
		now:    tuesdayAt(9, 5, 0),
	}
	env.roster.put(tuesdayMorningRoster, sampleRosterRows())

	logger := zap.NewNop()
	rosterSvc := NewRosterService(env.roster, env.cache, cfg.Roster.CacheTTL, logger)
	env.ledgers = NewLedgerService(env.ledger, env.cache, cfg.Ledger.CacheTTL, logger)
	env.svc = NewCheckinService(env.clock, rosterSvc, env.ledgers, cfg.Checkin.Revalidate, logger).(*checkinService)
	env.svc.now = func() time.Time { return env.now }
	return env
}

func ledgerRecord(date, session, id, name, seat, status string) []string {
	return model.AttendanceRecord{
		Date: date, Session: session, StudentID: id, FullName: name, Seat: seat, Time: "09:00:00", Status: status,
	}.Row()
}
