package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"checkin-desk/config"
	"checkin-desk/internal/model"
	"checkin-desk/internal/repository"
)

// ── 时段模块业务错误 ──

var (
	ErrAttendanceClosed = errors.New("attendance is closed today")
	ErrNoLedgerRoute    = errors.New("no ledger collection configured for this section")
	ErrUnknownSection   = errors.New("unknown section")
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04:05"
)

var thaiWeekday = map[time.Weekday]string{
	time.Monday:    "จันทร์",
	time.Tuesday:   "อังคาร",
	time.Wednesday: "พุธ",
	time.Thursday:  "พฤหัสบดี",
	time.Friday:    "ศุกร์",
}

var thaiSession = map[string]string{
	model.SessionMorning:   "เช้า",
	model.SessionAfternoon: "บ่าย",
}

// LogKey 一个日期 + 时段对应的签到表
type LogKey struct {
	Ref     repository.TableRef
	Date    string // YYYY-MM-DD
	Session string // Morning | Afternoon
}

// SessionContext 某一时刻推导出的完整时段信息，每次签到前重新推导
type SessionContext struct {
	Now       time.Time
	Date      string
	Weekday   time.Weekday
	Session   string
	Section   string // 如 tue_afternoon
	Cutoff    time.Duration
	RosterKey repository.TableRef
	LogKey    LogKey
}

// CutoffString 迟到线 HH:MM:SS
func (s *SessionContext) CutoffString() string {
	return formatClock(s.Cutoff)
}

// SessionClock 由时间戳推导上下午时段、迟到线、名单表与签到表
// 全系统使用同一个固定时区
type SessionClock struct {
	loc             *time.Location
	noon            time.Duration
	morningCutoff   time.Duration
	afternoonCutoff time.Duration

	naming            string
	rosterCollection  string
	ledgerDefault     string
	ledgerCollections map[string]string
}

// NewSessionClock 从配置构建 SessionClock
func NewSessionClock(cfg *config.Config) (*SessionClock, error) {
	loc, err := time.LoadLocation(cfg.Session.Timezone)
	if err != nil {
		return nil, fmt.Errorf("加载时区失败: %w", err)
	}
	noon, err := parseClock(cfg.Session.Noon)
	if err != nil {
		return nil, err
	}
	mc, err := parseClock(cfg.Session.MorningCutoff)
	if err != nil {
		return nil, err
	}
	ac, err := parseClock(cfg.Session.AfternoonCutoff)
	if err != nil {
		return nil, err
	}

	return &SessionClock{
		loc:               loc,
		noon:              noon,
		morningCutoff:     mc,
		afternoonCutoff:   ac,
		naming:            cfg.Roster.Naming,
		rosterCollection:  cfg.Roster.Collection,
		ledgerDefault:     cfg.Ledger.DefaultCollection,
		ledgerCollections: cfg.Ledger.Collections,
	}, nil
}

// Location 系统时区
func (c *SessionClock) Location() *time.Location { return c.loc }

// SessionAndCutoff 严格早于正午为上午，否则为下午
func (c *SessionClock) SessionAndCutoff(timeOfDay time.Duration) (string, time.Duration) {
	if timeOfDay < c.noon {
		return model.SessionMorning, c.morningCutoff
	}
	return model.SessionAfternoon, c.afternoonCutoff
}

// RosterKeyForSession 星期 + 时段 → 名单工作表；周末返回 ErrAttendanceClosed
func (c *SessionClock) RosterKeyForSession(date time.Time, session string) (repository.TableRef, error) {
	wd := date.Weekday()
	if isWeekend(wd) {
		return repository.TableRef{}, ErrAttendanceClosed
	}

	var name string
	if c.naming == "english" {
		name = wd.String() + " " + session
	} else {
		name = thaiWeekday[wd] + thaiSession[session]
	}
	return repository.TableRef{Collection: c.rosterCollection, Table: name}, nil
}

// SectionKey 星期 + 时段的英文键，例如 mon_morning
func SectionKey(wd time.Weekday, session string) string {
	return strings.ToLower(wd.String()[:3]) + "_" + strings.ToLower(session)
}

// LogKeyForSession 日期 + section → 签到表
//
// section 在 ledger.collections 中有独立集合时，表名为日期；
// 否则落到默认集合，表名为 "<section> <date>"
func (c *SessionClock) LogKeyForSession(date time.Time, section string) (LogKey, error) {
	session, err := sessionOfSection(section)
	if err != nil {
		return LogKey{}, err
	}
	day := date.In(c.loc).Format(dateLayout)
	key := LogKey{Date: day, Session: session}

	if coll, ok := c.ledgerCollections[section]; ok && coll != "" {
		key.Ref = repository.TableRef{Collection: coll, Table: day}
		return key, nil
	}
	if c.ledgerDefault == "" {
		return LogKey{}, fmt.Errorf("%w: %s", ErrNoLedgerRoute, section)
	}
	key.Ref = repository.TableRef{Collection: c.ledgerDefault, Table: section + " " + day}
	return key, nil
}

// Current 推导 now 所在的时段；周末在查名单之前即拒绝
func (c *SessionClock) Current(now time.Time) (*SessionContext, error) {
	local := now.In(c.loc)
	if isWeekend(local.Weekday()) {
		return nil, ErrAttendanceClosed
	}

	session, cutoff := c.SessionAndCutoff(clockOf(local))
	rosterKey, err := c.RosterKeyForSession(local, session)
	if err != nil {
		return nil, err
	}
	section := SectionKey(local.Weekday(), session)
	logKey, err := c.LogKeyForSession(local, section)
	if err != nil {
		return nil, err
	}

	return &SessionContext{
		Now:       local,
		Date:      local.Format(dateLayout),
		Weekday:   local.Weekday(),
		Session:   session,
		Section:   section,
		Cutoff:    cutoff,
		RosterKey: rosterKey,
		LogKey:    logKey,
	}, nil
}

// StatusAt 不晚于迟到线（按秒计）为 On time，否则 Late
func (c *SessionClock) StatusAt(sc *SessionContext, at time.Time) string {
	if clockOf(at.In(c.loc)) <= sc.Cutoff {
		return model.StatusOnTime
	}
	return model.StatusLate
}

// ── 内部辅助方法 ──

func isWeekend(wd time.Weekday) bool {
	return wd == time.Saturday || wd == time.Sunday
}

// clockOf 当日时刻，截断到秒
func clockOf(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}

func parseClock(v string) (time.Duration, error) {
	t, err := time.Parse(clockLayout, v)
	if err != nil {
		return 0, fmt.Errorf("时刻 %q 格式应为 HH:MM:SS: %w", v, err)
	}
	return clockOf(t), nil
}

func formatClock(d time.Duration) string {
	d = d.Truncate(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func sessionOfSection(section string) (string, error) {
	switch {
	case strings.HasSuffix(section, "_morning"):
		return model.SessionMorning, nil
	case strings.HasSuffix(section, "_afternoon"):
		return model.SessionAfternoon, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownSection, section)
	}
}
