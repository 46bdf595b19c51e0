package devserver

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kingrea/boostify/internal/attendance"
)

// DevPassword is the password every seeded assistant signs in with.
const DevPassword = "boostify"

var (
	errBadCredentials = errors.New("invalid assistant code or password")
	errWrongPassword  = errors.New("current password is incorrect")
)

type user struct {
	id       int
	code     string
	name     string
	password string
	imageURL string
}

type checkIn struct {
	id   int
	code string
	at   time.Time
}

// Store is the in-memory data behind the dev server.
type Store struct {
	mu       sync.RWMutex
	users    map[string]*user
	tokens   map[string]string
	checkIns []checkIn
	newToken func() string
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		users:    map[string]*user{},
		tokens:   map[string]string{},
		newToken: uuid.NewString,
	}
}

var seedAssistants = []struct{ code, name string }{
	{"AL", "Alice Lestari"},
	{"BO", "Bob Ongko"},
	{"CA", "Cahya Amelia"},
	{"DW", "Dewi Wulandari"},
	{"EK", "Eka Kurnia"},
	{"FR", "Fajar Rahman"},
	{"GS", "Gita Savitri"},
	{"HP", "Hendra Pratama"},
	{"IN", "Intan Nuraini"},
	{"JS", "Joko Santoso"},
	{"KM", "Kevin Mahendra"},
	{"LA", "Laras Ayu"},
}

// Seed fills the store with assistants and two weeks of check-ins ending
// on the day of now. The data depends only on now.
func (s *Store) Seed(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, a := range seedAssistants {
		s.users[a.code] = &user{
			id:       i + 1,
			code:     a.code,
			name:     a.name,
			password: DevPassword,
			imageURL: attendance.DefaultAvatar,
		}
	}
	today := now.UTC().Truncate(24 * time.Hour)
	for day := 13; day >= 0; day-- {
		date := today.AddDate(0, 0, -day)
		for i, a := range seedAssistants {
			// skip a deterministic subset so totals differ per assistant
			if (i*7+day*3)%5 == 0 || (i > 8 && day%2 == 1) {
				continue
			}
			at := date.Add(7*time.Hour + time.Duration(i*4+day)*time.Minute)
			if at.After(now) {
				continue
			}
			s.addCheckInLocked(a.code, at)
		}
	}
}

// AddUser registers an assistant. Existing codes are replaced.
func (s *Store) AddUser(code, name, password string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code = strings.ToUpper(strings.TrimSpace(code))
	s.users[code] = &user{
		id:       len(s.users) + 1,
		code:     code,
		name:     name,
		password: password,
		imageURL: attendance.DefaultAvatar,
	}
}

// AddCheckIn records an attendance for code at t.
func (s *Store) AddCheckIn(code string, at time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addCheckInLocked(strings.ToUpper(code), at)
}

func (s *Store) addCheckInLocked(code string, at time.Time) {
	s.checkIns = append(s.checkIns, checkIn{id: len(s.checkIns) + 1, code: code, at: at.UTC()})
}

// IssueToken signs code in without a password and returns its token.
func (s *Store) IssueToken(code string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToUpper(code)]
	if !ok {
		return "", false
	}
	token := s.newToken()
	s.tokens[token] = u.code
	return token, true
}

// RevokeTokens invalidates every issued token.
func (s *Store) RevokeTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = map[string]string{}
}

func (s *Store) authenticate(code, password string) (attendance.Profile, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[strings.ToUpper(strings.TrimSpace(code))]
	if !ok || u.password != password {
		return attendance.Profile{}, "", errBadCredentials
	}
	token := s.newToken()
	s.tokens[token] = u.code
	return u.profile(), token, nil
}

func (s *Store) userForToken(token string) (attendance.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	code, ok := s.tokens[token]
	if !ok {
		return attendance.Profile{}, false
	}
	u, ok := s.users[code]
	if !ok {
		return attendance.Profile{}, false
	}
	return u.profile(), true
}

func (u *user) profile() attendance.Profile {
	return attendance.Profile{ID: u.id, Name: u.name, AssistantCode: u.code, ImageURL: u.imageURL}
}

// attendances returns check-ins newest first, optionally restricted to
// one UTC day, sliced to page.
func (s *Store) attendances(page, size int, day time.Time) ([]attendance.Attendance, int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]attendance.Attendance, 0, len(s.checkIns))
	for i := len(s.checkIns) - 1; i >= 0; i-- {
		c := s.checkIns[i]
		if !day.IsZero() && !sameUTCDay(c.at, day) {
			continue
		}
		name := ""
		if u, ok := s.users[c.code]; ok {
			name = u.name
		}
		rows = append(rows, attendance.Attendance{
			ID:            c.id,
			AssistantCode: c.code,
			Name:          name,
			Time:          c.at.Format(time.RFC3339),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Time > rows[j].Time })
	pageRows, totalPages := paginate(rows, page, size)
	return pageRows, len(rows), totalPages
}

func (s *Store) recap(page, size int) ([]attendance.RecapEntry, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	totals := map[string]int{}
	for _, c := range s.checkIns {
		totals[c.code]++
	}
	rows := make([]attendance.RecapEntry, 0, len(s.users))
	for _, u := range s.users {
		rows = append(rows, attendance.RecapEntry{
			AssistantCode:   u.code,
			Name:            u.name,
			TotalAttendance: totals[u.code],
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalAttendance != rows[j].TotalAttendance {
			return rows[i].TotalAttendance > rows[j].TotalAttendance
		}
		return rows[i].AssistantCode < rows[j].AssistantCode
	})
	return paginate(rows, page, size)
}

func (s *Store) personalRecords(code string) []attendance.PersonalRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []attendance.PersonalRecord
	for i := len(s.checkIns) - 1; i >= 0; i-- {
		c := s.checkIns[i]
		if c.code != code {
			continue
		}
		out = append(out, attendance.PersonalRecord{
			Time:    c.at.Format("Monday, 02 January 2006"),
			RawTime: c.at.Format("2006-01-02T15:04:05.000Z"),
		})
	}
	return out
}

func (s *Store) setImage(code, url string) attendance.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[code]
	u.imageURL = url
	return u.profile()
}

func (s *Store) changePassword(code, current, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[code]
	if u.password != current {
		return errWrongPassword
	}
	u.password = next
	return nil
}

func paginate[T any](rows []T, page, size int) ([]T, int) {
	totalPages := (len(rows) + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	// compare page counts first; (page-1)*size overflows for huge pages
	if page < 1 || page-1 >= (len(rows)+size-1)/size {
		return []T{}, totalPages
	}
	start := (page - 1) * size
	end := start + size
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end], totalPages
}

func sameUTCDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
