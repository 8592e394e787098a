// Package entitlement decides whether a user may make a download request:
// premium users always may, everyone else gets a fixed number per UTC day.
package entitlement

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/linkdrop/linkdrop/internal/logger"
	"github.com/linkdrop/linkdrop/internal/store"
)

const dateLayout = "2006-01-02"

var ErrInvalidUserID = errors.New("invalid user id")

type Decision int

const (
	Denied Decision = iota
	Allowed
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "denied"
}

// PremiumRegistry is the persisted shape of the premium document.
type PremiumRegistry struct {
	PremiumUsers []int64 `json:"premium_users"`
}

func (r PremiumRegistry) contains(userID int64) bool {
	for _, id := range r.PremiumUsers {
		if id == userID {
			return true
		}
	}
	return false
}

// UsageRecord counts one user's free requests on Date.
type UsageRecord struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// UsageTable is the persisted shape of the usage document, keyed by decimal user id.
type UsageTable map[string]UsageRecord

// Normalize returns rec as it applies on today: a record from any other day
// starts over at zero.
func Normalize(rec UsageRecord, today string) UsageRecord {
	if rec.Date != today {
		return UsageRecord{Date: today, Count: 0}
	}
	if rec.Count < 0 {
		rec.Count = 0
	}
	return rec
}

type Service struct {
	store store.Store
	limit int
	now   func() time.Time
	locks *KeyedLocker
}

type Option func(*Service)

// WithClock overrides the wall clock used for the day boundary.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func NewService(st store.Store, freeDailyLimit int, opts ...Option) *Service {
	s := &Service{
		store: st,
		limit: freeDailyLimit,
		now:   time.Now,
		locks: NewKeyedLocker(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Limit() int {
	return s.limit
}

func (s *Service) today() string {
	return s.now().UTC().Format(dateLayout)
}

func (s *Service) loadPremium(ctx context.Context) PremiumRegistry {
	reg := store.LoadJSON(ctx, s.store, store.KeyPremium, PremiumRegistry{PremiumUsers: []int64{}})
	if reg.PremiumUsers == nil {
		reg.PremiumUsers = []int64{}
	}
	return reg
}

func (s *Service) loadUsage(ctx context.Context) UsageTable {
	table := store.LoadJSON(ctx, s.store, store.KeyUsage, UsageTable{})
	if table == nil {
		table = UsageTable{}
	}
	return table
}

func (s *Service) IsPremium(ctx context.Context, userID int64) bool {
	return s.loadPremium(ctx).contains(userID)
}

// PremiumUsers returns the premium ids in ascending order.
func (s *Service) PremiumUsers(ctx context.Context) []int64 {
	ids := append([]int64(nil), s.loadPremium(ctx).PremiumUsers...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Service) GrantPremium(ctx context.Context, userID int64) error {
	unlock := s.locks.Lock(store.KeyPremium)
	defer unlock()

	reg := s.loadPremium(ctx)
	if reg.contains(userID) {
		return nil
	}
	reg.PremiumUsers = append(reg.PremiumUsers, userID)
	if err := store.SaveJSON(ctx, s.store, store.KeyPremium, reg); err != nil {
		return err
	}

	logger.Info("Premium granted", map[string]interface{}{
		"user_id": userID,
	})
	return nil
}

func (s *Service) RevokePremium(ctx context.Context, userID int64) error {
	unlock := s.locks.Lock(store.KeyPremium)
	defer unlock()

	reg := s.loadPremium(ctx)
	if !reg.contains(userID) {
		return nil
	}
	kept := reg.PremiumUsers[:0]
	for _, id := range reg.PremiumUsers {
		if id != userID {
			kept = append(kept, id)
		}
	}
	reg.PremiumUsers = kept
	if err := store.SaveJSON(ctx, s.store, store.KeyPremium, reg); err != nil {
		return err
	}

	logger.Info("Premium revoked", map[string]interface{}{
		"user_id": userID,
	})
	return nil
}

// Authorize admits premium users unconditionally and otherwise consumes one
// unit of today's free quota. A denied request leaves the usage document untouched.
func (s *Service) Authorize(ctx context.Context, userID int64) (Decision, error) {
	if s.IsPremium(ctx, userID) {
		return Allowed, nil
	}

	unlock := s.locks.Lock(store.KeyUsage)
	defer unlock()

	table := s.loadUsage(ctx)
	key := strconv.FormatInt(userID, 10)
	rec := Normalize(table[key], s.today())

	if rec.Count >= s.limit {
		logger.Debug("Free quota exhausted", map[string]interface{}{
			"user_id": userID,
			"count":   rec.Count,
			"limit":   s.limit,
		})
		return Denied, nil
	}

	rec.Count++
	table[key] = rec
	if err := store.SaveJSON(ctx, s.store, store.KeyUsage, table); err != nil {
		return Denied, err
	}
	return Allowed, nil
}

// RemainingToday returns how many free requests userID has left today.
// Premium status is not considered; callers report that separately.
func (s *Service) RemainingToday(ctx context.Context, userID int64) int {
	table := s.loadUsage(ctx)
	rec := Normalize(table[strconv.FormatInt(userID, 10)], s.today())

	left := s.limit - rec.Count
	if left < 0 {
		return 0
	}
	return left
}

// ParseUserID parses a decimal user id as typed in an admin command.
func ParseUserID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, ErrInvalidUserID
	}
	return id, nil
}
