package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"lab-reservation-backend/internal/apperr"
	"lab-reservation-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB
	// Transaction runs fn against a store bound to a single database transaction.
	Transaction(ctx context.Context, fn func(tx Store) error) error

	GetEquipment(ctx context.Context, id uint) (*model.Equipment, error)
	// LockEquipment loads an equipment row and, on postgres, locks it until the
	// surrounding transaction ends. Reservation writes for one item serialize on it.
	LockEquipment(ctx context.Context, id uint) (*model.Equipment, error)
	ListEquipment(ctx context.Context) ([]model.Equipment, error)

	GetUser(ctx context.Context, id uint) (*model.User, error)
	GetTeam(ctx context.Context, id uint) (*model.Team, error)
	IsTeamMember(ctx context.Context, teamID, userID uint) (bool, error)
	TeamIDsForUser(ctx context.Context, userID uint) ([]uint, error)

	FindOverlapping(ctx context.Context, q OverlapQuery) ([]model.Reservation, error)
	CreateReservation(ctx context.Context, r *model.Reservation) error
	GetReservation(ctx context.Context, id uint) (*model.Reservation, error)
	ListReservations(ctx context.Context, f ReservationFilter) ([]model.Reservation, error)
	UpdateReservationStatus(ctx context.Context, id uint, status model.ReservationStatus, now time.Time) (*model.Reservation, error)
	ListDueReminders(ctx context.Context, from, to time.Time) ([]model.Reservation, error)
	MarkReminded(ctx context.Context, id uint, at time.Time) error

	CreateNotification(ctx context.Context, n *model.Notification) error
	ListNotifications(ctx context.Context, userID uint) ([]model.Notification, error)
	MarkNotificationRead(ctx context.Context, id, userID uint) error

	SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeletePushSubscription(ctx context.Context, endpoint string, userID uint) error
	PushSubscriptions(ctx context.Context, userID uint) ([]model.PushSubscription, error)
}

// OverlapQuery selects reservations of one equipment item whose interval
// intersects [Start, End) and whose status is in Statuses.
type OverlapQuery struct {
	EquipmentID uint
	Start       time.Time
	End         time.Time
	Statuses    []model.ReservationStatus
	ExcludeID   uint
}

// ReservationFilter narrows ListReservations. Zero values match everything.
// When UserID is set, reservations of the user's teams (TeamIDs) are included.
type ReservationFilter struct {
	UserID   uint
	TeamIDs  []uint
	Statuses []model.ReservationStatus
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

func (s *gormStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormStore{db: tx})
	})
}

// exclusionViolation is the postgres SQLSTATE raised by reservations_no_overlap.
const exclusionViolation = "23P01"

// overlapConflict turns an exclusion constraint violation into a conflict error
// and wraps anything else with context.
func overlapConflict(err error, format string, args ...any) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == exclusionViolation {
		return apperr.Conflict("equipment is already reserved for an overlapping period (%s)", pgErr.ConstraintName)
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(format, args...)
	}
	return err
}

func (s *gormStore) GetEquipment(ctx context.Context, id uint) (*model.Equipment, error) {
	var equipment model.Equipment
	if err := s.db.WithContext(ctx).First(&equipment, id).Error; err != nil {
		return nil, notFound(err, "equipment %d", id)
	}
	return &equipment, nil
}

func (s *gormStore) LockEquipment(ctx context.Context, id uint) (*model.Equipment, error) {
	query := s.db.WithContext(ctx)
	if s.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var equipment model.Equipment
	if err := query.First(&equipment, id).Error; err != nil {
		return nil, notFound(err, "equipment %d", id)
	}
	return &equipment, nil
}

func (s *gormStore) ListEquipment(ctx context.Context) ([]model.Equipment, error) {
	var items []model.Equipment
	if err := s.db.WithContext(ctx).Order("name").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	return items, nil
}

func (s *gormStore) GetUser(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, notFound(err, "user %d", id)
	}
	return &user, nil
}

func (s *gormStore) GetTeam(ctx context.Context, id uint) (*model.Team, error) {
	var team model.Team
	if err := s.db.WithContext(ctx).Preload("Members").First(&team, id).Error; err != nil {
		return nil, notFound(err, "team %d", id)
	}
	return &team, nil
}

func (s *gormStore) IsTeamMember(ctx context.Context, teamID, userID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Table("team_members").
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check membership of user %d in team %d: %w", userID, teamID, err)
	}
	return count > 0, nil
}

func (s *gormStore) TeamIDsForUser(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).
		Table("team_members").
		Where("user_id = ?", userID).
		Pluck("team_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load teams of user %d: %w", userID, err)
	}
	return ids, nil
}

// FindOverlapping returns candidate reservations using the half-open overlap
// predicate start < q.End AND end > q.Start.
func (s *gormStore) FindOverlapping(ctx context.Context, q OverlapQuery) ([]model.Reservation, error) {
	query := s.db.WithContext(ctx).
		Where("equipment_id = ?", q.EquipmentID).
		Where("start_date < ? AND end_date > ?", q.End, q.Start)
	if len(q.Statuses) > 0 {
		query = query.Where("status IN ?", q.Statuses)
	}
	if q.ExcludeID != 0 {
		query = query.Where("id <> ?", q.ExcludeID)
	}

	var reservations []model.Reservation
	if err := query.Order("start_date").Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("failed to query reservations for equipment %d: %w", q.EquipmentID, err)
	}
	return reservations, nil
}

func (s *gormStore) CreateReservation(ctx context.Context, r *model.Reservation) error {
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(r).Error; err != nil {
		return overlapConflict(err, "failed to create reservation")
	}
	return nil
}

func (s *gormStore) preloaded(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Preload("Equipment").Preload("User").Preload("Team")
}

func (s *gormStore) GetReservation(ctx context.Context, id uint) (*model.Reservation, error) {
	var reservation model.Reservation
	if err := s.preloaded(ctx).First(&reservation, id).Error; err != nil {
		return nil, notFound(err, "reservation %d", id)
	}
	return &reservation, nil
}

func (s *gormStore) ListReservations(ctx context.Context, f ReservationFilter) ([]model.Reservation, error) {
	query := s.preloaded(ctx)
	if f.UserID != 0 {
		if len(f.TeamIDs) > 0 {
			query = query.Where("user_id = ? OR team_id IN ?", f.UserID, f.TeamIDs)
		} else {
			query = query.Where("user_id = ?", f.UserID)
		}
	}
	if len(f.Statuses) > 0 {
		query = query.Where("status IN ?", f.Statuses)
	}

	var reservations []model.Reservation
	if err := query.Order("start_date").Find(&reservations).Error; err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}

// UpdateReservationStatus writes the new status and updated_at in one statement
// and returns the reloaded record with its associations.
func (s *gormStore) UpdateReservationStatus(ctx context.Context, id uint, status model.ReservationStatus, now time.Time) (*model.Reservation, error) {
	result := s.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": now})
	if result.Error != nil {
		return nil, overlapConflict(result.Error, "failed to update status of reservation %d", id)
	}
	if result.RowsAffected == 0 {
		return nil, apperr.NotFound("reservation %d", id)
	}
	return s.GetReservation(ctx, id)
}

func (s *gormStore) ListDueReminders(ctx context.Context, from, to time.Time) ([]model.Reservation, error) {
	var reservations []model.Reservation
	err := s.preloaded(ctx).
		Where("status = ?", model.StatusApproved).
		Where("reminder_sent_at IS NULL").
		Where("start_date >= ? AND start_date <= ?", from, to).
		Order("start_date").
		Find(&reservations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list due reminders: %w", err)
	}
	return reservations, nil
}

func (s *gormStore) MarkReminded(ctx context.Context, id uint, at time.Time) error {
	return s.db.WithContext(ctx).
		Model(&model.Reservation{}).
		Where("id = ?", id).
		UpdateColumn("reminder_sent_at", at).Error
}

func (s *gormStore) CreateNotification(ctx context.Context, n *model.Notification) error {
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to create notification for user %d: %w", n.UserID, err)
	}
	return nil
}

func (s *gormStore) ListNotifications(ctx context.Context, userID uint) ([]model.Notification, error) {
	var notifications []model.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&notifications).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for user %d: %w", userID, err)
	}
	return notifications, nil
}

func (s *gormStore) MarkNotificationRead(ctx context.Context, id, userID uint) error {
	result := s.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if result.Error != nil {
		return fmt.Errorf("failed to mark notification %d read: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperr.NotFound("notification %d", id)
	}
	return nil
}

func (s *gormStore) SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
	}).Create(sub).Error
}

func (s *gormStore) DeletePushSubscription(ctx context.Context, endpoint string, userID uint) error {
	return s.db.WithContext(ctx).
		Where("endpoint = ? AND user_id = ?", endpoint, userID).
		Delete(&model.PushSubscription{}).Error
}

func (s *gormStore) PushSubscriptions(ctx context.Context, userID uint) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to load push subscriptions for user %d: %w", userID, err)
	}
	return subs, nil
}
