package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/mmalikabdul/qnext-antrian-sub000/internal/models"
	"github.com/mmalikabdul/qnext-antrian-sub000/internal/store"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"
)

func (s *Store) ListServices(ctx context.Context, at time.Time) ([]store.ServiceStatus, error) {
	if at.IsZero() {
		at = time.Now()
	}
	local := at.In(s.loc)
	today := models.DateOf(local)

	var holiday bool
	row := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM holidays WHERE date = $1)
	`, today.String())
	if err := row.Scan(&holiday); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, name, code, daily_quota, open_time, close_time
		FROM services
		ORDER BY code ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var statuses []store.ServiceStatus
	for rows.Next() {
		var service models.Service
		if err := rows.Scan(&service.ID, &service.Name, &service.Code, &service.DailyQuota, &service.OpenTime, &service.CloseTime); err != nil {
			return nil, err
		}
		statuses = append(statuses, store.ServiceStatus{
			Service: service,
			Open:    !holiday && store.WithinWindow(service.OpenTime, service.CloseTime, local),
			Holiday: holiday,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return statuses, nil
}

func (s *Store) GetService(ctx context.Context, serviceID int64) (models.Service, error) {
	return lookupService(ctx, s.pool, serviceID)
}

func (s *Store) ListCounters(ctx context.Context) ([]models.Counter, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, status
		FROM counters
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counters []models.Counter
	for rows.Next() {
		var counter models.Counter
		if err := rows.Scan(&counter.ID, &counter.Name, &counter.Status); err != nil {
			return nil, err
		}
		counters = append(counters, counter)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return counters, nil
}

func (s *Store) UpdateCounterStatus(ctx context.Context, counterID int64, status string) (models.Counter, error) {
	var counter models.Counter
	row := s.pool.QueryRow(ctx, `
		UPDATE counters
		SET status = $1
		WHERE id = $2
		RETURNING id, name, status
	`, status, counterID)
	if err := row.Scan(&counter.ID, &counter.Name, &counter.Status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Counter{}, store.ErrCounterNotFound
		}
		return models.Counter{}, err
	}
	return counter, nil
}

func (s *Store) ListHolidays(ctx context.Context, year int) ([]models.Holiday, error) {
	query := `
		SELECT id, date, name
		FROM holidays
	`
	args := []interface{}{}
	if year > 0 {
		query += " WHERE date >= $1 AND date < $2"
		args = append(args,
			models.NewDate(year, time.January, 1).String(),
			models.NewDate(year+1, time.January, 1).String())
	}
	query += " ORDER BY date ASC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []models.Holiday
	for rows.Next() {
		var holiday models.Holiday
		var date time.Time
		if err := rows.Scan(&holiday.ID, &date, &holiday.Name); err != nil {
			return nil, err
		}
		holiday.Date = models.DateOf(date)
		holidays = append(holidays, holiday)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return holidays, nil
}

func (s *Store) DailyStats(ctx context.Context, date models.Date) ([]models.DailyServiceStat, error) {
	if date.IsZero() {
		date = s.today(time.Now())
	}
	rows, err := s.pool.Query(ctx, `
		SELECT d.service_id, sv.name, d.stat_date, d.total_tickets, d.quota_snapshot
		FROM daily_service_stats d
		JOIN services sv ON sv.id = d.service_id
		WHERE d.stat_date = $1
		ORDER BY sv.code ASC
	`, date.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.DailyServiceStat
	for rows.Next() {
		var stat models.DailyServiceStat
		var statDate time.Time
		if err := rows.Scan(&stat.ServiceID, &stat.ServiceName, &statDate, &stat.TotalTickets, &stat.QuotaSnapshot); err != nil {
			return nil, err
		}
		stat.StatDate = models.DateOf(statDate)
		stats = append(stats, stat)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) Login(ctx context.Context, input store.LoginInput) (store.LoginResult, error) {
	var user models.User
	row := s.pool.QueryRow(ctx, `
		SELECT id, name, username, password_hash, role
		FROM users
		WHERE username = $1
	`, input.Username)
	if err := row.Scan(&user.ID, &user.Name, &user.Username, &user.PasswordHash, &user.Role); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.LoginResult{}, store.ErrBadCredentials
		}
		return store.LoginResult{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return store.LoginResult{}, store.ErrBadCredentials
	}

	session := store.Session{
		SessionID: uuid.NewString(),
		UserID:    user.ID,
		Role:      user.Role,
		ExpiresAt: time.Now().UTC().Add(s.sessionTTL),
	}
	if _, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (session_id, user_id, role, expires_at)
		VALUES ($1, $2, $3, $4)
	`, session.SessionID, session.UserID, session.Role, session.ExpiresAt); err != nil {
		return store.LoginResult{}, err
	}
	return store.LoginResult{Session: session, User: user}, nil
}

func (s *Store) GetSession(ctx context.Context, sessionID string) (store.Session, error) {
	var session store.Session
	row := s.pool.QueryRow(ctx, `
		SELECT session_id, user_id, role, expires_at
		FROM sessions
		WHERE session_id = $1
	`, sessionID)
	if err := row.Scan(&session.SessionID, &session.UserID, &session.Role, &session.ExpiresAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return store.Session{}, store.ErrSessionNotFound
		}
		return store.Session{}, err
	}
	if time.Now().UTC().After(session.ExpiresAt) {
		return store.Session{}, store.ErrSessionNotFound
	}
	return session, nil
}
