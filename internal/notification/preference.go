package notification

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Preference holds one user's per-channel, per-category notification
// toggles. The SMS channel is stored but not yet delivered anywhere.
type Preference struct {
	UserID uuid.UUID

	AppAppointments bool
	AppPatients     bool
	AppBilling      bool
	AppPharmacy     bool
	AppSystem       bool

	EmailAppointments bool
	EmailPatients     bool
	EmailBilling      bool
	EmailPharmacy     bool
	EmailSystem       bool

	SMSAppointments bool
	SMSUrgentOnly   bool
}

// DefaultPreference matches the defaults a user gets before ever touching
// their settings: everything on except SMS.
func DefaultPreference(userID uuid.UUID) Preference {
	return Preference{
		UserID:            userID,
		AppAppointments:   true,
		AppPatients:       true,
		AppBilling:        true,
		AppPharmacy:       true,
		AppSystem:         true,
		EmailAppointments: true,
		EmailPatients:     true,
		EmailBilling:      true,
		EmailPharmacy:     true,
		EmailSystem:       true,
		SMSAppointments:   false,
		SMSUrgentOnly:     true,
	}
}

// AllowsApp reports whether the in-app channel is enabled for a category.
// Reminder and system-level categories fall back to the system toggle.
func (p Preference) AllowsApp(t Type) bool {
	switch t {
	case TypeAppointment:
		return p.AppAppointments
	case TypePatient:
		return p.AppPatients
	case TypeBilling:
		return p.AppBilling
	case TypePharmacy:
		return p.AppPharmacy
	default:
		return p.AppSystem
	}
}

// PreferenceStore reads user notification preferences. Users without a
// stored row get the defaults.
type PreferenceStore interface {
	Get(ctx context.Context, userID uuid.UUID) (Preference, error)
	Save(ctx context.Context, p Preference) error
}

type PgPreferenceStore struct {
	pool *pgxpool.Pool
}

func NewPgPreferenceStore(pool *pgxpool.Pool) *PgPreferenceStore {
	return &PgPreferenceStore{pool: pool}
}

func (s *PgPreferenceStore) Get(ctx context.Context, userID uuid.UUID) (Preference, error) {
	var p Preference
	err := s.pool.QueryRow(ctx, `
		SELECT user_id,
		       app_appointments, app_patients, app_billing, app_pharmacy, app_system,
		       email_appointments, email_patients, email_billing, email_pharmacy, email_system,
		       sms_appointments, sms_urgent_only
		FROM notification_preferences
		WHERE user_id = $1
	`, userID).Scan(
		&p.UserID,
		&p.AppAppointments, &p.AppPatients, &p.AppBilling, &p.AppPharmacy, &p.AppSystem,
		&p.EmailAppointments, &p.EmailPatients, &p.EmailBilling, &p.EmailPharmacy, &p.EmailSystem,
		&p.SMSAppointments, &p.SMSUrgentOnly,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DefaultPreference(userID), nil
		}
		return Preference{}, err
	}
	return p, nil
}

func (s *PgPreferenceStore) Save(ctx context.Context, p Preference) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO notification_preferences (
			user_id,
			app_appointments, app_patients, app_billing, app_pharmacy, app_system,
			email_appointments, email_patients, email_billing, email_pharmacy, email_system,
			sms_appointments, sms_urgent_only,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
		ON CONFLICT (user_id) DO UPDATE SET
			app_appointments = EXCLUDED.app_appointments,
			app_patients = EXCLUDED.app_patients,
			app_billing = EXCLUDED.app_billing,
			app_pharmacy = EXCLUDED.app_pharmacy,
			app_system = EXCLUDED.app_system,
			email_appointments = EXCLUDED.email_appointments,
			email_patients = EXCLUDED.email_patients,
			email_billing = EXCLUDED.email_billing,
			email_pharmacy = EXCLUDED.email_pharmacy,
			email_system = EXCLUDED.email_system,
			sms_appointments = EXCLUDED.sms_appointments,
			sms_urgent_only = EXCLUDED.sms_urgent_only,
			updated_at = now()
	`,
		p.UserID,
		p.AppAppointments, p.AppPatients, p.AppBilling, p.AppPharmacy, p.AppSystem,
		p.EmailAppointments, p.EmailPatients, p.EmailBilling, p.EmailPharmacy, p.EmailSystem,
		p.SMSAppointments, p.SMSUrgentOnly,
	)
	return err
}
