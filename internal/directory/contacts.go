package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HELLO-50/Sahatak-sub003/internal/appointment"
)

// ProviderContact returns the provider's display name and email for
// notification delivery.
func (d *Directory) ProviderContact(ctx context.Context, providerID uuid.UUID) (string, string, error) {
	query := `
		SELECT COALESCE(display_name, ''), COALESCE(email, '')
		FROM provider_profiles
		WHERE id = $1
	`
	return d.contact(ctx, query, providerID)
}

// PatientContact returns the patient's display name and email.
func (d *Directory) PatientContact(ctx context.Context, patientID uuid.UUID) (string, string, error) {
	query := `
		SELECT COALESCE(display_name, ''), COALESCE(email, '')
		FROM patient_profiles
		WHERE id = $1
	`
	return d.contact(ctx, query, patientID)
}

func (d *Directory) contact(ctx context.Context, query string, id uuid.UUID) (string, string, error) {
	var name, email string
	err := d.db.QueryRow(ctx, query, id).Scan(&name, &email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", "", appointment.ErrNotFound
		}
		return "", "", fmt.Errorf("directory: get contact: %w", err)
	}
	return name, email, nil
}
