package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/HELLO-50/Sahatak-sub003/internal/appointment"
	"github.com/HELLO-50/Sahatak-sub003/pkg/logging"
)

// Contacts resolves the email addresses of an appointment's parties.
type Contacts interface {
	PatientContact(ctx context.Context, patientID uuid.UUID) (name, email string, err error)
	ProviderContact(ctx context.Context, providerID uuid.UUID) (name, email string, err error)
}

// Dispatcher turns committed lifecycle events into emails for both
// parties. It implements appointment.NotificationDispatcher.
type Dispatcher struct {
	email    EmailSender
	contacts Contacts
	logger   *logging.Logger
}

// NewDispatcher creates a dispatcher. A nil sender disables delivery.
func NewDispatcher(email EmailSender, contacts Contacts, logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Default()
	}
	if email == nil {
		email = NewStubEmailSender(logger)
	}
	return &Dispatcher{email: email, contacts: contacts, logger: logger}
}

// Notify emails the patient and the provider about the event. Provider
// slot management produces no mail. A failure for one recipient does
// not stop delivery to the other.
func (d *Dispatcher) Notify(ctx context.Context, appt *appointment.Appointment, kind appointment.EventKind) error {
	subject, body, ok := composeMessage(appt, kind)
	if !ok {
		return nil
	}
	if d.contacts == nil {
		d.logger.Debug("notify: contacts not configured, skipping", "event", kind)
		return nil
	}

	var firstErr error
	if appt.PatientID != uuid.Nil {
		if err := d.sendTo(ctx, patientParty, appt.PatientID, subject, body); err != nil {
			firstErr = err
		}
	}
	if err := d.sendTo(ctx, providerParty, appt.ProviderID, subject, body); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

type party int

const (
	patientParty party = iota
	providerParty
)

func (d *Dispatcher) sendTo(ctx context.Context, p party, id uuid.UUID, subject, body string) error {
	var name, email string
	var err error
	if p == patientParty {
		name, email, err = d.contacts.PatientContact(ctx, id)
	} else {
		name, email, err = d.contacts.ProviderContact(ctx, id)
	}
	if err != nil {
		return fmt.Errorf("notify: resolve contact: %w", err)
	}
	if email == "" {
		return nil
	}
	return d.email.Send(ctx, EmailMessage{
		To:      email,
		ToName:  name,
		Subject: subject,
		Body:    body,
	})
}

func composeMessage(appt *appointment.Appointment, kind appointment.EventKind) (subject, body string, ok bool) {
	when := appt.ScheduledAt.Format("Monday, January 2 at 15:04 MST")
	switch kind {
	case appointment.EventKindCreated:
		subject = "Appointment booked"
		body = fmt.Sprintf("Your %s consultation is booked for %s.", appt.Kind, when)
	case appointment.EventKindRescheduled:
		subject = "Appointment rescheduled"
		body = fmt.Sprintf("Your consultation has been moved to %s.", when)
	case appointment.EventKindCancelled:
		subject = "Appointment cancelled"
		body = fmt.Sprintf("The consultation scheduled for %s has been cancelled.", when)
		if appt.Cancellation != nil && appt.Cancellation.Reason != "" {
			body += fmt.Sprintf(" Reason: %s.", appt.Cancellation.Reason)
		}
	case appointment.EventKindSessionEnded:
		subject = "Consultation complete"
		body = fmt.Sprintf("Your consultation on %s is complete. The visit summary will appear in your records shortly.",
			appt.ScheduledAt.Format("January 2, 2006"))
	default:
		// Blocks and session starts stay internal.
		return "", "", false
	}
	return subject, body, true
}
