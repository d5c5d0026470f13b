package repository

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/devinhayward/concrete-tickets/constants"
	"github.com/devinhayward/concrete-tickets/internal/common"
	"github.com/devinhayward/concrete-tickets/internal/ticket"
)

// SourceFile is one ingested document, deduplicated by content hash.
type SourceFile struct {
	ID          uuid.UUID
	SourcePath  string
	Filename    string
	FileExt     string
	FileSize    int64
	ContentHash string
	UploadedAt  time.Time
}

// ExtractJob tracks one extraction run over a source file.
type ExtractJob struct {
	ID           uuid.UUID
	FileID       uuid.UUID
	Format       string
	Status       constants.JobStatus
	ErrorMessage *string
	PageCount    int
	TicketCount  int
	StartedAt    time.Time
	FinishedAt   *time.Time
}

// TicketRecord is one decoded ticket as archived. Payload holds the full
// normalized ticket JSON; the scalar columns exist for lookups and listings.
type TicketRecord struct {
	ID              uuid.UUID
	JobID           uuid.UUID
	FileID          uuid.UUID
	Page            int
	TicketNo        string
	DeliveryDate    *string
	DeliveryAddress *string
	CustomerCode    *string
	Payload         []byte
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewTicketRecord maps a decoded ticket onto an archive record. The ticket
// number is the archive key and must be present.
func NewTicketRecord(jobID, fileID uuid.UUID, page int, t *ticket.Ticket) (*TicketRecord, error) {
	if t == nil || !ticket.HasValue(t.TicketNo) {
		return nil, common.NewAppError("TICKET_RECORD", "ticket has no ticket number", common.ErrInvalidInput)
	}
	payload, err := ticket.Encode(t)
	if err != nil {
		return nil, err
	}
	rec := &TicketRecord{
		JobID:           jobID,
		FileID:          fileID,
		Page:            page,
		TicketNo:        ticket.Str(t.TicketNo),
		DeliveryDate:    t.DeliveryDate,
		DeliveryAddress: t.DeliveryAddress,
		Payload:         payload,
	}
	if t.MixCustomer != nil {
		rec.CustomerCode = t.MixCustomer.Code
	}
	return rec, nil
}

// Timestamps travel as RFC 3339 text in both drivers.

func encodeTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func decodeTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func encodeTimePtr(t *time.Time) any {
	if t == nil {
		return nil
	}
	return encodeTime(*t)
}

func decodeTimePtr(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := decodeTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullToPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func ptrToNull(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
