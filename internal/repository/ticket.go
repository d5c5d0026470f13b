package repository

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/devinhayward/concrete-tickets/internal/common"
)

type TicketRepository interface {
	// Save archives a ticket, replacing any earlier record with the same
	// ticket number. The bool reports whether an earlier record was replaced.
	Save(ctx context.Context, rec *TicketRecord) (*TicketRecord, bool, error)
	// GetByTicketNo returns common.ErrNotFound when the ticket is unknown.
	GetByTicketNo(ctx context.Context, ticketNo string) (*TicketRecord, error)
	List(ctx context.Context) ([]*TicketRecord, error)
}

type ticketRepo struct {
	db     *DB
	logger *slog.Logger
}

func NewTicketRepository(db *DB, logger *slog.Logger) TicketRepository {
	return &ticketRepo{
		db:     db,
		logger: logger,
	}
}

const ticketColumns = `id, job_id, file_id, page, ticket_no, delivery_date, delivery_address, customer_code, payload, created_at, updated_at`

func (r *ticketRepo) Save(ctx context.Context, rec *TicketRecord) (*TicketRecord, bool, error) {
	existing, err := r.GetByTicketNo(ctx, rec.TicketNo)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}
	now := time.Now().UTC()

	if existing == nil {
		rec.ID = uuid.New()
		rec.CreatedAt = now
		rec.UpdatedAt = now
		_, err = r.db.SQL.ExecContext(ctx,
			r.db.bind(`INSERT INTO tickets (`+ticketColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
			rec.ID.String(), rec.JobID.String(), rec.FileID.String(), rec.Page, rec.TicketNo,
			ptrToNull(rec.DeliveryDate), ptrToNull(rec.DeliveryAddress), ptrToNull(rec.CustomerCode),
			string(rec.Payload), encodeTime(rec.CreatedAt), encodeTime(rec.UpdatedAt))
		if err != nil {
			r.logger.Error("failed to archive ticket", "ticket_no", rec.TicketNo, "error", err)
			return nil, false, err
		}
		r.logger.Info("ticket archived", "ticket_no", rec.TicketNo, "page", rec.Page)
		return rec, false, nil
	}

	// re-extraction of a known ticket wins; the original identity stays
	rec.ID = existing.ID
	rec.CreatedAt = existing.CreatedAt
	rec.UpdatedAt = now
	_, err = r.db.SQL.ExecContext(ctx,
		r.db.bind(`UPDATE tickets SET job_id = ?, file_id = ?, page = ?, delivery_date = ?, delivery_address = ?, customer_code = ?, payload = ?, updated_at = ? WHERE ticket_no = ?`),
		rec.JobID.String(), rec.FileID.String(), rec.Page,
		ptrToNull(rec.DeliveryDate), ptrToNull(rec.DeliveryAddress), ptrToNull(rec.CustomerCode),
		string(rec.Payload), encodeTime(rec.UpdatedAt), rec.TicketNo)
	if err != nil {
		r.logger.Error("failed to archive ticket", "ticket_no", rec.TicketNo, "error", err)
		return nil, false, err
	}
	r.logger.Info("ticket re-archived", "ticket_no", rec.TicketNo, "page", rec.Page)
	return rec, true, nil
}

func (r *ticketRepo) GetByTicketNo(ctx context.Context, ticketNo string) (*TicketRecord, error) {
	row := r.db.SQL.QueryRowContext(ctx,
		r.db.bind(`SELECT `+ticketColumns+` FROM tickets WHERE ticket_no = ?`), ticketNo)
	rec, err := scanTicket(row)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		r.logger.Error("failed to get ticket", "ticket_no", ticketNo, "error", err)
	}
	return rec, err
}

func (r *ticketRepo) List(ctx context.Context) ([]*TicketRecord, error) {
	rows, err := r.db.SQL.QueryContext(ctx,
		r.db.bind(`SELECT `+ticketColumns+` FROM tickets ORDER BY created_at, ticket_no`))
	if err != nil {
		r.logger.Error("failed to list tickets", "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []*TicketRecord
	for rows.Next() {
		rec, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("failed to list tickets", "error", err)
		return nil, err
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (*TicketRecord, error) {
	var (
		rec                  TicketRecord
		id, jobID, fileID    string
		date, addr, code     sql.NullString
		payload              string
		createdAt, updatedAt string
	)
	err := row.Scan(&id, &jobID, &fileID, &rec.Page, &rec.TicketNo, &date, &addr, &code, &payload, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if rec.ID, err = uuid.Parse(id); err != nil {
		return nil, err
	}
	if rec.JobID, err = uuid.Parse(jobID); err != nil {
		return nil, err
	}
	if rec.FileID, err = uuid.Parse(fileID); err != nil {
		return nil, err
	}
	rec.DeliveryDate = nullToPtr(date)
	rec.DeliveryAddress = nullToPtr(addr)
	rec.CustomerCode = nullToPtr(code)
	rec.Payload = []byte(payload)
	if rec.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	if rec.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, err
	}
	return &rec, nil
}
