package point

import (
	"context"
	"errors"

	"github.com/hllmltyl/geri-donusum/internal/db"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PostgresStore persists points in the recycling_points table and publishes
// every committed write on the change feed.
type PostgresStore struct {
	db   db.Querier
	feed *Feed
}

func NewPostgresStore(querier db.Querier, feed *Feed) *PostgresStore {
	return &PostgresStore{db: querier, feed: feed}
}

const pointColumns = `
	id, title, description, category,
	ST_Y(location::geometry), ST_X(location::geometry),
	verified, created_by, created_at, updated_at`

func (s *PostgresStore) All(ctx context.Context) ([]RecyclingPoint, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+pointColumns+`
		FROM recycling_points
		ORDER BY created_at
	`)
	if err != nil {
		return nil, TransportError{Op: "list", Err: err}
	}
	defer rows.Close()

	var points []RecyclingPoint
	for rows.Next() {
		p, err := scanPoint(rows)
		if err != nil {
			return nil, TransportError{Op: "list", Err: err}
		}
		points = append(points, p)
	}
	return points, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (RecyclingPoint, error) {
	row := s.db.QueryRow(ctx, `
		SELECT `+pointColumns+`
		FROM recycling_points WHERE id=$1
	`, id)
	p, err := scanPoint(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RecyclingPoint{}, ErrNotFound
		}
		return RecyclingPoint{}, TransportError{Op: "get", Err: err}
	}
	return p, nil
}

func (s *PostgresStore) Create(ctx context.Context, input RecyclingPoint) (RecyclingPoint, error) {
	if err := ValidateCoordinate(input.Coordinate()); err != nil {
		return RecyclingPoint{}, err
	}
	if err := (Metadata{Title: input.Title, Description: input.Description, Category: input.Category}).Validate(); err != nil {
		return RecyclingPoint{}, err
	}

	input.ID = uuid.NewString()
	row := s.db.QueryRow(ctx, `
		INSERT INTO recycling_points (id, title, description, category, location, verified, created_by)
		VALUES ($1,$2,$3,$4, ST_SetSRID(ST_MakePoint($5,$6), 4326)::geography, $7, $8)
		RETURNING created_at, updated_at
	`, input.ID, input.Title, input.Description, input.Category, input.Lng, input.Lat, input.Verified, input.CreatedBy)
	if err := row.Scan(&input.CreatedAt, &input.UpdatedAt); err != nil {
		return RecyclingPoint{}, TransportError{Op: "create", Err: err}
	}

	s.publish(ctx, Change{Kind: ChangeAdded, Point: input})
	return input, nil
}

func (s *PostgresStore) UpdateMetadata(ctx context.Context, id string, meta Metadata) (RecyclingPoint, error) {
	if err := meta.Validate(); err != nil {
		return RecyclingPoint{}, err
	}

	// Location is deliberately absent from the SET list: coordinates are
	// fixed at creation.
	row := s.db.QueryRow(ctx, `
		UPDATE recycling_points
		SET title=$2, description=$3, category=$4, updated_at=now()
		WHERE id=$1
		RETURNING `+pointColumns+`
	`, id, meta.Title, meta.Description, meta.Category)
	p, err := scanPoint(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RecyclingPoint{}, ErrNotFound
		}
		return RecyclingPoint{}, TransportError{Op: "update", Err: err}
	}

	s.publish(ctx, Change{Kind: ChangeModified, Point: p})
	return p, nil
}

func (s *PostgresStore) Approve(ctx context.Context, id string) (RecyclingPoint, error) {
	row := s.db.QueryRow(ctx, `
		UPDATE recycling_points
		SET verified=true, updated_at=now()
		WHERE id=$1
		RETURNING `+pointColumns+`
	`, id)
	p, err := scanPoint(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return RecyclingPoint{}, ErrNotFound
		}
		return RecyclingPoint{}, TransportError{Op: "approve", Err: err}
	}

	s.publish(ctx, Change{Kind: ChangeModified, Point: p})
	return p, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM recycling_points WHERE id=$1`, id)
	if err != nil {
		return TransportError{Op: "delete", Err: err}
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.publish(ctx, Change{Kind: ChangeRemoved, Point: RecyclingPoint{ID: id}})
	return nil
}

func (s *PostgresStore) publish(ctx context.Context, c Change) {
	if s.feed != nil {
		s.feed.Publish(ctx, c)
	}
}

func scanPoint(row pgx.Row) (RecyclingPoint, error) {
	var p RecyclingPoint
	err := row.Scan(&p.ID, &p.Title, &p.Description, &p.Category,
		&p.Lat, &p.Lng, &p.Verified, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
