package postgres

import (
	"context"
	"fmt"

	"github.com/kozaktomas/gatex/internal/database"
)

// DirectoryRepository reads customer_master and location_master.
type DirectoryRepository struct {
	pool *Pool
}

// NewDirectoryRepository creates a new PostgreSQL directory repository
func NewDirectoryRepository(pool *Pool) *DirectoryRepository {
	return &DirectoryRepository{pool: pool}
}

// LoadDirectory reads both mapping tables into one snapshot.
func (r *DirectoryRepository) LoadDirectory(ctx context.Context) (*database.Directory, error) {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT customer_id, contact_person_email, device_id::text FROM customer_master ORDER BY customer_id`)
	if err != nil {
		return nil, database.Wrap("query customers", err)
	}
	var customers []database.Customer
	for rows.Next() {
		var (
			c   database.Customer
			raw string
		)
		if err := rows.Scan(&c.CustomerID, &c.ContactEmail, &raw); err != nil {
			rows.Close()
			return nil, database.Wrap("scan customer", err)
		}
		if c.DeviceIDs, err = database.ParseDeviceList([]byte(raw)); err != nil {
			rows.Close()
			return nil, fmt.Errorf("customer %s: %w", c.CustomerID, err)
		}
		customers = append(customers, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, database.Wrap("iterate customers", err)
	}

	rows, err = r.pool.db.QueryContext(ctx,
		`SELECT project_name, building_name, device_id::text FROM location_master ORDER BY location_id`)
	if err != nil {
		return nil, database.Wrap("query locations", err)
	}
	defer rows.Close()

	var locations []database.Location
	for rows.Next() {
		var (
			l   database.Location
			raw string
		)
		if err := rows.Scan(&l.ProjectName, &l.BuildingName, &raw); err != nil {
			return nil, database.Wrap("scan location", err)
		}
		if l.DeviceIDs, err = database.ParseDeviceList([]byte(raw)); err != nil {
			return nil, fmt.Errorf("location %s/%s: %w", l.ProjectName, l.BuildingName, err)
		}
		locations = append(locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Wrap("iterate locations", err)
	}

	return database.NewDirectory(customers, locations), nil
}

var _ database.DirectoryReader = (*DirectoryRepository)(nil)
