package mariadb

import (
	"context"
	"fmt"

	"github.com/kozaktomas/gatex/internal/database"
)

// DirectoryRepository reads customer_master and location_master.
type DirectoryRepository struct {
	pool *Pool
}

// NewDirectoryRepository creates a new MariaDB directory repository
func NewDirectoryRepository(pool *Pool) *DirectoryRepository {
	return &DirectoryRepository{pool: pool}
}

// LoadDirectory reads both mapping tables. A row with an undecodable device
// list fails the whole load, since a partial directory could route alerts to
// the wrong customer.
func (r *DirectoryRepository) LoadDirectory(ctx context.Context) (*database.Directory, error) {
	ctx, cancel := r.pool.withTimeout(ctx)
	defer cancel()

	customers, err := r.loadCustomers(ctx)
	if err != nil {
		return nil, err
	}
	locations, err := r.loadLocations(ctx)
	if err != nil {
		return nil, err
	}
	return database.NewDirectory(customers, locations), nil
}

func (r *DirectoryRepository) loadCustomers(ctx context.Context) ([]database.Customer, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT customer_id, contact_person_email, device_id FROM customer_master ORDER BY customer_id`)
	if err != nil {
		return nil, database.Wrap("query customers", err)
	}
	defer rows.Close()

	var customers []database.Customer
	for rows.Next() {
		var (
			c   database.Customer
			raw []byte
		)
		if err := rows.Scan(&c.CustomerID, &c.ContactEmail, &raw); err != nil {
			return nil, database.Wrap("scan customer", err)
		}
		if c.DeviceIDs, err = database.ParseDeviceList(raw); err != nil {
			return nil, fmt.Errorf("customer %s: %w", c.CustomerID, err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Wrap("iterate customers", err)
	}
	return customers, nil
}

func (r *DirectoryRepository) loadLocations(ctx context.Context) ([]database.Location, error) {
	rows, err := r.pool.db.QueryContext(ctx,
		`SELECT project_name, building_name, device_id FROM location_master ORDER BY location_id`)
	if err != nil {
		return nil, database.Wrap("query locations", err)
	}
	defer rows.Close()

	var locations []database.Location
	for rows.Next() {
		var (
			l   database.Location
			raw []byte
		)
		if err := rows.Scan(&l.ProjectName, &l.BuildingName, &raw); err != nil {
			return nil, database.Wrap("scan location", err)
		}
		if l.DeviceIDs, err = database.ParseDeviceList(raw); err != nil {
			return nil, fmt.Errorf("location %s/%s: %w", l.ProjectName, l.BuildingName, err)
		}
		locations = append(locations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, database.Wrap("iterate locations", err)
	}
	return locations, nil
}

var _ database.DirectoryReader = (*DirectoryRepository)(nil)
