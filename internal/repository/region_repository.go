package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/nccrd-api/internal/dto"
	"github.com/noah-isme/nccrd-api/internal/models"
	"github.com/noah-isme/nccrd-api/pkg/database"
)

const regionInsertBatch = 200

// RegionRepository reads the static geographic reference tables and performs the one-off bulk load.
type RegionRepository struct {
	db *sqlx.DB
}

// NewRegionRepository constructs the repository.
func NewRegionRepository(db *sqlx.DB) *RegionRepository {
	return &RegionRepository{db: db}
}

// ListProvinces returns provinces ordered by name.
func (r *RegionRepository) ListProvinces(ctx context.Context) ([]dto.ReferenceItem, error) {
	const query = `SELECT fid AS id, COALESCE(pr_mdb_c, '') AS code, COALESCE(pr_name, '') AS name
FROM province ORDER BY pr_name`
	return r.items(ctx, "list provinces", query)
}

// ListDistrictsByProvince returns the districts of a province ordered by district code.
func (r *RegionRepository) ListDistrictsByProvince(ctx context.Context, province string) ([]dto.ReferenceItem, error) {
	const query = `SELECT fid AS id, COALESCE(district, '') AS code, COALESCE(district_n, '') AS name
FROM district WHERE province = $1 ORDER BY district`
	return r.items(ctx, "list districts", query, province)
}

// ListLocalDistrictsByDistrict returns local municipalities of a district ordered by municipality name.
func (r *RegionRepository) ListLocalDistrictsByDistrict(ctx context.Context, district string) ([]dto.ReferenceItem, error) {
	const query = `SELECT fid AS id, COALESCE(cat_b, '') AS code, COALESCE(municname, '') AS name
FROM local_district WHERE district = $1 ORDER BY municname`
	return r.items(ctx, "list local districts by district", query, district)
}

// ListLocalDistrictsByProvince returns local municipalities of a province ordered by municipality name.
func (r *RegionRepository) ListLocalDistrictsByProvince(ctx context.Context, province string) ([]dto.ReferenceItem, error) {
	const query = `SELECT fid AS id, COALESCE(cat_b, '') AS code, COALESCE(municname, '') AS name
FROM local_district WHERE province = $1 ORDER BY municname`
	return r.items(ctx, "list local districts by province", query, province)
}

// ListCountries returns countries ordered by display name.
func (r *RegionRepository) ListCountries(ctx context.Context) ([]dto.ReferenceItem, error) {
	const query = `SELECT gid AS id, COALESCE(shapeiso, '') AS code, COALESCE(shape0, '') AS name
FROM country ORDER BY shape0`
	return r.items(ctx, "list countries", query)
}

func (r *RegionRepository) items(ctx context.Context, op, query string, args ...interface{}) ([]dto.ReferenceItem, error) {
	items := []dto.ReferenceItem{}
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

// ReplaceAll swaps the content of every reference table for the dataset in a single transaction.
func (r *RegionRepository) ReplaceAll(ctx context.Context, data models.RegionDataset) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `TRUNCATE province, district, local_district, country`); err != nil {
			return fmt.Errorf("truncate reference tables: %w", err)
		}

		const provinceQuery = `INSERT INTO province (fid, pr_mdb_c, pr_code, pr_code_st, pr_name, albers_are, shape_leng, x, y, shape_area, shape_length)
VALUES (:fid, :pr_mdb_c, :pr_code, :pr_code_st, :pr_name, :albers_are, :shape_leng, :x, :y, :shape_area, :shape_length)`
		if err := insertBatches(ctx, tx, "province", provinceQuery, data.Provinces); err != nil {
			return err
		}

		const districtQuery = `INSERT INTO district (fid, province, district, district_n, date, category, geometry)
VALUES (:fid, :province, :district, :district_n, :date, :category, :geometry)`
		if err := insertBatches(ctx, tx, "district", districtQuery, data.Districts); err != nil {
			return err
		}

		const localQuery = `INSERT INTO local_district (fid, objectid, province, category, cat2, cat_b, municname, namecode, map_title, district, district_n, date, geometry)
VALUES (:fid, :objectid, :province, :category, :cat2, :cat_b, :municname, :namecode, :map_title, :district, :district_n, :date, :geometry)`
		if err := insertBatches(ctx, tx, "local_district", localQuery, data.LocalDistricts); err != nil {
			return err
		}

		const countryQuery = `INSERT INTO country (gid, shape0, shapeiso, shapeid, shapegroup, shapetype, geometry)
VALUES (:gid, :shape0, :shapeiso, :shapeid, :shapegroup, :shapetype, :geometry)`
		return insertBatches(ctx, tx, "country", countryQuery, data.Countries)
	})
}

func insertBatches[T any](ctx context.Context, tx *sqlx.Tx, table, query string, rows []T) error {
	for start := 0; start < len(rows); start += regionInsertBatch {
		end := start + regionInsertBatch
		if end > len(rows) {
			end = len(rows)
		}
		if _, err := tx.NamedExecContext(ctx, query, rows[start:end]); err != nil {
			return fmt.Errorf("insert %s rows %d-%d: %w", table, start, end-1, err)
		}
	}
	return nil
}
