package service

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	orbjson "github.com/paulmach/orb/geojson"

	"github.com/noah-isme/nccrd-api/internal/models"
	"github.com/noah-isme/nccrd-api/pkg/geojson"
)

// Files read from the region data directory.
const (
	ProvincesFile      = "provinces.csv"
	DistrictsFile      = "DistrictMunicipality2018.json"
	LocalDistrictsFile = "LocalMunicipality2018.json"
	CountryFile        = "south_africa_South_Africa_Country_Boundary.geojson"
)

// ReadRegionDataset loads the four reference datasets from dir.
func ReadRegionDataset(dir string) (models.RegionDataset, error) {
	var data models.RegionDataset

	err := withFile(filepath.Join(dir, ProvincesFile), func(r io.Reader) (err error) {
		data.Provinces, err = ReadProvinces(r)
		return err
	})
	if err != nil {
		return data, err
	}
	err = withFile(filepath.Join(dir, DistrictsFile), func(r io.Reader) (err error) {
		data.Districts, err = ReadDistricts(r)
		return err
	})
	if err != nil {
		return data, err
	}
	err = withFile(filepath.Join(dir, LocalDistrictsFile), func(r io.Reader) (err error) {
		data.LocalDistricts, err = ReadLocalDistricts(r)
		return err
	})
	if err != nil {
		return data, err
	}
	err = withFile(filepath.Join(dir, CountryFile), func(r io.Reader) (err error) {
		data.Countries, err = ReadCountries(r)
		return err
	})
	return data, err
}

func withFile(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", filepath.Base(path), err)
	}
	defer f.Close() //nolint:errcheck
	if err := fn(f); err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadProvinces parses the province table. Column names are matched case-insensitively; FID falls back to the
// row number when the file has no FID column.
func ReadProvinces(r io.Reader) ([]models.Province, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	for _, required := range []string{"PR_MDB_C", "PR_NAME"} {
		if _, ok := index[required]; !ok {
			return nil, fmt.Errorf("missing column %s", required)
		}
	}

	var provinces []models.Province
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row := csvRow{index: index, rec: rec}
		p := models.Province{
			Code: row.str("PR_MDB_C"),
			Name: row.str("PR_NAME"),
		}
		if p.FID, err = row.int64("FID", int64(line-1)); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ints := map[string]*int{"PR_CODE": &p.PRCode, "PR_CODE_ST": &p.PRCodeSt}
		for col, dst := range ints {
			v, err := row.int64(col, 0)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			*dst = int(v)
		}
		floats := map[string]*float64{
			"ALBERS_ARE": &p.AlbersArea, "SHAPE_LENG": &p.ShapeLeng, "X": &p.X, "Y": &p.Y,
			"SHAPE__AREA": &p.ShapeArea, "SHAPE__LENGTH": &p.ShapeLength,
		}
		for col, dst := range floats {
			if *dst, err = row.float(col); err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
		}
		provinces = append(provinces, p)
	}
	return provinces, nil
}

type csvRow struct {
	index map[string]int
	rec   []string
}

func (r csvRow) str(col string) string {
	i, ok := r.index[col]
	if !ok || i >= len(r.rec) {
		return ""
	}
	return strings.TrimSpace(r.rec[i])
}

func (r csvRow) int64(col string, fallback int64) (int64, error) {
	raw := r.str(col)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", col, err)
	}
	return v, nil
}

func (r csvRow) float(col string) (float64, error) {
	raw := r.str(col)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", col, err)
	}
	return v, nil
}

// ReadDistricts parses the district municipality boundaries.
func ReadDistricts(r io.Reader) ([]models.District, error) {
	fc, err := geojson.ReadFeatureCollection(r)
	if err != nil {
		return nil, err
	}
	districts := make([]models.District, 0, len(fc.Features))
	for i, f := range fc.Features {
		p := featureProps(f)
		districts = append(districts, models.District{
			FID:          p.int64("FID", int64(i)),
			Province:     p.str("PROVINCE"),
			District:     p.str("DISTRICT"),
			DistrictName: p.str("DISTRICT_N"),
			Date:         int(p.int64("DATE", 0)),
			Category:     p.str("CATEGORY"),
			Geometry:     geojson.WKT(f.Geometry),
		})
	}
	return districts, nil
}

// ReadLocalDistricts parses the local municipality boundaries.
func ReadLocalDistricts(r io.Reader) ([]models.LocalDistrict, error) {
	fc, err := geojson.ReadFeatureCollection(r)
	if err != nil {
		return nil, err
	}
	locals := make([]models.LocalDistrict, 0, len(fc.Features))
	for i, f := range fc.Features {
		p := featureProps(f)
		locals = append(locals, models.LocalDistrict{
			FID:          p.int64("FID", int64(i)),
			ObjectID:     p.int64("OBJECTID", 0),
			Province:     p.str("PROVINCE"),
			Category:     p.str("CATEGORY"),
			Cat2:         p.str("CAT2"),
			CatB:         p.str("CAT_B"),
			Municipality: p.str("MUNICNAME"),
			NameCode:     p.str("NAMECODE"),
			MapTitle:     p.str("MAP_TITLE"),
			District:     p.str("DISTRICT"),
			DistrictName: p.str("DISTRICT_N"),
			Date:         int(p.int64("DATE", 0)),
			Geometry:     geojson.WKT(f.Geometry),
		})
	}
	return locals, nil
}

// ReadCountries parses the national boundary file.
func ReadCountries(r io.Reader) ([]models.Country, error) {
	fc, err := geojson.ReadFeatureCollection(r)
	if err != nil {
		return nil, err
	}
	countries := make([]models.Country, 0, len(fc.Features))
	for i, f := range fc.Features {
		p := featureProps(f)
		name := p.str("SHAPENAME")
		if name == "" {
			name = p.str("SHAPE0")
		}
		countries = append(countries, models.Country{
			GID:        int64(i),
			Name:       name,
			ISO:        p.str("SHAPEISO"),
			ShapeID:    p.str("SHAPEID"),
			ShapeGroup: p.str("SHAPEGROUP"),
			ShapeType:  p.str("SHAPETYPE"),
			Geometry:   geojson.WKT(f.Geometry),
		})
	}
	return countries, nil
}

// featureProperties indexes feature properties by upper-cased key.
type featureProperties map[string]interface{}

func featureProps(f *orbjson.Feature) featureProperties {
	props := make(featureProperties, len(f.Properties))
	for k, v := range f.Properties {
		props[strings.ToUpper(k)] = v
	}
	if _, ok := props["FID"]; !ok && f.ID != nil {
		props["FID"] = f.ID
	}
	return props
}

func (p featureProperties) str(key string) string {
	switch v := p[key].(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func (p featureProperties) int64(key string, fallback int64) int64 {
	switch v := p[key].(type) {
	case float64:
		return int64(v)
	case string:
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
