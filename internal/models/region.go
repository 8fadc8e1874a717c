package models

// Province is a row of the province boundary dataset.
type Province struct {
	FID         int64   `db:"fid"`
	Code        string  `db:"pr_mdb_c"`
	PRCode      int     `db:"pr_code"`
	PRCodeSt    int     `db:"pr_code_st"`
	Name        string  `db:"pr_name"`
	AlbersArea  float64 `db:"albers_are"`
	ShapeLeng   float64 `db:"shape_leng"`
	X           float64 `db:"x"`
	Y           float64 `db:"y"`
	ShapeArea   float64 `db:"shape_area"`
	ShapeLength float64 `db:"shape_length"`
}

// District is a district municipality with its boundary stored as WKT.
type District struct {
	FID          int64  `db:"fid"`
	Province     string `db:"province"`
	District     string `db:"district"`
	DistrictName string `db:"district_n"`
	Date         int    `db:"date"`
	Category     string `db:"category"`
	Geometry     string `db:"geometry"`
}

// LocalDistrict is a local municipality with its boundary stored as WKT.
type LocalDistrict struct {
	FID          int64  `db:"fid"`
	ObjectID     int64  `db:"objectid"`
	Province     string `db:"province"`
	Category     string `db:"category"`
	Cat2         string `db:"cat2"`
	CatB         string `db:"cat_b"`
	Municipality string `db:"municname"`
	NameCode     string `db:"namecode"`
	MapTitle     string `db:"map_title"`
	District     string `db:"district"`
	DistrictName string `db:"district_n"`
	Date         int    `db:"date"`
	Geometry     string `db:"geometry"`
}

// Country is a national boundary.
type Country struct {
	GID        int64  `db:"gid"`
	Name       string `db:"shape0"`
	ISO        string `db:"shapeiso"`
	ShapeID    string `db:"shapeid"`
	ShapeGroup string `db:"shapegroup"`
	ShapeType  string `db:"shapetype"`
	Geometry   string `db:"geometry"`
}

// RegionDataset groups everything the reference loader writes in one run.
type RegionDataset struct {
	Provinces      []Province
	Districts      []District
	LocalDistricts []LocalDistrict
	Countries      []Country
}
