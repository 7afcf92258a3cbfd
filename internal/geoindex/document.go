package geoindex

// documentV1 mirrors the on-disk spatial index format: a JSON document
// with a schema version, per-country CRS tags, and the flat list of
// collections.
type documentV1 struct {
	SchemaVersion   string          `json:"schema_version"`
	BoundsCRS       map[string]string `json:"bounds_crs"`
	DataCollections []collectionDTO `json:"data_collections"`
}

type collectionDTO struct {
	ID          string      `json:"id"`
	Country     string      `json:"country"`
	Name        string      `json:"name"`
	SurveyYear  *int        `json:"survey_year"`
	ResolutionM float64     `json:"resolution_m"`
	NativeCRS   int         `json:"native_crs"`
	BoundsWGS84 bboxDTO     `json:"bounds_wgs84"`
	BoundsNative *bboxDTO   `json:"bounds_native,omitempty"`
	DataType    string      `json:"data_type"`
	Files       []fileRefDTO `json:"files"`
}

type bboxDTO struct {
	MinX float64 `json:"min_x"`
	MaxX float64 `json:"max_x"`
	MinY float64 `json:"min_y"`
	MaxY float64 `json:"max_y"`
	CRS  int     `json:"crs"`
}

type fileRefDTO struct {
	URI       string  `json:"uri"`
	Bounds    bboxDTO `json:"bounds_native"`
	SizeBytes int64   `json:"size_bytes"`
	Filename  string  `json:"filename"`
}

// supportedSchemaVersions is the set of schema_version values startup will
// accept. Bump when the on-disk format changes in a compatible way.
var supportedSchemaVersions = map[string]bool{
	"1.0.0": true,
	"1.1.0": true,
}
