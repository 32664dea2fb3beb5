package models

import "gorm.io/datatypes"

// Endpoint document kinds. A summary row is lifted from an analyze
// response's endpoints list; a detail row is a full /getEndpointData body.
const (
	EndpointKindSummary = "summary"
	EndpointKindDetail  = "detail"
)

const SourceSSLLabs = "ssllabs"

// Response columns use json rather than jsonb: jsonb normalizes key order
// and whitespace, and the stored body must stay identical to what the API
// returned.

// InfoRaw stores one verbatim /info response body
type InfoRaw struct {
	UUID       string         `gorm:"primaryKey;type:varchar(36)" json:"uuid"`
	Source     string         `json:"source"`
	IngestedAt int64          `json:"ingested_at"`
	Response   datatypes.JSON `gorm:"type:json" json:"response"`
}

func (InfoRaw) TableName() string { return "ssllabs_info_raw" }

// AnalyzeRaw stores one verbatim /analyze response body for a host
type AnalyzeRaw struct {
	UUID       string         `gorm:"primaryKey;type:varchar(36)" json:"uuid"`
	Host       string         `gorm:"index" json:"host"`
	StartNew   bool           `json:"start_new"`
	FromCache  bool           `json:"from_cache"`
	Status     string         `json:"status"`
	Source     string         `json:"source"`
	IngestedAt int64          `json:"ingested_at"`
	Response   datatypes.JSON `gorm:"type:json" json:"response"`
}

func (AnalyzeRaw) TableName() string { return "ssllabs_analyze_raw" }

// EndpointRaw stores per-endpoint data for a host, either a summary taken
// from an analyze response or a full /getEndpointData body
type EndpointRaw struct {
	UUID       string         `gorm:"primaryKey;type:varchar(36)" json:"uuid"`
	Host       string         `gorm:"index" json:"host"`
	IP         string         `gorm:"column:ip" json:"ip"`
	Kind       string         `json:"kind"`
	Source     string         `json:"source"`
	IngestedAt int64          `json:"ingested_at"`
	Response   datatypes.JSON `gorm:"type:json" json:"response"`
}

func (EndpointRaw) TableName() string { return "ssllabs_endpoint_raw" }
