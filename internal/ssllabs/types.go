package ssllabs

import "encoding/json"

// Assessment statuses reported by /analyze
const (
	StatusDNS        = "DNS"
	StatusError      = "ERROR"
	StatusInProgress = "IN_PROGRESS"
	StatusReady      = "READY"
)

// Info is the decoded shape of an /info response. Only the fields the
// pipeline looks at are declared; the verbatim body travels separately.
type Info struct {
	EngineVersion        string   `json:"engineVersion"`
	CriteriaVersion      string   `json:"criteriaVersion"`
	MaxAssessments       int      `json:"maxAssessments"`
	CurrentAssessments   int      `json:"currentAssessments"`
	NewAssessmentCoolOff int64    `json:"newAssessmentCoolOff"`
	Messages             []string `json:"messages"`
}

// AnalyzeReport is the decoded shape of an /analyze response
type AnalyzeReport struct {
	Host          string            `json:"host"`
	Port          int               `json:"port"`
	Protocol      string            `json:"protocol"`
	Status        string            `json:"status"`
	StatusMessage string            `json:"statusMessage"`
	StartTime     int64             `json:"startTime"`
	TestTime      int64             `json:"testTime"`
	Endpoints     []EndpointSummary `json:"endpoints"`
}

// EndpointSummary is one entry of an analyze response's endpoints list
type EndpointSummary struct {
	IPAddress         string `json:"ipAddress"`
	ServerName        string `json:"serverName"`
	StatusMessage     string `json:"statusMessage"`
	Grade             string `json:"grade"`
	GradeTrustIgnored string `json:"gradeTrustIgnored"`
	Progress          int    `json:"progress"`
	Duration          int    `json:"duration"`
}

// InfoResult pairs the decoded /info report with its verbatim body
type InfoResult struct {
	Report Info
	Body   json.RawMessage
}

// AnalyzeResult pairs the decoded /analyze report with its verbatim body
// and the verbatim per-endpoint objects lifted from the endpoints list.
type AnalyzeResult struct {
	Report       AnalyzeReport
	Body         json.RawMessage
	EndpointRaws []json.RawMessage
}

// EndpointResult pairs the decoded /getEndpointData response with its
// verbatim body.
type EndpointResult struct {
	Report EndpointSummary
	Body   json.RawMessage
}

// AnalyzeOptions mirror the /analyze query parameters the tool exposes
type AnalyzeOptions struct {
	StartNew  bool
	FromCache bool
}
