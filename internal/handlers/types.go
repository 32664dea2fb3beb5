package handlers

import "sslingest/internal/models"

type AnalyzeListResponse struct {
	Total int64               `json:"total"`
	Page  int                 `json:"page"`
	Limit int                 `json:"limit"`
	Docs  []models.AnalyzeRaw `json:"docs"`
}
