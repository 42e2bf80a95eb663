package server

import (
	"time"

	"github.com/raysh454/lawtrack/internal/model"
)

// LawNameRequest names one statute to add or remove.
type LawNameRequest struct {
	Name string `json:"법령명" example:"사립학교법"`
}

// BulkAddRequest lists statute names to add in one job.
type BulkAddRequest struct {
	Names []string `json:"법령목록" example:"[\"사립학교법\",\"교육기본법\"]"`
}

// TrackedLawsResponse is the tracked set with its size.
type TrackedLawsResponse struct {
	Total int                `json:"총개수" example:"2"`
	Laws  []model.TrackedLaw `json:"법령목록"`
}

// LawUpdateSummary is one law with at least one recorded change.
type LawUpdateSummary struct {
	Name        string     `json:"법령명" example:"사립학교법"`
	ChangeCount int        `json:"변경횟수" example:"3"`
	LastChecked *time.Time `json:"마지막확인"`
}

// StatisticsResponse summarizes the tracked set for the dashboard cards.
type StatisticsResponse struct {
	TotalLaws     int                  `json:"total_laws" example:"12"`
	UpdatedLaws   int                  `json:"updated_laws" example:"3"`
	TotalChanges  int                  `json:"total_changes" example:"5"`
	Categories    int                  `json:"categories" example:"4"`
	LastCheck     *time.Time           `json:"last_check"`
	RecentUpdates []model.UpdateRecord `json:"recent_updates"`
}

// MessageResponse acknowledges a mutation.
type MessageResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"사립학교법 제거 완료"`
}

// ErrorResponse is a uniform error payload returned by the API.
type ErrorResponse struct {
	Error string `json:"error" example:"법령을 찾을 수 없습니다"`
}
