package api

import "github.com/vietddude/tmdbproxy/internal/core/domain"

// TrendingRequest is the body of POST /tmdb/trending.
type TrendingRequest struct {
	Secret     string `json:"secret"`
	MediaType  string `json:"media_type"  validate:"oneof=movie tv all"`
	TimeWindow string `json:"time_window" validate:"oneof=day week"`
}

func (r *TrendingRequest) applyDefaults() {
	if r.MediaType == "" {
		r.MediaType = string(domain.MediaMovie)
	}
	if r.TimeWindow == "" {
		r.TimeWindow = string(domain.WindowDay)
	}
}

func (r *TrendingRequest) params() domain.TrendingParams {
	return domain.TrendingParams{
		MediaType:  domain.MediaType(r.MediaType),
		TimeWindow: domain.TimeWindow(r.TimeWindow),
	}
}

// DetailsRequest is the body of POST /tmdb/details.
type DetailsRequest struct {
	Secret    string `json:"secret"`
	ID        int64  `json:"id"         validate:"gt=0"`
	MediaType string `json:"media_type" validate:"oneof=movie tv"`
}

func (r *DetailsRequest) applyDefaults() {
	if r.MediaType == "" {
		r.MediaType = string(domain.MediaMovie)
	}
}

func (r *DetailsRequest) params() domain.DetailsParams {
	return domain.DetailsParams{ID: r.ID, MediaType: domain.MediaType(r.MediaType)}
}

// SearchRequest is the body of POST /tmdb/search.
type SearchRequest struct {
	Secret    string `json:"secret"`
	Query     string `json:"query"      validate:"required,max=500"`
	MediaType string `json:"media_type" validate:"oneof=movie tv person multi"`
	Year      *int   `json:"year"       validate:"omitempty,gte=0,lte=9999"`
	Page      int    `json:"page"       validate:"gte=1,lte=1000"`
}

func (r *SearchRequest) applyDefaults() {
	if r.MediaType == "" {
		r.MediaType = string(domain.MediaMulti)
	}
	if r.Page == 0 {
		r.Page = 1
	}
}

func (r *SearchRequest) params() domain.SearchParams {
	p := domain.SearchParams{
		Query:     r.Query,
		MediaType: domain.MediaType(r.MediaType),
		Page:      r.Page,
	}
	if r.Year != nil {
		p.Year = *r.Year
	}
	return p
}

// BuildRequest is the body of POST /build.
type BuildRequest struct {
	Email         string           `json:"email"          validate:"required"`
	Secret        string           `json:"secret"`
	Task          string           `json:"task"           validate:"required"`
	Round         int              `json:"round"          validate:"gte=0"`
	Nonce         string           `json:"nonce"          validate:"required"`
	Brief         string           `json:"brief"`
	Checks        []string         `json:"checks"`
	EvaluationURL string           `json:"evaluation_url" validate:"omitempty,url"`
	Attachments   []map[string]any `json:"attachments"`
}

func (r *BuildRequest) applyDefaults() {}

// BuildNotification is posted to the evaluation URL once a build is accepted.
type BuildNotification struct {
	Email     string `json:"email"`
	Task      string `json:"task"`
	Round     int    `json:"round"`
	Nonce     string `json:"nonce"`
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
}
