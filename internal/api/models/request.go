package models

// TrendRequest is the query of GET /api/v1/scenarios/:name/trend.
type TrendRequest struct {
	Window int `form:"window" binding:"omitempty,min=1"` // default: server trend window
}

// RankRequest is the query of GET /api/v1/scenarios/:name/rank.
type RankRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1"` // default: all agents
}
