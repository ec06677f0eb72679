package http

import (
	"time"

	"github.com/fyrsmithlabs/sprintai/internal/chat"
	"github.com/fyrsmithlabs/sprintai/internal/decision"
	"github.com/fyrsmithlabs/sprintai/internal/identity"
	"github.com/fyrsmithlabs/sprintai/internal/inference"
	"github.com/fyrsmithlabs/sprintai/internal/store"
)

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status   string            `json:"status"`
	Version  string            `json:"version,omitempty"`
	Services map[string]string `json:"services,omitempty"`
}

// LoginRequest is the request body for POST /api/v1/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	Token     string           `json:"token"`
	User      identity.Profile `json:"user"`
	ExpiresAt time.Time        `json:"expiresAt"`
}

// AnalysisResponse carries an analysis and its ranking.
type AnalysisResponse struct {
	Analysis *decision.Analysis  `json:"analysis"`
	Ranking  []decision.Standing `json:"ranking"`
	Option   *decision.Option    `json:"option,omitempty"`
}

// TitleRequest is the request body for PATCH /api/v1/analysis/title.
type TitleRequest struct {
	Title string `json:"title"`
}

// RenameRequest is the request body for PATCH /api/v1/analysis/options/:id.
type RenameRequest struct {
	Name string `json:"name"`
}

// RatingRequest is the request body for PUT .../ratings/:factor.
type RatingRequest struct {
	Value *int `json:"value"`
}

// WeightRequest is the request body for PUT /api/v1/analysis/weights/:factor.
type WeightRequest struct {
	Value *float64 `json:"value"`
}

// RankingResponse is the response body for ranking endpoints.
type RankingResponse struct {
	Ranking []decision.Standing `json:"ranking"`
}

// MessagesResponse is the response body for GET /api/v1/chat/messages.
type MessagesResponse struct {
	Messages []store.ChatMessage `json:"messages"`
}

// SendRequest is the request body for POST /api/v1/chat/messages.
type SendRequest struct {
	Content string `json:"content"`
}

// SendResponse is the response body for POST /api/v1/chat/messages.
type SendResponse = chat.Exchange

// ProxyRequest is the request body for POST /api/chat.
type ProxyRequest struct {
	Messages []inference.Message `json:"messages"`
}

// ProxyResponse is the response body for POST /api/chat.
type ProxyResponse struct {
	Reply string `json:"reply"`
}
