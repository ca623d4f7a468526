package web

import (
	"net/http"

	"github.com/JonMunkholm/sheets/internal/patterns"
	"github.com/JonMunkholm/sheets/internal/sheet"
)

const defaultHistoryLimit = 50

// ClassifyResponse is the result of /api/classify.
type ClassifyResponse struct {
	Value      string                `json:"value"`
	Matched    bool                  `json:"matched"`
	Type       patterns.SemanticType `json:"type,omitempty"`
	Format     patterns.FormatKey    `json:"format,omitempty"`
	FormatCode string                `json:"format_code,omitempty"`
}

// RuleResponse is one catalog entry as listed by /api/patterns.
type RuleResponse struct {
	Expression string                `json:"expression"`
	Type       patterns.SemanticType `json:"type"`
	Format     patterns.FormatKey    `json:"format,omitempty"`
	FormatCode string                `json:"format_code,omitempty"`
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("value") {
		respondError(w, r, sheet.Errorf(sheet.EmptyInput, nil, "value parameter is required"))
		return
	}
	value := q.Get("value")

	resp := ClassifyResponse{Value: value}
	if m, ok := s.service.Classify(value); ok {
		resp.Matched = true
		resp.Type = m.Type
		resp.Format = m.Format
		resp.FormatCode, _ = s.service.Classifier().FormatCode(m.Format)
	}
	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handlePatterns(w http.ResponseWriter, r *http.Request) {
	c := s.service.Classifier()
	rules := c.Rules()

	out := make([]RuleResponse, len(rules))
	for i, rule := range rules {
		code, _ := c.FormatCode(rule.Format)
		out[i] = RuleResponse{
			Expression: rule.Pattern,
			Type:       rule.Type,
			Format:     rule.Format,
			FormatCode: code,
		}
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"rules": out})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.service.History(r.Context(), parseIntParam(r, "limit", defaultHistoryLimit))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"status": "ok",
		"jobs":   s.service.Limiter().Status(),
	})
}
