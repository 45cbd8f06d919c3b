// internal/repository/search/peers.go
package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"risk-analytics/internal/analytics/extraction"
	"risk-analytics/internal/common/errors"
	"risk-analytics/internal/common/logger"
	"risk-analytics/internal/models"
)

const maxPeerLimit = 1000

// PeerSearch looks up industry peers in the company risk profile index.
type PeerSearch struct {
	client *elasticsearch.Client
	index  string
	logger logger.Logger
}

func NewPeerSearch(client *elasticsearch.Client, index string, log logger.Logger) *PeerSearch {
	return &PeerSearch{
		client: client,
		index:  index,
		logger: log.WithFields(map[string]interface{}{"component": "peer-search", "index": index}),
	}
}

// PeerQuery describes one peer lookup.
type PeerQuery struct {
	Index      string
	Industry   string
	ExcludeIDs []string
	Size       int
}

// BuildPeerQuery builds the search request for q. Industry matching is
// case-insensitive through the lowercase keyword subfield.
func BuildPeerQuery(q PeerQuery) (*esapi.SearchRequest, error) {
	if q.Index == "" {
		return nil, fmt.Errorf("index name is required")
	}
	if strings.TrimSpace(q.Industry) == "" {
		return nil, fmt.Errorf("industry is required")
	}
	size := q.Size
	if size <= 0 || size > maxPeerLimit {
		size = maxPeerLimit
	}

	boolQuery := map[string]interface{}{
		"filter": []interface{}{
			map[string]interface{}{"term": map[string]interface{}{
				"industry.normalized": strings.ToLower(strings.TrimSpace(q.Industry)),
			}},
			map[string]interface{}{"exists": map[string]interface{}{"field": "risk_score"}},
		},
	}
	if len(q.ExcludeIDs) > 0 {
		boolQuery["must_not"] = []interface{}{
			map[string]interface{}{"terms": map[string]interface{}{"id": q.ExcludeIDs}},
		}
	}

	body, err := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{"bool": boolQuery},
		"sort":  []interface{}{map[string]interface{}{"completed_at": map[string]interface{}{"order": "desc"}}},
	})
	if err != nil {
		return nil, err
	}

	return &esapi.SearchRequest{
		Index: []string{q.Index},
		Body:  strings.NewReader(string(body)),
		Size:  &size,
	}, nil
}

type peerDocument struct {
	ID                  string          `json:"id"`
	RequestID           string          `json:"request_id"`
	CompanyName         string          `json:"company_name"`
	Industry            string          `json:"industry"`
	RiskScore           *float64        `json:"risk_score"`
	RiskGrade           string          `json:"risk_grade"`
	ModelType           string          `json:"model_type"`
	State               string          `json:"state"`
	City                string          `json:"city"`
	TotalParameters     int             `json:"total_parameters"`
	AvailableParameters int             `json:"available_parameters"`
	RiskAnalysis        json.RawMessage `json:"risk_analysis"`
	CompletedAt         *time.Time      `json:"completed_at"`
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			Source peerDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// FindPeers returns companies of industry, skipping excludeIDs.
func (s *PeerSearch) FindPeers(ctx context.Context, industry string, excludeIDs []string, limit int) ([]models.PortfolioRecord, error) {
	req, err := BuildPeerQuery(PeerQuery{Index: s.index, Industry: industry, ExcludeIDs: excludeIDs, Size: limit})
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(s.index, err)
	}

	start := time.Now()
	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, errors.NewSearchQueryFailedError(s.index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, errors.NewSearchQueryFailedError(s.index, fmt.Errorf("search returned %s", res.Status()))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, errors.NewSearchQueryFailedError(s.index, fmt.Errorf("decode response: %w", err))
	}

	peers := make([]models.PortfolioRecord, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		peers = append(peers, toRecord(hit.Source))
	}

	s.logger.Debug("peer search completed", map[string]interface{}{
		"industry":   industry,
		"hits":       len(peers),
		"totalHits":  parsed.Hits.Total.Value,
		"durationMs": time.Since(start).Milliseconds(),
	})
	return peers, nil
}

func toRecord(doc peerDocument) models.PortfolioRecord {
	rec := models.PortfolioRecord{
		ID:                  doc.ID,
		RequestID:           doc.RequestID,
		CompanyName:         doc.CompanyName,
		RiskScore:           doc.RiskScore,
		RiskGrade:           doc.RiskGrade,
		Industry:            doc.Industry,
		Region:              models.Region{State: doc.State, City: doc.City},
		ModelType:           doc.ModelType,
		TotalParameters:     doc.TotalParameters,
		AvailableParameters: doc.AvailableParameters,
		CompletedAt:         doc.CompletedAt,
	}
	if len(doc.RiskAnalysis) > 0 {
		rec.RiskAnalysis = extraction.ParseRiskRecord([]byte(doc.RiskAnalysis)).Value
	}
	return rec
}
