package service

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
	"time"

	"anoa.com/scholarhub/internal/entity"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
)

const (
	indexApplications  = "applications"
	indexAnnouncements = "announcements"
	signingKeyName     = "ScholarhubTenantSigner"
)

type SearchService interface {
	IndexApplication(app *entity.Application) error
	IndexAnnouncement(a *entity.Announcement) error
	DeleteAnnouncement(id string) error
	SearchApplications(query, status string, limit int64) ([]ApplicationHit, error)
	GenerateSearchToken(role string) (string, error)
}

// ApplicationHit is the director-facing application search document.
type ApplicationHit struct {
	ID          string `json:"id"`
	FullName    string `json:"full_name"`
	University  string `json:"university"`
	Program     string `json:"program"`
	Nationality string `json:"nationality"`
	Status      string `json:"status"`
	CohortName  string `json:"cohort_name"`
	SubmittedAt int64  `json:"submitted_at"`
}

type announcementDoc struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	Audience  string `json:"audience"`
	CreatedAt int64  `json:"created_at"`
}

type meiliSearchService struct {
	client        meilisearch.ServiceManager
	signingKeyUID string
	signingKey    string
	sanitizer     *bluemonday.Policy
}

func NewMeiliSearchService(client meilisearch.ServiceManager) SearchService {
	s := &meiliSearchService{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	s.initIndexes()
	s.initSigningKey()
	return s
}

func (s *meiliSearchService) initSigningKey() {
	resp, err := s.client.GetKeys(&meilisearch.KeysQuery{Limit: 20})
	if err != nil {
		log.Warn().Err(err).Msg("failed to list meilisearch keys")
		return
	}

	for _, key := range resp.Results {
		if key.Name == signingKeyName {
			s.signingKeyUID = key.UID
			s.signingKey = key.Key
			return
		}
	}

	key, err := s.client.CreateKey(&meilisearch.Key{
		Description: "Signs tenant tokens for frontend search",
		Name:        signingKeyName,
		Actions:     []string{"search"},
		Indexes:     []string{indexApplications, indexAnnouncements},
		ExpiresAt:   time.Now().AddDate(100, 0, 0),
	})
	if err != nil {
		log.Warn().Err(err).Msg("failed to create meilisearch signing key")
		return
	}

	s.signingKeyUID = key.UID
	s.signingKey = key.Key
	log.Info().Msg("created meilisearch signing key")
}

func (s *meiliSearchService) initIndexes() {
	appFilterable := []any{"status", "cohort_name"}
	if _, err := s.client.Index(indexApplications).UpdateFilterableAttributes(&appFilterable); err != nil {
		log.Warn().Err(err).Msg("failed to update applications filterable attributes")
	}
	appSortable := []string{"submitted_at"}
	if _, err := s.client.Index(indexApplications).UpdateSortableAttributes(&appSortable); err != nil {
		log.Warn().Err(err).Msg("failed to update applications sortable attributes")
	}

	annFilterable := []any{"audience"}
	if _, err := s.client.Index(indexAnnouncements).UpdateFilterableAttributes(&annFilterable); err != nil {
		log.Warn().Err(err).Msg("failed to update announcements filterable attributes")
	}
	annSortable := []string{"created_at"}
	if _, err := s.client.Index(indexAnnouncements).UpdateSortableAttributes(&annSortable); err != nil {
		log.Warn().Err(err).Msg("failed to update announcements sortable attributes")
	}
}

func (s *meiliSearchService) cleanText(content string) string {
	content = strings.ReplaceAll(content, "</p>", " ")
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</div>", " ")
	return strings.Join(strings.Fields(html.UnescapeString(s.sanitizer.Sanitize(content))), " ")
}

func (s *meiliSearchService) IndexApplication(app *entity.Application) error {
	if app.Status == entity.StatusDraft {
		return nil
	}

	doc := ApplicationHit{
		ID:          app.ID.String(),
		FullName:    s.cleanText(app.FullName),
		University:  s.cleanText(app.University),
		Program:     s.cleanText(app.Program),
		Nationality: s.cleanText(app.Nationality),
		Status:      string(app.Status),
	}
	if app.CohortName != nil {
		doc.CohortName = *app.CohortName
	}
	if app.SubmittedAt != nil {
		doc.SubmittedAt = app.SubmittedAt.Unix()
	}

	task, err := s.client.Index(indexApplications).AddDocuments([]ApplicationHit{doc}, strPtr("id"))
	if err != nil {
		return err
	}
	log.Debug().Str("application_id", doc.ID).Interface("task", task.TaskUID).Msg("indexed application")
	return nil
}

func (s *meiliSearchService) IndexAnnouncement(a *entity.Announcement) error {
	doc := announcementDoc{
		ID:        a.ID.String(),
		Title:     s.cleanText(a.Title),
		Body:      s.cleanText(a.Body),
		Audience:  a.Audience,
		CreatedAt: a.CreatedAt.Unix(),
	}

	_, err := s.client.Index(indexAnnouncements).AddDocuments([]announcementDoc{doc}, strPtr("id"))
	return err
}

func (s *meiliSearchService) DeleteAnnouncement(id string) error {
	_, err := s.client.Index(indexAnnouncements).DeleteDocument(id)
	return err
}

func (s *meiliSearchService) SearchApplications(query, status string, limit int64) ([]ApplicationHit, error) {
	req := &meilisearch.SearchRequest{
		Limit: limit,
		Sort:  []string{"submitted_at:desc"},
	}
	if status != "" {
		req.Filter = fmt.Sprintf("status = %q", status)
	}

	resp, err := s.client.Index(indexApplications).Search(query, req)
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(resp.Hits)
	if err != nil {
		return nil, err
	}
	hits := []ApplicationHit{}
	if err := json.Unmarshal(raw, &hits); err != nil {
		return nil, err
	}
	return hits, nil
}

// GenerateSearchToken issues a tenant token: directors search everything,
// everyone else only the announcements addressed to them.
func (s *meiliSearchService) GenerateSearchToken(role string) (string, error) {
	if s.signingKeyUID == "" || s.signingKey == "" {
		return "", fmt.Errorf("signing key not initialized")
	}

	searchRules := map[string]any{}
	if role == entity.RoleDirector {
		searchRules[indexApplications] = map[string]any{"filter": nil}
		searchRules[indexAnnouncements] = map[string]any{"filter": nil}
	} else {
		quoted := make([]string, 0, 2)
		for _, a := range entity.AudiencesFor(role) {
			quoted = append(quoted, fmt.Sprintf("'%s'", a))
		}
		searchRules[indexAnnouncements] = map[string]any{
			"filter": fmt.Sprintf("audience IN [%s]", strings.Join(quoted, ", ")),
		}
	}

	return s.client.GenerateTenantToken(s.signingKeyUID, searchRules, &meilisearch.TenantTokenOptions{
		APIKey:    s.signingKey,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	})
}

func strPtr(s string) *string {
	return &s
}
