package compliance

import "precinctwatch/internal/models"

// AuditScore is the share of applicable checklist items answered compliant.
// Items answered N/A are excluded; unanswered items count against the score.
func AuditScore(items []models.AuditTemplateItem, responses map[string]models.ItemResponse) int {
	applicable, compliant := 0, 0
	for _, item := range items {
		r := responses[item.ID]
		if r == models.ResponseNA {
			continue
		}
		applicable++
		if r == models.ResponseCompliant {
			compliant++
		}
	}
	return percent(compliant, applicable)
}

// MissingRequiredResponses lists required items that have no answer yet.
func MissingRequiredResponses(items []models.AuditTemplateItem, responses map[string]models.ItemResponse) []string {
	missing := []string{}
	for _, item := range items {
		if !item.Required {
			continue
		}
		if _, ok := responses[item.ID]; !ok {
			missing = append(missing, item.ID)
		}
	}
	return missing
}
