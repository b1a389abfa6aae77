package service

import "anoa.com/scholarhub/internal/entity"

var transitions = map[entity.ApplicationStatus][]entity.ApplicationStatus{
	entity.StatusDraft:       {entity.StatusSubmitted},
	entity.StatusSubmitted:   {entity.StatusUnderReview},
	entity.StatusUnderReview: {entity.StatusShortlisted, entity.StatusAccepted, entity.StatusRejected},
	entity.StatusShortlisted: {entity.StatusInterview, entity.StatusAccepted, entity.StatusRejected},
	entity.StatusInterview:   {entity.StatusAccepted, entity.StatusRejected},
}

func isAllowedTransition(from, to entity.ApplicationStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func isFinalStatus(status entity.ApplicationStatus) bool {
	return status == entity.StatusAccepted || status == entity.StatusRejected
}

func isKnownStatus(status entity.ApplicationStatus) bool {
	switch status {
	case entity.StatusDraft, entity.StatusSubmitted, entity.StatusUnderReview, entity.StatusShortlisted,
		entity.StatusInterview, entity.StatusAccepted, entity.StatusRejected:
		return true
	}
	return false
}

// parseStatus accepts only the exact stored spelling of a status.
func parseStatus(raw string) (entity.ApplicationStatus, bool) {
	status := entity.ApplicationStatus(raw)
	return status, isKnownStatus(status)
}
