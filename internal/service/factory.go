package service

import (
	"civicpulse.app/sla/internal/store"
)

type Services struct {
	stores   *store.Stores
	policy   PolicySource
	observer Observer
}

func NewServices(stores *store.Stores, policy PolicySource, observer Observer) *Services {
	return &Services{
		stores:   stores,
		policy:   policy,
		observer: observer,
	}
}

func (s *Services) Issues() IssueService {
	return NewIssueService(s.stores.Issues(), s.policy)
}

func (s *Services) SLA() SLAService {
	return NewSLAService(s.stores.Issues(), s.policy, s.observer)
}
