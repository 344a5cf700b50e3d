package task

import (
	"log/slog"

	"github.com/frahmantamala/salescrm/internal/audit"
	"github.com/frahmantamala/salescrm/internal/resource"
	"github.com/frahmantamala/salescrm/internal/store"
)

// Tasks are owned by their assignee.
const OwnerAttr = "assignee"

type Task struct {
	resource.Base
	Subject   string `json:"subject"`
	Status    string `json:"status"`
	Priority  string `json:"priority"`
	RelatedTo string `json:"relatedTo,omitempty"`
	DueDate   string `json:"dueDate,omitempty"`
	Assignee  string `json:"assignee"`
}

func (t Task) RecordOwner() string {
	return t.Assignee
}

var Definition = resource.Definition[Task]{
	Name:         "task",
	Table:        "tasks",
	OwnerAttr:    OwnerAttr,
	TenantIndex:  resource.TenantIndex,
	OwnerIndex:   resource.IndexName(OwnerAttr),
	Lookups:      map[string]string{"status": resource.IndexName("status")},
	SearchFields: []string{"subject", "status", "priority", "relatedTo"},
	Dimensions:   []string{"status", "priority"},
}

func NewService(s store.Store, scopes resource.ScopeResolver, sink audit.Sink, logger *slog.Logger) *resource.Service[Task] {
	return resource.NewService(Definition, s, scopes, sink, logger)
}
