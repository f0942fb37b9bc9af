package domain

// PriorityBand is the user-facing priority classification of a resource.
type PriorityBand string

const (
	BandHigh   PriorityBand = "high"
	BandMedium PriorityBand = "medium"
	BandLow    PriorityBand = "low"
)

// ClassifyPriority maps a numeric task priority (1-10) to its band.
// The boundaries are deliberate: 8 and above is high, 5 through 7 is
// medium, everything else (including unset) is low.
func ClassifyPriority(priority int) PriorityBand {
	switch {
	case priority > 7:
		return BandHigh
	case priority > 4:
		return BandMedium
	default:
		return BandLow
	}
}

// Tag returns the bracketed label prepended to push descriptions.
func (b PriorityBand) Tag() string {
	switch b {
	case BandHigh:
		return "[HIGH]"
	case BandMedium:
		return "[MEDIUM]"
	default:
		return "[LOW]"
	}
}

// ResourceKind is the display classification of an event's subject.
// The value doubles as the label used in notification titles.
type ResourceKind string

const (
	KindTask           ResourceKind = "Task"
	KindSubtask        ResourceKind = "Subtask"
	KindProject        ResourceKind = "Project"
	KindProjectTask    ResourceKind = "Project Task"
	KindProjectSubtask ResourceKind = "Project Subtask"

	// KindResource is the fallback label for payloads that match no row of
	// the decision table.
	KindResource ResourceKind = "Resource"
)

// ClassifyResource applies the resource-kind decision table. The presence
// of the project_id field matters, not just its value:
//
//	task    + no project_id field  → Task
//	task    + project_id ""        → Subtask
//	task    + project_id set       → Project Subtask
//	project + project_id unset/""  → Project
//	project + project_id set       → Project Task
func ClassifyResource(resourceType ResourceType, content *ResourceContent) ResourceKind {
	if content == nil {
		content = &ResourceContent{}
	}
	switch resourceType {
	case ResourceTask:
		switch {
		case content.ProjectID == nil:
			return KindTask
		case *content.ProjectID == "":
			return KindSubtask
		default:
			return KindProjectSubtask
		}
	case ResourceProject:
		if content.ProjectID != nil && *content.ProjectID != "" {
			return KindProjectTask
		}
		return KindProject
	}
	return KindResource
}
