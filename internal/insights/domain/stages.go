package domain

// Pipeline stage names. The set is open-ended; these are the names the
// rules and the funnel refer to.
const (
	StageNew         = "New"
	StageContacted   = "Contacted"
	StageQuoted      = "Quoted"
	StageNegotiation = "Negotiation"
	StageWon         = "Won"
	StageLost        = "Lost"
)

// Project statuses.
const (
	ProjectPlanning  = "Planning"
	ProjectActive    = "Active"
	ProjectOnHold    = "On Hold"
	ProjectCompleted = "Completed"
	ProjectCancelled = "Cancelled"
)

// Client statuses with special handling in the action recommender.
const (
	ClientActive   = "Active"
	ClientInactive = "Inactive"
	ClientChurned  = "Churned"
)

// FunnelStages is the fixed ordered stage list used for conversion drop-off.
var FunnelStages = []string{StageNew, StageContacted, StageQuoted, StageNegotiation, StageWon}

// IsClosedStage reports whether the lead has left the pipeline.
func IsClosedStage(stage string) bool {
	return stage == StageWon || stage == StageLost
}

// IsOpenProject reports whether a project still counts as active work.
func IsOpenProject(status string) bool {
	return status == ProjectActive || status == ProjectPlanning
}
