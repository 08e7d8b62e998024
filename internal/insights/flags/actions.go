package flags

import "crm_insights_backend/internal/insights/domain"

var leadActions = map[Type][]string{
	NoContact:       {"Schedule a follow-up call", "Send a check-in email"},
	LongPipeline:    {"Review what is blocking the decision", "Offer a time-limited incentive"},
	HighValueStale:  {"Escalate to the account owner", "Book a meeting with the decision maker"},
	NoActivity:      {"Log a first contact attempt", "Send an introduction email"},
	HighProbability: {"Prioritise closing this deal", "Prepare the final proposal"},
}

var clientActions = map[Type][]string{
	NoContact:           {"Schedule a follow-up", "Send a check-in message"},
	DecliningEngagement: {"Book a relationship review", "Ask for feedback on recent work"},
	HighValueAtRisk:     {"Arrange an executive check-in", "Propose a new project"},
	StrongRelationship:  {"Ask for a referral", "Explore upsell opportunities"},
}

var (
	newLeadDefaults     = []string{"Make first contact", "Qualify budget and timeline"}
	wonLeadDefaults     = []string{"Create the client account", "Hand over to delivery"}
	lostLeadDefaults    = []string{"Record the loss reason"}
	openLeadDefaults    = []string{"Keep the regular contact cadence"}
	idleClientDefaults  = []string{"Explore new project opportunities", "Share recent case studies"}
	lapsedClientDefault = []string{"Run a win-back campaign"}
	busyClientDefaults  = []string{"Keep the regular check-in cadence"}
)

// SuggestLeadActions concatenates the action lists of the fired flags in
// evaluation order, without de-duplication. With no flags the lead's stage
// picks a default list.
func SuggestLeadActions(fired []Flag, lead domain.Lead) []string {
	if len(fired) > 0 {
		return collect(fired, leadActions)
	}

	switch lead.Stage {
	case domain.StageNew:
		return clone(newLeadDefaults)
	case domain.StageWon:
		return clone(wonLeadDefaults)
	case domain.StageLost:
		return clone(lostLeadDefaults)
	default:
		return clone(openLeadDefaults)
	}
}

// SuggestClientActions is the client counterpart of SuggestLeadActions.
func SuggestClientActions(fired []Flag, client domain.Client, activeProjects int) []string {
	if len(fired) > 0 {
		return collect(fired, clientActions)
	}

	switch {
	case client.Status == domain.ClientInactive || client.Status == domain.ClientChurned:
		return clone(lapsedClientDefault)
	case activeProjects == 0:
		return clone(idleClientDefaults)
	default:
		return clone(busyClientDefaults)
	}
}

func collect(fired []Flag, table map[Type][]string) []string {
	actions := make([]string, 0, len(fired)*2)
	for _, f := range fired {
		actions = append(actions, table[f.Type]...)
	}
	return actions
}

func clone(in []string) []string {
	return append([]string(nil), in...)
}
