package advisor

import "encoding/json"

// Kind names one of the advisory screens. The service forwards the
// caller's structured input to the external model and relays the reply
// verbatim; no advisory output is ever authoritative or persisted.
type Kind string

const (
	KindDispatch    Kind = "dispatch"
	KindQuote       Kind = "quote"
	KindMaintenance Kind = "maintenance"
	KindInventory   Kind = "inventory"
	KindInsights    Kind = "insights"
	KindScheduling  Kind = "scheduling"
	KindDiagnostics Kind = "diagnostics"
)

func ValidKind(k Kind) bool {
	switch k {
	case KindDispatch, KindQuote, KindMaintenance, KindInventory,
		KindInsights, KindScheduling, KindDiagnostics:
		return true
	}
	return false
}

// Advice is the relay envelope returned to the dashboard.
type Advice struct {
	RequestID string          `json:"request_id"`
	Kind      Kind            `json:"kind"`
	Output    json.RawMessage `json:"output"`
}
