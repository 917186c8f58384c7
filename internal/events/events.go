// Package events turns backend signals into the activity log shown next to
// the conversation.
package events

import (
	"strings"
	"time"

	"github.com/gratefultolord/loan_intake_bot/internal/backend"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
)

type ProcessEvent struct {
	Message   string    `json:"message"`
	Status    Status    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
}

type mapping struct {
	message  string
	category string
}

var known = map[string]mapping{
	"session_started":                        {"Session initiated", "Session"},
	"SALES_UPDATE":                           {"Processing loan request", "Sales"},
	"VERIFICATION_UPDATE":                    {"Verifying customer documents", "Verification"},
	"UNDERWRITING_DECISION":                  {"Evaluating loan eligibility", "Underwriting"},
	"SANCTION_GENERATED":                     {"Generating sanction letter", "Sanction"},
	"preapproved_instant_approval_confirmed": {"Pre-approved offer confirmed", "Approval"},
	"kyc_documents_uploaded":                 {"KYC documents received", "Verification"},
	"eligibility_evaluated":                  {"Eligibility check completed", "Underwriting"},
	"loan_approved_after_evaluation":         {"Loan approved after evaluation", "Approval"},
	"loan_rejected":                          {"Loan application reviewed", "Decision"},
}

const (
	ProcessingMessage = "Processing your request..."
	fallbackMessage   = "Processing..."
	fallbackCategory  = "System"
)

// Translate maps one backend event. Unknown identifiers are shown as-is under
// the System category. The event's own timestamp wins over now when it parses.
func Translate(ev backend.Event, now time.Time) ProcessEvent {
	id := ev.Identifier()
	ts := now
	if ev.Timestamp != "" {
		if parsed, err := time.Parse(time.RFC3339, ev.Timestamp); err == nil {
			ts = parsed
		}
	}

	if m, ok := known[id]; ok {
		return ProcessEvent{Message: m.message, Status: StatusCompleted, Timestamp: ts, Category: m.category}
	}

	msg := id
	if msg == "" {
		msg = fallbackMessage
	}

	return ProcessEvent{Message: msg, Status: StatusCompleted, Timestamp: ts, Category: fallbackCategory}
}

// Processing is the entry logged the moment a user message goes out.
func Processing(now time.Time) ProcessEvent {
	return ProcessEvent{Message: ProcessingMessage, Status: StatusProcessing, Timestamp: now, Category: fallbackCategory}
}

// StageEvent is the event raised after a reply whose context names a stage.
func StageEvent(stage string) backend.Event {
	return backend.Event{EventType: "STAGE_" + stage}
}

// Synthesize derives milestone entries from a context snapshot. It is pure:
// the same context always yields the same messages in the same order.
func Synthesize(ctx backend.Context, now time.Time) []ProcessEvent {
	if ctx == nil {
		return nil
	}

	var out []ProcessEvent
	add := func(msg string, status Status, category string) {
		out = append(out, ProcessEvent{Message: msg, Status: status, Timestamp: now, Category: category})
	}

	if ctx.Truthy("session_id") {
		add("Session initiated", StatusCompleted, "Session")
	}

	if ctx.Truthy("customer_id") {
		add("Customer ID verified", StatusCompleted, "Verification")
	} else if ctx.Truthy("is_new_customer") {
		add("New customer profile created", StatusCompleted, "Verification")
	}

	if ctx.Truthy("preapproved_offer") {
		add("Fetching pre-approved offers", StatusCompleted, "Sales")
		add("Pre-approved offer found", StatusCompleted, "Sales")
	} else if ctx.String("stage") == "DETAILED_EVALUATION" {
		add("No pre-approved offer found", StatusCompleted, "Sales")
		add("Initiating detailed evaluation", StatusProcessing, "Evaluation")
	}

	if kyc := ctx.String("kyc_stage"); kyc != "" {
		add("KYC upload received – "+strings.Replace(kyc, "_", " ", 1), StatusCompleted, "Verification")
	}

	if ctx.Truthy("evaluation_result") {
		decision := "Under Review"
		if ctx.Map("evaluation_result").Truthy("approved") {
			decision = "Approved"
		}
		add("Checking policies.json compliance", StatusCompleted, "Underwriting")
		add("Decision: "+decision, StatusCompleted, "Decision")
	}

	if ctx.Truthy("sanction_letter_url") || ctx.Truthy("loan_id") {
		add("Generating sanction letter", StatusCompleted, "Sanction")
		add("PDF created and stored", StatusCompleted, "Sanction")
	}

	return out
}
