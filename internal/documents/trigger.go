// Package documents decides which verification keyword an attached file
// stands for.
package documents

import (
	"strings"

	"github.com/gratefultolord/loan_intake_bot/internal/backend"
)

const (
	TriggerBankStatement = "bank uploaded"
	TriggerIDProof       = "id uploaded"
	TriggerBusinessDocs  = "itr uploaded"
	TriggerSalarySlip    = "uploaded"
	TriggerPANCard       = "pan uploaded"
)

func isSelfEmployed(ctx backend.Context) bool {
	return strings.HasPrefix(strings.ToLower(ctx.String("employment_type")), "self")
}

// SelectTrigger returns the keyword for the first outstanding document category.
func SelectTrigger(ctx backend.Context) string {
	selfEmployed := isSelfEmployed(ctx)

	switch {
	case !ctx.Truthy("bank_statement_uploaded"):
		return TriggerBankStatement
	case !ctx.Truthy("id_address_proof_uploaded"):
		return TriggerIDProof
	case selfEmployed && !ctx.Truthy("business_docs_uploaded"):
		return TriggerBusinessDocs
	case !selfEmployed && !ctx.Truthy("salary_slip_uploaded"):
		return TriggerSalarySlip
	case !ctx.Truthy("pan_card_uploaded"):
		return TriggerPANCard
	default:
		return TriggerSalarySlip
	}
}

// RequiresUpload reports whether the file bytes go to the salary slip endpoint
// before the keyword is sent. Only a salaried applicant's outstanding salary
// slip qualifies.
func RequiresUpload(ctx backend.Context, trigger string) bool {
	return trigger == TriggerSalarySlip &&
		!isSelfEmployed(ctx) &&
		!ctx.Truthy("salary_slip_uploaded")
}
