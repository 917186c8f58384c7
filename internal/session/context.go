package session

import (
	"github.com/gratefultolord/loan_intake_bot/internal/backend"
	"github.com/gratefultolord/loan_intake_bot/internal/onboarding"
)

// outgoingContext overlays locally captured identity fields on the last
// server context. A local value wins only when it is non-empty.
func outgoingContext(server backend.Context, st onboarding.State) backend.Context {
	out := server.Clone()
	if out == nil {
		out = backend.Context{}
	}

	set := func(key, value string) {
		if value != "" {
			out[key] = value
		}
	}

	set("customer_name", st.Name)
	set("customer_mobile", st.Mobile)
	set("customer_email", st.Email)
	set("customer_address", st.Address)
	set("customer_gender", st.Gender)
	set("customer_nationality", st.Nationality)
	set("customer_education", st.Education)
	set("life_insurance", st.LifeInsuranceLabel())

	if st.EmailVerified {
		out["email_verified"] = true
	}

	return out
}

// proceedKeyword is the text sent when the user asks to move the application
// forward without typing anything.
func proceedKeyword(ctx backend.Context) string {
	if ctx.Truthy("chosen_offer") && !ctx.Truthy("sales_done") {
		return "yes"
	}

	return "confirm"
}
