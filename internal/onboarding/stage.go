package onboarding

import "github.com/gratefultolord/loan_intake_bot/internal/customer"

type Stage string

const (
	StageAskName          Stage = "ASK_NAME"
	StageAskMobile        Stage = "ASK_MOBILE"
	StageAskEmail         Stage = "ASK_EMAIL"
	StageAskEmailOTP      Stage = "ASK_EMAIL_OTP"
	StageAskAddress       Stage = "ASK_ADDRESS"
	StageAskGender        Stage = "ASK_GENDER"
	StageAskNationality   Stage = "ASK_NATIONALITY"
	StageAskEducation     Stage = "ASK_EDUCATION"
	StageAskLifeInsurance Stage = "ASK_LIFE_INSURANCE"
	StageDone             Stage = "DONE"
)

const (
	LifeInsuranceYes = "yes"
	LifeInsuranceNo  = "no"
)

// State is everything onboarding captures for one session. Transitions return
// a new State; callers never edit fields in place.
type State struct {
	Stage Stage

	Name          string
	Mobile        string
	Email         string
	EmailVerified bool

	Address       string
	Gender        string
	Nationality   string
	Education     string
	LifeInsurance string

	// CustomerID is the bound identity. Once set it is never cleared.
	CustomerID string
	Customer   *customer.Customer
}

func NewState() State {
	return State{Stage: StageAskName}
}

// BoundState starts a session that already knows its customer.
func BoundState(customerID string) State {
	return State{Stage: StageDone, CustomerID: customerID}
}

func (s State) Done() bool {
	return s.Stage == StageDone
}

// LifeInsuranceLabel is the wording the backend expects for the choice.
func (s State) LifeInsuranceLabel() string {
	switch s.LifeInsurance {
	case LifeInsuranceYes:
		return "Opted In"
	case LifeInsuranceNo:
		return "Not opted"
	default:
		return ""
	}
}
