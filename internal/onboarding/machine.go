// Package onboarding drives the guided identity dialogue that precedes free
// loan conversation: name, mobile, email with OTP verification, and, for
// applicants not found in the customer directory, a short profile.
package onboarding

import (
	"context"
	"strings"

	"github.com/AlekSi/pointer"
	"go.uber.org/zap"

	"github.com/gratefultolord/loan_intake_bot/internal/customer"
	"github.com/gratefultolord/loan_intake_bot/internal/otp"
)

// Machine applies one user answer at a time. Apart from OTP calls it has no
// side effects; every failure keeps the stage and produces a reply.
type Machine struct {
	otp       otp.Client
	customers []customer.Customer
	logger    *zap.Logger
}

func NewMachine(otpClient otp.Client, customers []customer.Customer, logger *zap.Logger) *Machine {
	return &Machine{
		otp:       otpClient,
		customers: customers,
		logger:    logger.Named("onboarding"),
	}
}

// Advance applies input to st and returns the next state and the assistant
// replies to show, in order.
func (m *Machine) Advance(ctx context.Context, st State, input string) (State, []string) {
	text := strings.TrimSpace(input)

	switch st.Stage {
	case StageAskName:
		return m.handleName(st, text)
	case StageAskMobile:
		return m.handleMobile(st, text)
	case StageAskEmail:
		return m.handleEmail(ctx, st, text)
	case StageAskEmailOTP:
		return m.handleOTP(ctx, st, text)
	case StageAskAddress:
		return m.handleAddress(st, text)
	case StageAskGender:
		return m.handleGender(st, text)
	case StageAskNationality:
		return m.handleNationality(st, text)
	case StageAskEducation:
		return m.handleEducation(st, text)
	case StageAskLifeInsurance:
		return m.handleLifeInsurance(st, text)
	default:
		m.logger.Warn("advance called outside onboarding", zap.String("stage", string(st.Stage)))
		return st, nil
	}
}

func (m *Machine) handleName(st State, text string) (State, []string) {
	if text == "" {
		return st, []string{reprompt(StageAskName)}
	}

	st.Name = text
	st.Stage = StageAskMobile

	return st, []string{msgAskMobile}
}

func (m *Machine) handleMobile(st State, text string) (State, []string) {
	mobile, ok := NormalizeMobile(text)
	if !ok {
		return st, []string{msgInvalidMobile}
	}

	st.Mobile = mobile
	st.Stage = StageAskEmail

	return st, []string{msgAskEmail}
}

func (m *Machine) handleEmail(ctx context.Context, st State, text string) (State, []string) {
	if !IsValidEmail(text) {
		return st, []string{msgInvalidEmail}
	}

	res, err := m.otp.Send(ctx, text)
	if err != nil {
		m.logger.Warn("otp send failed", zap.String("email", text), zap.Error(err))
		return st, []string{msgSendFailed}
	}

	st.Email = text
	st.EmailVerified = false
	st.Stage = StageAskEmailOTP

	return st, []string{otpSent(text, res.DemoCode)}
}

func (m *Machine) handleOTP(ctx context.Context, st State, text string) (State, []string) {
	if IsResend(text) {
		res, err := m.otp.Send(ctx, st.Email)
		if err != nil {
			m.logger.Warn("otp resend failed", zap.String("email", st.Email), zap.Error(err))
			return st, []string{msgResendFailed}
		}

		return st, []string{otpResent(st.Email, res.DemoCode)}
	}

	code, ok := ExtractOTP(text)
	if !ok {
		return st, []string{msgInvalidOTP}
	}

	verified, err := m.otp.Verify(ctx, st.Email, code)
	if err != nil {
		m.logger.Warn("otp verify failed", zap.String("email", st.Email), zap.Error(err))
		return st, []string{msgVerifyFailed}
	}

	if !verified {
		return st, []string{msgWrongOTP}
	}

	st.EmailVerified = true

	if cust, found := customer.Resolve(st.Name, st.Mobile, m.customers); found {
		m.logger.Info("customer resolved", zap.String("customer_id", cust.ID))
		return Complete(st, cust)
	}

	st.Stage = StageAskAddress

	return st, []string{msgNoProfile, msgAskAddress}
}

func (m *Machine) handleAddress(st State, text string) (State, []string) {
	if text == "" {
		return st, []string{reprompt(StageAskAddress)}
	}

	st.Address = text
	st.Stage = StageAskGender

	return st, []string{askGender()}
}

func (m *Machine) handleGender(st State, text string) (State, []string) {
	gender, ok := MatchGender(text)
	if !ok {
		return st, []string{invalidGender()}
	}

	st.Gender = gender
	st.Stage = StageAskNationality

	return st, []string{msgAskNationality}
}

func (m *Machine) handleNationality(st State, text string) (State, []string) {
	if text == "" {
		return st, []string{reprompt(StageAskNationality)}
	}

	st.Nationality = text
	st.Stage = StageAskEducation

	return st, []string{askEducation()}
}

func (m *Machine) handleEducation(st State, text string) (State, []string) {
	education, ok := MatchEducation(text)
	if !ok {
		return st, []string{invalidEducation()}
	}

	st.Education = education
	st.Stage = StageAskLifeInsurance

	return st, []string{msgAskLifeInsurance}
}

func (m *Machine) handleLifeInsurance(st State, text string) (State, []string) {
	choice, ok := ParseYesNo(text)
	if !ok {
		return st, []string{msgInvalidLifeInsurance}
	}

	st.LifeInsurance = choice

	if st.Customer != nil {
		return Complete(st, *st.Customer)
	}

	st.Stage = StageDone

	return st, []string{msgPreferenceNoted, msgAskRequirement}
}

// Complete binds cust to the session and moves to DONE. The name the user
// typed is kept; the directory name is used only when none was given.
func Complete(st State, cust customer.Customer) (State, []string) {
	c := cust
	st.Customer = &c
	st.CustomerID = cust.ID
	st.Stage = StageDone

	if strings.TrimSpace(st.Name) == "" {
		st.Name = cust.Name
	}

	amount := pointer.GetFloat64(cust.PreapprovedLimit)
	if amount <= 0 {
		return st, []string{foundCustomer(st.Name), msgAskRequirement}
	}

	return st, []string{foundCustomer(st.Name), preapprovedLimit(FormatRupees(amount))}
}
