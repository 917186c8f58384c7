package onboarding

import (
	"fmt"
	"strings"
)

const (
	msgGreeting = "Hello! I'm your Titan Bank Virtual Assistant. Let's first verify if you have a pre-approved offer."
	msgAskName  = "Please tell me your full name."

	msgAskMobile     = "Thanks! Please share your 10-digit mobile number registered with the bank."
	msgInvalidMobile = "That doesn't look like a valid mobile number. Please enter the 10-digit mobile number linked to your bank account."
	msgAskEmail      = "Thanks! Could you also share your email address so we can send respectful updates and your sanction letter?"
	msgInvalidEmail  = "That doesn't look like a valid email. Please enter a correct email address (e.g., name@example.com)."

	msgSendFailed   = "Sorry, I couldn't send the OTP right now. Please try again."
	msgResendFailed = "Sorry, I couldn't resend the OTP. Please try again in a moment."
	msgVerifyFailed = "There was an issue verifying the OTP. Please try again."
	msgInvalidOTP   = `Please enter the 6-digit OTP sent to your email, or type "resend" to get a new code.`
	msgWrongOTP     = `That code didn't match. Please try again, or type "resend" to get a new OTP.`

	msgNoProfile  = "Email verified successfully. I could not find a pre-approved profile with that name and mobile number, so I need a few more details."
	msgAskAddress = "Please share your residential address."

	msgAskNationality = "Thanks. What is your nationality?"

	msgAskLifeInsurance     = "Would you like to add a life insurance cover with your loan?\n- Yes\n- No\n\nPlease type Yes or No."
	msgInvalidLifeInsurance = "Please type Yes or No for life insurance."

	msgPreferenceNoted = "Thank you. Your preference has been noted. I will continue as a new customer and run the full eligibility journey for you."
	msgAskRequirement  = `Now tell me your loan requirement, for example: "I need a 3 lakh loan for 36 months."`
)

// Greeting is what a fresh session shows before any input. A session that
// already knows its customer skips straight to the loan requirement.
func Greeting(bound bool) []string {
	if bound {
		return []string{msgGreeting, msgAskRequirement}
	}

	return []string{msgGreeting, msgAskName}
}

func bulletList(options []string) string {
	return "- " + strings.Join(options, "\n- ")
}

func askGender() string {
	return "Thank you. Please select your gender:\n" + bulletList(genderOptions) + "\n\nYou can type one of the options."
}

func invalidGender() string {
	return "Please choose one of the options:\n" + bulletList(genderOptions)
}

func askEducation() string {
	return "Please select your highest education level:\n" + bulletList(educationOptions) + "\n\nYou can type one of the options."
}

func invalidEducation() string {
	return "Please choose one option:\n" + bulletList(educationOptions)
}

func demoHint(code string) string {
	if code == "" {
		return ""
	}

	return fmt.Sprintf(" (for demo, your OTP is %s)", code)
}

func otpSent(email, code string) string {
	return fmt.Sprintf(`Thank you. I have sent a one-time password to %s. Please enter the 6-digit code to verify your email%s. If you didn't receive it, type "resend".`,
		email, demoHint(code))
}

func otpResent(email, code string) string {
	return fmt.Sprintf("I've sent a fresh OTP to %s.%s Please enter the 6-digit code.", email, demoHint(code))
}

func foundCustomer(name string) string {
	return fmt.Sprintf("Thank you, %s. I found you in our pre-approved list.", name)
}

func preapprovedLimit(limit string) string {
	return fmt.Sprintf("Your profile shows a pre-approved limit of %s. %s", limit, msgAskRequirement)
}

func reprompt(stage Stage) string {
	switch stage {
	case StageAskName:
		return msgAskName
	case StageAskAddress:
		return msgAskAddress
	case StageAskNationality:
		return msgAskNationality
	default:
		return ""
	}
}

// Options lists the accepted answers for stages that take a fixed choice.
func Options(stage Stage) []string {
	switch stage {
	case StageAskGender:
		return append([]string(nil), genderOptions...)
	case StageAskEducation:
		return append([]string(nil), educationOptions...)
	case StageAskLifeInsurance:
		return []string{"Yes", "No"}
	default:
		return nil
	}
}
