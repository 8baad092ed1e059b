package notify

import (
	"fmt"
	"strings"
)

func PasswordReset(resetURL, expires string) (subject, body string) {
	return "Reset your password", fmt.Sprintf(
		"We received a request to reset your password.\n\n"+
			"Open the link below to choose a new one. It expires %s.\n\n%s\n\n"+
			"If you did not ask for this, you can ignore this email.\n", expires, resetURL)
}

func ShaykhInvitation(activationURL, expires string) (subject, body string) {
	return "You have been invited to join as a shaykh", fmt.Sprintf(
		"An administrator has invited you to register as a shaykh.\n\n"+
			"Complete your registration here:\n\n%s\n\nThis link can be used once and expires %s.\n",
		activationURL, expires)
}

func CaseAssigned(kind, caseID string) (subject, body string) {
	return fmt.Sprintf("New %s assigned to you", kind), fmt.Sprintf(
		"A %s (reference %s) has been assigned to you.\n\n"+
			"Sign in to your dashboard to review it.\n", kind, Reference(caseID))
}

// Reference is the short, human-quotable form of a case id.
func Reference(caseID string) string {
	if len(caseID) > 8 {
		caseID = caseID[:8]
	}
	return strings.ToUpper(caseID)
}
