package sql

import (
	libinjection "github.com/corazawaf/libinjection-go"
)

// InjectionCheckResult describes a SQL injection pattern detected in an
// inbound question.
type InjectionCheckResult struct {
	IsSQLi      bool   // True if SQL injection pattern detected
	Fingerprint string // libinjection fingerprint of the detected pattern
}

// CheckQuestion screens a natural-language question for embedded SQL
// injection payloads before it is interpolated into a prompt. Ordinary
// analytical questions ("total sales per store last month") pass; a
// question smuggling a statement fragment does not.
//
// Returns nil when the question is clean.
func CheckQuestion(question string) *InjectionCheckResult {
	isSQLi, fingerprint := libinjection.IsSQLi(question)
	if isSQLi {
		return &InjectionCheckResult{
			IsSQLi:      true,
			Fingerprint: string(fingerprint),
		}
	}
	return nil
}
