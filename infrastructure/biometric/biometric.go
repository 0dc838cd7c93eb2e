// Package biometric abstracts the platform biometric sensor. The session
// store only needs to know whether hardware is present and enrolled, and
// whether a challenge succeeded.
package biometric

import "context"

// Authenticator is the platform biometric capability.
type Authenticator interface {
	// Available reports whether biometric hardware is present and at
	// least one identity is enrolled.
	Available(ctx context.Context) bool

	// Challenge prompts the user for a biometric check and reports
	// whether it succeeded. A failed or dismissed prompt returns false
	// with no error; err is reserved for hardware faults.
	Challenge(ctx context.Context, prompt string) (bool, error)
}

// Unavailable is an Authenticator for platforms with no sensor. Every
// challenge fails.
type Unavailable struct{}

// Available implements Authenticator.
func (Unavailable) Available(ctx context.Context) bool { return false }

// Challenge implements Authenticator.
func (Unavailable) Challenge(ctx context.Context, prompt string) (bool, error) {
	return false, nil
}

// Mock is a configurable Authenticator for development and tests.
type Mock struct {
	// HardwarePresent reports as sensor availability.
	HardwarePresent bool

	// ChallengeResult is returned by every challenge.
	ChallengeResult bool

	// ChallengeErr, when set, is returned by every challenge.
	ChallengeErr error

	// Challenges counts issued prompts.
	Challenges int
}

// NewMock returns a mock whose hardware is present and whose challenges
// succeed.
func NewMock() *Mock {
	return &Mock{HardwarePresent: true, ChallengeResult: true}
}

// Available implements Authenticator.
func (m *Mock) Available(ctx context.Context) bool { return m.HardwarePresent }

// Challenge implements Authenticator.
func (m *Mock) Challenge(ctx context.Context, prompt string) (bool, error) {
	m.Challenges++
	if m.ChallengeErr != nil {
		return false, m.ChallengeErr
	}
	return m.ChallengeResult, nil
}
