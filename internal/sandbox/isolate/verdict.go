package isolate

import (
	"strings"

	"github.com/rrronit/flash/internal/domain"
)

// Signal exit codes the classifier distinguishes under isolate status SG.
const (
	exitSIGSEGV = 11
	exitSIGXFSZ = 25
	exitSIGFPE  = 8
	exitSIGABRT = 6
)

// Classify maps the isolate termination report plus the expected-output
// comparison to a final verdict. It is pure and total: any unrecognised
// isolate status is an internal error rather than a guess.
//
// Output comparison trims whitespace symmetrically on the whole buffer, so a
// trailing newline never flips a verdict. An empty expected output disables
// the comparison and a clean exit is Accepted.
func Classify(isolateStatus string, exitCode int, stdout, expected string) domain.Status {
	switch isolateStatus {
	case "TO":
		return domain.StatusTimeLimitExceeded
	case "SG":
		switch exitCode {
		case exitSIGSEGV:
			return domain.RuntimeError(domain.RuntimeSIGSEGV)
		case exitSIGXFSZ:
			return domain.RuntimeError(domain.RuntimeSIGXFSZ)
		case exitSIGFPE:
			return domain.RuntimeError(domain.RuntimeSIGFPE)
		case exitSIGABRT:
			return domain.RuntimeError(domain.RuntimeSIGABRT)
		default:
			return domain.RuntimeError(domain.RuntimeOther)
		}
	case "RE":
		return domain.RuntimeError(domain.RuntimeNZEC)
	case "XX":
		return domain.StatusInternalError
	case "":
		if expected == "" || strings.TrimSpace(stdout) == strings.TrimSpace(expected) {
			return domain.StatusAccepted
		}
		return domain.StatusWrongAnswer
	default:
		return domain.StatusInternalError
	}
}
