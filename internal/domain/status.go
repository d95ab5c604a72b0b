package domain

// Status is the classified outcome of a job. The integer values are the
// stable ids exposed to clients and must never be reordered.
type Status int

const (
	StatusQueued Status = iota + 1
	StatusProcessing
	StatusAccepted
	StatusWrongAnswer
	StatusTimeLimitExceeded
	StatusCompilationError
	StatusRuntimeErrSIGSEGV
	StatusRuntimeErrSIGXFSZ
	StatusRuntimeErrSIGFPE
	StatusRuntimeErrSIGABRT
	StatusRuntimeErrNZEC
	StatusRuntimeErrOther
	StatusInternalError
	StatusExecFormatError
)

// RuntimeKind narrows a runtime error to its cause. NZEC is a non-zero exit
// without a fatal signal.
type RuntimeKind int

const (
	RuntimeSIGSEGV RuntimeKind = iota
	RuntimeSIGXFSZ
	RuntimeSIGFPE
	RuntimeSIGABRT
	RuntimeNZEC
	RuntimeOther
)

// RuntimeError maps a runtime kind onto its status id.
func RuntimeError(kind RuntimeKind) Status {
	return StatusRuntimeErrSIGSEGV + Status(kind)
}

// IsRuntimeError reports whether s is one of the runtime-error statuses.
func (s Status) IsRuntimeError() bool {
	return s >= StatusRuntimeErrSIGSEGV && s <= StatusRuntimeErrOther
}

// Terminal reports whether s is a final verdict. Terminal statuses are never
// written back to Processing.
func (s Status) Terminal() bool {
	return s != StatusQueued && s != StatusProcessing
}

// ID is the stable wire id for the status.
func (s Status) ID() int { return int(s) }

var statusDescriptions = map[Status]string{
	StatusQueued:             "In Queue",
	StatusProcessing:         "Processing",
	StatusAccepted:           "Accepted",
	StatusWrongAnswer:        "Wrong Answer",
	StatusTimeLimitExceeded:  "Time Limit Exceeded",
	StatusCompilationError:   "Compilation Error",
	StatusRuntimeErrSIGSEGV:  "Runtime Error (SIGSEGV)",
	StatusRuntimeErrSIGXFSZ:  "Runtime Error (SIGXFSZ)",
	StatusRuntimeErrSIGFPE:   "Runtime Error (SIGFPE)",
	StatusRuntimeErrSIGABRT:  "Runtime Error (SIGABRT)",
	StatusRuntimeErrNZEC:     "Runtime Error (NZEC)",
	StatusRuntimeErrOther:    "Runtime Error (Other)",
	StatusInternalError:      "Internal Error",
	StatusExecFormatError:    "Exec Format Error",
}

// Description is the human-readable label shown in the check response.
func (s Status) Description() string {
	if d, ok := statusDescriptions[s]; ok {
		return d
	}
	return "Unknown"
}

func (s Status) String() string { return s.Description() }
