package multiboot

// Phase identifies a step of the boot protocol.
type Phase int

// Phases in protocol order.
const (
	PhaseDetect Phase = iota
	PhaseConfirmClients
	PhaseHeader
	PhaseConfirmHeader
	PhaseReconfirm
	PhasePalette
	PhaseConfirmHandshake
	PhaseTransfer
	PhaseComplete
)

var phaseNames = [...]string{
	"detect",
	"confirm-clients",
	"header",
	"confirm-header",
	"reconfirm",
	"palette",
	"confirm-handshake",
	"transfer",
	"complete",
}

// String implements fmt.Stringer.
func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// Progress is passed to ProgressCallback.
type Progress struct {
	Phase Phase
	// Clients is the detected client bit mask (0b1110 at most).
	Clients byte
	// Percentage is the overall completion, 0 to 100.
	Percentage int
}

// ProgressCallback is called synchronously from Send and must return quickly.
type ProgressCallback func(Progress)
