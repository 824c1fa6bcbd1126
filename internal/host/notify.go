package host

// Level classifies a user-visible notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

// Notice is a message plus a human-readable description, shown to the user.
type Notice struct {
	Level       Level
	Message     string
	Description string
}

// Notifier surfaces notices to the user. Implementations must not block
// for long; they are called while the collection lock may be held.
type Notifier interface {
	Notify(Notice)
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

type discard struct{}

func (discard) Notify(Notice) {}
