package appearance

import "log/slog"

// Notice names raised to the user.
const (
	NoticeCouldNotPutOnOutfit     = "CouldNotPutOnOutfit"
	NoticeReplacedMissingWearable = "ReplacedMissingWearable"
	NoticeCorruptWearable         = "CorruptWearable"
	NoticeCannotWearTrash         = "CannotWearTrash"
	NoticeCannotChangeUntilLoaded = "CanNotChangeAppearanceUntilLoaded"
	NoticeOutfitNotFound          = "OutfitNotFound"
)

// Notice is a user-facing message keyed by name.
type Notice struct {
	Name string
	Args map[string]string
}

// Notifier delivers notices.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notice)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notice) { f(n) }

type logNotifier struct {
	logger *slog.Logger
}

func (l logNotifier) Notify(n Notice) {
	attrs := make([]any, 0, 2+2*len(n.Args))
	attrs = append(attrs, "notice", n.Name)
	for k, v := range n.Args {
		attrs = append(attrs, k, v)
	}
	l.logger.Info("notice", attrs...)
}
