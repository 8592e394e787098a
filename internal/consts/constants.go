package consts

// Chat commands, without the leading slash
const (
	CommandStart         = "start"
	CommandHelp          = "help"
	CommandStatus        = "status"
	CommandBuy           = "buy"
	CommandAddPremium    = "add_premium"
	CommandRemovePremium = "remove_premium"
	CommandPremiumList   = "premium_list"
)

// CommandUnknown labels unrecognised commands in metrics.
const CommandUnknown = "unknown"

// Non-command message kinds, used as metrics labels
const (
	KindLink        = "link"
	KindInvalidLink = "invalid_link"
)

// Accepted link schemes
const (
	SchemeHTTP  = "http://"
	SchemeHTTPS = "https://"
)

// AdminCommands require the configured admin id.
var AdminCommands = map[string]bool{
	CommandAddPremium:    true,
	CommandRemovePremium: true,
	CommandPremiumList:   true,
}
