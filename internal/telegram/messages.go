package telegram

// User-facing message texts. Sent as plain text, so angle brackets are literal.

const (
	MsgWelcome = `🎥 Send me a YouTube/Instagram/TikTok link and I'll download it for you!
✅ Free users: Limited downloads daily
💎 Premium users: Unlimited downloads
Use /buy to learn more about Premium.`

	MsgStatusPremium      = "You are a Premium user ✅ Unlimited downloads."
	MsgStatusFreeTemplate = "Free downloads left today: %d"

	MsgAdminOnly            = "Only admin can use this command."
	MsgInvalidUserID        = "Invalid user id."
	MsgUsageTemplate        = "Usage: /%s <user_id>"
	MsgPremiumAddedTemplate = "Added %d as premium user."
	MsgPremiumRemovedTmpl   = "Removed %d from premium users."
	MsgPremiumListEmpty     = "No premium users yet."
	MsgPremiumListHeader    = "💎 Premium users (%d):"

	MsgUnknownCommand = "Unknown command. Use /start to see what I can do."
	MsgInvalidLink    = "Please send a valid video link."
	MsgLimitReached   = "⚠️ Free limit reached. Use /buy to upgrade."
	MsgBusy           = "⏳ Too many requests right now. Please try again in a moment."
	MsgStorageFailure = "❌ Could not record your request right now. Please try again later."

	// Transient reply lifecycle
	MsgDownloading            = "Downloading... ⏳"
	MsgUploading              = "Uploading..."
	MsgDownloadFailed         = "Download failed."
	MsgDownloadFailedTemplate = "❌ Download failed: %v"
	MsgFileTooLarge           = "File too large to send via Telegram."
	MsgErrorTemplate          = "Error: %v"
)
