package bot

const (
	textBlocked         = "⛔ You have been blocked."
	textJoinRequired    = "To use the bot, please join the channels below first:"
	textJoinConfirmed   = "✅ Membership confirmed."
	textStillNotJoined  = "❌ You have not joined all the channels yet."
	textMainMenu        = "Main menu:"
	textSendLink        = "Please send the %s link:"
	textGenericError    = "Something went wrong, please try again later."
	textRecheckButton   = "✅ Check membership"
	textJoinButton      = "📢 Join %s"
	textSupportButton   = "📞 Contact support"
	textPlatformButton  = "📥 Download from %s"
	textBackButton      = "🔙 Back"
	textInlineTitle     = "Download from %s"
	textInlineMessage   = "Processing link: %s"
	textInlineHint      = "Tap to get the file"
	textInlineStart     = "📥 Get the file"
	textNewUser         = "🆕 New user:\nID: %d\nName: %s\nUsername: %s"
	textInlineReport    = "📥 Inline mode used:\n👤 User: %s (%s)\n🆔 ID: %d\n🔗 Link: %s"
	textBannerSaved     = "✅ Start banner saved."
	textBannerUsage     = "Reply to a photo or video with /setstart."
	textBroadcastDone   = "✅ Broadcast finished: %s."
	textBroadcastFailed = "⚠️ Broadcast stopped early (%s): %v"
	textUserBlocked     = "⛔ User %d blocked."
	textUserUnblocked   = "✅ User %d unblocked."
	textUserNotFound    = "User not found."
	textUserIDUsage     = "Usage: /%s <numeric user id>"
	textLockAdded       = "✅ Channel %s added to the required list."
	textLockExists      = "This channel was already added."
	textLockRemoved     = "❌ Channel %s removed from the required list."
	textLockMissing     = "This channel was not in the list."
	textLockInvalid     = "Usage: /%s @channel"
	textStats           = "👥 Users: %d\n⛔ Blocked: %d\n📢 Required channels: %d"
)
