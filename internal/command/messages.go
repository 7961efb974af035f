package command

const notRegisteredMessage = "You're not registered yet. Send /start to get going."

const welcomeBackMessage = "You're already registered with StickFix. Welcome back!"

const startConsentPrompt = "StickFix collects your sticker tags to help you find them later. Register?"

const revokePrompt = "This will delete your registration and all your tagged stickers. Continue?"

const privateModePrompt = "Toggle private mode for your stickers?"

const shufflePrompt = "Toggle shuffle mode for your stickers?"

const pleaseReplyToStickerMessage = "Reply to a sticker with /add <tag>... to tag it."

const addSucceededMessage = "Sticker tagged."

const addFailedMessage = "Couldn't tag that sticker. The tag may already be taken."

const helpMessage = `StickFix commands:
/start - register with StickFix
/revoke - remove your registration and stickers
/private - toggle private mode
/shuffle - toggle shuffle mode
/add <tag>... - tag the sticker you replied to
/help - show this message`

const startConfirmedMessage = "You're all set!"
const startRejectedMessage = "Registration cancelled."
const revokeConfirmedMessage = "Your registration has been revoked."
const revokeRejectedMessage = "Revocation cancelled."
const privateModeEnabledMessage = "Private mode enabled."
const privateModeDisabledMessage = "Private mode disabled."
const shuffleEnabledMessage = "Shuffle enabled."
const shuffleDisabledMessage = "Shuffle disabled."
