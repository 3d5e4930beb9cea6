package common

// MaxCallbackDataBytes is the Telegram limit for inline button callback data.
// Every button token the bot produces must fit into it.
const MaxCallbackDataBytes = 64
