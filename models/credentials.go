package models

// Credential file keys
const (
	KeyKorailID         = "KORAIL_ID"
	KeyKorailPW         = "KORAIL_PW"
	KeyTelegramBotToken = "TELEGRAM_BOT_TOKEN"
	KeyTelegramChatID   = "TELEGRAM_CHAT_ID"
)

// CredentialKeys lists the recognized credential keys in file order
var CredentialKeys = []string{KeyKorailID, KeyKorailPW, KeyTelegramBotToken, KeyTelegramChatID}

// Credentials holds the provider login and the optional notification target
type Credentials struct {
	KorailID         string
	KorailPW         string
	TelegramBotToken string
	TelegramChatID   string
}

// CredentialsFromMap picks the recognized keys out of a key-value map
func CredentialsFromMap(m map[string]string) Credentials {
	return Credentials{
		KorailID:         m[KeyKorailID],
		KorailPW:         m[KeyKorailPW],
		TelegramBotToken: m[KeyTelegramBotToken],
		TelegramChatID:   m[KeyTelegramChatID],
	}
}
